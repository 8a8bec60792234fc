// Package models knows which OCR-capable vision models exist and picks one for a document
// type under a VRAM budget.
package models

import (
	"sort"

	"github.com/joseph-ayodele/idcard-extractor/constants"
)

// Model describes measured or estimated characteristics of one served model.
type Model struct {
	ID           string                   `json:"model_id"`
	VRAMGB       float64                  `json:"vram_gb"`
	SpeedSeconds float64                  `json:"speed_seconds"`
	AccuracyPct  float64                  `json:"accuracy_pct"`
	BestFor      []constants.DocumentType `json:"best_for,omitempty"`
	Notes        string                   `json:"notes,omitempty"`
	Avoid        bool                     `json:"avoid,omitempty"`
}

// LightestModelID is used when nothing else fits in memory.
const LightestModelID = "paddleocr-vl-q4k"

var catalog = map[string]Model{
	"paddleocr-vl": {
		ID: "paddleocr-vl", VRAMGB: 9.0, SpeedSeconds: 10.0, AccuracyPct: 100,
		BestFor: []constants.DocumentType{constants.KTP, constants.SIM, constants.KartuKeluarga, constants.Akta},
		Notes:   "Best for Indonesian ID documents. No duplicate lines.",
	},
	"paddleocr-vl-q4k": {
		ID: "paddleocr-vl-q4k", VRAMGB: 2.5, SpeedSeconds: 6.0, AccuracyPct: 95,
		BestFor: []constants.DocumentType{constants.KTP, constants.SIM, constants.NPWP, constants.Receipt},
		Notes:   "Fastest and lightest. Good for batches with a slight accuracy drop.",
	},
	"paddleocr-vl-q6k": {
		ID: "paddleocr-vl-q6k", VRAMGB: 4.5, SpeedSeconds: 7.5, AccuracyPct: 98,
		BestFor: []constants.DocumentType{constants.Ijazah, constants.Sertifikat, constants.Passport},
		Notes:   "Balanced choice for text-heavy documents.",
	},
	"paddleocr-vl-q8k": {
		ID: "paddleocr-vl-q8k", VRAMGB: 6.5, SpeedSeconds: 9.0, AccuracyPct: 99,
		BestFor: []constants.DocumentType{constants.Ijazah, constants.Sertifikat},
		Notes:   "Near-FP16 quality.",
	},
	"deepseek-ocr": {
		ID: "deepseek-ocr", VRAMGB: 13.0, SpeedSeconds: 18.0, AccuracyPct: 100,
		Notes: "Known to repeat lines; prefer paddleocr-vl.", Avoid: true,
	},
	"deepseek-ocr-q4k": {
		ID: "deepseek-ocr-q4k", VRAMGB: 5.0, SpeedSeconds: 12.0, AccuracyPct: 0,
		Notes: "Returns empty answers; do not use.", Avoid: true,
	},
	"deepseek-ocr-q6k": {
		ID: "deepseek-ocr-q6k", VRAMGB: 7.0, SpeedSeconds: 14.0, AccuracyPct: 98,
		BestFor: []constants.DocumentType{constants.Passport},
		Notes:   "Fallback only when paddleocr-vl fails.",
	},
	"dots-ocr-q4k": {
		ID: "dots-ocr-q4k", VRAMGB: 18.0, SpeedSeconds: 35.0, AccuracyPct: 95,
		BestFor: []constants.DocumentType{constants.Invoice, constants.Form},
		Notes:   "Complex layouts with tables; includes bounding boxes.",
	},
}

// primary and fallback model per document type
var documentModels = map[constants.DocumentType][2]string{
	constants.KTP:           {"paddleocr-vl", "paddleocr-vl-q4k"},
	constants.SIM:           {"paddleocr-vl", "paddleocr-vl-q4k"},
	constants.Ijazah:        {"paddleocr-vl-q6k", "paddleocr-vl"},
	constants.Sertifikat:    {"paddleocr-vl-q6k", "paddleocr-vl-q8k"},
	constants.Passport:      {"paddleocr-vl-q6k", "deepseek-ocr-q6k"},
	constants.KartuKeluarga: {"paddleocr-vl", "paddleocr-vl-q6k"},
	constants.NPWP:          {"paddleocr-vl-q4k", "paddleocr-vl"},
	constants.Akta:          {"paddleocr-vl", "paddleocr-vl-q6k"},
	constants.Invoice:       {"dots-ocr-q4k", "paddleocr-vl-q6k"},
	constants.Receipt:       {"paddleocr-vl-q4k", "paddleocr-vl"},
	constants.Form:          {"dots-ocr-q4k", "paddleocr-vl-q6k"},
	constants.Unknown:       {"paddleocr-vl", "paddleocr-vl-q4k"},
}

// Lookup returns a catalog entry.
func Lookup(id string) (Model, bool) {
	m, ok := catalog[id]
	return m, ok
}

// All returns the catalog sorted by id.
func All() []Model {
	out := make([]Model, 0, len(catalog))
	for _, m := range catalog {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m Model) suits(doc constants.DocumentType) bool {
	for _, d := range m.BestFor {
		if d == doc {
			return true
		}
	}
	return false
}
