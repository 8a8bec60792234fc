package llm

import (
	"github.com/joseph-ayodele/idcard-extractor/constants"
)

// Field is one key the model is asked to fill.
type Field struct {
	Name        string
	Description string
	Required    bool
}

// SchemaHint describes the record expected for one document type. Field order is the order
// of the JSON skeleton in the instruction.
type SchemaHint struct {
	Document string
	Fields   []Field
}

// Names returns field names in order.
func (h SchemaHint) Names() []string {
	out := make([]string, 0, len(h.Fields))
	for _, f := range h.Fields {
		out = append(out, f.Name)
	}
	return out
}

var KTPHint = SchemaHint{
	Document: "Indonesian ID Card (KTP)",
	Fields: []Field{
		{Name: "NIK", Description: "16-digit population number", Required: true},
		{Name: "Nama", Description: "full name", Required: true},
		{Name: "TempatTglLahir", Description: "place and date of birth", Required: true},
		{Name: "JenisKelamin", Description: "gender", Required: true},
		{Name: "Alamat", Description: "street address", Required: true},
		{Name: "RTRW", Description: "RT/RW"},
		{Name: "KelDesa", Description: "village (kelurahan/desa)"},
		{Name: "Kecamatan", Description: "district"},
		{Name: "Agama", Description: "religion", Required: true},
		{Name: "StatusPerkawinan", Description: "marital status"},
		{Name: "Pekerjaan", Description: "occupation"},
		{Name: "Kewarganegaraan", Description: "nationality", Required: true},
	},
}

var SIMHint = SchemaHint{
	Document: "Indonesian Driver's License (SIM)",
	Fields: []Field{
		{Name: "NomorSIM", Description: "license number", Required: true},
		{Name: "Nama", Description: "full name"},
		{Name: "TempatTglLahir", Description: "place and date of birth"},
		{Name: "JenisKelamin", Description: "gender"},
		{Name: "Alamat", Description: "address"},
		{Name: "Pekerjaan", Description: "occupation"},
		{Name: "BerlakuHingga", Description: "valid until"},
		{Name: "Golongan", Description: "license class"},
	},
}

var IjazahHint = SchemaHint{
	Document: "Indonesian diploma (Ijazah)",
	Fields: []Field{
		{Name: "Nama", Description: "graduate name", Required: true},
		{Name: "Institusi", Description: "institution name", Required: true},
		{Name: "ProgramStudi", Description: "study program"},
		{Name: "Gelar", Description: "degree"},
		{Name: "TanggalLulus", Description: "graduation date"},
		{Name: "IPK", Description: "GPA if printed"},
		{Name: "NomorIjazah", Description: "certificate number"},
	},
}

var hintsByDocument = map[constants.DocumentType]SchemaHint{
	constants.KTP:    KTPHint,
	constants.SIM:    SIMHint,
	constants.Ijazah: IjazahHint,
}

// HintFor returns the built-in hint for a document type. Unknown types fall back to KTP.
func HintFor(doc constants.DocumentType) (SchemaHint, bool) {
	h, ok := hintsByDocument[doc]
	if !ok {
		return KTPHint, false
	}
	return h, true
}

// BuildJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map. Every field is
// a string; unknown keys are allowed since models often add labels of their own.
func BuildJSONSchema(hint SchemaHint) map[string]any {
	props := make(map[string]any, len(hint.Fields))
	required := make([]string, 0, len(hint.Fields))
	for _, f := range hint.Fields {
		p := map[string]any{"type": "string"}
		if f.Description != "" {
			p["description"] = f.Description
		}
		if f.Required {
			p["minLength"] = 1
			required = append(required, f.Name)
		}
		props[f.Name] = p
	}
	return map[string]any{
		"type":          "object",
		"properties":    props,
		"required":      required,
		"minProperties": 1,
	}
}
