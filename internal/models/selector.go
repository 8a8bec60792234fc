package models

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/idcard-extractor/constants"
)

type Priority string

const (
	PriorityBalanced Priority = "balanced"
	PriorityAccuracy Priority = "accuracy"
	PrioritySpeed    Priority = "speed"
	PriorityMemory   Priority = "memory"
)

// DefaultVRAMGB is assumed when the GPU cannot be queried.
const DefaultVRAMGB = 16.0

func ParsePriority(s string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PriorityBalanced, nil
	case PriorityBalanced, PriorityAccuracy, PrioritySpeed, PriorityMemory:
		return p, nil
	}
	return "", fmt.Errorf("unknown priority %q (want balanced, accuracy, speed or memory)", s)
}

// Selector picks models under a VRAM budget.
type Selector struct {
	AvailableVRAMGB float64
}

// Selection is the chosen model and a one-line reason.
type Selection struct {
	Model  Model  `json:"model"`
	Reason string `json:"reason"`
}

// Recommendation is a selection plus alternatives and tuning tips.
type Recommendation struct {
	Document        constants.DocumentType `json:"document_type"`
	Selected        Selection              `json:"recommended"`
	AvailableVRAMGB float64                `json:"available_vram_gb"`
	Sufficient      bool                   `json:"sufficient"`
	Alternatives    []Model                `json:"alternatives"`
	Tips            []string               `json:"optimization_tips"`
}

func NewSelector(availableVRAMGB float64) *Selector {
	if availableVRAMGB <= 0 {
		availableVRAMGB = DefaultVRAMGB
	}
	return &Selector{AvailableVRAMGB: availableVRAMGB}
}

// Select chooses between the document's primary and fallback model. Batch mode always optimises
// for speed. When neither fits in memory the lightest model is returned.
func (s *Selector) Select(doc constants.DocumentType, priority Priority, batch bool) Selection {
	pair, ok := documentModels[doc]
	if !ok {
		pair = documentModels[constants.Unknown]
	}

	var fits []Model
	for _, id := range pair {
		if m := catalog[id]; m.VRAMGB <= s.AvailableVRAMGB {
			fits = append(fits, m)
		}
	}
	if len(fits) == 0 {
		return Selection{
			Model:  catalog[LightestModelID],
			Reason: fmt.Sprintf("insufficient VRAM (%.1fGB); using lightest model", s.AvailableVRAMGB),
		}
	}

	if batch {
		priority = PrioritySpeed
	}
	switch priority {
	case PrioritySpeed:
		sort.SliceStable(fits, func(i, j int) bool { return fits[i].SpeedSeconds < fits[j].SpeedSeconds })
		return Selection{Model: fits[0], Reason: fmt.Sprintf("selected for speed: %.1fs per document", fits[0].SpeedSeconds)}
	case PriorityMemory:
		sort.SliceStable(fits, func(i, j int) bool { return fits[i].VRAMGB < fits[j].VRAMGB })
		return Selection{Model: fits[0], Reason: fmt.Sprintf("selected for memory: %.1fGB VRAM", fits[0].VRAMGB)}
	case PriorityAccuracy:
		sort.SliceStable(fits, func(i, j int) bool { return fits[i].AccuracyPct > fits[j].AccuracyPct })
		return Selection{Model: fits[0], Reason: fmt.Sprintf("selected for accuracy: %.0f%%", fits[0].AccuracyPct)}
	}
	return Selection{Model: fits[0], Reason: fmt.Sprintf("best for %s: %s", strings.ToUpper(string(doc)), fits[0].Notes)}
}

// Recommend returns the selection with up to three alternatives that suit the document and fit
// in memory, ordered by accuracy.
func (s *Selector) Recommend(doc constants.DocumentType, priority Priority) Recommendation {
	sel := s.Select(doc, priority, false)

	var alts []Model
	for _, m := range All() {
		if m.ID == sel.Model.ID || m.Avoid || m.VRAMGB > s.AvailableVRAMGB || !m.suits(doc) {
			continue
		}
		alts = append(alts, m)
	}
	sort.SliceStable(alts, func(i, j int) bool { return alts[i].AccuracyPct > alts[j].AccuracyPct })
	if len(alts) > 3 {
		alts = alts[:3]
	}

	return Recommendation{
		Document:        doc,
		Selected:        sel,
		AvailableVRAMGB: s.AvailableVRAMGB,
		Sufficient:      sel.Model.VRAMGB <= s.AvailableVRAMGB,
		Alternatives:    alts,
		Tips:            s.tips(doc, sel.Model),
	}
}

func (s *Selector) tips(doc constants.DocumentType, m Model) []string {
	var tips []string
	if m.VRAMGB > s.AvailableVRAMGB*0.8 {
		tips = append(tips, "Model uses more than 80% of VRAM; consider a smaller variant for batches.")
	}
	if m.SpeedSeconds > 15 {
		tips = append(tips, "Slow model; use a q4k variant for faster processing.")
	}
	if m.AccuracyPct < 100 && (doc == constants.KTP || doc == constants.Passport) {
		tips = append(tips, "For critical documents consider a higher quality model if VRAM allows.")
	}
	if doc == constants.Ijazah && m.ID == "paddleocr-vl" {
		tips = append(tips, "paddleocr-vl-q6k is faster and lighter on text-heavy documents.")
	}
	if len(tips) == 0 {
		tips = append(tips, "Optimal model selected.")
	}
	return tips
}

// DetectVRAMGB asks nvidia-smi for the first GPU's total memory and falls back to DefaultVRAMGB.
func DetectVRAMGB(ctx context.Context) float64 {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, "nvidia-smi", "--query-gpu=memory.total", "--format=csv,noheader,nounits").Output()
	if err != nil {
		return DefaultVRAMGB
	}
	first := strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0])
	mb, err := strconv.ParseFloat(first, 64)
	if err != nil || mb <= 0 {
		return DefaultVRAMGB
	}
	return mb / 1024.0
}
