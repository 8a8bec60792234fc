package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/idcard-extractor/constants"
)

func TestSelect(t *testing.T) {
	tests := []struct {
		name     string
		vram     float64
		doc      constants.DocumentType
		priority Priority
		batch    bool
		want     string
	}{
		{name: "ktp balanced", vram: 16, doc: constants.KTP, priority: PriorityBalanced, want: "paddleocr-vl"},
		{name: "ktp batch forces speed", vram: 16, doc: constants.KTP, priority: PriorityAccuracy, batch: true, want: "paddleocr-vl-q4k"},
		{name: "ktp low vram", vram: 4, doc: constants.KTP, priority: PriorityBalanced, want: "paddleocr-vl-q4k"},
		{name: "ijazah memory", vram: 16, doc: constants.Ijazah, priority: PriorityMemory, want: "paddleocr-vl-q6k"},
		{name: "ijazah accuracy", vram: 16, doc: constants.Ijazah, priority: PriorityAccuracy, want: "paddleocr-vl"},
		{name: "invoice without room for dots", vram: 8, doc: constants.Invoice, priority: PriorityBalanced, want: "paddleocr-vl-q6k"},
		{name: "unknown document", vram: 16, doc: constants.DocumentType("visa"), priority: PriorityBalanced, want: "paddleocr-vl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := NewSelector(tt.vram).Select(tt.doc, tt.priority, tt.batch)
			assert.Equal(t, tt.want, sel.Model.ID)
			assert.NotEmpty(t, sel.Reason)
		})
	}
}

func TestSelect_NothingFits(t *testing.T) {
	sel := NewSelector(1).Select(constants.KTP, PriorityBalanced, false)
	assert.Equal(t, LightestModelID, sel.Model.ID)
	assert.Contains(t, sel.Reason, "insufficient VRAM")
}

func TestNewSelector_DefaultVRAM(t *testing.T) {
	assert.Equal(t, DefaultVRAMGB, NewSelector(0).AvailableVRAMGB)
}

func TestRecommend(t *testing.T) {
	rec := NewSelector(16).Recommend(constants.Ijazah, PriorityBalanced)
	assert.Equal(t, "paddleocr-vl-q6k", rec.Selected.Model.ID)
	assert.True(t, rec.Sufficient)
	require.Len(t, rec.Alternatives, 1)
	assert.Equal(t, "paddleocr-vl-q8k", rec.Alternatives[0].ID)

	rec = NewSelector(16).Recommend(constants.KTP, PriorityBalanced)
	assert.Equal(t, "paddleocr-vl", rec.Selected.Model.ID)
	for _, m := range rec.Alternatives {
		assert.False(t, m.Avoid, m.ID)
		assert.NotEqual(t, rec.Selected.Model.ID, m.ID)
	}
	assert.Equal(t, []string{"Optimal model selected."}, rec.Tips)
}

func TestRecommend_TipsForTightVRAM(t *testing.T) {
	rec := NewSelector(10).Recommend(constants.KTP, PriorityBalanced)
	assert.Equal(t, "paddleocr-vl", rec.Selected.Model.ID)
	assert.Contains(t, rec.Tips[0], "80% of VRAM")
}

func TestParsePriority(t *testing.T) {
	p, err := ParsePriority("")
	require.NoError(t, err)
	assert.Equal(t, PriorityBalanced, p)

	p, err = ParsePriority(" Speed ")
	require.NoError(t, err)
	assert.Equal(t, PrioritySpeed, p)

	_, err = ParsePriority("cheap")
	assert.Error(t, err)
}

func TestCatalog(t *testing.T) {
	all := All()
	require.Len(t, all, 8)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].ID, all[i].ID)
	}
	m, ok := Lookup("deepseek-ocr-q4k")
	require.True(t, ok)
	assert.True(t, m.Avoid)
	for doc, pair := range documentModels {
		for _, id := range pair {
			_, ok := Lookup(id)
			assert.True(t, ok, "%s -> %s", doc, id)
		}
	}
}
