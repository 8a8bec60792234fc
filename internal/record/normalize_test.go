package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	in := map[string]string{
		"NIK":             "3171-2345 6789 0123",
		"Nama":            "BUDI   SANTOSO",
		"Agama":           "islam",
		"JenisKelamin":    "Female",
		"RTRW":            "5/ 3",
		"Kewarganegaraan": "WNI",
		"Alamat":          "JL. MAWAR NO. 1",
	}

	out, changed := Normalize(in)

	assert.Equal(t, "3171234567890123", out["NIK"])
	assert.Equal(t, "BUDI SANTOSO", out["Nama"])
	assert.Equal(t, "ISLAM", out["Agama"])
	assert.Equal(t, "PEREMPUAN", out["JenisKelamin"])
	assert.Equal(t, "005/003", out["RTRW"])
	assert.Equal(t, "WNI", out["Kewarganegaraan"])
	assert.ElementsMatch(t, []string{"NIK", "Nama", "Agama", "JenisKelamin", "RTRW"}, changed)

	// input is not modified
	assert.Equal(t, "islam", in["Agama"])
}

func TestNormalizeGender(t *testing.T) {
	tests := map[string]string{
		"LAKI-LAKI":   "LAKI-LAKI",
		"laki laki":   "LAKI-LAKI",
		"Male":        "LAKI-LAKI",
		"L":           "LAKI-LAKI",
		"pria":        "LAKI-LAKI",
		"PEREMPUAN":   "PEREMPUAN",
		"female":      "PEREMPUAN",
		"P":           "PEREMPUAN",
		"Wanita":      "PEREMPUAN",
		"tidak jelas": "TIDAK JELAS",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeGender(in), in)
	}
}

func TestNormalize_LeavesUnparseableRTRW(t *testing.T) {
	out, changed := Normalize(map[string]string{"RTRW": "005-003"})
	assert.Equal(t, "005-003", out["RTRW"])
	assert.Empty(t, changed)
}
