package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/idcard-extractor/internal/llm"
)

// Sources of a parsed record.
const (
	SourceJSON  = "json"
	SourceLines = "lines"
)

var ErrNoFields = errors.New("record: no fields found in content")

// Record is the structured view of one extraction answer.
type Record struct {
	Fields map[string]string `json:"fields"`
	Source string            `json:"source"`
}

// labelSynonyms maps normalised labels (lower case, letters and digits only) to canonical
// field names. Labels matching a hint field name directly need no entry.
var labelSynonyms = map[string]string{
	"nomorindukkependudukan": "NIK",
	"name":                   "Nama",
	"namalengkap":            "Nama",
	"tempattanggallahir":     "TempatTglLahir",
	"tempattgllahir":         "TempatTglLahir",
	"tempatlahir":            "TempatTglLahir",
	"birthplacedate":         "TempatTglLahir",
	"gender":                 "JenisKelamin",
	"sex":                    "JenisKelamin",
	"address":                "Alamat",
	"rtrw":                   "RTRW",
	"keldesa":                "KelDesa",
	"kelurahan":              "KelDesa",
	"desa":                   "KelDesa",
	"village":                "KelDesa",
	"district":               "Kecamatan",
	"religion":               "Agama",
	"statuskawin":            "StatusPerkawinan",
	"maritalstatus":          "StatusPerkawinan",
	"occupation":             "Pekerjaan",
	"nationality":            "Kewarganegaraan",
	"berlaku":                "BerlakuHingga",
	"validuntil":             "BerlakuHingga",
	"nomorsim":               "NomorSIM",
	"nosim":                  "NomorSIM",
	"programstudi":           "ProgramStudi",
	"tanggallulus":           "TanggalLulus",
	"nomorijazah":            "NomorIjazah",
}

var (
	reLabelKey = regexp.MustCompile(`[^a-z0-9]+`)
	reLine     = regexp.MustCompile(`^\s*([A-Za-z][A-Za-z0-9 ./_-]{0,40}?)\s*[:：]\s*(.*)$`)
)

func normaliseLabel(s string) string {
	return reLabelKey.ReplaceAllString(strings.ToLower(s), "")
}

// canonicalName resolves a label to the hint's field name; unknown labels are kept verbatim.
func canonicalName(hint llm.SchemaHint, label string) (string, bool) {
	key := normaliseLabel(label)
	for _, f := range hint.Fields {
		if normaliseLabel(f.Name) == key {
			return f.Name, true
		}
	}
	if name, ok := labelSynonyms[key]; ok {
		return name, true
	}
	return strings.TrimSpace(label), false
}

// Parse reads content as a JSON object first and falls back to "Label: value" lines.
func Parse(content string, hint llm.SchemaHint) (Record, error) {
	s := Clean(content)
	if s == "" {
		return Record{}, ErrNoFields
	}

	if fields, ok := parseJSON(s, hint); ok {
		return Record{Fields: fields, Source: SourceJSON}, nil
	}

	fields := parseLines(s, hint)
	if len(fields) == 0 {
		return Record{}, ErrNoFields
	}
	return Record{Fields: fields, Source: SourceLines}, nil
}

func parseJSON(s string, hint llm.SchemaHint) (map[string]string, bool) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s[start:end+1]), &m); err != nil {
		return nil, false
	}

	out := make(map[string]string, len(m))
	for k, v := range m {
		val, ok := stringValue(v)
		if !ok {
			continue
		}
		name, _ := canonicalName(hint, k)
		// an exact key wins over a synonym
		if _, exists := out[name]; exists && k != name {
			continue
		}
		out[name] = val
	}
	return out, len(out) > 0
}

func stringValue(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		s := strings.TrimSpace(t)
		if s == "" || s == "..." {
			return "", false
		}
		return s, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return fmt.Sprint(t), true
	}
}

func parseLines(s string, hint llm.SchemaHint) map[string]string {
	out := map[string]string{}
	for _, line := range strings.Split(s, "\n") {
		m := reLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name, known := canonicalName(hint, m[1])
		if !known {
			continue
		}
		val := strings.TrimSpace(strings.TrimLeft(m[2], ":- "))
		if val == "" {
			continue
		}
		if _, exists := out[name]; !exists {
			out[name] = val
		}
	}
	return out
}
