package record

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var (
	reNonDigit = regexp.MustCompile(`\D`)
	reRTRW     = regexp.MustCompile(`^(\d+)\s*/\s*(\d+)$`)
	upperKeys  = []string{"Agama", "StatusPerkawinan", "Kewarganegaraan", "BerlakuHingga", "JenisKelamin"}
)

// Normalize returns a copy of fields with identity-card conventions applied, plus the keys that
// changed. It only reformats; it never drops values.
func Normalize(fields map[string]string) (map[string]string, []string) {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}

	var changed []string
	set := func(k, v string) {
		if out[k] == v {
			return
		}
		out[k] = v
		if !slices.Contains(changed, k) {
			changed = append(changed, k)
		}
	}

	for k, v := range fields {
		set(k, strings.Join(strings.Fields(v), " "))
	}

	if v, ok := out["NIK"]; ok {
		set("NIK", reNonDigit.ReplaceAllString(v, ""))
	}
	for _, k := range upperKeys {
		if v, ok := out[k]; ok {
			set(k, strings.ToUpper(v))
		}
	}
	if v, ok := out["JenisKelamin"]; ok {
		set("JenisKelamin", normalizeGender(v))
	}
	if v, ok := out["RTRW"]; ok {
		if m := reRTRW.FindStringSubmatch(v); m != nil {
			rt, _ := strconv.Atoi(m[1])
			rw, _ := strconv.Atoi(m[2])
			set("RTRW", fmt.Sprintf("%03d/%03d", rt, rw))
		}
	}
	return out, changed
}

// normalizeGender maps the printed or translated gender to LAKI-LAKI / PEREMPUAN. Unknown
// values are returned unchanged.
func normalizeGender(v string) string {
	g := strings.ToUpper(strings.TrimSpace(v))
	switch {
	case strings.Contains(g, "PEREMPUAN"), strings.Contains(g, "FEMALE"), g == "P", g == "WANITA":
		return "PEREMPUAN"
	case strings.Contains(g, "LAKI"), strings.Contains(g, "MALE"), g == "L", g == "PRIA":
		return "LAKI-LAKI"
	}
	return g
}
