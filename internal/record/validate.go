package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/idcard-extractor/internal/llm"
)

// Report is the informational result of validating a record. An invalid report never turns a
// successful extraction into a failure.
type Report struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

var (
	reBirthDate = regexp.MustCompile(`\d{2}-\d{2}-\d{4}`)
	genders     = map[string]struct{}{"LAKI-LAKI": {}, "PEREMPUAN": {}}
)

// Validate checks fields against the hint's JSON schema and the identity-card rules.
func Validate(hint llm.SchemaHint, fields map[string]string) Report {
	r := Report{Valid: true}

	doc := make(map[string]any, len(fields))
	for k, v := range fields {
		doc[k] = v
	}
	if err := ValidateAgainstSchema(llm.BuildJSONSchema(hint), doc); err != nil {
		r.Errors = append(r.Errors, schemaMessages(err)...)
	}

	if nik, ok := fields["NIK"]; ok {
		switch {
		case len(nik) != 16:
			r.Errors = append(r.Errors, fmt.Sprintf("NIK must be 16 digits, got %d", len(nik)))
		case strings.Trim(nik, "0123456789") != "":
			r.Errors = append(r.Errors, "NIK must contain only digits")
		}
	}
	if v, ok := fields["TempatTglLahir"]; ok && !reBirthDate.MatchString(v) {
		r.Warnings = append(r.Warnings, "date of birth should be DD-MM-YYYY, got: "+v)
	}
	if v, ok := fields["JenisKelamin"]; ok {
		if _, known := genders[v]; !known {
			r.Warnings = append(r.Warnings, "unexpected gender value: "+v)
		}
	}

	r.Valid = len(r.Errors) == 0
	return r
}

// ValidateAgainstSchema validates a decoded document against schemaMap.
func ValidateAgainstSchema(schemaMap map[string]any, doc any) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("record does not match schema: %w", err)
	}
	return nil
}

// schemaMessages flattens a jsonschema error tree into one message per failing leaf.
func schemaMessages(err error) []string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}
	var out []string
	var walk func(v *jsonschema.ValidationError)
	walk = func(v *jsonschema.ValidationError) {
		if len(v.Causes) == 0 {
			loc := v.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			out = append(out, loc+": "+v.Message)
			return
		}
		for _, c := range v.Causes {
			walk(c)
		}
	}
	walk(ve)
	sort.Strings(out)
	return out
}
