// Package record turns the text a vision model returned into a normalised, validated
// identity-document record. It runs after a successful extraction and never changes its
// outcome.
package record

import (
	"encoding/json"

	"github.com/joseph-ayodele/idcard-extractor/internal/llm"
)

// Result bundles every post-processing step for one answer.
type Result struct {
	Record  Record   `json:"record"`
	Changed []string `json:"changed,omitempty"`
	Report  Report   `json:"report"`
}

// Process parses, normalises and validates content. A parse failure yields an invalid report
// with an empty record instead of an error.
func Process(content string, hint llm.SchemaHint) Result {
	rec, err := Parse(content, hint)
	if err != nil {
		return Result{
			Record: Record{Fields: map[string]string{}},
			Report: Report{Valid: false, Errors: []string{err.Error()}},
		}
	}
	fields, changed := Normalize(rec.Fields)
	rec.Fields = fields
	return Result{
		Record:  rec,
		Changed: changed,
		Report:  Validate(hint, fields),
	}
}

// JSON returns the normalised fields as an indented JSON object.
func (r Result) JSON() ([]byte, error) {
	return json.MarshalIndent(r.Record.Fields, "", "  ")
}
