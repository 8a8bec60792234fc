package llm

import (
	"strings"

	"github.com/joseph-ayodele/idcard-extractor/constants"
)

// ImageToken is prepended for servers whose chat template expects an explicit image marker.
const ImageToken = "<image>"

// instructionRules keep the model transcribing instead of paraphrasing.
var instructionRules = []string{
	"Extract exactly as shown in image",
	"Do not translate to English",
	"No markdown formatting (no ```json)",
	"Stop after closing brace",
}

// BuildInstruction renders the task text for a schema hint: a task line, a JSON skeleton with
// the fields in order, and the transcription rules.
func BuildInstruction(hint SchemaHint) string {
	var b strings.Builder
	b.WriteString(ImageToken)
	b.WriteString("\n\nTask: Extract text from ")
	b.WriteString(hint.Document)
	b.WriteString(".\n\nOutput format JSON:\n{\n")
	for i, f := range hint.Fields {
		b.WriteString(`  "`)
		b.WriteString(f.Name)
		b.WriteString(`": "..."`)
		if i < len(hint.Fields)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("}\n\nRules:\n")
	for _, r := range instructionRules {
		b.WriteString("- ")
		b.WriteString(r)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// InstructionFor returns the built-in instruction for a document type.
func InstructionFor(doc constants.DocumentType) string {
	hint, _ := HintFor(doc)
	return BuildInstruction(hint)
}
