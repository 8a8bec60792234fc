package constants

import (
	"strings"
)

type DocumentType string

const (
	KTP           DocumentType = "ktp"
	SIM           DocumentType = "sim"
	Ijazah        DocumentType = "ijazah"
	Sertifikat    DocumentType = "sertifikat"
	Passport      DocumentType = "passport"
	KartuKeluarga DocumentType = "kk"
	NPWP          DocumentType = "npwp"
	Akta          DocumentType = "akta"
	Invoice       DocumentType = "invoice"
	Receipt       DocumentType = "receipt"
	Form          DocumentType = "form"
	Unknown       DocumentType = "unknown"
)

var allDocumentTypes = []DocumentType{
	KTP,
	SIM,
	Ijazah,
	Sertifikat,
	Passport,
	KartuKeluarga,
	NPWP,
	Akta,
	Invoice,
	Receipt,
	Form,
}

func DocumentTypes() []DocumentType {
	out := make([]DocumentType, len(allDocumentTypes))
	copy(out, allDocumentTypes)
	return out
}

func AsStringSlice() []string {
	result := make([]string, len(allDocumentTypes))
	for i, d := range allDocumentTypes {
		result[i] = string(d)
	}
	return result
}

// ParseDocumentType maps user input (including common aliases) to a DocumentType.
// Unrecognised input yields Unknown and false.
func ParseDocumentType(input string) (DocumentType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return Unknown, false
	}

	aliases := map[string]DocumentType{
		"e-ktp":          KTP,
		"ektp":           KTP,
		"diploma":        Ijazah,
		"certificate":    Sertifikat,
		"paspor":         Passport,
		"kartu-keluarga": KartuKeluarga,
	}
	if d, ok := aliases[normalized]; ok {
		return d, true
	}

	for _, d := range allDocumentTypes {
		if normalized == string(d) {
			return d, true
		}
	}
	return Unknown, false
}
