package llm

import (
	"fmt"
	"net/http"
	"strings"
	"unicode"
)

// Hint codes.
const (
	HintAuth          = "auth"
	HintModelNotFound = "model_not_found"
	HintOutOfMemory   = "out_of_memory"
	HintUnreachable   = "unreachable"
	HintTimeout       = "timeout"
)

// Hint is diagnostic guidance attached to a failure. It is informational only.
type Hint struct {
	Code        string
	Summary     string
	Suggestions []string
}

func (h Hint) String() string {
	if len(h.Suggestions) == 0 {
		return h.Summary
	}
	return h.Summary + " " + strings.Join(h.Suggestions, " ")
}

type hintTemplate func(model string) Hint

// statusHints maps a status code to its hint template.
var statusHints = map[int]hintTemplate{
	http.StatusUnauthorized: func(string) Hint {
		return Hint{
			Code:    HintAuth,
			Summary: "Authentication failed: the bearer token is invalid or expired.",
			Suggestions: []string{
				"Create a new API key in the server UI (Settings -> Account -> API Keys).",
				"Set it via IDCARD_API_TOKEN.",
			},
		}
	},
	http.StatusNotFound: func(model string) Hint {
		return Hint{
			Code:    HintModelNotFound,
			Summary: fmt.Sprintf("Model %s was not found on the server.", quoteModel(model)),
			Suggestions: []string{
				fmt.Sprintf("Pull it on the server: ollama pull %s", pullName(model)),
			},
		}
	},
}

// memoryWords select the out-of-memory hint for a 500 response. Only whole
// words match: "payload" does not count as "load".
var memoryWords = map[string]bool{
	"memory":    true,
	"oom":       true,
	"load":      true,
	"loading":   true,
	"resource":  true,
	"resources": true,
	"cuda":      true,
}

func outOfMemoryHint(model string) Hint {
	return Hint{
		Code:    HintOutOfMemory,
		Summary: fmt.Sprintf("The server likely ran out of memory loading model %s.", quoteModel(model)),
		Suggestions: []string{
			"Check the model is installed: docker exec -it open-webui ollama list",
			"Use a smaller quantized variant, e.g. paddleocr-vl:q4k (2-3GB VRAM).",
			"Monitor VRAM/RAM with nvtop or htop; keep at least 4GB free.",
		},
	}
}

// DiagnoseStatus returns the hint for a non-2xx status and body, or nil when there is none.
func DiagnoseStatus(statusCode int, body []byte, model string) *Hint {
	if statusCode == http.StatusInternalServerError {
		if containsWord(strings.ToLower(string(body)), memoryWords) {
			h := outOfMemoryHint(model)
			return &h
		}
		return nil
	}
	if tmpl, ok := statusHints[statusCode]; ok {
		h := tmpl(model)
		return &h
	}
	return nil
}

func unreachableHint(url string) *Hint {
	return &Hint{
		Code:    HintUnreachable,
		Summary: fmt.Sprintf("Cannot connect to the inference server at %s.", url),
		Suggestions: []string{
			"Check that the server is running.",
			"Check that the SSH tunnel is active, e.g. ssh -L 23333:localhost:23333 <host>.",
		},
	}
}

func timeoutHint() *Hint {
	return &Hint{
		Code:    HintTimeout,
		Summary: "The request timed out before the server answered.",
		Suggestions: []string{
			"Vision inference is slow; raise IDCARD_TIMEOUT or pick a lighter model.",
		},
	}
}

func containsWord(s string, words map[string]bool) bool {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, f := range fields {
		if words[f] {
			return true
		}
	}
	return false
}

func quoteModel(model string) string {
	if model == "" {
		return "(requested model)"
	}
	return "'" + model + "'"
}

func pullName(model string) string {
	if model == "" {
		return "<model>"
	}
	return model
}
