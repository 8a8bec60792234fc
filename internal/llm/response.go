package llm

import (
	"encoding/json"
)

// contentShape locates the answer text in one backend's response convention.
type contentShape struct {
	name    string
	extract func(doc any) (string, bool)
}

// contentShapes are tried in order; the first one yielding a string wins.
var contentShapes = []contentShape{
	{name: "choices[0].message.content", extract: choicesContent}, // OpenAI-compatible
	{name: "message.content", extract: messageContent},            // native chat APIs
	{name: "response", extract: responseField},                    // generate APIs
}

func choicesContent(doc any) (string, bool) {
	choices, ok := field(doc, "choices").([]any)
	if !ok || len(choices) == 0 {
		return "", false
	}
	s, ok := field(field(choices[0], "message"), "content").(string)
	return s, ok
}

func messageContent(doc any) (string, bool) {
	s, ok := field(field(doc, "message"), "content").(string)
	return s, ok
}

func responseField(doc any) (string, bool) {
	s, ok := field(doc, "response").(string)
	return s, ok
}

func field(v any, key string) any {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return m[key]
}

// Interpreter turns a transport outcome into content text or a classified *Error.
// ModelID only feeds diagnostic hints.
type Interpreter struct {
	ModelID string
}

// Interpret resolves an outcome without model context.
func Interpret(o Outcome) (string, error) {
	return Interpreter{}.Interpret(o)
}

// Interpret returns the answer text for a 2xx outcome, or an *Error of kind ServerError
// (non-2xx) or MalformedResponse (2xx without a known content shape).
func (in Interpreter) Interpret(o Outcome) (string, error) {
	if !o.Success() {
		return "", &Error{
			Kind:       ServerError,
			StatusCode: o.StatusCode,
			Detail:     string(o.Body),
			Hint:       DiagnoseStatus(o.StatusCode, o.Body, in.ModelID),
		}
	}

	var doc any
	if err := json.Unmarshal(o.Body, &doc); err != nil {
		return "", &Error{Kind: MalformedResponse, StatusCode: o.StatusCode, Detail: string(o.Body), Cause: err}
	}
	if content, _, ok := ExtractContent(doc); ok {
		return content, nil
	}
	return "", &Error{Kind: MalformedResponse, StatusCode: o.StatusCode, Detail: string(o.Body)}
}

// ExtractContent runs the content-shape chain over a decoded JSON document and reports
// which shape matched.
func ExtractContent(doc any) (content, shape string, ok bool) {
	for _, s := range contentShapes {
		if c, ok := s.extract(doc); ok {
			return c, s.name, true
		}
	}
	return "", "", false
}
