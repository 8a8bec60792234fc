package llm

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
)

// ChatRequest is the OpenAI-compatible chat/completions body.
type ChatRequest struct {
	Model            string        `json:"model"`
	Temperature      float64       `json:"temperature"`
	TopP             float64       `json:"top_p"`
	FrequencyPenalty float64       `json:"frequency_penalty"`
	MaxTokens        int           `json:"max_tokens"`
	Messages         []ChatMessage `json:"messages"`
}

// ChatMessage is one message; Content holds text first, then the image.
type ChatMessage struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ContentPart is a text or image_url part of a multimodal message.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

// BuildRequest validates inputs and assembles an ExtractionRequest. It performs no I/O.
// An empty mimeType is sniffed from the image bytes.
func BuildRequest(image []byte, mimeType, instruction, modelID string, policy SamplingPolicy) (ExtractionRequest, error) {
	if len(image) == 0 {
		return ExtractionRequest{}, invalidInputf("image data is empty")
	}
	if strings.TrimSpace(instruction) == "" {
		return ExtractionRequest{}, invalidInputf("instruction text is empty")
	}
	if strings.TrimSpace(modelID) == "" {
		return ExtractionRequest{}, invalidInputf("model id is empty")
	}
	if err := policy.Validate(); err != nil {
		return ExtractionRequest{}, err
	}

	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if mt == "" {
		mt = SniffImageMIME(image)
	}

	return ExtractionRequest{
		ModelID:         strings.TrimSpace(modelID),
		Sampling:        policy,
		InstructionText: instruction,
		ImageData:       image,
		ImageMIMEType:   mt,
	}, nil
}

// DataURL returns the image as a base64 data URI.
func (r ExtractionRequest) DataURL() string {
	return "data:" + r.ImageMIMEType + ";base64," + base64.StdEncoding.EncodeToString(r.ImageData)
}

// Payload returns the wire body: one user message, instruction first and image second.
func (r ExtractionRequest) Payload() ChatRequest {
	return ChatRequest{
		Model:            r.ModelID,
		Temperature:      r.Sampling.Temperature,
		TopP:             r.Sampling.TopP,
		FrequencyPenalty: r.Sampling.FrequencyPenalty,
		MaxTokens:        r.Sampling.MaxTokens,
		Messages: []ChatMessage{
			{
				Role: "user",
				Content: []ContentPart{
					{Type: "text", Text: r.InstructionText},
					{Type: "image_url", ImageURL: &ImageURL{URL: r.DataURL()}},
				},
			},
		},
	}
}

// MarshalBody encodes Payload as JSON.
func (r ExtractionRequest) MarshalBody() ([]byte, error) {
	return json.Marshal(r.Payload())
}

// DecodeDataURL splits a data:<mime>;base64,<payload> URI into bytes and MIME type.
func DecodeDataURL(uri string) ([]byte, string, error) {
	s := strings.TrimSpace(uri)
	if !strings.HasPrefix(s, "data:") {
		return nil, "", invalidInputf("not a data URI")
	}
	idx := strings.IndexByte(s, ',')
	if idx < 0 {
		return nil, "", invalidInputf("data URI has no payload")
	}
	meta := s[len("data:"):idx]
	if !strings.HasSuffix(meta, ";base64") {
		return nil, "", invalidInputf("data URI is not base64 encoded")
	}
	b, err := base64.StdEncoding.DecodeString(s[idx+1:])
	if err != nil {
		return nil, "", &Error{Kind: InvalidInput, Detail: "decode data URI", Cause: err}
	}
	return b, strings.TrimSuffix(meta, ";base64"), nil
}

// SniffImageMIME detects the image type from magic bytes, falling back to image/jpeg.
func SniffImageMIME(b []byte) string {
	switch mt := http.DetectContentType(b); mt {
	case "image/jpeg", "image/png", "image/webp", "image/gif":
		return mt
	}
	return "image/jpeg"
}
