package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestBuildRequest_InvalidInput(t *testing.T) {
	tests := []struct {
		name        string
		image       []byte
		instruction string
		model       string
		policy      SamplingPolicy
	}{
		{name: "empty image", image: nil, instruction: "Extract", model: "paddleocr-vl", policy: DefaultSamplingPolicy()},
		{name: "blank instruction", image: pngHeader, instruction: "  \n", model: "paddleocr-vl", policy: DefaultSamplingPolicy()},
		{name: "blank model", image: pngHeader, instruction: "Extract", model: " ", policy: DefaultSamplingPolicy()},
		{name: "top_p out of range", image: pngHeader, instruction: "Extract", model: "m", policy: SamplingPolicy{Temperature: 0, TopP: 1.5, MaxTokens: 10}},
		{name: "zero max tokens", image: pngHeader, instruction: "Extract", model: "m", policy: SamplingPolicy{TopP: 0.1}},
		{name: "negative temperature", image: pngHeader, instruction: "Extract", model: "m", policy: SamplingPolicy{Temperature: -1, TopP: 0.1, MaxTokens: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildRequest(tt.image, "", tt.instruction, tt.model, tt.policy)
			require.Error(t, err)
			assert.Equal(t, InvalidInput, KindOf(err))
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestBuildRequest_SniffsMIMEWhenEmpty(t *testing.T) {
	req, err := BuildRequest(pngHeader, "", "Extract", "paddleocr-vl", DefaultSamplingPolicy())
	require.NoError(t, err)
	assert.Equal(t, "image/png", req.ImageMIMEType)

	req, err = BuildRequest([]byte("not really an image"), "", "Extract", "paddleocr-vl", DefaultSamplingPolicy())
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", req.ImageMIMEType)

	req, err = BuildRequest(pngHeader, " IMAGE/WEBP ", "Extract", "paddleocr-vl", DefaultSamplingPolicy())
	require.NoError(t, err)
	assert.Equal(t, "image/webp", req.ImageMIMEType)
}

func TestDataURL_RoundTrip(t *testing.T) {
	image := []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01, 0xfe, 0xff}
	req, err := BuildRequest(image, "image/jpeg", "Extract", "paddleocr-vl", DefaultSamplingPolicy())
	require.NoError(t, err)

	got, mime, err := DecodeDataURL(req.DataURL())
	require.NoError(t, err)
	assert.Equal(t, image, got)
	assert.Equal(t, "image/jpeg", mime)
}

func TestDecodeDataURL_Rejects(t *testing.T) {
	for _, in := range []string{"", "http://example.com/a.png", "data:image/png;base64", "data:image/png,abc", "data:image/png;base64,***"} {
		_, _, err := DecodeDataURL(in)
		require.Error(t, err, in)
		assert.Equal(t, InvalidInput, KindOf(err), in)
	}
}

func TestPayload_OrderAndSampling(t *testing.T) {
	policy := DefaultSamplingPolicy()
	req, err := BuildRequest(pngHeader, "image/png", "Task: extract", "deepseek-ocr", policy)
	require.NoError(t, err)

	body, err := req.MarshalBody()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "deepseek-ocr", decoded["model"])
	assert.InDelta(t, 0.1, decoded["temperature"], 1e-9)
	assert.InDelta(t, 0.1, decoded["top_p"], 1e-9)
	assert.InDelta(t, 0.8, decoded["frequency_penalty"], 1e-9)
	assert.InDelta(t, 2048, decoded["max_tokens"], 1e-9)

	messages := decoded["messages"].([]any)
	require.Len(t, messages, 1)
	msg := messages[0].(map[string]any)
	assert.Equal(t, "user", msg["role"])

	parts := msg["content"].([]any)
	require.Len(t, parts, 2)
	text := parts[0].(map[string]any)
	assert.Equal(t, "text", text["type"])
	assert.Equal(t, "Task: extract", text["text"])
	img := parts[1].(map[string]any)
	assert.Equal(t, "image_url", img["type"])
	assert.Equal(t, req.DataURL(), img["image_url"].(map[string]any)["url"])
	assert.NotContains(t, img, "text")
}

func TestDefaultSamplingPolicy_IsValid(t *testing.T) {
	assert.NoError(t, DefaultSamplingPolicy().Validate())
}
