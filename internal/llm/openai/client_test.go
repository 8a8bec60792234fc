package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/idcard-extractor/constants"
	"github.com/joseph-ayodele/idcard-extractor/internal/common"
	"github.com/joseph-ayodele/idcard-extractor/internal/llm"
)

var jpeg = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

// countingTransport records calls and answers with a fixed outcome.
func countingTransport(calls *int32, out llm.Outcome) llm.TransportFunc {
	return func(ctx context.Context, req llm.ExtractionRequest) (llm.Outcome, error) {
		atomic.AddInt32(calls, 1)
		return out, nil
	}
}

func clearTokenEnv(t *testing.T) {
	t.Setenv("IDCARD_API_TOKEN", "")
	t.Setenv("DEEPSEEK_API_TOKEN", "")
}

func TestNewClient_Defaults(t *testing.T) {
	clearTokenEnv(t)
	c := NewClient(Config{}, nil)
	cfg := c.Config()

	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultModel, cfg.Model)
	assert.Equal(t, llm.DefaultSamplingPolicy(), cfg.Sampling)
	assert.Equal(t, llm.DefaultTimeout, cfg.Timeout)
	assert.Equal(t, TokenOptional, cfg.TokenPolicy)
	assert.Equal(t, "http://localhost:23333/v1/chat/completions", c.Endpoint())
	assert.Equal(t, DefaultPlaceholderToken, c.token())
}

func TestNewClient_PartialSamplingFilledFromDefaults(t *testing.T) {
	var calls int32
	c := NewClient(Config{APIKey: "k", Sampling: llm.SamplingPolicy{MaxTokens: 512, Temperature: 0.3}}, nil,
		WithTransport(countingTransport(&calls, llm.Outcome{StatusCode: 200, Body: []byte(`{"response":"{}"}`)})))

	want := llm.SamplingPolicy{Temperature: 0.3, TopP: 0.1, FrequencyPenalty: 0.8, MaxTokens: 512}
	assert.Equal(t, want, c.Config().Sampling)

	_, err := c.Extract(context.Background(), ExtractInput{Image: jpeg, Instruction: "Extract"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestNewClient_TokenFromEnv(t *testing.T) {
	t.Setenv("IDCARD_API_TOKEN", "")
	t.Setenv("DEEPSEEK_API_TOKEN", "sk-legacy")
	c := NewClient(Config{BaseURL: "http://gpu:8000/v1/"}, nil)
	assert.Equal(t, "sk-legacy", c.token())
	assert.Equal(t, "http://gpu:8000/v1/chat/completions", c.Endpoint())
}

func TestExtract_EmptyImageNeverReachesTransport(t *testing.T) {
	var calls int32
	c := NewClient(Config{APIKey: "k"}, nil, WithTransport(countingTransport(&calls, llm.Outcome{StatusCode: 200, Body: []byte(`{"response":"x"}`)})))

	_, err := c.Extract(context.Background(), ExtractInput{Image: nil, Instruction: "Extract"})
	require.Error(t, err)
	assert.Equal(t, llm.InvalidInput, llm.KindOf(err))
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestExtract_TokenRequired(t *testing.T) {
	clearTokenEnv(t)
	var calls int32
	c := NewClient(Config{TokenPolicy: TokenRequired}, nil, WithTransport(countingTransport(&calls, llm.Outcome{StatusCode: 200})))

	_, err := c.ExtractDocument(context.Background(), jpeg, "image/jpeg", constants.KTP)
	require.Error(t, err)
	assert.Equal(t, llm.InvalidInput, llm.KindOf(err))
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestExtract_EndToEnd(t *testing.T) {
	clearTokenEnv(t)
	var (
		gotAuth string
		gotBody llm.ChatRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(b, &gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"NIK\":\"3171234567890123\"}"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/v1", Model: "deepseek-ocr", Timeout: 5 * time.Second}, nil)
	ctx := common.WithRequestID(context.Background(), "req-1")
	res, err := c.ExtractDocument(ctx, jpeg, "", constants.KTP)
	require.NoError(t, err)

	assert.Equal(t, `{"NIK":"3171234567890123"}`, res.Content)
	assert.Equal(t, "deepseek-ocr", res.Model)
	assert.Equal(t, 200, res.StatusCode)
	assert.Equal(t, "req-1", res.RequestID)
	assert.Equal(t, "Bearer "+DefaultPlaceholderToken, gotAuth)
	assert.Equal(t, "deepseek-ocr", gotBody.Model)
	assert.Equal(t, llm.InstructionFor(constants.KTP), gotBody.Messages[0].Content[0].Text)
	assert.Contains(t, gotBody.Messages[0].Content[1].ImageURL.URL, "data:image/jpeg;base64,")
}

func TestExtract_ServerErrorCarriesModelHint(t *testing.T) {
	var calls int32
	c := NewClient(Config{APIKey: "k", Model: "paddleocr-vl"}, nil,
		WithTransport(countingTransport(&calls, llm.Outcome{StatusCode: 404, Body: []byte(`model "x" not found`)})))

	_, err := c.Extract(context.Background(), ExtractInput{Image: jpeg, Instruction: "Extract", Model: "dots-ocr-q4k"})
	e, ok := llm.AsError(err)
	require.True(t, ok)
	assert.Equal(t, llm.ServerError, e.Kind)
	assert.Equal(t, 404, e.StatusCode)
	require.NotNil(t, e.Hint)
	assert.Contains(t, e.Hint.Summary, "dots-ocr-q4k")
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestFromAppConfig(t *testing.T) {
	app := common.DefaultConfig()
	app.Endpoint.TokenRequired = true
	app.Endpoint.APIToken = "sk-x"
	app.Sampling.MaxTokens = 512

	cfg := FromAppConfig(app)
	assert.Equal(t, TokenRequired, cfg.TokenPolicy)
	assert.Equal(t, "sk-x", cfg.APIKey)
	assert.Equal(t, 512, cfg.Sampling.MaxTokens)
	assert.Equal(t, app.Endpoint.BaseURL, cfg.BaseURL)
	assert.Equal(t, "required", cfg.TokenPolicy.String())
}
