package llm

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func TestInterpret_ContentShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "openai choices", body: `{"choices":[{"message":{"role":"assistant","content":"{\"NIK\":\"1\"}"}}]}`, want: `{"NIK":"1"}`},
		{name: "native message", body: `{"model":"x","message":{"role":"assistant","content":"NIK: 1"}}`, want: "NIK: 1"},
		{name: "generate response", body: `{"model":"x","response":"hello","done":true}`, want: "hello"},
		{name: "choices wins over response", body: `{"choices":[{"message":{"content":"first"}}],"response":"second"}`, want: "first"},
		{name: "null choices content falls through", body: `{"choices":[{"message":{"content":null}}],"response":"fallback"}`, want: "fallback"},
		{name: "empty choices falls through", body: `{"choices":[],"message":{"content":"native"}}`, want: "native"},
		{name: "empty string is content", body: `{"choices":[{"message":{"content":""}}]}`, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Interpret(Outcome{StatusCode: http.StatusOK, Body: []byte(tt.body)})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInterpret_EmptyObjectIsMalformed(t *testing.T) {
	_, err := Interpret(Outcome{StatusCode: 200, Body: []byte("{}")})
	require.Error(t, err)

	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, MalformedResponse, e.Kind)
	assert.Equal(t, 200, e.StatusCode)
	assert.Equal(t, "{}", e.Detail)
	assert.Nil(t, e.Hint)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestInterpret_NonJSONSuccessIsMalformed(t *testing.T) {
	_, err := Interpret(Outcome{StatusCode: 200, Body: []byte("<html>proxy</html>")})
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, MalformedResponse, e.Kind)
	assert.Equal(t, "<html>proxy</html>", e.Detail)
	assert.Error(t, e.Cause)
}

func TestInterpret_ServerErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		model    string
		wantHint string
	}{
		{name: "401 auth", status: 401, body: `{"detail":"Not authenticated"}`, wantHint: HintAuth},
		{name: "404 model", status: 404, body: `{"error":"model not found"}`, model: "deepseek-ocr", wantHint: HintModelNotFound},
		{name: "500 memory", status: 500, body: `{"error":"model requires more system memory"}`, wantHint: HintOutOfMemory},
		{name: "500 cuda", status: 500, body: "CUDA error: out of resources", wantHint: HintOutOfMemory},
		{name: "500 loading model", status: 500, body: `{"error":"error loading model"}`, wantHint: HintOutOfMemory},
		{name: "500 oom", status: 500, body: "OOM while allocating KV cache", wantHint: HintOutOfMemory},
		{name: "500 upload payload", status: 500, body: "failed to upload payload"},
		{name: "500 plain", status: 500, body: "internal server error"},
		{name: "503 no hint", status: 503, body: "busy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Interpreter{ModelID: tt.model}.Interpret(Outcome{StatusCode: tt.status, Body: []byte(tt.body)})
			e, ok := AsError(err)
			require.True(t, ok)
			assert.Equal(t, ServerError, e.Kind)
			assert.Equal(t, tt.status, e.StatusCode)
			assert.Equal(t, tt.body, e.Detail)
			if tt.wantHint == "" {
				assert.Nil(t, e.Hint)
				return
			}
			require.NotNil(t, e.Hint)
			assert.Equal(t, tt.wantHint, e.Hint.Code)
		})
	}
}

func TestDiagnoseStatus_ModelNameInHint(t *testing.T) {
	h := DiagnoseStatus(404, nil, "deepseek-ocr")
	require.NotNil(t, h)
	assert.Contains(t, h.Summary, "deepseek-ocr")
	assert.NotEmpty(t, h.Suggestions)
}

func TestGRPCCode(t *testing.T) {
	assert.Equal(t, codes.OK, GRPCCode(nil))
	assert.Equal(t, codes.InvalidArgument, GRPCCode(&Error{Kind: InvalidInput}))
	assert.Equal(t, codes.Unavailable, GRPCCode(&Error{Kind: TransportError, Hint: unreachableHint("http://x")}))
	assert.Equal(t, codes.DeadlineExceeded, GRPCCode(&Error{Kind: TransportError, Hint: timeoutHint()}))
	assert.Equal(t, codes.DataLoss, GRPCCode(&Error{Kind: MalformedResponse, StatusCode: 200}))
	assert.Equal(t, codes.Unauthenticated, GRPCCode(&Error{Kind: ServerError, StatusCode: 401}))
	assert.Equal(t, codes.NotFound, GRPCCode(&Error{Kind: ServerError, StatusCode: 404}))
	assert.Equal(t, codes.Internal, GRPCCode(&Error{Kind: ServerError, StatusCode: 500}))
	assert.Equal(t, codes.Internal, GRPCCode(assert.AnError))
}
