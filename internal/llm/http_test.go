package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRequest(t *testing.T) ExtractionRequest {
	t.Helper()
	req, err := BuildRequest(pngHeader, "image/png", "Extract the card", "paddleocr-vl", DefaultSamplingPolicy())
	require.NoError(t, err)
	return req
}

func TestHTTPTransport_PostsJSON(t *testing.T) {
	var (
		gotAuth string
		gotCT   string
		gotBody ChatRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotCT = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(b, &gotBody))
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte(`short and stout`))
	}))
	defer srv.Close()

	tr := NewHTTPTransport(srv.URL+"/v1/chat/completions", "sk-dummy-token", time.Second, nil)
	out, err := tr.Send(context.Background(), testRequest(t))
	require.NoError(t, err)

	assert.Equal(t, http.StatusTeapot, out.StatusCode)
	assert.Equal(t, "short and stout", string(out.Body))
	assert.Equal(t, "Bearer sk-dummy-token", gotAuth)
	assert.Equal(t, "application/json", gotCT)
	assert.Equal(t, "paddleocr-vl", gotBody.Model)
	require.Len(t, gotBody.Messages, 1)
	assert.Equal(t, "text", gotBody.Messages[0].Content[0].Type)
	assert.Equal(t, "image_url", gotBody.Messages[0].Content[1].Type)
}

func TestHTTPTransport_NoTokenNoHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"response":"ok"}`))
	}))
	defer srv.Close()

	out, err := NewHTTPTransport(srv.URL, "", time.Second, nil).Send(context.Background(), testRequest(t))
	require.NoError(t, err)
	assert.True(t, out.Success())
}

func TestHTTPTransport_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/v1/chat/completions"
	srv.Close()

	_, err := NewHTTPTransport(url, "", time.Second, nil).Send(context.Background(), testRequest(t))
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, TransportError, e.Kind)
	assert.Zero(t, e.StatusCode)
	require.NotNil(t, e.Hint)
	assert.Equal(t, HintUnreachable, e.Hint.Code)
	assert.Contains(t, e.Hint.Summary, url)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestHTTPTransport_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := NewHTTPTransport(srv.URL, "", 50*time.Millisecond, nil).Send(context.Background(), testRequest(t))
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, TransportError, e.Kind)
	require.NotNil(t, e.Hint)
	assert.Equal(t, HintTimeout, e.Hint.Code)
}

func TestHTTPTransport_CanceledHasNoHint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHTTPTransport(srv.URL, "", time.Second, nil).Send(ctx, testRequest(t))
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, TransportError, e.Kind)
	assert.Nil(t, e.Hint)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPTransport_TruncatedBodyKeepsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.ReadAll(r.Body)
		conn, buf, err := w.(http.Hijacker).Hijack()
		require.NoError(t, err)
		defer conn.Close()
		_, _ = buf.WriteString("HTTP/1.1 502 Bad Gateway\r\nContent-Type: text/plain\r\nContent-Length: 100\r\n\r\nupstream")
		_ = buf.Flush()
	}))
	defer srv.Close()

	_, err := NewHTTPTransport(srv.URL, "", time.Second, nil).Send(context.Background(), testRequest(t))
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, TransportError, e.Kind)
	assert.Equal(t, http.StatusBadGateway, e.StatusCode)
	assert.Contains(t, e.Detail, "while reading the body")
	assert.Contains(t, e.Error(), "status 502")
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
