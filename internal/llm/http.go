package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/idcard-extractor/internal/common"
)

// DefaultTimeout bounds a single round trip; vision inference is slow.
const DefaultTimeout = 2 * time.Minute

// HTTPTransport posts the request as JSON to a full chat/completions URL.
// It does not retry.
type HTTPTransport struct {
	URL    string
	Token  string
	Client *http.Client
	Logger *slog.Logger
}

func NewHTTPTransport(url, token string, timeout time.Duration, logger *slog.Logger) *HTTPTransport {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPTransport{
		URL:    url,
		Token:  token,
		Client: &http.Client{Timeout: timeout},
		Logger: logger,
	}
}

// Send implements Transport.
func (t *HTTPTransport) Send(ctx context.Context, er ExtractionRequest) (Outcome, error) {
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := t.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}

	reqID := common.RequestIDFromContext(ctx)
	if reqID == "" {
		reqID = uuid.New().String()
	}
	start := time.Now()

	bs, err := er.MarshalBody()
	if err != nil {
		logger.Error("llm.http.encode_error", "req_id", reqID, "error", err)
		return Outcome{}, &Error{Kind: InvalidInput, Detail: "encode request body", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL, bytes.NewReader(bs))
	if err != nil {
		logger.Error("llm.http.build_request_error", "req_id", reqID, "error", err)
		return Outcome{}, &Error{Kind: InvalidInput, Detail: "build request for " + t.URL, Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if t.Token != "" {
		req.Header.Set("Authorization", "Bearer "+t.Token)
	}

	logger.Info("llm.http.request",
		"req_id", reqID,
		"url", t.URL,
		"model", er.ModelID,
		"content_length", len(bs),
	)

	resp, err := client.Do(req)
	if err != nil {
		logger.Error("llm.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return Outcome{}, classifyTransport(err, t.URL)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logger.Warn("llm.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Error("llm.http.read_error", "req_id", reqID, "status", resp.StatusCode, "error", err)
		e := classifyTransport(err, t.URL)
		e.StatusCode = resp.StatusCode
		e.Detail = fmt.Sprintf("%s while reading the body: %v", e.Detail, err)
		return Outcome{}, e
	}

	logger.Info("llm.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Outcome{StatusCode: resp.StatusCode, Body: raw}, nil
}

func classifyTransport(err error, url string) *Error {
	e := &Error{Kind: TransportError, Detail: "request to " + url + " failed", Cause: err}
	var ne net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &ne) && ne.Timeout():
		e.Detail = "request to " + url + " timed out"
		e.Hint = timeoutHint()
	case errors.Is(err, context.Canceled):
		e.Detail = "request to " + url + " was canceled"
	default:
		e.Hint = unreachableHint(url)
	}
	return e
}
