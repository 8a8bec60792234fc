package openai

import (
	"context"
	"time"

	"github.com/joseph-ayodele/idcard-extractor/constants"
	"github.com/joseph-ayodele/idcard-extractor/internal/common"
	"github.com/joseph-ayodele/idcard-extractor/internal/llm"
)

// ExtractInput is one extraction call. An empty MIMEType is sniffed from Image; an empty Model
// uses the configured one.
type ExtractInput struct {
	Image       []byte
	MIMEType    string
	Instruction string
	Model       string
}

// Extraction is a successful answer.
type Extraction struct {
	Content    string
	Model      string
	StatusCode int
	Elapsed    time.Duration
	RequestID  string
}

// Extract builds the request, sends it once and interprets the outcome. Failures are *llm.Error.
// Invalid input never reaches the transport.
func (c *Client) Extract(ctx context.Context, in ExtractInput) (Extraction, error) {
	ctx, rid := common.EnsureRequestID(ctx)
	start := time.Now()

	model := in.Model
	if model == "" {
		model = c.cfg.Model
	}

	c.log.Info("llm.extract.start",
		"req_id", rid,
		"model", model,
		"endpoint", c.Endpoint(),
		"image_bytes", len(in.Image),
		"mime", in.MIMEType,
		"temperature", c.cfg.Sampling.Temperature,
		"top_p", c.cfg.Sampling.TopP,
		"max_tokens", c.cfg.Sampling.MaxTokens,
	)

	if c.cfg.TokenPolicy == TokenRequired && c.cfg.APIKey == "" {
		err := &llm.Error{Kind: llm.InvalidInput, Detail: "api token is required but not configured (set IDCARD_API_TOKEN)"}
		c.log.Error("llm.extract.failed", "req_id", rid, "kind", err.Kind.String(), "error", err)
		return Extraction{}, err
	}

	req, err := llm.BuildRequest(in.Image, in.MIMEType, in.Instruction, model, c.cfg.Sampling)
	if err != nil {
		c.log.Error("llm.extract.failed", "req_id", rid, "kind", llm.KindOf(err).String(), "error", err)
		return Extraction{}, err
	}

	outcome, err := c.transport.Send(ctx, req)
	if err != nil {
		c.logFailure(rid, start, err)
		return Extraction{}, err
	}

	content, err := llm.Interpreter{ModelID: model}.Interpret(outcome)
	if err != nil {
		c.logFailure(rid, start, err)
		return Extraction{}, err
	}

	elapsed := time.Since(start)
	c.log.Info("llm.extract.ok",
		"req_id", rid,
		"model", model,
		"status", outcome.StatusCode,
		"content_len", len(content),
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return Extraction{
		Content:    content,
		Model:      model,
		StatusCode: outcome.StatusCode,
		Elapsed:    elapsed,
		RequestID:  rid,
	}, nil
}

// ExtractDocument runs Extract with the built-in instruction for doc.
func (c *Client) ExtractDocument(ctx context.Context, image []byte, mimeType string, doc constants.DocumentType) (Extraction, error) {
	return c.Extract(ctx, ExtractInput{
		Image:       image,
		MIMEType:    mimeType,
		Instruction: llm.InstructionFor(doc),
	})
}

func (c *Client) logFailure(rid string, start time.Time, err error) {
	attrs := []any{
		"req_id", rid,
		"kind", llm.KindOf(err).String(),
		"error", err,
		"elapsed_ms", time.Since(start).Milliseconds(),
	}
	if e, ok := llm.AsError(err); ok {
		if e.StatusCode != 0 {
			attrs = append(attrs, "status", e.StatusCode)
		}
		if e.Hint != nil {
			attrs = append(attrs, "hint", e.Hint.Code)
		}
	}
	c.log.Error("llm.extract.failed", attrs...)
}
