package llm

import (
	"context"
)

// SamplingPolicy holds the decoding parameters sent with a request. The defaults bias the
// model toward transcription rather than open-ended generation.
type SamplingPolicy struct {
	Temperature      float64 `json:"temperature"`
	TopP             float64 `json:"top_p"`
	FrequencyPenalty float64 `json:"frequency_penalty"`
	MaxTokens        int     `json:"max_tokens"`
}

// DefaultSamplingPolicy returns the extraction defaults: temperature 0.1, top_p 0.1,
// frequency_penalty 0.8, max_tokens 2048.
func DefaultSamplingPolicy() SamplingPolicy {
	return SamplingPolicy{
		Temperature:      0.1,
		TopP:             0.1,
		FrequencyPenalty: 0.8,
		MaxTokens:        2048,
	}
}

// WithDefaults returns p with every zero field taken from DefaultSamplingPolicy.
func (p SamplingPolicy) WithDefaults() SamplingPolicy {
	d := DefaultSamplingPolicy()
	if p.Temperature == 0 {
		p.Temperature = d.Temperature
	}
	if p.TopP == 0 {
		p.TopP = d.TopP
	}
	if p.FrequencyPenalty == 0 {
		p.FrequencyPenalty = d.FrequencyPenalty
	}
	if p.MaxTokens == 0 {
		p.MaxTokens = d.MaxTokens
	}
	return p
}

// Validate reports an InvalidInput error when a parameter is outside its documented range.
func (p SamplingPolicy) Validate() error {
	switch {
	case p.Temperature < 0:
		return invalidInputf("temperature must be >= 0, got %v", p.Temperature)
	case p.TopP <= 0 || p.TopP > 1:
		return invalidInputf("top_p must be in (0,1], got %v", p.TopP)
	case p.FrequencyPenalty < 0:
		return invalidInputf("frequency_penalty must be >= 0, got %v", p.FrequencyPenalty)
	case p.MaxTokens <= 0:
		return invalidInputf("max_tokens must be > 0, got %d", p.MaxTokens)
	}
	return nil
}

// ExtractionRequest is a validated, transport-ready request. Build it with BuildRequest.
type ExtractionRequest struct {
	ModelID         string
	Sampling        SamplingPolicy
	InstructionText string
	ImageData       []byte
	ImageMIMEType   string
}

// Outcome is what the transport observed: a status code and the raw body.
type Outcome struct {
	StatusCode int
	Body       []byte
}

// Success reports whether the status code is 2xx.
func (o Outcome) Success() bool {
	return o.StatusCode >= 200 && o.StatusCode < 300
}

// Transport sends a request and returns the raw outcome. Failures that happen before a status
// code exists must be returned as *Error with Kind TransportError.
type Transport interface {
	Send(ctx context.Context, req ExtractionRequest) (Outcome, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req ExtractionRequest) (Outcome, error)

func (f TransportFunc) Send(ctx context.Context, req ExtractionRequest) (Outcome, error) {
	return f(ctx, req)
}
