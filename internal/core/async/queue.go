package async

import (
	"context"
	"time"

	"github.com/joseph-ayodele/idcard-extractor/constants"
	"github.com/joseph-ayodele/idcard-extractor/internal/entity"
)

// Job is one image waiting for extraction.
type Job struct {
	Path        string
	Document    constants.DocumentType
	SubmittedAt time.Time
	TraceID     string
}

// Result is delivered once per enqueued job. Job is nil when no row could be created.
type Result struct {
	Input  Job
	Job    *entity.ExtractionJob
	Err    error
	Worker int
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
