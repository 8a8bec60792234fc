package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/idcard-extractor/constants"
)

// ExtractionJob is one image sent through the extractor, for data transfer between layers.
type ExtractionJob struct {
	ID           uuid.UUID              `json:"id"`
	SourcePath   string                 `json:"source_path"`
	ContentHash  string                 `json:"content_hash"`
	DocumentType constants.DocumentType `json:"document_type"`
	Model        string                 `json:"model"`
	Endpoint     string                 `json:"endpoint"`
	Status       constants.JobStatus    `json:"status"`
	RequestID    string                 `json:"request_id,omitempty"`
	StartedAt    time.Time              `json:"started_at"`
	FinishedAt   *time.Time             `json:"finished_at,omitempty"`
	ElapsedMS    *int64                 `json:"elapsed_ms,omitempty"`
	StatusCode   *int                   `json:"status_code,omitempty"`
	ErrorKind    *string                `json:"error_kind,omitempty"`
	ErrorMessage *string                `json:"error_message,omitempty"`
	Hint         *string                `json:"hint,omitempty"`
	RawContent   *string                `json:"raw_content,omitempty"`
	Fields       map[string]string      `json:"fields,omitempty"`
	Valid        *bool                  `json:"valid,omitempty"`
	Report       json.RawMessage        `json:"report,omitempty"`
}

// Finished reports whether the job reached a terminal status.
func (j *ExtractionJob) Finished() bool {
	return j.Status == constants.JobStatusOK || j.Status == constants.JobStatusFailed
}

// JobSuccess carries what a successful extraction produced.
type JobSuccess struct {
	StatusCode int
	RequestID  string
	Elapsed    time.Duration
	RawContent string
	Fields     map[string]string
	Valid      bool
	Report     json.RawMessage
}

// JobFailure carries a classified failure.
type JobFailure struct {
	StatusCode int // 0 when no HTTP status exists
	RequestID  string
	Elapsed    time.Duration
	ErrorKind  string
	Message    string
	Hint       string
}

// JobFilter narrows List and exports. Zero values mean no constraint.
type JobFilter struct {
	Status       constants.JobStatus
	DocumentType constants.DocumentType
	Since        time.Time
	Limit        int
}
