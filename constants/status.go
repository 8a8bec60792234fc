package constants

// JobStatus is the canonical status for rows in extraction_jobs.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusQueued  JobStatus = "QUEUED"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusOK      JobStatus = "OK"     // content extracted
	JobStatusFailed  JobStatus = "FAILED" // terminal failure, see error_kind
)
