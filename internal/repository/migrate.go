package repository

import (
	"context"
	"fmt"
	"log/slog"

	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const extractionJobsTable = "extraction_jobs"

// Column names of extraction_jobs.
const (
	colID           = "id"
	colSourcePath   = "source_path"
	colContentHash  = "content_hash"
	colDocumentType = "document_type"
	colModel        = "model"
	colEndpoint     = "endpoint"
	colStatus       = "status"
	colRequestID    = "request_id"
	colStartedAt    = "started_at"
	colFinishedAt   = "finished_at"
	colElapsedMS    = "elapsed_ms"
	colStatusCode   = "status_code"
	colErrorKind    = "error_kind"
	colErrorMessage = "error_message"
	colHint         = "hint"
	colRawContent   = "raw_content"
	colFields       = "fields"
	colValid        = "valid"
	colReport       = "report"
)

var jobColumns = []string{
	colID, colSourcePath, colContentHash, colDocumentType, colModel, colEndpoint, colStatus,
	colRequestID, colStartedAt, colFinishedAt, colElapsedMS, colStatusCode, colErrorKind,
	colErrorMessage, colHint, colRawContent, colFields, colValid, colReport,
}

// textSize pushes long string columns to TEXT on dialects that size varchar.
const textSize = 1 << 24

func extractionJobsSchema() *schema.Table {
	idCol := &schema.Column{Name: colID, Type: field.TypeString, Size: 36}
	statusCol := &schema.Column{Name: colStatus, Type: field.TypeString, Size: 16}
	startedCol := &schema.Column{Name: colStartedAt, Type: field.TypeTime}
	docCol := &schema.Column{Name: colDocumentType, Type: field.TypeString, Size: 32}

	t := &schema.Table{
		Name: extractionJobsTable,
		Columns: []*schema.Column{
			idCol,
			{Name: colSourcePath, Type: field.TypeString, Size: 1024},
			{Name: colContentHash, Type: field.TypeString, Size: 64},
			docCol,
			{Name: colModel, Type: field.TypeString, Size: 128},
			{Name: colEndpoint, Type: field.TypeString, Size: 512},
			statusCol,
			{Name: colRequestID, Type: field.TypeString, Size: 64, Nullable: true},
			startedCol,
			{Name: colFinishedAt, Type: field.TypeTime, Nullable: true},
			{Name: colElapsedMS, Type: field.TypeInt64, Nullable: true},
			{Name: colStatusCode, Type: field.TypeInt, Nullable: true},
			{Name: colErrorKind, Type: field.TypeString, Size: 32, Nullable: true},
			{Name: colErrorMessage, Type: field.TypeString, Size: textSize, Nullable: true},
			{Name: colHint, Type: field.TypeString, Size: textSize, Nullable: true},
			{Name: colRawContent, Type: field.TypeString, Size: textSize, Nullable: true},
			{Name: colFields, Type: field.TypeString, Size: textSize, Nullable: true},
			{Name: colValid, Type: field.TypeBool, Nullable: true},
			{Name: colReport, Type: field.TypeString, Size: textSize, Nullable: true},
		},
		PrimaryKey: []*schema.Column{idCol},
	}
	t.Indexes = []*schema.Index{
		{Name: "extraction_jobs_status_started_at", Columns: []*schema.Column{statusCol, startedCol}},
		{Name: "extraction_jobs_document_type", Columns: []*schema.Column{docCol}},
	}
	return t
}

// Migrate creates or updates the job tables.
func Migrate(ctx context.Context, s *Store, logger *slog.Logger) error {
	m, err := schema.NewMigrate(s.Driver)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	if err := m.Create(ctx, extractionJobsSchema()); err != nil {
		logger.Error("database migration failed", "error", err)
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Info("database migrated", "table", extractionJobsTable)
	return nil
}
