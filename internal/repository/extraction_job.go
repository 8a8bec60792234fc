package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/idcard-extractor/constants"
	"github.com/joseph-ayodele/idcard-extractor/internal/common"
	"github.com/joseph-ayodele/idcard-extractor/internal/entity"
)

type ExtractionJobRepository interface {
	Start(ctx context.Context, job *entity.ExtractionJob) (*entity.ExtractionJob, error)
	FinishSuccess(ctx context.Context, jobID uuid.UUID, res entity.JobSuccess) error
	FinishFailure(ctx context.Context, jobID uuid.UUID, res entity.JobFailure) error
	GetByID(ctx context.Context, jobID uuid.UUID) (*entity.ExtractionJob, error)
	List(ctx context.Context, filter entity.JobFilter) ([]*entity.ExtractionJob, error)
}

type extractionJobRepo struct {
	store *Store
	log   *slog.Logger
}

func NewExtractionJobRepository(store *Store, log *slog.Logger) ExtractionJobRepository {
	return &extractionJobRepo{store: store, log: log}
}

func (r *extractionJobRepo) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.store.Dialect())
}

func (r *extractionJobRepo) Start(ctx context.Context, job *entity.ExtractionJob) (*entity.ExtractionJob, error) {
	out := *job
	if out.ID == uuid.Nil {
		out.ID = uuid.New()
	}
	if out.StartedAt.IsZero() {
		out.StartedAt = time.Now().UTC()
	}
	if out.Status == "" {
		out.Status = constants.JobStatusRunning
	}
	if out.DocumentType == "" {
		out.DocumentType = constants.KTP
	}

	query, args := r.builder().
		Insert(extractionJobsTable).
		Columns(colID, colSourcePath, colContentHash, colDocumentType, colModel, colEndpoint, colStatus, colRequestID, colStartedAt).
		Values(out.ID.String(), out.SourcePath, out.ContentHash, string(out.DocumentType), out.Model, out.Endpoint, string(out.Status), nullString(out.RequestID), out.StartedAt).
		Query()
	if _, err := r.store.Driver.ExecContext(ctx, query, args...); err != nil {
		r.log.Error("extraction_job start failed", "source", out.SourcePath, "err", err)
		return nil, common.NewAppError(common.CodeDatabase, "start extraction job", err)
	}
	r.log.Info("extraction_job started", "job_id", out.ID, "source", out.SourcePath, "document_type", out.DocumentType, "model", out.Model)
	return &out, nil
}

func (r *extractionJobRepo) FinishSuccess(ctx context.Context, jobID uuid.UUID, res entity.JobSuccess) error {
	fields, err := json.Marshal(res.Fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}
	upd := r.builder().
		Update(extractionJobsTable).
		Set(colStatus, string(constants.JobStatusOK)).
		Set(colFinishedAt, time.Now().UTC()).
		Set(colElapsedMS, res.Elapsed.Milliseconds()).
		Set(colStatusCode, res.StatusCode).
		Set(colRawContent, res.RawContent).
		Set(colFields, string(fields)).
		Set(colValid, res.Valid).
		Where(entsql.EQ(colID, jobID.String()))
	if res.RequestID != "" {
		upd.Set(colRequestID, res.RequestID)
	}
	if len(res.Report) > 0 {
		upd.Set(colReport, string(res.Report))
	}
	if err := r.execUpdate(ctx, upd); err != nil {
		r.log.Error("extraction_job finish(OK) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Info("extraction_job finished (OK)", "job_id", jobID, "valid", res.Valid, "elapsed_ms", res.Elapsed.Milliseconds())
	return nil
}

func (r *extractionJobRepo) FinishFailure(ctx context.Context, jobID uuid.UUID, res entity.JobFailure) error {
	upd := r.builder().
		Update(extractionJobsTable).
		Set(colStatus, string(constants.JobStatusFailed)).
		Set(colFinishedAt, time.Now().UTC()).
		Set(colElapsedMS, res.Elapsed.Milliseconds()).
		Set(colErrorKind, res.ErrorKind).
		Set(colErrorMessage, res.Message).
		Where(entsql.EQ(colID, jobID.String()))
	if res.StatusCode != 0 {
		upd.Set(colStatusCode, res.StatusCode)
	}
	if res.Hint != "" {
		upd.Set(colHint, res.Hint)
	}
	if res.RequestID != "" {
		upd.Set(colRequestID, res.RequestID)
	}
	if err := r.execUpdate(ctx, upd); err != nil {
		r.log.Error("extraction_job finish(FAILED) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Warn("extraction_job finished (FAILED)", "job_id", jobID, "kind", res.ErrorKind, "error", res.Message)
	return nil
}

func (r *extractionJobRepo) execUpdate(ctx context.Context, upd *entsql.UpdateBuilder) error {
	query, args := upd.Query()
	result, err := r.store.Driver.ExecContext(ctx, query, args...)
	if err != nil {
		return common.NewAppError(common.CodeDatabase, "update extraction job", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return common.NewAppError(common.CodeDatabase, "update extraction job", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *extractionJobRepo) GetByID(ctx context.Context, jobID uuid.UUID) (*entity.ExtractionJob, error) {
	sel := r.builder().
		Select(jobColumns...).
		From(r.builder().Table(extractionJobsTable)).
		Where(entsql.EQ(colID, jobID.String()))
	jobs, err := r.query(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, common.ErrNotFound
	}
	return jobs[0], nil
}

func (r *extractionJobRepo) List(ctx context.Context, filter entity.JobFilter) ([]*entity.ExtractionJob, error) {
	sel := r.builder().
		Select(jobColumns...).
		From(r.builder().Table(extractionJobsTable))

	var preds []*entsql.Predicate
	if filter.Status != "" {
		preds = append(preds, entsql.EQ(colStatus, string(filter.Status)))
	}
	if filter.DocumentType != "" {
		preds = append(preds, entsql.EQ(colDocumentType, string(filter.DocumentType)))
	}
	if !filter.Since.IsZero() {
		preds = append(preds, entsql.GTE(colStartedAt, filter.Since.UTC()))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	sel.OrderBy(entsql.Desc(colStartedAt))
	if filter.Limit > 0 {
		sel.Limit(filter.Limit)
	}
	return r.query(ctx, sel)
}

func (r *extractionJobRepo) query(ctx context.Context, sel *entsql.Selector) ([]*entity.ExtractionJob, error) {
	query, args := sel.Query()
	rows, err := r.store.Driver.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, common.NewAppError(common.CodeDatabase, "query extraction jobs", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*entity.ExtractionJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, common.NewAppError(common.CodeDatabase, "scan extraction job", err)
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError(common.CodeDatabase, "iterate extraction jobs", err)
	}
	return out, nil
}

func scanJob(rows *sql.Rows) (*entity.ExtractionJob, error) {
	var (
		id, source, hash, doc, model, endpoint, status string
		requestID, errKind, errMsg, hint, raw          sql.NullString
		fields, report                                 sql.NullString
		startedAt                                      time.Time
		finishedAt                                     sql.NullTime
		elapsed, statusCode                            sql.NullInt64
		valid                                          sql.NullBool
	)
	if err := rows.Scan(
		&id, &source, &hash, &doc, &model, &endpoint, &status,
		&requestID, &startedAt, &finishedAt, &elapsed, &statusCode, &errKind,
		&errMsg, &hint, &raw, &fields, &valid, &report,
	); err != nil {
		return nil, err
	}

	jobID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse job id %q: %w", id, err)
	}
	job := &entity.ExtractionJob{
		ID:           jobID,
		SourcePath:   source,
		ContentHash:  hash,
		DocumentType: constants.DocumentType(doc),
		Model:        model,
		Endpoint:     endpoint,
		Status:       constants.JobStatus(status),
		RequestID:    requestID.String,
		StartedAt:    startedAt,
		ErrorKind:    ptrString(errKind),
		ErrorMessage: ptrString(errMsg),
		Hint:         ptrString(hint),
		RawContent:   ptrString(raw),
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		job.FinishedAt = &t
	}
	if elapsed.Valid {
		v := elapsed.Int64
		job.ElapsedMS = &v
	}
	if statusCode.Valid {
		v := int(statusCode.Int64)
		job.StatusCode = &v
	}
	if valid.Valid {
		v := valid.Bool
		job.Valid = &v
	}
	if fields.Valid && fields.String != "" {
		if err := json.Unmarshal([]byte(fields.String), &job.Fields); err != nil {
			return nil, fmt.Errorf("decode fields: %w", err)
		}
	}
	if report.Valid && report.String != "" {
		job.Report = json.RawMessage(report.String)
	}
	return job, nil
}

func ptrString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
