package export

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/idcard-extractor/constants"
	"github.com/joseph-ayodele/idcard-extractor/internal/common"
	"github.com/joseph-ayodele/idcard-extractor/internal/entity"
	"github.com/joseph-ayodele/idcard-extractor/internal/llm"
	"github.com/joseph-ayodele/idcard-extractor/internal/repository"
)

type listRepo struct {
	repository.ExtractionJobRepository
	jobs   []*entity.ExtractionJob
	err    error
	filter entity.JobFilter
}

func (r *listRepo) List(_ context.Context, filter entity.JobFilter) ([]*entity.ExtractionJob, error) {
	r.filter = filter
	return r.jobs, r.err
}

func ptr[T any](v T) *T { return &v }

func readRows(t *testing.T, b []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	return rows
}

func TestExportJobsXLSX(t *testing.T) {
	started := time.Date(2025, 5, 2, 9, 30, 0, 0, time.UTC)
	repo := &listRepo{jobs: []*entity.ExtractionJob{
		{
			ID:           uuid.New(),
			SourcePath:   "/in/ktp-1.jpg",
			DocumentType: constants.KTP,
			Model:        "paddleocr-vl",
			Status:       constants.JobStatusOK,
			StartedAt:    started,
			Valid:        ptr(true),
			Fields:       map[string]string{"NIK": "3171234567890123", "Nama": "BUDI SANTOSO"},
			StatusCode:   ptr(200),
			ElapsedMS:    ptr(int64(812)),
		},
		{
			ID:           uuid.New(),
			SourcePath:   "/in/ktp-2.jpg",
			DocumentType: constants.KTP,
			Model:        "paddleocr-vl",
			Status:       constants.JobStatusFailed,
			StartedAt:    started.Add(time.Minute),
			ErrorKind:    ptr("ServerError"),
			ErrorMessage: ptr("model not found"),
			Hint:         ptr("Model 'paddleocr-vl' is not available on the server."),
			StatusCode:   ptr(404),
		},
	}}
	svc := NewService(repo, nil)

	filter := entity.JobFilter{DocumentType: constants.KTP, Limit: 10}
	b, err := svc.ExportJobsXLSX(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, filter, repo.filter)

	rows := readRows(t, b)
	require.Len(t, rows, 3)

	hint, _ := llm.HintFor(constants.KTP)
	names := hint.Names()
	header := rows[0]
	assert.Equal(t, []string{"Started At", "Source", "Document", "Model", "Status", "Valid"}, header[:6])
	assert.Equal(t, names, header[6:6+len(names)])
	assert.Equal(t, []string{"Error Kind", "HTTP Status", "Hint", "Error", "Elapsed (ms)"}, header[6+len(names):])

	col := func(name string) int {
		for i, h := range header {
			if h == name {
				return i
			}
		}
		t.Fatalf("missing column %s", name)
		return -1
	}
	cell := func(row []string, name string) string {
		i := col(name)
		if i >= len(row) {
			return ""
		}
		return row[i]
	}

	ok := rows[1]
	assert.Equal(t, "2025-05-02T09:30:00Z", ok[0])
	assert.Equal(t, "/in/ktp-1.jpg", cell(ok, "Source"))
	assert.Equal(t, "yes", cell(ok, "Valid"))
	assert.Equal(t, "3171234567890123", cell(ok, "NIK"))
	assert.Equal(t, "BUDI SANTOSO", cell(ok, "Nama"))
	assert.Equal(t, "812", cell(ok, "Elapsed (ms)"))
	assert.Empty(t, cell(ok, "Error Kind"))

	failed := rows[2]
	assert.Equal(t, "FAILED", cell(failed, "Status"))
	assert.Empty(t, cell(failed, "Valid"))
	assert.Equal(t, "ServerError", cell(failed, "Error Kind"))
	assert.Equal(t, "404", cell(failed, "HTTP Status"))
	assert.Equal(t, "model not found", cell(failed, "Error"))
}

func TestExportJobsXLSX_Empty(t *testing.T) {
	b, err := NewService(&listRepo{}, nil).ExportJobsXLSX(context.Background(), entity.JobFilter{})
	require.NoError(t, err)
	rows := readRows(t, b)
	require.Len(t, rows, 1)
	assert.Equal(t, "Started At", rows[0][0])
}

func TestExportJobsXLSX_RepoError(t *testing.T) {
	_, err := NewService(&listRepo{err: errors.New("db down")}, nil).ExportJobsXLSX(context.Background(), entity.JobFilter{})
	require.Error(t, err)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, common.CodeExport, appErr.Code)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc…", truncate("abcdef", 4))
	assert.Equal(t, "a", truncate("abcdef", 1))
}

func TestFileName(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, "extractions-ktp-20250102-030405.xlsx", FileName(constants.KTP, now))
	assert.Equal(t, "extractions-all-20250102-030405.xlsx", FileName("", now))
}
