package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/idcard-extractor/constants"
	"github.com/joseph-ayodele/idcard-extractor/internal/common"
	"github.com/joseph-ayodele/idcard-extractor/internal/entity"
	"github.com/joseph-ayodele/idcard-extractor/internal/llm"
	"github.com/joseph-ayodele/idcard-extractor/internal/repository"
)

const sheetName = "Extractions"

// Service produces XLSX bytes for job exports.
type Service struct {
	jobsRepo repository.ExtractionJobRepository
	logger   *slog.Logger
}

func NewService(jobsRepo repository.ExtractionJobRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{jobsRepo: jobsRepo, logger: logger}
}

// ExportJobsXLSX returns a workbook with one row per job matching filter. Record fields get one
// column each, in the order of the document's schema hint (KTP when the filter has no type).
func (s *Service) ExportJobsXLSX(ctx context.Context, filter entity.JobFilter) ([]byte, error) {
	start := time.Now()

	jobs, err := s.jobsRepo.List(ctx, filter)
	if err != nil {
		return nil, common.NewAppError(common.CodeExport, "query jobs", err)
	}

	doc := filter.DocumentType
	if doc == "" {
		doc = constants.KTP
	}
	hint, _ := llm.HintFor(doc)
	fieldNames := hint.Names()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, common.NewAppError(common.CodeExport, "rename sheet", err)
	}

	headers := []string{"Started At", "Source", "Document", "Model", "Status", "Valid"}
	headers = append(headers, fieldNames...)
	headers = append(headers, "Error Kind", "HTTP Status", "Hint", "Error", "Elapsed (ms)")
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		_ = f.SetCellStyle(sheetName, "A1", last, style)
	}

	for i, j := range jobs {
		row := i + 2
		col := 0
		write := func(v any) {
			col++
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheetName, cell, v)
		}

		write(j.StartedAt.UTC().Format(time.RFC3339))
		write(j.SourcePath)
		write(string(j.DocumentType))
		write(j.Model)
		write(string(j.Status))
		write(boolCell(j.Valid))
		for _, name := range fieldNames {
			write(j.Fields[name])
		}
		write(deref(j.ErrorKind))
		if j.StatusCode != nil {
			write(*j.StatusCode)
		} else {
			write("")
		}
		write(deref(j.Hint))
		write(truncate(deref(j.ErrorMessage), 240))
		if j.ElapsedMS != nil {
			write(*j.ElapsedMS)
		} else {
			write("")
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 22) // started
	_ = f.SetColWidth(sheetName, "B", "B", 48) // source
	_ = f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, common.NewAppError(common.CodeExport, "xlsx write", err)
	}

	s.logger.Info("export.xlsx.ok",
		"document_type", string(doc),
		"rows", len(jobs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func boolCell(b *bool) string {
	if b == nil {
		return ""
	}
	if *b {
		return "yes"
	}
	return "no"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}

// FileName is a timestamped default name for an export.
func FileName(doc constants.DocumentType, now time.Time) string {
	if doc == "" {
		doc = "all"
	}
	return fmt.Sprintf("extractions-%s-%s.xlsx", doc, now.UTC().Format("20060102-150405"))
}
