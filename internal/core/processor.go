package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/idcard-extractor/constants"
	"github.com/joseph-ayodele/idcard-extractor/internal/common"
	"github.com/joseph-ayodele/idcard-extractor/internal/core/imageconv"
	"github.com/joseph-ayodele/idcard-extractor/internal/entity"
	"github.com/joseph-ayodele/idcard-extractor/internal/llm"
	"github.com/joseph-ayodele/idcard-extractor/internal/llm/openai"
	"github.com/joseph-ayodele/idcard-extractor/internal/models"
	"github.com/joseph-ayodele/idcard-extractor/internal/record"
	"github.com/joseph-ayodele/idcard-extractor/internal/repository"
)

// Extractor is the vision call the processor depends on; *openai.Client satisfies it.
type Extractor interface {
	Extract(ctx context.Context, in openai.ExtractInput) (openai.Extraction, error)
}

// ProcessorConfig tunes a Processor.
type ProcessorConfig struct {
	Model      string // default model when no selector is set
	Endpoint   string // recorded on jobs
	MaxImageMB int
	Selector   *models.Selector // optional per-document model choice
	Priority   models.Priority
	Batch      bool
	HEIC       *imageconv.Converter // optional; without it HEIC files are unsupported
}

// Processor runs one image through extraction, post-processing and the job store.
type Processor struct {
	logger    *slog.Logger
	extractor Extractor
	jobsRepo  repository.ExtractionJobRepository
	cfg       ProcessorConfig
}

func NewProcessor(logger *slog.Logger, extractor Extractor, jobsRepo repository.ExtractionJobRepository, cfg ProcessorConfig) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxImageMB <= 0 {
		cfg.MaxImageMB = constants.MaxImageMBDefault
	}
	if cfg.Model == "" {
		cfg.Model = openai.DefaultModel
	}
	return &Processor{
		logger:    logger,
		extractor: extractor,
		jobsRepo:  jobsRepo,
		cfg:       cfg,
	}
}

// ProcessFile reads an image from disk and processes it. Unsupported extensions and oversized
// files are rejected before a job is created. HEIC photos are converted to PNG first when a
// converter is configured.
func (p *Processor) ProcessFile(ctx context.Context, path string, doc constants.DocumentType) (*entity.ExtractionJob, error) {
	ext := filepath.Ext(path)
	heic := imageconv.IsHEIC(ext)
	if (heic && !p.cfg.HEIC.Enabled()) || (!heic && !constants.IsImageExt(ext)) {
		return nil, fmt.Errorf("%w: extension %q", common.ErrUnsupported, ext)
	}
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if st.Size() > int64(p.cfg.MaxImageMB)*1024*1024 {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %dMB", common.ErrInvalidInput, path, st.Size(), p.cfg.MaxImageMB)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if !heic {
		return p.ProcessBytes(ctx, path, data, constants.MIMEForExt(ext), doc)
	}

	sum := sha256.Sum256(data)
	png, err := p.cfg.HEIC.ToPNG(ctx, path, hex.EncodeToString(sum[:]))
	if err != nil {
		p.logger.Error("processor.heic.failed", "source", path, "error", err)
		return nil, fmt.Errorf("%w: convert %s: %v", common.ErrInvalidInput, path, err)
	}
	return p.ProcessBytes(ctx, path, png, "image/png", doc)
}

// AcceptedExtensions lists the extensions ProcessFile handles with this configuration.
func (p *Processor) AcceptedExtensions() []string {
	exts := constants.ImageExtensions()
	if p.cfg.HEIC.Enabled() {
		exts = append(exts, "heic", "heif")
	}
	return exts
}

// ProcessBytes records a job for image, extracts it and stores either the normalised record or
// the classified failure. A failed extraction returns the finished job together with the error.
func (p *Processor) ProcessBytes(ctx context.Context, source string, image []byte, mimeType string, doc constants.DocumentType) (*entity.ExtractionJob, error) {
	if doc == "" || doc == constants.Unknown {
		doc = constants.KTP
	}
	ctx, rid := common.EnsureRequestID(ctx)
	model := p.modelFor(doc)
	sum := sha256.Sum256(image)

	job, err := p.jobsRepo.Start(ctx, &entity.ExtractionJob{
		SourcePath:   source,
		ContentHash:  hex.EncodeToString(sum[:]),
		DocumentType: doc,
		Model:        model,
		Endpoint:     p.cfg.Endpoint,
		Status:       constants.JobStatusRunning,
		RequestID:    rid,
	})
	if err != nil {
		return nil, err
	}
	ctx = common.WithJobID(ctx, job.ID)

	start := time.Now()
	ext, err := p.extractor.Extract(ctx, openai.ExtractInput{
		Image:       image,
		MIMEType:    mimeType,
		Instruction: llm.InstructionFor(doc),
		Model:       model,
	})
	if err != nil {
		p.logger.Error("processor.job.failed", "job_id", job.ID, "req_id", rid, "source", source, "kind", llm.KindOf(err).String(), "error", err)
		if ferr := p.jobsRepo.FinishFailure(ctx, job.ID, failureOf(err, rid, time.Since(start))); ferr != nil {
			return nil, errors.Join(err, ferr)
		}
		return p.reload(ctx, job, err)
	}

	hint, _ := llm.HintFor(doc)
	res := record.Process(ext.Content, hint)
	report, err := json.Marshal(res.Report)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	if !res.Report.Valid {
		p.logger.Warn("processor.job.record_invalid", "job_id", job.ID, "errors", res.Report.Errors)
	}
	if err := p.jobsRepo.FinishSuccess(ctx, job.ID, entity.JobSuccess{
		StatusCode: ext.StatusCode,
		RequestID:  rid,
		Elapsed:    ext.Elapsed,
		RawContent: ext.Content,
		Fields:     res.Record.Fields,
		Valid:      res.Report.Valid,
		Report:     report,
	}); err != nil {
		return nil, err
	}

	p.logger.Info("processor.job.ok",
		"job_id", job.ID,
		"req_id", rid,
		"source", source,
		"model", model,
		"fields", len(res.Record.Fields),
		"valid", res.Report.Valid,
		"elapsed_ms", ext.Elapsed.Milliseconds(),
	)
	return p.reload(ctx, job, nil)
}

// reload fetches the finished row; cause is returned alongside it.
func (p *Processor) reload(ctx context.Context, job *entity.ExtractionJob, cause error) (*entity.ExtractionJob, error) {
	got, err := p.jobsRepo.GetByID(ctx, job.ID)
	if err != nil {
		p.logger.Warn("processor.job.reload_failed", "job_id", job.ID, "error", err)
		return job, errors.Join(cause, err)
	}
	return got, cause
}

func (p *Processor) modelFor(doc constants.DocumentType) string {
	if p.cfg.Selector == nil {
		return p.cfg.Model
	}
	return p.cfg.Selector.Select(doc, p.cfg.Priority, p.cfg.Batch).Model.ID
}

func failureOf(err error, rid string, elapsed time.Duration) entity.JobFailure {
	f := entity.JobFailure{
		RequestID: rid,
		Elapsed:   elapsed,
		ErrorKind: "Internal",
		Message:   err.Error(),
	}
	if e, ok := llm.AsError(err); ok {
		f.ErrorKind = e.Kind.String()
		f.StatusCode = e.StatusCode
		f.Message = e.Detail
		if e.Hint != nil {
			f.Hint = e.Hint.String()
		}
	}
	return f
}
