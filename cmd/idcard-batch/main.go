package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/joseph-ayodele/idcard-extractor/constants"
	"github.com/joseph-ayodele/idcard-extractor/internal/common"
	"github.com/joseph-ayodele/idcard-extractor/internal/core"
	"github.com/joseph-ayodele/idcard-extractor/internal/core/async"
	"github.com/joseph-ayodele/idcard-extractor/internal/core/imageconv"
	"github.com/joseph-ayodele/idcard-extractor/internal/entity"
	"github.com/joseph-ayodele/idcard-extractor/internal/export"
	"github.com/joseph-ayodele/idcard-extractor/internal/ingest"
	"github.com/joseph-ayodele/idcard-extractor/internal/llm"
	"github.com/joseph-ayodele/idcard-extractor/internal/llm/openai"
	"github.com/joseph-ayodele/idcard-extractor/internal/models"
	repo "github.com/joseph-ayodele/idcard-extractor/internal/repository"
	"github.com/joseph-ayodele/idcard-extractor/internal/server"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

type summary struct {
	mu        sync.Mutex
	processed int
	failed    int
	invalid   int
	byKind    map[string]int
}

func (s *summary) add(r async.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.Err != nil {
		s.failed++
		kind := llm.KindOf(r.Err).String()
		if llm.KindOf(r.Err) == 0 {
			kind = "Internal"
		}
		s.byKind[kind]++
		return
	}
	s.processed++
	if r.Job != nil && r.Job.Valid != nil && !*r.Job.Valid {
		s.invalid++
	}
}

// readablePaths logs every file the scan could not read and returns the rest.
func readablePaths(results []ingest.FileResult, logger *slog.Logger) []string {
	for _, r := range results {
		if r.Err != "" {
			logger.Warn("skipping file", "path", r.Path, "error", r.Err)
		}
	}
	return ingest.Paths(results)
}

func main() {
	var (
		inmem      = flag.Bool("inmem", false, "use in-memory SQLite database")
		dir        = flag.String("dir", "", "directory of document photos (required)")
		out        = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		docFlag    = flag.String("doc", string(constants.KTP), "document type of every image")
		configPath = flag.String("config", "", "optional YAML config file")
		workers    = flag.Int("workers", 0, "concurrent extractions (default BATCH_WORKERS)")
		watch      = flag.Bool("watch", false, "keep running and process new images as they appear")
		autoModel  = flag.Bool("auto-model", false, "pick the fastest model that fits detected VRAM")
		verbose    = flag.Bool("v", false, "log every job")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(2)
	}
	doc, ok := constants.ParseDocumentType(*docFlag)
	if !ok {
		printError("Error: unknown document type %q\n", *docFlag)
		os.Exit(2)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(filepath.Clean(*dir)), export.FileName(doc, time.Now()))
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := common.LoadDotEnv(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}
	cfg, err := common.LoadConfigFile(*configPath)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}
	if *workers > 0 {
		cfg.Batch.Workers = *workers
	}
	if *inmem {
		cfg.Database.DSN = ""
		cfg.Database.SQLitePath = ":memory:"
	}
	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := server.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	defer server.CloseDB(store, logger)
	jobsRepo := repo.NewExtractionJobRepository(store, logger)

	client := openai.NewClient(openai.FromAppConfig(cfg), logger)
	procCfg := core.ProcessorConfig{
		Model:      client.Config().Model,
		Endpoint:   client.Endpoint(),
		MaxImageMB: cfg.Image.MaxImageMB,
		HEIC:       imageconv.NewConverter(cfg.Image.HEICConverter, cfg.Image.ArtifactCacheDir, logger),
		Batch:      true,
	}
	if *autoModel {
		procCfg.Selector = models.NewSelector(models.DetectVRAMGB(ctx))
		procCfg.Priority = models.PrioritySpeed
	}
	processor := core.NewProcessor(logger, client, jobsRepo, procCfg)

	results, stats, err := ingest.ScanDirectory(*dir, processor.AcceptedExtensions(), true)
	if err != nil {
		printError("Error: scan %s: %v\n", *dir, err)
		os.Exit(1)
	}
	paths := readablePaths(results, logger)
	logger.Info("scan complete", "dir", *dir, "scanned", stats.Scanned, "matched", stats.Matched, "failed", stats.Failed)
	if len(paths) == 0 && !*watch {
		printError("No images found in %s\n", *dir)
		os.Exit(0)
	}

	runStart := time.Now().UTC()
	queue := async.NewProcessorQueue(processor, logger,
		async.WithWorkers(cfg.Batch.Workers),
		async.WithQueueSize(cfg.Batch.QueueSize),
		async.WithProcessTimeout(cfg.Batch.JobTimeout),
		async.WithResults(cfg.Batch.QueueSize),
	)

	total := len(paths)
	if *watch {
		total = -1
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription(fmt.Sprintf("Extracting %s", doc)),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("docs"),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionOnCompletion(func() { fmt.Fprint(os.Stderr, "\n") }),
		progressbar.OptionSetRenderBlankState(true),
	)

	sum := &summary{byKind: map[string]int{}}
	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		for r := range queue.Results() {
			sum.add(r)
			_ = bar.Add(1)
		}
	}()

	enqueue := func(path string) bool {
		err := queue.Enqueue(ctx, async.Job{Path: path, Document: doc})
		if err != nil {
			logger.Warn("enqueue failed", "path", path, "error", err)
			return false
		}
		return true
	}
	for _, p := range paths {
		if !enqueue(p) {
			break
		}
	}

	if *watch {
		events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
			Roots:       []string{*dir},
			AllowedExts: processor.AcceptedExtensions(),
			SkipHidden:  true,
			Debounce:    750 * time.Millisecond,
			Logger:      logger,
		})
		if err != nil {
			printError("Error: watch %s: %v\n", *dir, err)
		} else {
			printError("Watching %s for new images (Ctrl+C to stop)\n", *dir)
			for events != nil || errs != nil {
				select {
				case p, ok := <-events:
					if !ok {
						events = nil
						continue
					}
					enqueue(p)
				case err, ok := <-errs:
					if !ok {
						errs = nil
						continue
					}
					logger.Warn("watch error", "error", err)
				}
			}
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Batch.JobTimeout+30*time.Second)
	queue.Shutdown(shutdownCtx)
	cancel()
	select {
	case <-consumed:
	case <-time.After(5 * time.Second):
		logger.Warn("results not drained before export")
	}
	_ = bar.Finish()

	exportSvc := export.NewService(jobsRepo, logger)
	xlsx, err := exportSvc.ExportJobsXLSX(context.Background(), entity.JobFilter{DocumentType: doc, Since: runStart})
	if err != nil {
		logger.Error("failed to export jobs", "error", err)
		printError("Error: export: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsx, 0o644); err != nil {
		printError("Error: write %s: %v\n", *out, err)
		os.Exit(1)
	}

	sum.mu.Lock()
	defer sum.mu.Unlock()
	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Images found: %d\n", len(paths))
	fmt.Printf("- Extracted: %d (%d with validation errors)\n", sum.processed, sum.invalid)
	fmt.Printf("- Failures: %d\n", sum.failed)
	for kind, n := range sum.byKind {
		fmt.Printf("    %s: %d\n", kind, n)
	}
	fmt.Printf("- Output: %s\n", *out)
}
