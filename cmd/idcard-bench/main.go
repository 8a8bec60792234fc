package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/joseph-ayodele/idcard-extractor/constants"
	"github.com/joseph-ayodele/idcard-extractor/internal/common"
	"github.com/joseph-ayodele/idcard-extractor/internal/llm"
	"github.com/joseph-ayodele/idcard-extractor/internal/llm/openai"
	"github.com/joseph-ayodele/idcard-extractor/internal/record"
)

// idcard-bench extracts the same image repeatedly and reports latency and record validity.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		logger.Error("usage: idcard-bench <image> [times] [doc]")
		os.Exit(2)
	}
	path := os.Args[1]
	times := 5
	if len(os.Args) >= 3 {
		if n, err := strconv.Atoi(os.Args[2]); err == nil && n > 0 {
			times = n
		}
	}
	doc := constants.KTP
	if len(os.Args) >= 4 {
		d, ok := constants.ParseDocumentType(os.Args[3])
		if !ok {
			logger.Error("invalid document type", "arg", os.Args[3])
			os.Exit(2)
		}
		doc = d
	}

	if err := common.LoadDotEnv(); err != nil {
		logger.Error("load .env", "error", err)
		os.Exit(2)
	}
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(2)
	}

	image, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read image", "path", path, "error", err)
		os.Exit(2)
	}
	mimeType := constants.MIMEForExt(filepath.Ext(path))

	client := openai.NewClient(openai.FromAppConfig(cfg), logger)
	hint, _ := llm.HintFor(doc)
	base := filepath.Base(path)

	var (
		latencies []time.Duration
		failures  int
		invalid   int
	)
	for i := 1; i <= times; i++ {
		runCtx, cancelRun := context.WithTimeout(context.Background(), cfg.Endpoint.Timeout+10*time.Second)
		logger.Info("bench.run.start", "iter", i, "basename", base, "model", client.Config().Model)

		res, err := client.ExtractDocument(runCtx, image, mimeType, doc)
		cancelRun()

		if err != nil {
			failures++
			attrs := []any{"iter", i, "kind", llm.KindOf(err).String(), "err", err}
			if e, ok := llm.AsError(err); ok && e.Hint != nil {
				attrs = append(attrs, "hint", e.Hint.Summary)
			}
			logger.Error("bench.run.error", attrs...)
			if llm.KindOf(err) == llm.InvalidInput {
				break
			}
		} else {
			latencies = append(latencies, res.Elapsed)
			rep := record.Process(res.Content, hint).Report
			if !rep.Valid {
				invalid++
			}
			logger.Info("bench.run.ok", "iter", i, "elapsed_ms", res.Elapsed.Milliseconds(), "valid", rep.Valid)
		}

		time.Sleep(750 * time.Millisecond)
	}

	attrs := []any{"image", base, "model", client.Config().Model, "times", times, "failures", failures, "invalid", invalid}
	if len(latencies) > 0 {
		slices.Sort(latencies)
		var total time.Duration
		for _, d := range latencies {
			total += d
		}
		attrs = append(attrs,
			"min_ms", latencies[0].Milliseconds(),
			"p50_ms", latencies[len(latencies)/2].Milliseconds(),
			"max_ms", latencies[len(latencies)-1].Milliseconds(),
			"avg_ms", (total / time.Duration(len(latencies))).Milliseconds(),
		)
	}
	logger.Info("bench.done", attrs...)
	if failures == times {
		os.Exit(1)
	}
}
