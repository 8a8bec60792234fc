package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/idcard-extractor/internal/common"
	"github.com/joseph-ayodele/idcard-extractor/internal/core"
	"github.com/joseph-ayodele/idcard-extractor/internal/core/imageconv"
	"github.com/joseph-ayodele/idcard-extractor/internal/export"
	"github.com/joseph-ayodele/idcard-extractor/internal/llm/openai"
	"github.com/joseph-ayodele/idcard-extractor/internal/models"
	repo "github.com/joseph-ayodele/idcard-extractor/internal/repository"
	svc "github.com/joseph-ayodele/idcard-extractor/internal/server"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	autoModel := flag.Bool("auto-model", false, "pick a model per document type from detected VRAM")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := common.LoadDotEnv(); err != nil {
		logger.Error("failed to load .env", "error", err)
		os.Exit(2)
	}
	cfg, err := common.LoadConfigFile(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(2)
	}

	addr := cfg.Server.GRPCAddr
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := svc.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer svc.CloseDB(store, logger)

	jobsRepo := repo.NewExtractionJobRepository(store, logger)

	client := openai.NewClient(openai.FromAppConfig(cfg), logger)
	procCfg := core.ProcessorConfig{
		Model:      client.Config().Model,
		Endpoint:   client.Endpoint(),
		MaxImageMB: cfg.Image.MaxImageMB,
		HEIC:       imageconv.NewConverter(cfg.Image.HEICConverter, cfg.Image.ArtifactCacheDir, logger),
	}
	if *autoModel {
		procCfg.Selector = models.NewSelector(models.DetectVRAMGB(ctx))
		logger.Info("model selection enabled", "vram_gb", procCfg.Selector.AvailableVRAMGB)
	}
	processor := core.NewProcessor(logger, client, jobsRepo, procCfg)

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", addr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer()

	extractor := svc.NewExtractorService(processor, jobsRepo, export.NewService(jobsRepo, logger), logger)
	svc.RegisterExtractorServer(grpcServer, extractor)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(svc.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	logger.Info("idcardd listening",
		"addr", addr,
		"endpoint", client.Endpoint(),
		"model", client.Config().Model,
		"token_policy", client.Config().TokenPolicy.String(),
		"db", store.Dialect(),
	)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	healthServer.Shutdown()

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(10 * time.Second):
		grpcServer.Stop()
	}
}
