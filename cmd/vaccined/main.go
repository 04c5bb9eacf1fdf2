package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/vaccine-tracker/internal/app"
	"github.com/joseph-ayodele/vaccine-tracker/internal/common"
	"github.com/joseph-ayodele/vaccine-tracker/internal/core/async"
	"github.com/joseph-ayodele/vaccine-tracker/internal/server"
	ingestsvc "github.com/joseph-ayodele/vaccine-tracker/internal/services/ingest"
)

func main() {
	cfg := common.LoadConfig()
	logger := common.NewLogger(cfg)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	addr := cfg.Server.GRPCAddr
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	queue := async.NewProcessorQueue(a.Ingestor, logger,
		async.WithWorkers(cfg.Ingest.Workers),
		async.WithQueueSize(512),
		async.WithProcessTimeout(3*time.Minute),
	)
	ingestService := ingestsvc.NewService(a.Ingestor, a.Subjects, queue, logger)

	svc := server.NewVaccineService(a.Processor, a.Vaccines, a.Subject, a.Exporter, logger,
		server.WithIngest(ingestService))
	// base64 inflates uploads by a third
	grpcServer, healthServer := server.New(svc, logger, int(cfg.MaxUpload)*4/3+64<<10)

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", addr, "error", err)
		os.Exit(1)
	}

	if cfg.Ingest.InboxDir != "" {
		inbox, err := a.Subjects.GetOrCreateByName(ctx, cfg.Ingest.InboxSubject)
		if err != nil {
			logger.Error("failed to resolve inbox subject", "name", cfg.Ingest.InboxSubject, "error", err)
			os.Exit(1)
		}
		go func() {
			err := ingestService.Watch(ctx, ingestsvc.WatchRequest{
				SubjectID:   inbox.ID.String(),
				Roots:       []string{cfg.Ingest.InboxDir},
				InitialScan: true,
				Debounce:    cfg.Ingest.InboxDebounce,
			})
			if err != nil && ctx.Err() == nil {
				logger.Error("inbox watcher stopped", "dir", cfg.Ingest.InboxDir, "error", err)
			}
		}()
	}

	logger.Info("vaccine-tracker listening", "addr", addr, "inbox", cfg.Ingest.InboxDir)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	grpcServer.GracefulStop()

	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	queue.Shutdown(drainCtx)
}
