package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"callscore/internal/config"
	"callscore/internal/daemon"
	"callscore/internal/logging"
	"callscore/internal/store"
	"callscore/internal/telemetry"
	"callscore/internal/worker"
)

func main() {
	configFlag := flag.String("config", "", "configuration file path")
	flag.Parse()

	// Deployments keep RABBITMQ_URL in a .env file next to the binary; a
	// missing file just means the environment is already populated.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("validate config: %v", err)
	}
	if strings.TrimSpace(cfg.Broker.URL) == "" {
		log.Fatal("broker.url (or RABBITMQ_URL) must be set")
	}
	if strings.TrimSpace(cfg.Transcriber.URL) == "" {
		log.Fatal("transcriber.url must be set")
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open store", slog.String("error", err.Error()))
		return
	}
	defer st.Close()

	var metrics *telemetry.Metrics
	if cfg.Telemetry.Enabled {
		metrics = telemetry.New()
	}

	transcriber := worker.NewHTTPTranscriber(cfg.Transcriber)
	coordinator := worker.NewCoordinator(st, cfg, transcriber, metrics, logger)

	d, err := daemon.New(cfg, st, coordinator, metrics, logger)
	if err != nil {
		logger.Error("create daemon", slog.String("error", err.Error()))
		return
	}

	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", slog.String("error", err.Error()))
		return
	}
	defer d.Stop()

	<-ctx.Done()
	logger.Info("callscored shutting down")
}
