// Package daemon runs the long-lived worker process: it holds the
// single-instance lock, consumes task ids from the broker, and drives the
// per-task pipeline, reconnecting to the broker with backoff when the
// connection drops.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gofrs/flock"

	"callscore/internal/broker"
	"callscore/internal/config"
	"callscore/internal/logging"
	"callscore/internal/store"
	"callscore/internal/telemetry"
	"callscore/internal/worker"
)

const reconnectMaxInterval = 30 * time.Second

// Daemon coordinates the consumer loop and enforces single-instance execution.
type Daemon struct {
	cfg         *config.Config
	logger      *slog.Logger
	store       *store.Store
	coordinator *worker.Coordinator
	metrics     *telemetry.Metrics

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a daemon with initialized dependencies. metrics may be nil
// when telemetry is disabled.
func New(cfg *config.Config, st *store.Store, coordinator *worker.Coordinator, metrics *telemetry.Metrics, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || st == nil || coordinator == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, coordinator, and logger")
	}

	lockPath := filepath.Join(cfg.LogDir, "callscored.lock")
	return &Daemon{
		cfg:         cfg,
		logger:      logger.With(slog.String(logging.FieldComponent, "daemon")),
		store:       st,
		coordinator: coordinator,
		metrics:     metrics,
		lockPath:    lockPath,
		lock:        flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and launches the consumer and telemetry
// loops. It returns once everything is running; Stop shuts it down.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another callscore daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if d.metrics != nil && d.cfg.Telemetry.Enabled {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := d.metrics.Serve(runCtx, d.cfg.Telemetry.Listen, d.logger); err != nil {
				d.logger.Error("telemetry server failed", slog.String("error", err.Error()))
			}
		}()
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.consumeLoop(runCtx)
	}()

	d.running.Store(true)
	d.logger.Info("callscore daemon started",
		slog.String("lock", d.lockPath),
		slog.String("db", d.store.Path()),
		slog.String("queue", d.cfg.Broker.Queue))
	return nil
}

// consumeLoop keeps a broker connection alive, reconnecting with exponential
// backoff until the context is canceled.
func (d *Daemon) consumeLoop(ctx context.Context) {
	policy := backoff.WithContext(
		backoff.NewExponentialBackOff(
			backoff.WithMaxInterval(reconnectMaxInterval),
			backoff.WithMaxElapsedTime(0),
		),
		ctx,
	)

	operation := func() error {
		client, err := broker.Connect(d.cfg.Broker, d.logger)
		if err != nil {
			d.logger.Warn("broker connect failed, retrying", slog.String("error", err.Error()))
			return err
		}
		defer client.Close()
		policy.Reset()

		d.logger.Info("consuming tasks", slog.String("queue", d.cfg.Broker.Queue))
		if err := client.Consume(ctx, d.coordinator.Process); err != nil {
			d.logger.Warn("consumer stopped, reconnecting", slog.String("error", err.Error()))
			return err
		}
		return nil
	}

	for {
		if err := backoff.Retry(operation, policy); err != nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		// Clean shutdown.
		return
	}
}

// Stop cancels the loops and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", slog.String("error", err.Error()))
	}
	d.running.Store(false)
	d.logger.Info("callscore daemon stopped")
}

// Running reports whether the daemon loops are active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// LockPath returns the single-instance lock file location.
func (d *Daemon) LockPath() string {
	return d.lockPath
}
