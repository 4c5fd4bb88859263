// Package worker coordinates the processing of one call: transcription,
// metric extraction, dictionary matching, scoring, and the final status flip.
// Tasks are independent; any number of coordinators may run concurrently as
// long as they share the store, which serializes the terminal transition.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"callscore/internal/analysis"
	"callscore/internal/config"
	"callscore/internal/logging"
	"callscore/internal/scoring"
	"callscore/internal/store"
	"callscore/internal/telemetry"
	"callscore/internal/textmatch"
)

// Transcriber is the boundary to the speech recognition service.
type Transcriber interface {
	Transcribe(ctx context.Context, call *store.CallMetadata) (analysis.RecognitionData, error)
}

// TaskPublisher hands accepted tasks to the processing side.
type TaskPublisher interface {
	PublishTask(ctx context.Context, taskID string) error
}

// Coordinator drives the per-task pipeline against the store.
type Coordinator struct {
	store       *store.Store
	calculator  *scoring.Calculator
	transcriber Transcriber
	telemetry   *telemetry.Metrics
	logger      *slog.Logger
}

// NewCoordinator wires a Coordinator. telemetry may be nil.
func NewCoordinator(st *store.Store, cfg *config.Config, transcriber Transcriber, metrics *telemetry.Metrics, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Coordinator{
		store:       st,
		calculator:  scoring.NewCalculator(cfg.Scoring, logger),
		transcriber: transcriber,
		telemetry:   metrics,
		logger:      logger.With(slog.String(logging.FieldComponent, "worker")),
	}
}

// AcceptCall registers an uploaded call, opens its task, and optionally hands
// it to the publisher. A duplicate upload surfaces the original record's
// error so the caller can point at the existing task instead of reprocessing.
func (c *Coordinator) AcceptCall(ctx context.Context, call store.NewCall, projectID string, publisher TaskPublisher) (*store.Task, error) {
	meta, err := c.store.CreateCall(ctx, call)
	if err != nil {
		return nil, err
	}

	task, err := c.store.CreateTask(ctx, meta.ID, projectID)
	if err != nil {
		return nil, err
	}

	if publisher != nil {
		if err := publisher.PublishTask(ctx, task.ID); err != nil {
			// The task stays processing in the store; an operator can
			// republish it once the broker recovers.
			return task, fmt.Errorf("publish task %s: %w", task.ID, err)
		}
		if c.telemetry != nil {
			c.telemetry.TaskPublished()
		}
	}

	c.logger.Info("call accepted",
		slog.String(logging.FieldTaskID, task.ID),
		slog.String(logging.FieldProjectID, projectID),
		slog.String("file_hash", meta.FileHash))
	return task, nil
}

// Process runs the full pipeline for one task. Any pipeline error marks the
// task failed with the error text as the reason. Redeliveries of tasks that
// already reached a terminal state are skipped, not errors.
func (c *Coordinator) Process(ctx context.Context, taskID string) error {
	started := time.Now()
	logger := logging.WithContext(ctx, c.logger).With(slog.String(logging.FieldTaskID, taskID))

	task, err := c.store.GetTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("load task: %w", err)
	}
	if task.Status.IsTerminal() {
		logger.Info("skipping redelivered task", slog.String("status", string(task.Status)))
		return nil
	}

	if err := c.processTask(ctx, task, logger); err != nil {
		logger.Error("task failed", slog.String("error", err.Error()))
		if failErr := c.MarkFailed(ctx, task.ID, err.Error()); failErr != nil {
			logger.Error("could not record failure", slog.String("error", failErr.Error()))
		}
		c.observe(store.StatusFailed, started)
		return err
	}

	c.observe(store.StatusReady, started)
	logger.Info("task ready", slog.Duration("elapsed", time.Since(started)))
	return nil
}

func (c *Coordinator) processTask(ctx context.Context, task *store.Task, logger *slog.Logger) error {
	call, err := c.store.GetCall(ctx, task.CallMetadataID)
	if err != nil {
		return fmt.Errorf("load call metadata: %w", err)
	}

	data, err := c.transcriber.Transcribe(ctx, call)
	if err != nil {
		return fmt.Errorf("transcribe: %w", err)
	}

	metrics := analysis.ComputeMetrics(task.ID, data)
	if err := c.store.StageCallMetrics(ctx, metrics); err != nil {
		return fmt.Errorf("stage metrics: %w", err)
	}

	if err := c.matchDictionaries(ctx, task.ID, data, logger); err != nil {
		return err
	}

	return c.FinalizeTask(ctx, task)
}

// matchDictionaries evaluates every known dictionary against the transcript
// and stages one boolean result per dictionary.
func (c *Coordinator) matchDictionaries(ctx context.Context, taskID string, data analysis.RecognitionData, logger *slog.Logger) error {
	dictionaries, err := c.store.ListDictionaries(ctx)
	if err != nil {
		return fmt.Errorf("list dictionaries: %w", err)
	}
	phrases, err := c.store.ListAllPhrases(ctx)
	if err != nil {
		return fmt.Errorf("list phrases: %w", err)
	}

	matcher := textmatch.NewMatcher(data)
	for _, dict := range dictionaries {
		found := matcher.MatchDictionary(dict, phrases[dict.ID])
		if err := c.store.UpsertDictionaryMatch(ctx, taskID, dict.ID, found); err != nil {
			return fmt.Errorf("record match for dictionary %d: %w", dict.ID, err)
		}
		logger.Debug("dictionary matched",
			slog.Int64(logging.FieldDictionaryID, dict.ID),
			slog.Bool("found", found))
	}
	return nil
}

// FinalizeTask computes both scores from the staged inputs and flips the task
// to ready. The staged metrics row must exist; staged matches that never
// arrived count against their criteria rather than blocking. A project
// without a quality or script container simply gets no score for that
// dimension.
func (c *Coordinator) FinalizeTask(ctx context.Context, task *store.Task) error {
	if _, err := c.store.GetCallMetrics(ctx, task.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.ErrIncompleteInputs
		}
		return fmt.Errorf("load metrics: %w", err)
	}

	qualityScore, err := c.scoreContainer(ctx, task, store.SettingsQuality)
	if err != nil {
		return err
	}
	scriptScore, err := c.scoreContainer(ctx, task, store.SettingsScript)
	if err != nil {
		return err
	}

	if err := c.store.CompleteTask(ctx, task.ID, scriptScore, qualityScore); err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	return nil
}

func (c *Coordinator) scoreContainer(ctx context.Context, task *store.Task, kind store.SettingsKind) (*int, error) {
	settings, err := c.store.GetSettings(ctx, task.ProjectID, kind)
	if errors.Is(err, store.ErrConfigurationMissing) {
		c.logger.Info("no settings container, skipping score",
			slog.String(logging.FieldTaskID, task.ID),
			slog.String(logging.FieldProjectID, task.ProjectID),
			slog.String("kind", string(kind)))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve %s settings: %w", kind, err)
	}

	metrics, err := c.store.GetCallMetrics(ctx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("load metrics: %w", err)
	}
	matchRows, err := c.store.ListMatches(ctx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("load matches: %w", err)
	}
	matches := make(map[int64]bool, len(matchRows))
	for _, match := range matchRows {
		matches[match.DictionaryID] = match.Found
	}

	result := c.calculator.Score(settings, metrics, matches)
	return result.Score, nil
}

// MarkFailed records a terminal failure. Losing the race against another
// writer is fine; the task is terminal either way.
func (c *Coordinator) MarkFailed(ctx context.Context, taskID, reason string) error {
	err := c.store.FailTask(ctx, taskID, reason)
	if errors.Is(err, store.ErrTaskConflict) {
		return nil
	}
	return err
}

func (c *Coordinator) observe(status store.Status, started time.Time) {
	if c.telemetry != nil {
		c.telemetry.TaskProcessed(status, time.Since(started))
	}
}
