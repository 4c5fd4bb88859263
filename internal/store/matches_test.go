package store_test

import (
	"context"
	"errors"
	"testing"

	"callscore/internal/store"
	"callscore/internal/testsupport"
)

func TestUpsertDictionaryMatchIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	dict := testsupport.NewDictionary(t, st, "greetings", store.ParticipantEmployee, "hello")
	task := testsupport.NewTask(t, st, "proj-1", "hash-m1")

	if err := st.UpsertDictionaryMatch(ctx, task.ID, dict.ID, false); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := st.UpsertDictionaryMatch(ctx, task.ID, dict.ID, true); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	matches, err := st.ListMatches(ctx, task.ID)
	if err != nil {
		t.Fatalf("list matches: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one row per (task, dictionary), got %d", len(matches))
	}
	if !matches[0].Found {
		t.Fatal("expected repeat write to win")
	}
}

func TestUpsertDictionaryMatchGuards(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	dict := testsupport.NewDictionary(t, st, "greetings", store.ParticipantEmployee, "hello")
	task := testsupport.NewTask(t, st, "proj-1", "hash-m2")

	if err := st.UpsertDictionaryMatch(ctx, "missing", dict.ID, true); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := st.FailTask(ctx, task.ID, "bad audio"); err != nil {
		t.Fatalf("fail task: %v", err)
	}
	if err := st.UpsertDictionaryMatch(ctx, task.ID, dict.ID, true); !errors.Is(err, store.ErrTaskConflict) {
		t.Fatalf("expected ErrTaskConflict after terminal state, got %v", err)
	}
}

func TestStageCallMetricsUpsertPreservesScores(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	task := testsupport.NewTask(t, st, "proj-1", "hash-m3")

	metrics := testsupport.SampleMetrics(task.ID)
	if err := st.StageCallMetrics(ctx, metrics); err != nil {
		t.Fatalf("stage metrics: %v", err)
	}

	// Restage with different numbers; scores must remain NULL.
	metrics.CallHoldsCount = 3
	metrics.SilencePauseCount = 0
	if err := st.StageCallMetrics(ctx, metrics); err != nil {
		t.Fatalf("restage metrics: %v", err)
	}

	got, err := st.GetCallMetrics(ctx, task.ID)
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	if got.CallHoldsCount != 3 || got.SilencePauseCount != 0 {
		t.Fatalf("numeric columns not replaced: %+v", got)
	}
	if got.ScriptScore != nil || got.EmployeeQualityScore != nil {
		t.Fatalf("scores should stay unset while processing: %+v", got)
	}
}

func TestStageCallMetricsRejectsTerminalTask(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	task := testsupport.NewTask(t, st, "proj-1", "hash-m4")
	if err := st.FailTask(ctx, task.ID, "bad audio"); err != nil {
		t.Fatalf("fail task: %v", err)
	}

	err := st.StageCallMetrics(ctx, testsupport.SampleMetrics(task.ID))
	if !errors.Is(err, store.ErrTaskConflict) {
		t.Fatalf("expected ErrTaskConflict, got %v", err)
	}
}

func TestEmotionModesRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	task := testsupport.NewTask(t, st, "proj-1", "hash-m5")
	metrics := testsupport.SampleMetrics(task.ID)
	neutral := store.EmotionNeutral
	positive := store.EmotionPositive
	metrics.EmotionMode = &neutral
	metrics.EmotionStartMode = &neutral
	metrics.EmotionEndMode = &positive

	if err := st.StageCallMetrics(ctx, metrics); err != nil {
		t.Fatalf("stage metrics: %v", err)
	}
	got, err := st.GetCallMetrics(ctx, task.ID)
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	if got.EmotionMode == nil || *got.EmotionMode != store.EmotionNeutral {
		t.Fatalf("unexpected emotion mode: %v", got.EmotionMode)
	}
	if got.EmotionEndMode == nil || *got.EmotionEndMode != store.EmotionPositive {
		t.Fatalf("unexpected end emotion: %v", got.EmotionEndMode)
	}
}
