package testsupport

import (
	"context"
	"fmt"
	"testing"

	"callscore/internal/config"
	"callscore/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewCall creates a call record with a distinct file hash for tests.
func NewCall(t testing.TB, st *store.Store, hash string) *store.CallMetadata {
	t.Helper()

	meta, err := st.CreateCall(context.Background(), store.NewCall{
		CallID:       42,
		PerformedAt:  "2026-03-01T10:00:00Z",
		UploadedAt:   "2026-03-01T10:05:00Z",
		FileHash:     hash,
		FileURL:      "https://files.example/" + hash,
		FileName:     hash + ".wav",
		Duration:     318.5,
		LeftChannel:  store.ParticipantClient,
		RightChannel: store.ParticipantEmployee,
		ClientName:   "Jordan Reyes",
		EmployeeName: "Sam Park",
		Inbound:      true,
	})
	if err != nil {
		t.Fatalf("store.CreateCall: %v", err)
	}
	return meta
}

// NewTask creates a call record plus its processing task for tests.
func NewTask(t testing.TB, st *store.Store, projectID, hash string) *store.Task {
	t.Helper()

	meta := NewCall(t, st, hash)
	task, err := st.CreateTask(context.Background(), meta.ID, projectID)
	if err != nil {
		t.Fatalf("store.CreateTask: %v", err)
	}
	return task
}

// NewDictionary creates a dictionary with the given phrases for tests.
func NewDictionary(t testing.TB, st *store.Store, name string, participant store.Participant, phrases ...string) *store.Dictionary {
	t.Helper()

	dict, err := st.CreateDictionary(context.Background(), name, participant)
	if err != nil {
		t.Fatalf("store.CreateDictionary: %v", err)
	}
	if len(phrases) > 0 {
		if err := st.AddPhrases(context.Background(), dict.ID, phrases); err != nil {
			t.Fatalf("store.AddPhrases: %v", err)
		}
	}
	return dict
}

// StageMetrics writes a plausible metrics row for a processing task.
func StageMetrics(t testing.TB, st *store.Store, taskID string) {
	t.Helper()

	if err := st.StageCallMetrics(context.Background(), SampleMetrics(taskID)); err != nil {
		t.Fatalf("store.StageCallMetrics: %v", err)
	}
}

// SampleMetrics returns a filled metrics value with scores unset.
func SampleMetrics(taskID string) store.CallMetrics {
	return store.CallMetrics{
		TaskID:                           taskID,
		CallDuration:                     318.5,
		TimeToAnswer:                     4.2,
		TotalEmployeeSpeech:              140.0,
		TotalClientSpeech:                120.0,
		EmployeeClientSpeechRatio:        116.7,
		EmployeeSpeechRatio:              44.0,
		ClientSpeechRatio:                37.7,
		CallHoldsCount:                   0,
		SilencePauseCount:                1,
		TotalEmployeeSilence:             178.5,
		ClientInterruptionsCount:         2,
		TotalClientInterruptionsDuration: 6.5,
		AvgEmployeeWordsPerMin:           155.0,
		AvgClientWordsPerMin:             132.0,
	}
}

// UniqueHash derives a distinct file hash per invocation index.
func UniqueHash(prefix string, n int) string {
	return fmt.Sprintf("%s-%04d", prefix, n)
}
