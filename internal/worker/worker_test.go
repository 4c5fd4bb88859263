package worker_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"callscore/internal/analysis"
	"callscore/internal/store"
	"callscore/internal/testsupport"
	"callscore/internal/worker"
)

type fakeTranscriber struct {
	data analysis.RecognitionData
	err  error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ *store.CallMetadata) (analysis.RecognitionData, error) {
	return f.data, f.err
}

type capturePublisher struct {
	published []string
	err       error
}

func (p *capturePublisher) PublishTask(_ context.Context, taskID string) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, taskID)
	return nil
}

func cleanCall() analysis.RecognitionData {
	return analysis.RecognitionData{
		Utterances: []analysis.Utterance{
			{Text: "thank you for calling support", Speaker: store.ParticipantEmployee, Timestamps: analysis.Interval{Start: 2, End: 6}},
			{Text: "hi, my package is late", Speaker: store.ParticipantClient, Timestamps: analysis.Interval{Start: 7, End: 10}},
			{Text: "let me look into that", Speaker: store.ParticipantEmployee, Timestamps: analysis.Interval{Start: 11, End: 14}},
		},
		PhraseTimestamps: analysis.PhraseTimestamps{
			Employee: []analysis.Interval{{Start: 2, End: 6}, {Start: 11, End: 14}},
			Client:   []analysis.Interval{{Start: 7, End: 10}},
		},
		Emotions: []store.Emotion{store.EmotionNeutral},
	}
}

// seedProject configures a quality container (no holds, no profanity) and a
// script container (greeting must be said) for proj-1.
func seedProject(t *testing.T, st *store.Store) (profanityDict, greetingDict int64) {
	t.Helper()
	ctx := context.Background()

	profanity := testsupport.NewDictionary(t, st, "profanity", store.ParticipantEmployee, "damn")
	greetings := testsupport.NewDictionary(t, st, "greetings", store.ParticipantEmployee, "thank you for calling")

	quality, err := st.CreateSettings(ctx, "proj-1", store.SettingsQuality)
	if err != nil {
		t.Fatalf("create quality settings: %v", err)
	}
	if _, err := st.AddSettingsItem(ctx, quality.ID, store.NewSettingsItem{
		Immutable: true, Kind: store.ItemCallHolds, Name: "No holds", ScoreWeight: 1,
	}); err != nil {
		t.Fatalf("add holds item: %v", err)
	}
	if _, err := st.AddSettingsItem(ctx, quality.ID, store.NewSettingsItem{
		Immutable: true, Kind: store.ItemProfanitySpeechDict, Name: "No profanity", ScoreWeight: 1,
		Bindings: []store.NewDictionaryBinding{{DictionaryID: profanity.ID, Contains: false}},
	}); err != nil {
		t.Fatalf("add profanity item: %v", err)
	}

	script, err := st.CreateSettings(ctx, "proj-1", store.SettingsScript)
	if err != nil {
		t.Fatalf("create script settings: %v", err)
	}
	if _, err := st.AddSettingsItem(ctx, script.ID, store.NewSettingsItem{
		Kind: store.ItemDictionary, Name: "Greeting", ScoreWeight: 1,
		Bindings: []store.NewDictionaryBinding{{DictionaryID: greetings.ID, Contains: true}},
	}); err != nil {
		t.Fatalf("add greeting item: %v", err)
	}

	return profanity.ID, greetings.ID
}

func TestAcceptCallPublishes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	coord := worker.NewCoordinator(st, cfg, &fakeTranscriber{}, nil, nil)
	publisher := &capturePublisher{}

	task, err := coord.AcceptCall(context.Background(), newCall("hash-w1"), "proj-1", publisher)
	if err != nil {
		t.Fatalf("accept call: %v", err)
	}
	if len(publisher.published) != 1 || publisher.published[0] != task.ID {
		t.Fatalf("expected task to be published, got %+v", publisher.published)
	}

	// Same hash again is a duplicate, nothing new published.
	if _, err := coord.AcceptCall(context.Background(), newCall("hash-w1"), "proj-1", publisher); !errors.Is(err, store.ErrDuplicateCall) {
		t.Fatalf("expected ErrDuplicateCall, got %v", err)
	}
	if len(publisher.published) != 1 {
		t.Fatalf("duplicate must not publish, got %+v", publisher.published)
	}
}

func TestProcessHappyPath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	profanityID, greetingID := seedProject(t, st)
	task := testsupport.NewTask(t, st, "proj-1", "hash-w2")

	coord := worker.NewCoordinator(st, cfg, &fakeTranscriber{data: cleanCall()}, nil, nil)
	if err := coord.Process(ctx, task.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	got, err := st.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Status != store.StatusReady {
		t.Fatalf("expected ready, got %s (%s)", got.Status, got.FailedReason)
	}

	metrics, err := st.GetCallMetrics(ctx, task.ID)
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	if metrics.EmployeeQualityScore == nil || *metrics.EmployeeQualityScore != 100 {
		t.Fatalf("expected quality 100, got %v", metrics.EmployeeQualityScore)
	}
	if metrics.ScriptScore == nil || *metrics.ScriptScore != 100 {
		t.Fatalf("expected script 100, got %v", metrics.ScriptScore)
	}

	matches, err := st.ListMatches(ctx, task.ID)
	if err != nil {
		t.Fatalf("list matches: %v", err)
	}
	found := map[int64]bool{}
	for _, match := range matches {
		found[match.DictionaryID] = match.Found
	}
	if found[profanityID] || !found[greetingID] {
		t.Fatalf("unexpected match results: %+v", found)
	}
}

func TestProcessScoresProfanity(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	seedProject(t, st)
	task := testsupport.NewTask(t, st, "proj-1", "hash-w3")

	data := cleanCall()
	data.Utterances = append(data.Utterances, analysis.Utterance{
		Text: "damn, the system is slow", Speaker: store.ParticipantEmployee,
		Timestamps: analysis.Interval{Start: 15, End: 18},
	})

	coord := worker.NewCoordinator(st, cfg, &fakeTranscriber{data: data}, nil, nil)
	if err := coord.Process(ctx, task.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	metrics, err := st.GetCallMetrics(ctx, task.ID)
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	// Holds still satisfied, profanity violated: round(100*1/2) = 50.
	if metrics.EmployeeQualityScore == nil || *metrics.EmployeeQualityScore != 50 {
		t.Fatalf("expected quality 50, got %v", metrics.EmployeeQualityScore)
	}
}

func TestProcessWithoutConfigurationLeavesScoresAbsent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	task := testsupport.NewTask(t, st, "proj-unconfigured", "hash-w4")
	coord := worker.NewCoordinator(st, cfg, &fakeTranscriber{data: cleanCall()}, nil, nil)
	if err := coord.Process(ctx, task.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	got, err := st.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Status != store.StatusReady {
		t.Fatalf("expected ready, got %s", got.Status)
	}
	metrics, err := st.GetCallMetrics(ctx, task.ID)
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	if metrics.ScriptScore != nil || metrics.EmployeeQualityScore != nil {
		t.Fatalf("expected absent scores, got %+v", metrics)
	}
}

func TestProcessTranscriptionFailureMarksFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	task := testsupport.NewTask(t, st, "proj-1", "hash-w5")
	coord := worker.NewCoordinator(st, cfg, &fakeTranscriber{err: errors.New("stream cut short")}, nil, nil)

	if err := coord.Process(ctx, task.ID); err == nil {
		t.Fatal("expected processing error")
	}

	got, err := st.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Status != store.StatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
	if !strings.Contains(got.FailedReason, "stream cut short") {
		t.Fatalf("expected reason to carry the cause, got %q", got.FailedReason)
	}
}

func TestProcessSkipsTerminalTask(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	task := testsupport.NewTask(t, st, "proj-1", "hash-w6")
	if err := st.FailTask(ctx, task.ID, "abandoned"); err != nil {
		t.Fatalf("fail task: %v", err)
	}

	coord := worker.NewCoordinator(st, cfg, &fakeTranscriber{data: cleanCall()}, nil, nil)
	if err := coord.Process(ctx, task.ID); err != nil {
		t.Fatalf("redelivery of terminal task must be a no-op, got %v", err)
	}

	got, err := st.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Status != store.StatusFailed || got.FailedReason != "abandoned" {
		t.Fatalf("terminal state was disturbed: %+v", got)
	}
}

func TestFinalizeRequiresStagedMetrics(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	task := testsupport.NewTask(t, st, "proj-1", "hash-w7")
	coord := worker.NewCoordinator(st, cfg, &fakeTranscriber{}, nil, nil)

	if err := coord.FinalizeTask(ctx, task); !errors.Is(err, store.ErrIncompleteInputs) {
		t.Fatalf("expected ErrIncompleteInputs, got %v", err)
	}
}

func newCall(hash string) store.NewCall {
	return store.NewCall{
		CallID:       7,
		PerformedAt:  "2026-03-05T12:00:00Z",
		UploadedAt:   "2026-03-05T12:01:00Z",
		FileHash:     hash,
		FileURL:      "https://files.example/" + hash,
		FileName:     hash + ".wav",
		Duration:     60,
		LeftChannel:  store.ParticipantClient,
		RightChannel: store.ParticipantEmployee,
		ClientName:   "c",
		EmployeeName: "e",
		Inbound:      true,
	}
}
