package analysis

import (
	"testing"

	"callscore/internal/store"
)

func TestIntervalsOverlap(t *testing.T) {
	if intervalsOverlap(Interval{Start: 0, End: 5}, Interval{Start: 5, End: 10}) {
		t.Fatal("touching intervals must not overlap")
	}
	if !intervalsOverlap(Interval{Start: 0, End: 10}, Interval{Start: 2, End: 8}) {
		t.Fatal("contained interval must overlap")
	}
}

func TestIsInterruption(t *testing.T) {
	if !isInterruption(Interval{Start: 7, End: 10}, Interval{Start: 5, End: 15}) {
		t.Fatal("employee starting mid-client-speech is an interruption")
	}
	if isInterruption(Interval{Start: 5, End: 10}, Interval{Start: 6, End: 12}) {
		t.Fatal("employee speaking first is not an interruption")
	}
	if isInterruption(Interval{Start: 0, End: 5}, Interval{Start: 6, End: 10}) {
		t.Fatal("disjoint intervals are not an interruption")
	}
}

func TestFindInterruptions(t *testing.T) {
	employee := []Interval{{Start: 2, End: 4}, {Start: 9, End: 12}, {Start: 18, End: 22}}
	client := []Interval{{Start: 5, End: 10}, {Start: 15, End: 20}}

	total, count := findInterruptions(employee, client)
	if count != 2 || total != 7.0 {
		t.Fatalf("expected (7.0, 2), got (%v, %d)", total, count)
	}
}

func TestTimeToAnswer(t *testing.T) {
	if got := timeToAnswer([]Interval{{Start: 10, End: 15}}); got != 10 {
		t.Fatalf("expected 10, got %v", got)
	}
	if got := timeToAnswer(nil); got != 0 {
		t.Fatalf("expected 0 for silent employee, got %v", got)
	}
}

func TestTotalSpeechDuration(t *testing.T) {
	if got := totalSpeechDuration(nil); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
	intervals := []Interval{{Start: 0, End: 5}, {Start: 10, End: 15}}
	if got := totalSpeechDuration(intervals); got != 10 {
		t.Fatalf("expected 10, got %v", got)
	}
}

func TestSpeechPercentage(t *testing.T) {
	if got := speechPercentage(10, 50); got != 20 {
		t.Fatalf("expected 20, got %v", got)
	}
	if got := speechPercentage(10, 0); got != 0 {
		t.Fatalf("expected 0 for zero duration, got %v", got)
	}
}

func TestCountPauses(t *testing.T) {
	noHolds := CallHolds{}

	cases := []struct {
		name      string
		employee  []Interval
		client    []Interval
		holds     CallHolds
		wantCount int
		wantSum   float64
	}{
		{
			name:     "client speech resets the gap",
			employee: []Interval{{Start: 0, End: 2}, {Start: 15, End: 17}},
			client:   []Interval{{Start: 2, End: 15}},
			holds:    noHolds,
		},
		{
			name: "two long gaps after employee speech",
			employee: []Interval{
				{Start: 0, End: 2}, {Start: 8, End: 15},
				{Start: 25, End: 30}, {Start: 50, End: 60},
			},
			client:    []Interval{{Start: 30, End: 40}},
			holds:     noHolds,
			wantCount: 2,
			wantSum:   16,
		},
		{
			name:   "silent employee",
			client: []Interval{{Start: 0, End: 5}},
			holds:  noHolds,
		},
		{
			name:     "silent client",
			employee: []Interval{{Start: 0, End: 2}, {Start: 12, End: 22}},
			holds:    noHolds,
		},
		{
			name:     "gap covered by hold is not a pause",
			employee: []Interval{{Start: 0, End: 2}, {Start: 10, End: 15}},
			client:   []Interval{{Start: 5, End: 7}},
			holds:    CallHolds{Music: []Interval{{Start: 8, End: 12}}},
		},
		{
			name:     "short gaps are not pauses",
			employee: []Interval{{Start: 0, End: 2}, {Start: 3, End: 4}},
			client:   []Interval{{Start: 2, End: 3}},
			holds:    noHolds,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			count, sum := countPauses(tc.employee, tc.client, tc.holds)
			if count != tc.wantCount || sum != tc.wantSum {
				t.Fatalf("expected (%d, %v), got (%d, %v)", tc.wantCount, tc.wantSum, count, sum)
			}
		})
	}
}

func TestWordsPerMinute(t *testing.T) {
	utterances := []Utterance{
		{Text: "Hello this is a test.", Speaker: store.ParticipantEmployee, Timestamps: Interval{Start: 0, End: 20}},
		{Text: "This is another test.", Speaker: store.ParticipantEmployee, Timestamps: Interval{Start: 25, End: 55}},
		{Text: "And another one.", Speaker: store.ParticipantEmployee, Timestamps: Interval{Start: 60, End: 70}},
	}

	if got := wordsPerMinute(utterances, 60, store.ParticipantEmployee); got != 12 {
		t.Fatalf("expected 12 wpm, got %v", got)
	}
	if got := wordsPerMinute(utterances, 0, store.ParticipantEmployee); got != 0 {
		t.Fatalf("expected 0 wpm for no speech time, got %v", got)
	}
}

func TestEmotionMode(t *testing.T) {
	if emotionMode(nil) != nil {
		t.Fatal("expected nil for no emotions")
	}

	emotions := []store.Emotion{
		store.EmotionPositive, store.EmotionNeutral, store.EmotionPositive,
		store.EmotionPositive, store.EmotionNeutral,
	}
	if got := emotionMode(emotions); got == nil || *got != store.EmotionPositive {
		t.Fatalf("expected positive, got %v", got)
	}

	// Ties break toward the first observed label.
	tied := []store.Emotion{
		store.EmotionPositive, store.EmotionNeutral,
		store.EmotionPositive, store.EmotionNeutral,
	}
	if got := emotionMode(tied); got == nil || *got != store.EmotionPositive {
		t.Fatalf("expected first-seen positive on tie, got %v", got)
	}
}

func TestComputeMetrics(t *testing.T) {
	data := RecognitionData{
		Utterances: []Utterance{
			{Text: "thank you for calling how can I help", Speaker: store.ParticipantEmployee, Timestamps: Interval{Start: 4, End: 10}},
			{Text: "my order never arrived", Speaker: store.ParticipantClient, Timestamps: Interval{Start: 11, End: 15}},
			{Text: "let me check that for you", Speaker: store.ParticipantEmployee, Timestamps: Interval{Start: 16, End: 20}},
		},
		PhraseTimestamps: PhraseTimestamps{
			Employee: []Interval{{Start: 4, End: 10}, {Start: 16, End: 20}},
			Client:   []Interval{{Start: 11, End: 15}},
		},
		CallHolds: CallHolds{Silent: []Interval{{Start: 20, End: 30}}},
		Emotions:  []store.Emotion{store.EmotionNeutral, store.EmotionNeutral, store.EmotionPositive},
	}

	metrics := ComputeMetrics("task-1", data)
	if metrics.TaskID != "task-1" {
		t.Fatalf("unexpected task id %q", metrics.TaskID)
	}
	if metrics.CallDuration != 20 {
		t.Fatalf("expected call duration 20, got %v", metrics.CallDuration)
	}
	if metrics.TimeToAnswer != 4 {
		t.Fatalf("expected time to answer 4, got %v", metrics.TimeToAnswer)
	}
	if metrics.TotalEmployeeSpeech != 10 || metrics.TotalClientSpeech != 4 {
		t.Fatalf("unexpected speech totals: %+v", metrics)
	}
	if metrics.EmployeeClientSpeechRatio != 250 {
		t.Fatalf("expected ratio 250%%, got %v", metrics.EmployeeClientSpeechRatio)
	}
	if metrics.EmployeeSpeechRatio != 50 || metrics.ClientSpeechRatio != 20 {
		t.Fatalf("unexpected speech ratios: %+v", metrics)
	}
	if metrics.CallHoldsCount != 1 {
		t.Fatalf("expected 1 hold, got %d", metrics.CallHoldsCount)
	}
	if metrics.AvgEmployeeWordsPerMin != 84 {
		t.Fatalf("expected 84 employee wpm, got %v", metrics.AvgEmployeeWordsPerMin)
	}
	if metrics.EmotionMode == nil || *metrics.EmotionMode != store.EmotionNeutral {
		t.Fatalf("unexpected emotion mode: %v", metrics.EmotionMode)
	}
	if metrics.EmotionEndMode == nil || *metrics.EmotionEndMode != store.EmotionPositive {
		t.Fatalf("unexpected end emotion: %v", metrics.EmotionEndMode)
	}
	if metrics.ScriptScore != nil || metrics.EmployeeQualityScore != nil {
		t.Fatal("scores must be unset at analysis time")
	}
}
