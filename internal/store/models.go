package store

import (
	"strings"
	"time"
)

// Status represents the task lifecycle state.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{StatusProcessing, StatusReady, StatusFailed}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case StatusProcessing, StatusReady, StatusFailed:
		return normalized, true
	default:
		return "", false
	}
}

// IsTerminal reports whether no further transition is allowed from s.
func (s Status) IsTerminal() bool {
	return s == StatusReady || s == StatusFailed
}

// Participant identifies which side of the call a value applies to.
type Participant string

const (
	ParticipantClient   Participant = "client"
	ParticipantEmployee Participant = "employee"
)

// ParseParticipant converts a string into a known Participant.
func ParseParticipant(value string) (Participant, bool) {
	normalized := Participant(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case ParticipantClient, ParticipantEmployee:
		return normalized, true
	default:
		return "", false
	}
}

// SettingsKind distinguishes the two scoring containers of a project.
type SettingsKind string

const (
	SettingsQuality SettingsKind = "quality"
	SettingsScript  SettingsKind = "script"
)

// ParseSettingsKind converts a string into a known SettingsKind.
func ParseSettingsKind(value string) (SettingsKind, bool) {
	normalized := SettingsKind(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case SettingsQuality, SettingsScript:
		return normalized, true
	default:
		return "", false
	}
}

// ItemKind is the closed set of scored criterion types.
type ItemKind string

const (
	ItemSpeechRateRatio     ItemKind = "speech_rate_ratio"
	ItemCallHolds           ItemKind = "call_holds"
	ItemSilencePauses       ItemKind = "silence_pauses"
	ItemInterruptions       ItemKind = "interruptions"
	ItemLackingInfoDict     ItemKind = "lacking_info_dict"
	ItemFillerWordsDict     ItemKind = "filler_words_dict"
	ItemSlurredSpeechDict   ItemKind = "slurred_speech_dict"
	ItemProfanitySpeechDict ItemKind = "profanity_speech_dict"
	ItemDictionary          ItemKind = "dictionary"
)

var allItemKinds = []ItemKind{
	ItemSpeechRateRatio,
	ItemCallHolds,
	ItemSilencePauses,
	ItemInterruptions,
	ItemLackingInfoDict,
	ItemFillerWordsDict,
	ItemSlurredSpeechDict,
	ItemProfanitySpeechDict,
	ItemDictionary,
}

// ParseItemKind converts a string into a known ItemKind.
func ParseItemKind(value string) (ItemKind, bool) {
	normalized := ItemKind(strings.ToLower(strings.TrimSpace(value)))
	for _, kind := range allItemKinds {
		if kind == normalized {
			return normalized, true
		}
	}
	return "", false
}

// DictionaryDriven reports whether the criterion is decided by dictionary
// matches rather than numeric call metrics.
func (k ItemKind) DictionaryDriven() bool {
	switch k {
	case ItemLackingInfoDict, ItemFillerWordsDict, ItemSlurredSpeechDict, ItemProfanitySpeechDict, ItemDictionary:
		return true
	default:
		return false
	}
}

// Emotion classifies the dominant emotion of a call segment.
type Emotion string

const (
	EmotionNeutral  Emotion = "neutral"
	EmotionPositive Emotion = "positive"
	EmotionAngry    Emotion = "angry"
	EmotionSad      Emotion = "sad"
	EmotionOther    Emotion = "other"
)

// Dictionary is a named phrase set matched against one participant's speech.
type Dictionary struct {
	ID          int64
	Name        string
	Participant Participant
}

// Phrase is one entry of a dictionary. Text is stored lower-cased.
type Phrase struct {
	ID           int64
	DictionaryID int64
	Text         string
}

// Settings is a per-project scoring container of one kind.
type Settings struct {
	ID        string
	ProjectID string
	Kind      SettingsKind
}

// SettingsItem is one weighted criterion inside a container. Immutable items
// are system-defined and cannot be deleted or rebound by a project.
type SettingsItem struct {
	ID          string
	SettingsID  string
	Immutable   bool
	Kind        ItemKind
	Name        string
	ScoreWeight int
}

// DictionaryBinding ties a dictionary-driven item to one dictionary with a
// polarity: Contains true means the phrases must be present for the criterion
// to hold, false means they must be absent.
type DictionaryBinding struct {
	ID             string
	SettingsItemID string
	DictionaryID   int64
	Contains       bool
}

// ResolvedItem is a SettingsItem with its dictionary bindings attached.
type ResolvedItem struct {
	SettingsItem
	Bindings []DictionaryBinding
}

// ResolvedSettings is a container with all items resolved, ready for scoring.
type ResolvedSettings struct {
	Settings
	Items []ResolvedItem
}

// WeightSum returns the total score weight present in the container.
func (r ResolvedSettings) WeightSum() int {
	sum := 0
	for _, item := range r.Items {
		sum += item.ScoreWeight
	}
	return sum
}

// CallMetadata describes one uploaded, content-addressed call recording.
type CallMetadata struct {
	ID           string
	CallID       int64
	PerformedAt  time.Time
	UploadedAt   time.Time
	FileHash     string
	FileURL      string
	FileName     string
	Duration     float64
	LeftChannel  Participant
	RightChannel Participant
	ClientName   string
	EmployeeName string
	Inbound      bool
}

// Task is the per-call processing unit. Exactly one exists per call record.
type Task struct {
	ID             string
	CallMetadataID string
	ProjectID      string
	Status         Status
	FailedReason   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DictionaryMatch is the boolean result of matching one dictionary against
// one task's transcript.
type DictionaryMatch struct {
	TaskID       string
	DictionaryID int64
	Found        bool
}

// CallMetrics holds every numeric signal computed for a task plus the two
// final scores. Scores are pointers: nil means the corresponding container
// was absent or carried zero weight, which is distinct from a zero score.
type CallMetrics struct {
	TaskID string

	CallDuration float64
	TimeToAnswer float64

	TotalEmployeeSpeech float64
	TotalClientSpeech   float64

	EmployeeClientSpeechRatio float64
	EmployeeSpeechRatio       float64
	ClientSpeechRatio         float64

	CallHoldsCount int

	SilencePauseCount    int
	TotalEmployeeSilence float64

	ClientInterruptionsCount         int
	TotalClientInterruptionsDuration float64

	AvgEmployeeWordsPerMin float64
	AvgClientWordsPerMin   float64

	ScriptScore          *int
	EmployeeQualityScore *int

	EmotionMode      *Emotion
	EmotionStartMode *Emotion
	EmotionEndMode   *Emotion
}
