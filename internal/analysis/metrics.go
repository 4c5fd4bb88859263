// Package analysis derives numeric call metrics from diarized transcription
// output: per-participant speech intervals, recognized utterances, detected
// holds, and per-segment emotion labels.
package analysis

import (
	"math"
	"sort"
	"strings"

	"callscore/internal/store"
)

const (
	// overlapDurationEps is the minimum overlap, in seconds, before
	// simultaneous speech counts as an interruption.
	overlapDurationEps = 1.0

	// pauseDuration is both the minimum employee silence that counts as a
	// pause and the padding applied around hold intervals when excluding
	// hold-adjacent gaps.
	pauseDuration = 5.0
)

// Interval is a half-open time range in seconds from call start.
type Interval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns the interval length in seconds.
func (i Interval) Duration() float64 {
	return i.End - i.Start
}

// CallHolds groups detected hold segments by their acoustic class.
type CallHolds struct {
	Music  []Interval `json:"music"`
	Silent []Interval `json:"silent"`
}

// Utterance is one recognized speech segment attributed to a participant.
type Utterance struct {
	Text       string            `json:"text"`
	Speaker    store.Participant `json:"speaker"`
	Timestamps Interval          `json:"timestamps"`
}

// PhraseTimestamps holds the per-participant speech intervals.
type PhraseTimestamps struct {
	Employee []Interval `json:"employee"`
	Client   []Interval `json:"client"`
}

// RecognitionData is the full output of the transcription service for one call.
type RecognitionData struct {
	Utterances       []Utterance      `json:"speech_recognition_result"`
	PhraseTimestamps PhraseTimestamps `json:"phrase_timestamps"`
	CallHolds        CallHolds        `json:"call_holds"`
	Emotions         []store.Emotion  `json:"emotion_recognition_result"`
}

// ComputeMetrics turns recognition output into the numeric metrics row for a
// task. Scores are left unset; the calculator fills them at finalize time.
func ComputeMetrics(taskID string, data RecognitionData) store.CallMetrics {
	employee := data.PhraseTimestamps.Employee
	client := data.PhraseTimestamps.Client

	pauseCount, pauseSum := countPauses(employee, client, data.CallHolds)
	interruptionTime, interruptionCount := findInterruptions(employee, client)

	totalEmployeeSpeech := totalSpeechDuration(employee)
	totalClientSpeech := totalSpeechDuration(client)
	callDuration := lastSpeechEnd(employee, client)

	return store.CallMetrics{
		TaskID:                           taskID,
		CallDuration:                     callDuration,
		TimeToAnswer:                     timeToAnswer(employee),
		TotalEmployeeSpeech:              totalEmployeeSpeech,
		TotalClientSpeech:                totalClientSpeech,
		EmployeeClientSpeechRatio:        speechPercentage(totalEmployeeSpeech, totalClientSpeech),
		EmployeeSpeechRatio:              speechPercentage(totalEmployeeSpeech, callDuration),
		ClientSpeechRatio:                speechPercentage(totalClientSpeech, callDuration),
		CallHoldsCount:                   len(data.CallHolds.Music) + len(data.CallHolds.Silent),
		SilencePauseCount:                pauseCount,
		TotalEmployeeSilence:             pauseSum,
		ClientInterruptionsCount:         interruptionCount,
		TotalClientInterruptionsDuration: interruptionTime,
		AvgEmployeeWordsPerMin:           wordsPerMinute(data.Utterances, totalEmployeeSpeech, store.ParticipantEmployee),
		AvgClientWordsPerMin:             wordsPerMinute(data.Utterances, totalClientSpeech, store.ParticipantClient),
		EmotionMode:                      emotionMode(data.Emotions),
		EmotionStartMode:                 firstEmotion(data.Emotions),
		EmotionEndMode:                   lastEmotion(data.Emotions),
	}
}

func intervalsOverlap(first, second Interval) bool {
	return first.Start < second.End && second.Start < first.End
}

// isInterruption reports whether the employee started speaking inside a
// client interval and kept overlapping for at least overlapDurationEps.
func isInterruption(employee, client Interval) bool {
	overlapStart := math.Max(employee.Start, client.Start)
	overlapEnd := math.Min(employee.End, client.End)

	return employee.Start > client.Start &&
		employee.Start < client.End &&
		overlapEnd-overlapStart >= overlapDurationEps
}

func findInterruptions(employeeIntervals, clientIntervals []Interval) (float64, int) {
	var count int
	var total float64
	for _, employee := range employeeIntervals {
		for _, client := range clientIntervals {
			if isInterruption(employee, client) {
				count++
				total += employee.Duration()
				break
			}
		}
	}
	return total, count
}

// timeToAnswer is when the employee first spoke, or 0 if they never did.
func timeToAnswer(employeeIntervals []Interval) float64 {
	if len(employeeIntervals) == 0 {
		return 0
	}
	return employeeIntervals[0].Start
}

func totalSpeechDuration(intervals []Interval) float64 {
	var total float64
	for _, interval := range intervals {
		total += interval.Duration()
	}
	return total
}

// speechPercentage expresses part/whole as a percentage, 0 when the
// denominator is empty.
func speechPercentage(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole * 100
}

func lastSpeechEnd(employeeIntervals, clientIntervals []Interval) float64 {
	var last float64
	for _, interval := range employeeIntervals {
		last = math.Max(last, interval.End)
	}
	for _, interval := range clientIntervals {
		last = math.Max(last, interval.End)
	}
	return last
}

type attributedInterval struct {
	speaker  store.Participant
	interval Interval
}

// countPauses counts employee silences of at least pauseDuration seconds
// that follow the employee's own speech and do not fall inside a padded hold
// segment. Gaps after client speech are the client thinking, not the
// employee stalling, and reset the measurement.
func countPauses(employeeIntervals, clientIntervals []Interval, holds CallHolds) (int, float64) {
	if len(employeeIntervals) == 0 || len(clientIntervals) == 0 {
		return 0, 0
	}

	padded := make([]Interval, 0, len(holds.Music)+len(holds.Silent))
	for _, hold := range holds.Music {
		padded = append(padded, Interval{Start: hold.Start - pauseDuration, End: hold.End + pauseDuration})
	}
	for _, hold := range holds.Silent {
		padded = append(padded, Interval{Start: hold.Start - pauseDuration, End: hold.End + pauseDuration})
	}
	sort.Slice(padded, func(i, j int) bool { return padded[i].Start < padded[j].Start })

	merged := make([]attributedInterval, 0, len(employeeIntervals)+len(clientIntervals))
	for _, interval := range employeeIntervals {
		merged = append(merged, attributedInterval{speaker: store.ParticipantEmployee, interval: interval})
	}
	for _, interval := range clientIntervals {
		merged = append(merged, attributedInterval{speaker: store.ParticipantClient, interval: interval})
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].interval.Start < merged[j].interval.Start })

	var previousEnd *float64
	var count int
	var sum float64
	for _, current := range merged {
		if previousEnd != nil &&
			current.speaker == store.ParticipantEmployee &&
			*previousEnd < current.interval.Start &&
			current.interval.Start-*previousEnd >= pauseDuration &&
			!overlapsAny(padded, current.interval) {
			count++
			sum += current.interval.Start - *previousEnd
		}
		if current.speaker == store.ParticipantEmployee {
			end := current.interval.End
			previousEnd = &end
		} else {
			previousEnd = nil
		}
	}
	return count, sum
}

func overlapsAny(holds []Interval, interval Interval) bool {
	for _, hold := range holds {
		if intervalsOverlap(hold, interval) {
			return true
		}
	}
	return false
}

// wordsPerMinute averages a participant's word count over their own speech
// time, rounded to a whole number.
func wordsPerMinute(utterances []Utterance, speechTime float64, speaker store.Participant) float64 {
	if speechTime == 0 {
		return 0
	}
	var words int
	for _, utterance := range utterances {
		if utterance.Speaker == speaker {
			words += len(strings.Fields(utterance.Text))
		}
	}
	return math.Round(float64(words) / (speechTime / 60))
}

// emotionMode picks the most frequent emotion label, breaking ties by first
// occurrence so repeated runs agree.
func emotionMode(emotions []store.Emotion) *store.Emotion {
	if len(emotions) == 0 {
		return nil
	}
	counts := make(map[store.Emotion]int, len(emotions))
	for _, emotion := range emotions {
		counts[emotion]++
	}

	best := emotions[0]
	for _, emotion := range emotions {
		if counts[emotion] > counts[best] {
			best = emotion
		}
	}
	return &best
}

func firstEmotion(emotions []store.Emotion) *store.Emotion {
	if len(emotions) == 0 {
		return nil
	}
	first := emotions[0]
	return &first
}

func lastEmotion(emotions []store.Emotion) *store.Emotion {
	if len(emotions) == 0 {
		return nil
	}
	last := emotions[len(emotions)-1]
	return &last
}
