package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// StageCallMetrics writes the numeric signals for a processing task. The
// write is an idempotent upsert: repeating it replaces the numeric columns
// while the score and emotion columns keep whatever they hold (NULL until
// CompleteTask fills the scores). Staging against a terminal task returns
// ErrTaskConflict.
func (s *Store) StageCallMetrics(ctx context.Context, metrics CallMetrics) error {
	ctx = ensureContext(ctx)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin metrics tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := requireProcessing(ctx, tx, metrics.TaskID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO task_call_metrics (
			task_id, call_duration, time_to_answer,
			total_employee_speech, total_client_speech,
			employee_client_speech_ratio, employee_speech_ratio, client_speech_ratio,
			call_holds_count, silence_pause_count, total_employee_silence,
			client_interruptions_count, total_client_interruptions_duration,
			avg_employee_words_per_min, avg_client_words_per_min,
			script_score, employee_quality_score,
			emotion_mode, emotion_start_mode, emotion_end_mode
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL, ?, ?, ?)
		ON CONFLICT(task_id) DO UPDATE SET
			call_duration = excluded.call_duration,
			time_to_answer = excluded.time_to_answer,
			total_employee_speech = excluded.total_employee_speech,
			total_client_speech = excluded.total_client_speech,
			employee_client_speech_ratio = excluded.employee_client_speech_ratio,
			employee_speech_ratio = excluded.employee_speech_ratio,
			client_speech_ratio = excluded.client_speech_ratio,
			call_holds_count = excluded.call_holds_count,
			silence_pause_count = excluded.silence_pause_count,
			total_employee_silence = excluded.total_employee_silence,
			client_interruptions_count = excluded.client_interruptions_count,
			total_client_interruptions_duration = excluded.total_client_interruptions_duration,
			avg_employee_words_per_min = excluded.avg_employee_words_per_min,
			avg_client_words_per_min = excluded.avg_client_words_per_min,
			emotion_mode = excluded.emotion_mode,
			emotion_start_mode = excluded.emotion_start_mode,
			emotion_end_mode = excluded.emotion_end_mode`,
		metrics.TaskID, metrics.CallDuration, metrics.TimeToAnswer,
		metrics.TotalEmployeeSpeech, metrics.TotalClientSpeech,
		metrics.EmployeeClientSpeechRatio, metrics.EmployeeSpeechRatio, metrics.ClientSpeechRatio,
		metrics.CallHoldsCount, metrics.SilencePauseCount, metrics.TotalEmployeeSilence,
		metrics.ClientInterruptionsCount, metrics.TotalClientInterruptionsDuration,
		metrics.AvgEmployeeWordsPerMin, metrics.AvgClientWordsPerMin,
		nullableEmotion(metrics.EmotionMode), nullableEmotion(metrics.EmotionStartMode),
		nullableEmotion(metrics.EmotionEndMode),
	); err != nil {
		return fmt.Errorf("stage call metrics: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit metrics: %w", err)
	}
	return nil
}

// GetCallMetrics fetches the metrics row of a task.
func (s *Store) GetCallMetrics(ctx context.Context, taskID string) (*CallMetrics, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT task_id, call_duration, time_to_answer,
			total_employee_speech, total_client_speech,
			employee_client_speech_ratio, employee_speech_ratio, client_speech_ratio,
			call_holds_count, silence_pause_count, total_employee_silence,
			client_interruptions_count, total_client_interruptions_duration,
			avg_employee_words_per_min, avg_client_words_per_min,
			script_score, employee_quality_score,
			emotion_mode, emotion_start_mode, emotion_end_mode
		 FROM task_call_metrics WHERE task_id = ?`, taskID)

	var metrics CallMetrics
	var scriptScore, qualityScore sql.NullInt64
	var emotionMode, emotionStart, emotionEnd sql.NullString
	err := row.Scan(
		&metrics.TaskID, &metrics.CallDuration, &metrics.TimeToAnswer,
		&metrics.TotalEmployeeSpeech, &metrics.TotalClientSpeech,
		&metrics.EmployeeClientSpeechRatio, &metrics.EmployeeSpeechRatio, &metrics.ClientSpeechRatio,
		&metrics.CallHoldsCount, &metrics.SilencePauseCount, &metrics.TotalEmployeeSilence,
		&metrics.ClientInterruptionsCount, &metrics.TotalClientInterruptionsDuration,
		&metrics.AvgEmployeeWordsPerMin, &metrics.AvgClientWordsPerMin,
		&scriptScore, &qualityScore, &emotionMode, &emotionStart, &emotionEnd,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get call metrics: %w", err)
	}

	metrics.ScriptScore = scanNullableInt(scriptScore)
	metrics.EmployeeQualityScore = scanNullableInt(qualityScore)
	metrics.EmotionMode = scanNullableEmotion(emotionMode)
	metrics.EmotionStartMode = scanNullableEmotion(emotionStart)
	metrics.EmotionEndMode = scanNullableEmotion(emotionEnd)
	return &metrics, nil
}
