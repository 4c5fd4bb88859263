package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"callscore/internal/analysis"
	"callscore/internal/config"
	"callscore/internal/store"
)

// TranscribeRequest is the payload sent to the speech recognition service.
// The operator channel tells the service which stereo channel carries the
// employee.
type TranscribeRequest struct {
	FileURL         string   `json:"file_url"`
	OperatorChannel string   `json:"operator_channel"`
	Tasks           []string `json:"tasks"`
}

// HTTPTranscriber calls a remote speech recognition service.
type HTTPTranscriber struct {
	client *http.Client
	url    string
}

// NewHTTPTranscriber builds a Transcriber from configuration.
func NewHTTPTranscriber(cfg config.Transcriber) *HTTPTranscriber {
	return &HTTPTranscriber{
		client: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		url:    cfg.URL,
	}
}

// Transcribe posts the call's file URL and channel layout and decodes the
// recognition output.
func (t *HTTPTranscriber) Transcribe(ctx context.Context, call *store.CallMetadata) (analysis.RecognitionData, error) {
	operatorChannel := "R"
	if call.LeftChannel == store.ParticipantEmployee {
		operatorChannel = "L"
	}

	payload, err := json.Marshal(TranscribeRequest{
		FileURL:         call.FileURL,
		OperatorChannel: operatorChannel,
		Tasks:           []string{"speech_recognition", "emotion_recognition"},
	})
	if err != nil {
		return analysis.RecognitionData{}, fmt.Errorf("encode transcribe request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(payload))
	if err != nil {
		return analysis.RecognitionData{}, fmt.Errorf("build transcribe request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return analysis.RecognitionData{}, fmt.Errorf("transcribe %s: %w", call.FileName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return analysis.RecognitionData{}, fmt.Errorf("transcribe %s: service returned %s", call.FileName, resp.Status)
	}

	var data analysis.RecognitionData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return analysis.RecognitionData{}, fmt.Errorf("decode recognition data: %w", err)
	}
	return data, nil
}
