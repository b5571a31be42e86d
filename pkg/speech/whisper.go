package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"strings"
	"time"

	"github.com/xhad/askpdf/internal/models"
)

type WhisperConfig struct {
	URL       string
	APIKey    string
	Model     string
	Language  string
	RateLimit float64
	Timeout   time.Duration
	Logger    *slog.Logger
}

// WhisperTranscriber posts audio to an OpenAI-compatible transcription endpoint.
type WhisperTranscriber struct {
	config WhisperConfig
	client client
}

func NewWhisperTranscriber(config WhisperConfig) *WhisperTranscriber {
	if config.URL == "" {
		config.URL = "https://api.openai.com/v1/audio/transcriptions"
	}
	if config.Model == "" {
		config.Model = "whisper-1"
	}
	return &WhisperTranscriber{
		config: config,
		client: newClient("whisper", config.Timeout, config.RateLimit, config.Logger),
	}
}

func (w *WhisperTranscriber) Transcribe(ctx context.Context, audio models.Audio) (string, error) {
	if len(audio.Data) == 0 {
		return "", fmt.Errorf("%w: empty recording", ErrInvalidAudio)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "question"+extensionFor(audio.ContentType))
	if err != nil {
		return "", fmt.Errorf("failed to build form: %w", err)
	}
	if _, err := part.Write(audio.Data); err != nil {
		return "", fmt.Errorf("failed to build form: %w", err)
	}
	_ = writer.WriteField("model", w.config.Model)
	_ = writer.WriteField("response_format", "json")
	if lang := isoLanguage(w.config.Language); lang != "" {
		_ = writer.WriteField("language", lang)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to build form: %w", err)
	}

	headers := map[string]string{}
	if w.config.APIKey != "" {
		headers["Authorization"] = "Bearer " + w.config.APIKey
	}

	raw, err := w.client.post(ctx, w.config.URL, writer.FormDataContentType(), buf.Bytes(), headers)
	if err != nil {
		return "", err
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &ServiceError{Service: "whisper", Err: fmt.Errorf("decode response: %w", err)}
	}
	if strings.TrimSpace(out.Text) == "" {
		return "", ErrUnrecognized
	}
	return strings.TrimSpace(out.Text), nil
}

func extensionFor(contentType string) string {
	switch {
	case strings.Contains(contentType, "flac"):
		return ".flac"
	case strings.Contains(contentType, "webm"):
		return ".webm"
	case strings.Contains(contentType, "ogg"):
		return ".ogg"
	case strings.Contains(contentType, "mpeg"):
		return ".mp3"
	default:
		return ".wav"
	}
}

// isoLanguage turns a BCP 47 tag like en-US into the ISO-639-1 code whisper expects.
func isoLanguage(tag string) string {
	lang, _, _ := strings.Cut(tag, "-")
	return strings.ToLower(lang)
}
