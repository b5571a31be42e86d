package qa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/xhad/askpdf/internal/models"
	"golang.org/x/time/rate"
)

type HFConfig struct {
	URL       string // inference API base, the model name is appended
	Model     string
	APIToken  string
	RateLimit float64
	Timeout   time.Duration
	Logger    *slog.Logger
}

// HFBackend calls the question-answering task of the Hugging Face Inference API.
type HFBackend struct {
	config  HFConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewHFBackend(config HFConfig) *HFBackend {
	if config.URL == "" {
		config.URL = "https://api-inference.huggingface.co/models"
	}
	if config.Model == "" {
		config.Model = "distilbert-base-cased-distilled-squad"
	}
	if config.RateLimit <= 0 {
		config.RateLimit = 5
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &HFBackend{
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		logger:  logger,
	}
}

type hfRequest struct {
	Inputs struct {
		Question string `json:"question"`
		Context  string `json:"context"`
	} `json:"inputs"`
}

type hfError struct {
	Error string `json:"error"`
}

func (h *HFBackend) Answer(ctx context.Context, question, passage string) (models.Answer, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return models.Answer{}, err
	}

	var payload hfRequest
	payload.Inputs.Question = question
	payload.Inputs.Context = passage
	body, err := json.Marshal(payload)
	if err != nil {
		return models.Answer{}, fmt.Errorf("encode json: %w", err)
	}

	url := strings.TrimRight(h.config.URL, "/") + "/" + h.config.Model
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return models.Answer{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.config.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+h.config.APIToken)
	}

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.Error("qa.http.send_error", "model", h.config.Model, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return models.Answer{}, fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Answer{}, fmt.Errorf("read response: %w", err)
	}

	h.logger.Info("qa.http.response",
		"model", h.config.Model,
		"status", resp.StatusCode,
		"context_bytes", len(passage),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		var apiErr hfError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return models.Answer{}, fmt.Errorf("inference API returned status %d: %s", resp.StatusCode, apiErr.Error)
		}
		return models.Answer{}, fmt.Errorf("inference API returned status %d", resp.StatusCode)
	}

	return decodeHFAnswer(raw)
}

// decodeHFAnswer accepts a single answer object or a top-k list, best first.
func decodeHFAnswer(raw []byte) (models.Answer, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var answers []models.Answer
		if err := json.Unmarshal(raw, &answers); err != nil {
			return models.Answer{}, fmt.Errorf("decode response: %w", err)
		}
		if len(answers) == 0 {
			return models.Answer{}, fmt.Errorf("decode response: empty answer list")
		}
		return answers[0], nil
	}

	var answer models.Answer
	if err := json.Unmarshal(raw, &answer); err != nil {
		return models.Answer{}, fmt.Errorf("decode response: %w", err)
	}
	return answer, nil
}
