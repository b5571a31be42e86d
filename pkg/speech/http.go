package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// client is the shared transport for hosted recognizers.
type client struct {
	service string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func newClient(service string, timeout time.Duration, rateLimit float64, logger *slog.Logger) client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if rateLimit <= 0 {
		rateLimit = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return client{
		service: service,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rateLimit), 1),
		logger:  logger,
	}
}

// post sends body and returns the response body. Every failure is a *ServiceError.
func (c client) post(ctx context.Context, url, contentType string, body []byte, headers map[string]string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &ServiceError{Service: c.service, Err: err}
	}

	reqID := uuid.New().String()
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &ServiceError{Service: c.service, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", contentType)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	c.logger.Info("speech.http.request", "req_id", reqID, "service", c.service, "content_length", len(body))

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("speech.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, &ServiceError{Service: c.service, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ServiceError{Service: c.service, Err: fmt.Errorf("read response: %w", err)}
	}

	c.logger.Info("speech.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return nil, &ServiceError{Service: c.service, StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", bytes.TrimSpace(raw))}
	}
	return raw, nil
}
