package speech

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/xhad/askpdf/internal/models"
)

type GoogleConfig struct {
	URL       string
	APIKey    string
	Language  string
	RateLimit float64
	Timeout   time.Duration
	Logger    *slog.Logger
}

// GoogleTranscriber talks to the Google Web Speech v2 recognize endpoint.
type GoogleTranscriber struct {
	config GoogleConfig
	client client
}

func NewGoogleTranscriber(config GoogleConfig) *GoogleTranscriber {
	if config.URL == "" {
		config.URL = "http://www.google.com/speech-api/v2/recognize"
	}
	if config.Language == "" {
		config.Language = "en-US"
	}
	return &GoogleTranscriber{
		config: config,
		client: newClient("google-speech", config.Timeout, config.RateLimit, config.Logger),
	}
}

type googleResponse struct {
	Result []struct {
		Alternative []struct {
			Transcript string   `json:"transcript"`
			Confidence *float64 `json:"confidence"`
		} `json:"alternative"`
		Final bool `json:"final"`
	} `json:"result"`
}

func (g *GoogleTranscriber) Transcribe(ctx context.Context, audio models.Audio) (string, error) {
	body, contentType, err := g.encode(audio)
	if err != nil {
		return "", err
	}

	params := url.Values{}
	params.Set("client", "chromium")
	params.Set("lang", g.config.Language)
	params.Set("pFilter", "0")
	if g.config.APIKey != "" {
		params.Set("key", g.config.APIKey)
	}

	raw, err := g.client.post(ctx, g.config.URL+"?"+params.Encode(), contentType, body, nil)
	if err != nil {
		return "", err
	}
	return parseGoogleResponse(raw)
}

func (g *GoogleTranscriber) encode(audio models.Audio) ([]byte, string, error) {
	switch {
	case strings.HasPrefix(audio.ContentType, "audio/x-flac"), strings.HasPrefix(audio.ContentType, "audio/flac"):
		rate := audio.SampleRate
		if rate == 0 {
			rate = 16000
		}
		return audio.Data, fmt.Sprintf("audio/x-flac; rate=%d", rate), nil
	case audio.ContentType == "" || strings.HasPrefix(audio.ContentType, "audio/wav"),
		strings.HasPrefix(audio.ContentType, "audio/x-wav"), strings.HasPrefix(audio.ContentType, "audio/wave"):
		samples, err := decodeWAV(audio.Data)
		if err != nil {
			return nil, "", err
		}
		return samples.bigEndian(), fmt.Sprintf("audio/l16; rate=%d", samples.SampleRate), nil
	default:
		return nil, "", fmt.Errorf("%w: unsupported content type %q", ErrInvalidAudio, audio.ContentType)
	}
}

// parseGoogleResponse reads the newline-delimited replies; the service sends
// an empty {"result":[]} line before the real one.
func parseGoogleResponse(raw []byte) (string, error) {
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var resp googleResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			return "", &ServiceError{Service: "google-speech", Err: fmt.Errorf("decode response: %w", err)}
		}
		if len(resp.Result) == 0 {
			continue
		}

		alternatives := resp.Result[0].Alternative
		if len(alternatives) == 0 {
			return "", ErrUnrecognized
		}

		best := 0
		for i, alt := range alternatives {
			if alt.Confidence != nil && (alternatives[best].Confidence == nil || *alt.Confidence > *alternatives[best].Confidence) {
				best = i
			}
		}
		if strings.TrimSpace(alternatives[best].Transcript) == "" {
			return "", ErrUnrecognized
		}
		return alternatives[best].Transcript, nil
	}
	if err := scanner.Err(); err != nil {
		return "", &ServiceError{Service: "google-speech", Err: err}
	}

	return "", ErrUnrecognized
}
