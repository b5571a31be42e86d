package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xhad/askpdf/internal/models"
	"github.com/xhad/askpdf/internal/types"
)

var (
	// ErrUnrecognized means the service answered but found no usable transcript.
	ErrUnrecognized = errors.New("speech could not be recognized")
	// ErrInvalidAudio means the captured bytes are not in a format we can send.
	ErrInvalidAudio = errors.New("invalid audio")
)

const (
	NoticeListening    = "Listening... Speak your question now!"
	NoticeUnrecognized = "Sorry, I couldn't understand that."
	NoticeServiceError = "Sorry, there was an error with the speech recognition service."
)

// ServiceError wraps a transport failure or a non-2xx reply from a speech service.
type ServiceError struct {
	Service    string
	StatusCode int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: recognition request failed: status %d: %v", e.Service, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: recognition connection failed: %v", e.Service, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

type Status int

const (
	StatusRecognized Status = iota
	StatusUnrecognized
	StatusServiceError
)

func (s Status) String() string {
	switch s {
	case StatusRecognized:
		return "recognized"
	case StatusUnrecognized:
		return "unrecognized"
	case StatusServiceError:
		return "service_error"
	default:
		return "unknown"
	}
}

// Result is the outcome of one recognition attempt.
type Result struct {
	Status Status
	Text   string
	Err    error
}

// Question is the transcribed text, or "" for any non-recognized outcome.
func (r Result) Question() string {
	if r.Status != StatusRecognized {
		return ""
	}
	return r.Text
}

// Notice is the user-facing message for a failed recognition, "" on success.
func (r Result) Notice() string {
	switch r.Status {
	case StatusUnrecognized:
		return NoticeUnrecognized
	case StatusServiceError:
		return NoticeServiceError
	default:
		return ""
	}
}

// Recognize sends audio to t and folds the outcome into a Result.
func Recognize(ctx context.Context, t types.Transcriber, audio models.Audio) Result {
	text, err := t.Transcribe(ctx, audio)
	switch {
	case err == nil && strings.TrimSpace(text) != "":
		return Result{Status: StatusRecognized, Text: strings.TrimSpace(text)}
	case err == nil:
		return Result{Status: StatusUnrecognized, Err: ErrUnrecognized}
	case errors.Is(err, ErrUnrecognized), errors.Is(err, ErrInvalidAudio):
		return Result{Status: StatusUnrecognized, Err: err}
	default:
		return Result{Status: StatusServiceError, Err: err}
	}
}

// Capture records one utterance and recognizes it. Recorder failures are
// returned as errors; only recognition outcomes are folded into the Result.
func Capture(ctx context.Context, r types.Recorder, t types.Transcriber) (Result, error) {
	audio, err := r.Record(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to record audio: %w", err)
	}
	return Recognize(ctx, t, audio), nil
}
