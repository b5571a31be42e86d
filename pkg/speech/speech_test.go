package speech

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/askpdf/internal/models"
)

type fakeTranscriber struct {
	text  string
	err   error
	calls int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio models.Audio) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeRecorder struct {
	audio models.Audio
	err   error
}

func (f fakeRecorder) Record(ctx context.Context) (models.Audio, error) {
	return f.audio, f.err
}

func TestRecognize(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		err      error
		status   Status
		question string
		notice   string
	}{
		{"recognized", " What is the capital? ", nil, StatusRecognized, "What is the capital?", ""},
		{"blank transcript", "  ", nil, StatusUnrecognized, "", NoticeUnrecognized},
		{"unrecognized", "", ErrUnrecognized, StatusUnrecognized, "", NoticeUnrecognized},
		{"bad audio", "", ErrInvalidAudio, StatusUnrecognized, "", NoticeUnrecognized},
		{"service error", "", &ServiceError{Service: "google-speech", StatusCode: 500, Err: errors.New("boom")}, StatusServiceError, "", NoticeServiceError},
		{"unreachable", "", &ServiceError{Service: "google-speech", Err: errors.New("dial tcp: refused")}, StatusServiceError, "", NoticeServiceError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Recognize(context.Background(), &fakeTranscriber{text: tt.text, err: tt.err}, models.Audio{})
			assert.Equal(t, tt.status, result.Status)
			assert.Equal(t, tt.question, result.Question())
			assert.Equal(t, tt.notice, result.Notice())
		})
	}
}

func TestCapture(t *testing.T) {
	transcriber := &fakeTranscriber{text: "hello"}
	result, err := Capture(context.Background(), fakeRecorder{audio: models.Audio{Data: []byte{1}}}, transcriber)
	require.NoError(t, err)
	assert.Equal(t, StatusRecognized, result.Status)
	assert.Equal(t, "hello", result.Question())
}

func TestCaptureRecorderFailure(t *testing.T) {
	transcriber := &fakeTranscriber{text: "hello"}
	_, err := Capture(context.Background(), fakeRecorder{err: errors.New("no input device")}, transcriber)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no input device")
	assert.Equal(t, 0, transcriber.calls)
}

func TestServiceErrorMessage(t *testing.T) {
	err := &ServiceError{Service: "whisper", StatusCode: 503, Err: errors.New("overloaded")}
	assert.Equal(t, "whisper: recognition request failed: status 503: overloaded", err.Error())

	err = &ServiceError{Service: "whisper", Err: context.DeadlineExceeded}
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
