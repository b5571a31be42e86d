package speech

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/askpdf/internal/models"
)

func wavAudio() models.Audio {
	return models.Audio{Data: encodeWAV([]byte{0x01, 0x02, 0x03, 0x04}, 16000), ContentType: "audio/wav", SampleRate: 16000}
}

func TestGoogleTranscribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "chromium", r.URL.Query().Get("client"))
		assert.Equal(t, "en-GB", r.URL.Query().Get("lang"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "audio/l16; rate=16000", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, []byte{0x02, 0x01, 0x04, 0x03}, body)

		w.Write([]byte("{\"result\":[]}\n" +
			`{"result":[{"alternative":[{"transcript":"what is the capitol","confidence":0.41},{"transcript":"what is the capital","confidence":0.92}],"final":true}],"result_index":0}` + "\n"))
	}))
	defer server.Close()

	g := NewGoogleTranscriber(GoogleConfig{URL: server.URL, APIKey: "test-key", Language: "en-GB", RateLimit: 100})
	text, err := g.Transcribe(context.Background(), wavAudio())
	require.NoError(t, err)
	assert.Equal(t, "what is the capital", text)
}

func TestGoogleTranscribeFirstAlternativeWithoutConfidence(t *testing.T) {
	raw := []byte(`{"result":[{"alternative":[{"transcript":"first"},{"transcript":"second"}],"final":true}]}`)
	text, err := parseGoogleResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, "first", text)
}

func TestGoogleTranscribeUnrecognized(t *testing.T) {
	for name, body := range map[string]string{
		"empty result only": "{\"result\":[]}\n",
		"empty body":        "",
		"no alternatives":   `{"result":[{"alternative":[],"final":true}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := parseGoogleResponse([]byte(body))
			assert.ErrorIs(t, err, ErrUnrecognized)
		})
	}
}

func TestGoogleTranscribeServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	}))
	defer server.Close()

	g := NewGoogleTranscriber(GoogleConfig{URL: server.URL, RateLimit: 100})
	_, err := g.Transcribe(context.Background(), wavAudio())

	var serviceErr *ServiceError
	require.True(t, errors.As(err, &serviceErr))
	assert.Equal(t, http.StatusForbidden, serviceErr.StatusCode)

	result := Recognize(context.Background(), g, wavAudio())
	assert.Equal(t, StatusServiceError, result.Status)
	assert.Empty(t, result.Question())
}

func TestGoogleTranscribeUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	g := NewGoogleTranscriber(GoogleConfig{URL: url, RateLimit: 100})
	_, err := g.Transcribe(context.Background(), wavAudio())

	var serviceErr *ServiceError
	require.True(t, errors.As(err, &serviceErr))
	assert.Zero(t, serviceErr.StatusCode)
}

func TestGoogleTranscribeFlacPassThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "audio/x-flac; rate=44100", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"result":[{"alternative":[{"transcript":"hi"}]}]}`))
	}))
	defer server.Close()

	g := NewGoogleTranscriber(GoogleConfig{URL: server.URL, RateLimit: 100})
	text, err := g.Transcribe(context.Background(), models.Audio{Data: []byte("fLaC"), ContentType: "audio/x-flac", SampleRate: 44100})
	require.NoError(t, err)
	assert.Equal(t, "hi", text)
}

func TestGoogleTranscribeUnsupportedAudio(t *testing.T) {
	g := NewGoogleTranscriber(GoogleConfig{URL: "http://127.0.0.1:1", RateLimit: 100})
	_, err := g.Transcribe(context.Background(), models.Audio{Data: []byte("x"), ContentType: "audio/webm"})
	assert.ErrorIs(t, err, ErrInvalidAudio)
}
