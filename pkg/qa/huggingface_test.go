package qa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHFBackendAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/distilbert-base-cased-distilled-squad", r.URL.Path)
		assert.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))

		var req hfRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}
		assert.Equal(t, "What is the capital?", req.Inputs.Question)
		assert.Equal(t, "The capital is Paris.", req.Inputs.Context)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"score":0.9731,"start":15,"end":20,"answer":"Paris"}`))
	}))
	defer server.Close()

	backend := NewHFBackend(HFConfig{URL: server.URL + "/models", APIToken: "hf_test"})
	answer, err := backend.Answer(context.Background(), "What is the capital?", "The capital is Paris.")
	require.NoError(t, err)

	assert.Equal(t, "Paris", answer.Text)
	assert.GreaterOrEqual(t, answer.Score, 0.0)
	assert.LessOrEqual(t, answer.Score, 1.0)
	assert.Equal(t, "Confidence: 0.97", FormatConfidence(answer.Score))
}

func TestHFBackendTopKList(t *testing.T) {
	answer, err := decodeHFAnswer([]byte(`[{"score":0.8,"start":0,"end":3,"answer":"one"},{"score":0.1,"start":4,"end":7,"answer":"two"}]`))
	require.NoError(t, err)
	assert.Equal(t, "one", answer.Text)

	_, err = decodeHFAnswer([]byte(`[]`))
	assert.Error(t, err)
}

func TestHFBackendErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":"Model is currently loading","estimated_time":20.0}`))
	}))
	defer server.Close()

	backend := NewHFBackend(HFConfig{URL: server.URL})
	_, err := backend.Answer(context.Background(), "q", "p")
	assert.ErrorContains(t, err, "Model is currently loading")
}

func TestEngineWithHFBackend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"score":0.456,"start":15,"end":20,"answer":"Paris"}`))
	}))
	defer server.Close()

	engine := NewEngine(EngineConfig{}, NewHFBackend(HFConfig{URL: server.URL}))
	answer, err := engine.Answer(context.Background(), "What is the capital?", "The capital is Paris.")
	require.NoError(t, err)
	assert.Equal(t, 15, answer.Start)
	assert.Equal(t, 0.46, Round2(answer.Score))
}
