package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{"HF_API_TOKEN", "OLLAMA_BASE_URL", "DATABASE_URL", "SPEECH_API_KEY", "OPENAI_API_KEY", "PORT"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig(t *testing.T) {
	clearEnv(t)

	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
pdf:
  validate: false
  max_upload_mb: 5

speech:
  backend: "whisper"
  model: "whisper-large"
  timeout: 10s
  recorder:
    command: "/usr/bin/rec"

qa:
  backend: "ollama"
  strategy: "full"
  chunk_size: 800
  chunk_overlap: 100
  parallelism: 4

llm:
  base_url: "http://localhost:11434"
  model: "llama3"
  temperature: 0.2

database:
  url: "postgres://localhost:5432/test"
  table_name: "test_chunks"

server:
  port: "9090"
  session_ttl: 5m
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.False(t, config.PDF.Validate)
	assert.Equal(t, 5, config.PDF.MaxUploadMB)
	assert.Equal(t, 500, config.PDF.PreviewChars)
	assert.Equal(t, "whisper", config.Speech.Backend)
	assert.Equal(t, "https://api.openai.com/v1/audio/transcriptions", config.Speech.URL)
	assert.Equal(t, "whisper-large", config.Speech.Model)
	assert.Equal(t, 10*time.Second, config.Speech.Timeout)
	assert.Equal(t, "/usr/bin/rec", config.Speech.Recorder.Command)
	assert.Equal(t, 16000, config.Speech.Recorder.SampleRate)
	assert.Equal(t, "ollama", config.QA.Backend)
	assert.Equal(t, "full", config.QA.Strategy)
	assert.Equal(t, 800, config.QA.ChunkSize)
	assert.Equal(t, 4, config.QA.Parallelism)
	assert.Empty(t, config.QA.URL)
	assert.Equal(t, "llama3", config.LLM.Model)
	assert.Equal(t, "test_chunks", config.Database.TableName)
	assert.Equal(t, "9090", config.Server.Port)
	assert.Equal(t, 5*time.Minute, config.Server.SessionTTL)
	assert.Empty(t, config.Validate())
}

func TestDefaultConfig(t *testing.T) {
	clearEnv(t)

	config, err := getDefaultConfig()
	require.NoError(t, err)

	assert.True(t, config.PDF.Validate)
	assert.Equal(t, "google", config.Speech.Backend)
	assert.Equal(t, "huggingface", config.QA.Backend)
	assert.Equal(t, "distilbert-base-cased-distilled-squad", config.QA.Model)
	assert.Equal(t, "chunk", config.QA.Strategy)
	assert.Empty(t, config.Validate())
}

func TestLoadConfigKeepsExplicitZeros(t *testing.T) {
	clearEnv(t)

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	configData := `
qa:
  chunk_overlap: 0
llm:
  temperature: 0
`
	require.NoError(t, os.WriteFile(configPath, []byte(configData), 0644))

	config, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, 0, config.QA.ChunkOverlap)
	assert.Equal(t, 0.0, config.LLM.Temperature)
	assert.Empty(t, config.Validate())

	defaults, err := getDefaultConfig()
	require.NoError(t, err)
	assert.Equal(t, 200, defaults.QA.ChunkOverlap)
	assert.Equal(t, 0.1, defaults.LLM.Temperature)
}

func TestApplyDefaultsAfterBackendOverride(t *testing.T) {
	clearEnv(t)

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("qa:\n  backend: ollama\n"), 0644))

	config, err := LoadConfig(configPath)
	require.NoError(t, err)
	require.Empty(t, config.QA.URL)

	config.QA.Backend = "huggingface"
	config.ApplyDefaults()

	assert.Equal(t, "https://api-inference.huggingface.co/models", config.QA.URL)
	assert.Equal(t, "distilbert-base-cased-distilled-squad", config.QA.Model)
	assert.Empty(t, config.Validate())
}

func TestConfigValidation(t *testing.T) {
	clearEnv(t)

	config, err := getDefaultConfig()
	require.NoError(t, err)

	config.Speech.Backend = "carrier-pigeon"
	config.QA.Strategy = "retrieve"
	config.QA.ChunkOverlap = 5000
	config.LLM.Temperature = 3.0
	config.Database.VectorDim = -1

	errors := config.Validate()
	require.Len(t, errors, 5)

	expected := []string{
		"speech.backend: unknown speech backend: carrier-pigeon",
		"qa.chunk_overlap: chunk_overlap must be non-negative and less than chunk_size",
		"database.url: database URL is required for the retrieve strategy",
		"llm.temperature: temperature must be between 0 and 1",
		"database.vector_dim: vector_dim must be positive",
	}
	for i, msg := range expected {
		assert.Contains(t, errors[i].Error(), msg)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HF_API_TOKEN", "hf_test")
	t.Setenv("OLLAMA_BASE_URL", "http://env-ollama:11434")
	t.Setenv("DATABASE_URL", "postgres://env-db:5432/test")
	t.Setenv("SPEECH_API_KEY", "speech-key")
	t.Setenv("PORT", "7000")

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, "hf_test", config.QA.APIToken)
	assert.Equal(t, "http://env-ollama:11434", config.LLM.BaseURL)
	assert.Equal(t, "postgres://env-db:5432/test", config.Database.URL)
	assert.Equal(t, "speech-key", config.Speech.APIKey)
	assert.Equal(t, "7000", config.Server.Port)
}
