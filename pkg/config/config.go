package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	PDF struct {
		Validate     bool `yaml:"validate"`
		MaxUploadMB  int  `yaml:"max_upload_mb"`
		PreviewChars int  `yaml:"preview_chars"`
	} `yaml:"pdf"`

	Speech struct {
		Backend   string        `yaml:"backend"`
		URL       string        `yaml:"url"`
		APIKey    string        `yaml:"api_key"`
		Language  string        `yaml:"language"`
		Model     string        `yaml:"model"`
		RateLimit float64       `yaml:"rate_limit"`
		Timeout   time.Duration `yaml:"timeout"`
		Recorder  struct {
			Command    string `yaml:"command"`
			SampleRate int    `yaml:"sample_rate"`
		} `yaml:"recorder"`
	} `yaml:"speech"`

	QA struct {
		Backend      string        `yaml:"backend"`
		URL          string        `yaml:"url"`
		Model        string        `yaml:"model"`
		APIToken     string        `yaml:"api_token"`
		Strategy     string        `yaml:"strategy"`
		ChunkSize    int           `yaml:"chunk_size"`
		ChunkOverlap int           `yaml:"chunk_overlap"`
		Parallelism  int           `yaml:"parallelism"`
		TopK         int           `yaml:"top_k"`
		RateLimit    float64       `yaml:"rate_limit"`
		Timeout      time.Duration `yaml:"timeout"`
	} `yaml:"qa"`

	LLM struct {
		BaseURL        string  `yaml:"base_url"`
		Model          string  `yaml:"model"`
		EmbeddingModel string  `yaml:"embedding_model"`
		MaxTokens      int     `yaml:"max_tokens"`
		Temperature    float64 `yaml:"temperature"`
	} `yaml:"llm"`

	Database struct {
		URL       string `yaml:"url"`
		TableName string `yaml:"table_name"`
		VectorDim int    `yaml:"vector_dim"`
		BatchSize int    `yaml:"batch_size"`
	} `yaml:"database"`

	Server struct {
		Port       string        `yaml:"port"`
		SessionTTL time.Duration `yaml:"session_ttl"`
	} `yaml:"server"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/askpdf/config.yaml"),
			"/etc/askpdf/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := newConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	mergeWithEnv(config)
	applyDefaults(config)

	return config, nil
}

func getDefaultConfig() (*Config, error) {
	config := newConfig()
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

// newConfig presets the options whose zero value is a valid choice, so a
// file can still set them to zero.
func newConfig() *Config {
	config := &Config{}
	config.PDF.Validate = true
	config.QA.ChunkOverlap = 200
	config.LLM.Temperature = 0.1
	return config
}

// ApplyDefaults fills options left empty, including the ones that depend on
// the selected backends. Call it again after overriding a backend.
func (c *Config) ApplyDefaults() {
	applyDefaults(c)
}

func applyDefaults(config *Config) {
	if config.PDF.MaxUploadMB == 0 {
		config.PDF.MaxUploadMB = 20
	}
	if config.PDF.PreviewChars == 0 {
		config.PDF.PreviewChars = 500
	}

	if config.Speech.Backend == "" {
		config.Speech.Backend = "google"
	}
	if config.Speech.URL == "" {
		switch config.Speech.Backend {
		case "whisper":
			config.Speech.URL = "https://api.openai.com/v1/audio/transcriptions"
		default:
			config.Speech.URL = "http://www.google.com/speech-api/v2/recognize"
		}
	}
	if config.Speech.Language == "" {
		config.Speech.Language = "en-US"
	}
	if config.Speech.Model == "" && config.Speech.Backend == "whisper" {
		config.Speech.Model = "whisper-1"
	}
	if config.Speech.RateLimit == 0 {
		config.Speech.RateLimit = 1.0
	}
	if config.Speech.Timeout == 0 {
		config.Speech.Timeout = 30 * time.Second
	}
	if config.Speech.Recorder.Command == "" {
		config.Speech.Recorder.Command = "rec"
	}
	if config.Speech.Recorder.SampleRate == 0 {
		config.Speech.Recorder.SampleRate = 16000
	}

	if config.QA.Backend == "" {
		config.QA.Backend = "huggingface"
	}
	if config.QA.URL == "" && config.QA.Backend == "huggingface" {
		config.QA.URL = "https://api-inference.huggingface.co/models"
	}
	if config.QA.Model == "" && config.QA.Backend == "huggingface" {
		config.QA.Model = "distilbert-base-cased-distilled-squad"
	}
	if config.QA.Strategy == "" {
		config.QA.Strategy = "chunk"
	}
	if config.QA.ChunkSize == 0 {
		config.QA.ChunkSize = 2000
	}
	if config.QA.Parallelism == 0 {
		config.QA.Parallelism = 1
	}
	if config.QA.TopK == 0 {
		config.QA.TopK = 4
	}
	if config.QA.RateLimit == 0 {
		config.QA.RateLimit = 5.0
	}
	if config.QA.Timeout == 0 {
		config.QA.Timeout = 60 * time.Second
	}

	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}
	if config.LLM.Model == "" {
		config.LLM.Model = "mistral"
	}
	if config.LLM.EmbeddingModel == "" {
		config.LLM.EmbeddingModel = "nomic-embed-text:latest"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 256
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "document_chunks"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 768
	}
	if config.Database.BatchSize == 0 {
		config.Database.BatchSize = 100
	}

	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}
	if config.Server.SessionTTL == 0 {
		config.Server.SessionTTL = 30 * time.Minute
	}
}

func mergeWithEnv(config *Config) {
	if token := os.Getenv("HF_API_TOKEN"); token != "" {
		config.QA.APIToken = token
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if key := os.Getenv("SPEECH_API_KEY"); key != "" {
		config.Speech.APIKey = key
	} else if key := os.Getenv("OPENAI_API_KEY"); key != "" && config.Speech.Backend == "whisper" {
		config.Speech.APIKey = key
	}
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Port = port
	}
}
