package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate PDF config
	if c.PDF.MaxUploadMB < 1 {
		errors = append(errors, ValidationError{
			Field:   "pdf.max_upload_mb",
			Message: "max_upload_mb must be positive",
		})
	}

	if c.PDF.PreviewChars < 1 {
		errors = append(errors, ValidationError{
			Field:   "pdf.preview_chars",
			Message: "preview_chars must be positive",
		})
	}

	// Validate Speech config
	switch c.Speech.Backend {
	case "google", "whisper":
	default:
		errors = append(errors, ValidationError{
			Field:   "speech.backend",
			Message: fmt.Sprintf("unknown speech backend: %s", c.Speech.Backend),
		})
	}

	if !isHTTPURL(c.Speech.URL) {
		errors = append(errors, ValidationError{
			Field:   "speech.url",
			Message: "invalid speech service URL",
		})
	}

	if c.Speech.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "speech.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if c.Speech.Recorder.SampleRate < 8000 {
		errors = append(errors, ValidationError{
			Field:   "speech.recorder.sample_rate",
			Message: "sample_rate must be at least 8000",
		})
	}

	// Validate QA config
	switch c.QA.Backend {
	case "huggingface":
		if !isHTTPURL(c.QA.URL) {
			errors = append(errors, ValidationError{
				Field:   "qa.url",
				Message: "invalid inference API URL",
			})
		}
	case "ollama":
	default:
		errors = append(errors, ValidationError{
			Field:   "qa.backend",
			Message: fmt.Sprintf("unknown qa backend: %s", c.QA.Backend),
		})
	}

	switch c.QA.Strategy {
	case "full", "chunk", "retrieve":
	default:
		errors = append(errors, ValidationError{
			Field:   "qa.strategy",
			Message: fmt.Sprintf("unknown context strategy: %s", c.QA.Strategy),
		})
	}

	if c.QA.ChunkSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "qa.chunk_size",
			Message: "chunk_size must be positive",
		})
	}

	if c.QA.ChunkOverlap < 0 || c.QA.ChunkOverlap >= c.QA.ChunkSize {
		errors = append(errors, ValidationError{
			Field:   "qa.chunk_overlap",
			Message: "chunk_overlap must be non-negative and less than chunk_size",
		})
	}

	if c.QA.Parallelism < 1 {
		errors = append(errors, ValidationError{
			Field:   "qa.parallelism",
			Message: "parallelism must be positive",
		})
	}

	if c.QA.Strategy == "retrieve" && c.Database.URL == "" {
		errors = append(errors, ValidationError{
			Field:   "database.url",
			Message: "database URL is required for the retrieve strategy",
		})
	}

	// Validate LLM config
	if c.QA.Backend == "ollama" || c.QA.Strategy == "retrieve" {
		if !isHTTPURL(c.LLM.BaseURL) {
			errors = append(errors, ValidationError{
				Field:   "llm.base_url",
				Message: "Ollama base URL is required",
			})
		}
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 4096 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 4096",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 1 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 1",
		})
	}

	// Validate Database config
	if c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if c.Database.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	if c.Database.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.batch_size",
			Message: "batch_size must be positive",
		})
	}

	if c.Server.SessionTTL <= 0 {
		errors = append(errors, ValidationError{
			Field:   "server.session_ttl",
			Message: "session_ttl must be positive",
		})
	}

	return errors
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
