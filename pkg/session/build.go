package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xhad/askpdf/internal/types"
	"github.com/xhad/askpdf/pkg/config"
	"github.com/xhad/askpdf/pkg/extractor"
	"github.com/xhad/askpdf/pkg/llm"
	"github.com/xhad/askpdf/pkg/qa"
	"github.com/xhad/askpdf/pkg/speech"
	vectorstore "github.com/xhad/askpdf/pkg/store"
)

// Build wires a Service from configuration. The returned cleanup closes the
// vector store when the retrieve strategy opened one.
func Build(ctx context.Context, cfg *config.Config) (*Service, func(), error) {
	logger := slog.Default()

	ext := extractor.NewWithConfig(extractor.ExtractorConfig{
		Validate: cfg.PDF.Validate,
		MaxBytes: int64(cfg.PDF.MaxUploadMB) << 20,
	})

	backend, err := NewAnswerer(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	engine := qa.NewEngine(qa.EngineConfig{
		Strategy:     qa.Strategy(cfg.QA.Strategy),
		ChunkSize:    cfg.QA.ChunkSize,
		ChunkOverlap: cfg.QA.ChunkOverlap,
		Parallelism:  cfg.QA.Parallelism,
	}, backend)

	cleanup := func() {}
	if engine.Strategy() == qa.StrategyRetrieve {
		embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
			Model:   cfg.LLM.EmbeddingModel,
			BaseURL: cfg.LLM.BaseURL,
		})
		if err != nil {
			return nil, nil, err
		}

		vectorStore, err := vectorstore.NewWithConfig(ctx, vectorstore.VectorStoreConfig{
			ConnString:  cfg.Database.URL,
			TableName:   cfg.Database.TableName,
			VectorDim:   cfg.Database.VectorDim,
			BatchSize:   cfg.Database.BatchSize,
			SearchLimit: cfg.QA.TopK,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize vector store: %w", err)
		}
		engine.WithRetriever(qa.NewRetriever(embedder, vectorStore, cfg.QA.TopK))
		cleanup = vectorStore.Close
	}

	svc := NewService(ServiceConfig{
		PreviewChars: cfg.PDF.PreviewChars,
		TTL:          cfg.Server.SessionTTL,
	}, ext, engine, NewTranscriber(cfg, logger))

	return svc, func() {
		svc.Shutdown()
		cleanup()
	}, nil
}

// NewAnswerer returns the QA backend named by qa.backend.
func NewAnswerer(cfg *config.Config, logger *slog.Logger) (types.Answerer, error) {
	switch cfg.QA.Backend {
	case "ollama":
		engine, err := llm.NewWithConfig(llm.ChatConfig{
			Model:       cfg.LLM.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			BaseURL:     cfg.LLM.BaseURL,
			Temperature: cfg.LLM.Temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize chat engine: %w", err)
		}
		return engine, nil
	case "huggingface", "":
		return qa.NewHFBackend(qa.HFConfig{
			URL:       cfg.QA.URL,
			Model:     cfg.QA.Model,
			APIToken:  cfg.QA.APIToken,
			RateLimit: cfg.QA.RateLimit,
			Timeout:   cfg.QA.Timeout,
			Logger:    logger,
		}), nil
	default:
		return nil, fmt.Errorf("unknown qa backend %q", cfg.QA.Backend)
	}
}

// NewTranscriber returns the speech backend named by speech.backend.
func NewTranscriber(cfg *config.Config, logger *slog.Logger) types.Transcriber {
	if cfg.Speech.Backend == "whisper" {
		return speech.NewWhisperTranscriber(speech.WhisperConfig{
			URL:       cfg.Speech.URL,
			APIKey:    cfg.Speech.APIKey,
			Model:     cfg.Speech.Model,
			Language:  cfg.Speech.Language,
			RateLimit: cfg.Speech.RateLimit,
			Timeout:   cfg.Speech.Timeout,
			Logger:    logger,
		})
	}
	return speech.NewGoogleTranscriber(speech.GoogleConfig{
		URL:       cfg.Speech.URL,
		APIKey:    cfg.Speech.APIKey,
		Language:  cfg.Speech.Language,
		RateLimit: cfg.Speech.RateLimit,
		Timeout:   cfg.Speech.Timeout,
		Logger:    logger,
	})
}

// NewRecorder returns the microphone recorder used by the terminal surface.
func NewRecorder(cfg *config.Config) *speech.CommandRecorder {
	return speech.NewCommandRecorder(speech.RecorderConfig{
		Command:    cfg.Speech.Recorder.Command,
		SampleRate: cfg.Speech.Recorder.SampleRate,
	})
}
