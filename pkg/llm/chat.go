package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/xhad/askpdf/internal/models"
)

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Model           string
	Temperature     float64
	MaxTokens       int
	SystemTemplate  string
	ContextTemplate string
	BaseURL         string // Ollama server URL
}

// ChatEngine answers questions by asking an LLM to quote the context.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
}

const defaultSystemTemplate = `You are an extractive question answering model. Answer the question by quoting one exact, contiguous span of the context. Do not paraphrase.
Reply only with JSON of the form {"answer": "<quoted span>", "score": <confidence between 0 and 1>}.
If the context does not contain the answer, reply {"answer": "", "score": 0}.`

// NewWithConfig creates a new ChatEngine backed by an Ollama server.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	config, err := withDefaults(config)
	if err != nil {
		return nil, err
	}

	llm, err := ollama.New(ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL),
		ollama.WithFormat("json"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &ChatEngine{
		config: config,
		llm:    llm,
	}, nil
}

// NewWithModel creates a ChatEngine around an already constructed model.
func NewWithModel(config ChatConfig, model llms.Model) (*ChatEngine, error) {
	config, err := withDefaults(config)
	if err != nil {
		return nil, err
	}
	return &ChatEngine{config: config, llm: model}, nil
}

func withDefaults(config ChatConfig) (ChatConfig, error) {
	if config.Model == "" {
		config.Model = "mistral" // Default Ollama model
	}
	if config.Temperature < 0 || config.Temperature > 1 {
		return config, fmt.Errorf("temperature must be between 0 and 1")
	}
	if config.MaxTokens < 0 {
		return config, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 256
	}
	if config.SystemTemplate == "" {
		config.SystemTemplate = defaultSystemTemplate
	}
	if config.ContextTemplate == "" {
		config.ContextTemplate = "Context:\n%s\n\nQuestion: %s"
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434" // Default Ollama URL
	}
	return config, nil
}

type spanReply struct {
	Answer string  `json:"answer"`
	Score  float64 `json:"score"`
}

// Answer asks the model for a span of passage answering question.
func (ce *ChatEngine) Answer(ctx context.Context, question, passage string) (models.Answer, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, ce.config.SystemTemplate),
		llms.TextParts(llms.ChatMessageTypeHuman, fmt.Sprintf(ce.config.ContextTemplate, passage, question)),
	}

	response, err := ce.llm.GenerateContent(ctx, content,
		llms.WithTemperature(ce.config.Temperature),
		llms.WithMaxTokens(ce.config.MaxTokens))
	if err != nil {
		return models.Answer{}, fmt.Errorf("chat error: %w", err)
	}
	if response == nil || len(response.Choices) == 0 || response.Choices[0] == nil {
		return models.Answer{}, fmt.Errorf("chat error: no response from LLM")
	}

	var reply spanReply
	if err := json.Unmarshal([]byte(stripFences(response.Choices[0].Content)), &reply); err != nil {
		return models.Answer{}, fmt.Errorf("failed to decode LLM reply: %w", err)
	}

	return locateSpan(passage, reply), nil
}

// locateSpan anchors the quoted answer in the passage. A quote that does not
// occur verbatim is not extractive, so its score drops to 0.
func locateSpan(passage string, reply spanReply) models.Answer {
	answer := models.Answer{
		Text:  strings.TrimSpace(reply.Answer),
		Score: clamp(reply.Score),
		Start: -1,
		End:   -1,
	}
	if answer.Text == "" {
		answer.Score = 0
		return answer
	}

	start := strings.Index(passage, answer.Text)
	if start < 0 {
		answer.Score = 0
		return answer
	}
	answer.Start = start
	answer.End = start + len(answer.Text)
	return answer
}

func clamp(score float64) float64 {
	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
