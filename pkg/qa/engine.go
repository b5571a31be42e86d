package qa

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xhad/askpdf/internal/models"
	"github.com/xhad/askpdf/internal/types"
	"github.com/xhad/askpdf/pkg/processor"
	"golang.org/x/sync/errgroup"
)

// ErrEmptyQuestion is returned without calling the backend.
var ErrEmptyQuestion = errors.New("question is empty")

type Strategy string

const (
	// StrategyFull hands the whole text to the backend; oversized input is
	// truncated or rejected by the backend.
	StrategyFull Strategy = "full"
	// StrategyChunk answers every overlapping window and keeps the best.
	StrategyChunk Strategy = "chunk"
	// StrategyRetrieve answers only the windows nearest to the question.
	StrategyRetrieve Strategy = "retrieve"
)

type EngineConfig struct {
	Strategy     Strategy
	ChunkSize    int
	ChunkOverlap int
	Parallelism  int
}

type Engine struct {
	config    EngineConfig
	backend   types.Answerer
	processor processor.Processor
	retriever *Retriever
}

func NewEngine(config EngineConfig, backend types.Answerer) *Engine {
	if config.Strategy == "" {
		config.Strategy = StrategyChunk
	}
	if config.Parallelism <= 0 {
		config.Parallelism = 1
	}
	return &Engine{
		config:  config,
		backend: backend,
		processor: processor.NewWithConfig(processor.ProcessorConfig{
			ChunkSize:    config.ChunkSize,
			ChunkOverlap: config.ChunkOverlap,
		}),
	}
}

// WithRetriever enables StrategyRetrieve.
func (e *Engine) WithRetriever(r *Retriever) *Engine {
	e.retriever = r
	return e
}

func (e *Engine) Strategy() Strategy {
	return e.config.Strategy
}

// Answer returns the best answer to question found in passage.
func (e *Engine) Answer(ctx context.Context, question, passage string) (models.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return models.Answer{}, ErrEmptyQuestion
	}

	windows := []processor.Window{{Offset: 0, Text: passage}}
	if e.config.Strategy != StrategyFull {
		if w := e.processor.Windows(passage); len(w) > 0 {
			windows = w
		}
	}
	return e.answerWindows(ctx, question, windows)
}

// AnswerDocument answers against a loaded document, narrowing to the
// retrieved windows when the retrieve strategy is active.
func (e *Engine) AnswerDocument(ctx context.Context, question string, doc *models.Document) (models.Answer, error) {
	if e.config.Strategy != StrategyRetrieve || e.retriever == nil {
		return e.Answer(ctx, question, doc.Text)
	}
	if strings.TrimSpace(question) == "" {
		return models.Answer{}, ErrEmptyQuestion
	}

	chunks, err := e.retriever.Relevant(ctx, doc.ID, question)
	if err != nil {
		return models.Answer{}, err
	}
	if len(chunks) == 0 {
		return e.Answer(ctx, question, doc.Text)
	}

	windows := make([]processor.Window, 0, len(chunks))
	for _, c := range chunks {
		windows = append(windows, processor.Window{Offset: strings.Index(doc.Text, c.Content), Text: c.Content})
	}
	return e.answerWindows(ctx, question, windows)
}

// Index prepares a document for retrieval; it is a no-op for other strategies.
func (e *Engine) Index(ctx context.Context, doc *models.Document) error {
	if e.config.Strategy != StrategyRetrieve || e.retriever == nil {
		return nil
	}
	return e.retriever.Index(ctx, e.processor.Process(*doc))
}

// Forget drops whatever Index stored for a document.
func (e *Engine) Forget(ctx context.Context, documentID string) error {
	if e.retriever == nil {
		return nil
	}
	return e.retriever.Forget(ctx, documentID)
}

func (e *Engine) answerWindows(ctx context.Context, question string, windows []processor.Window) (models.Answer, error) {
	answers := make([]models.Answer, len(windows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Parallelism)
	for i, w := range windows {
		i, w := i, w
		g.Go(func() error {
			answer, err := e.backend.Answer(gctx, question, w.Text)
			if err != nil {
				if len(windows) > 1 {
					return fmt.Errorf("failed to answer window %d: %w", i, err)
				}
				return fmt.Errorf("failed to answer: %w", err)
			}
			answers[i] = anchor(answer, w)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.Answer{}, err
	}

	best := answers[0]
	for _, a := range answers[1:] {
		if a.Score > best.Score {
			best = a
		}
	}
	return best, nil
}

// anchor rewrites span offsets relative to the full text. Offsets reported
// by the backend are kept when they select the answer text; otherwise the
// first occurrence in the window is used.
func anchor(answer models.Answer, w processor.Window) models.Answer {
	if answer.Text == "" || w.Offset < 0 {
		answer.Start, answer.End = -1, -1
		return answer
	}

	idx := -1
	if answer.Start >= 0 && answer.End <= len(w.Text) && answer.Start < answer.End &&
		w.Text[answer.Start:answer.End] == answer.Text {
		idx = answer.Start
	} else {
		idx = strings.Index(w.Text, answer.Text)
	}
	if idx < 0 {
		answer.Start, answer.End = -1, -1
		return answer
	}
	answer.Start = w.Offset + idx
	answer.End = answer.Start + len(answer.Text)
	return answer
}

// Round2 rounds a score to two decimals the way it is displayed.
func Round2(score float64) float64 {
	rounded, _ := strconv.ParseFloat(strconv.FormatFloat(score, 'f', 2, 64), 64)
	return rounded
}

func FormatConfidence(score float64) string {
	return fmt.Sprintf("Confidence: %.2f", score)
}
