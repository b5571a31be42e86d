package processor

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/xhad/askpdf/internal/models"
)

type ProcessorConfig struct {
	ChunkSize    int
	ChunkOverlap int
}

// Window is a slice of the source text starting at byte Offset.
type Window struct {
	Offset int
	Text   string
}

type Processor struct {
	config ProcessorConfig
}

func NewWithConfig(config ProcessorConfig) Processor {
	if config.ChunkSize <= 0 {
		config.ChunkSize = 2000
	}
	if config.ChunkOverlap < 0 || config.ChunkOverlap >= config.ChunkSize {
		config.ChunkOverlap = config.ChunkSize / 10
	}

	return Processor{
		config: config,
	}
}

// Process splits a document into overlapping chunks tagged with the document ID.
func (p *Processor) Process(doc models.Document) []models.Chunk {
	windows := p.Windows(doc.Text)
	chunks := make([]models.Chunk, 0, len(windows))
	for i, w := range windows {
		chunks = append(chunks, models.Chunk{
			DocumentID: doc.ID,
			Index:      i,
			Content:    w.Text,
		})
	}
	return chunks
}

// Windows splits text into windows of at most ChunkSize bytes. Consecutive
// windows share up to ChunkOverlap bytes so an answer straddling a cut still
// appears whole in one of them. Text is never rewritten, so spans found in a
// window map back to the source through Offset.
func (p *Processor) Windows(text string) []Window {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if len(text) <= p.config.ChunkSize {
		return []Window{{Offset: 0, Text: text}}
	}

	var windows []Window
	start := 0
	for start < len(text) {
		end := start + p.config.ChunkSize
		if end >= len(text) {
			end = len(text)
		} else {
			end = p.cutPoint(text, start, end)
		}

		if chunk := text[start:end]; strings.TrimSpace(chunk) != "" {
			windows = append(windows, Window{Offset: start, Text: chunk})
		}
		if end == len(text) {
			break
		}

		next := p.nextStart(text, start, end)
		if next <= start {
			next = end
		}
		start = next
	}

	return windows
}

// cutPoint picks where a window ending no later than limit should stop:
// after the last sentence end in the second half of the window, else after
// the last whitespace, else at the last rune boundary.
func (p *Processor) cutPoint(text string, start, limit int) int {
	half := start + (limit-start)/2
	segment := text[half:limit]

	sentenceEnders := []string{". ", "! ", "? ", ".\n", "!\n", "?\n", "\n\n"}
	best := -1
	for _, ender := range sentenceEnders {
		if i := strings.LastIndex(segment, ender); i >= 0 && i+len(ender) > best {
			best = i + len(ender)
		}
	}
	if best > 0 {
		return half + best
	}

	if i := strings.LastIndexFunc(segment, unicode.IsSpace); i >= 0 {
		_, size := utf8.DecodeRuneInString(segment[i:])
		return half + i + size
	}

	for limit > start+1 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return limit
}

// nextStart steps back ChunkOverlap bytes from end and aligns to a word start.
func (p *Processor) nextStart(text string, start, end int) int {
	next := end - p.config.ChunkOverlap
	if next <= start {
		return end
	}
	for next < end && !utf8.RuneStart(text[next]) {
		next++
	}
	if i := strings.IndexFunc(text[next:end], unicode.IsSpace); i >= 0 {
		candidate := next + i
		for candidate < end {
			r, size := utf8.DecodeRuneInString(text[candidate:])
			if !unicode.IsSpace(r) {
				break
			}
			candidate += size
		}
		if candidate < end {
			return candidate
		}
	}
	return next
}
