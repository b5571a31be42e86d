package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/xhad/askpdf/internal/models"
)

// ErrInvalidPDF is returned when the input cannot be decoded as a PDF document.
var ErrInvalidPDF = errors.New("invalid PDF")

func init() {
	// Keep pdfcpu from creating a config directory under the user's home.
	api.DisableConfigDir()
}

type ExtractorConfig struct {
	// Validate runs pdfcpu structure validation before text extraction.
	Validate bool
	// MaxBytes caps how much of the input is read; 0 means no limit.
	MaxBytes int64
}

type Extractor struct {
	config ExtractorConfig
	open   func(data []byte) (pageReader, error)
}

// pageReader is the per-page view of a decoded document.
type pageReader interface {
	NumPage() int
	PageText(i int) (string, error)
}

func NewWithConfig(config ExtractorConfig) *Extractor {
	return &Extractor{
		config: config,
		open:   openLedongthuc,
	}
}

func New() *Extractor {
	return NewWithConfig(ExtractorConfig{Validate: true})
}

// Extract returns the text of every page, each followed by a newline, in page order.
func (e *Extractor) Extract(r io.Reader) (string, error) {
	text, _, err := e.extract(r)
	return text, err
}

// ExtractDocument extracts r and wraps the result as a Document with a fresh ID.
func (e *Extractor) ExtractDocument(name string, r io.Reader) (*models.Document, error) {
	text, pages, err := e.extract(r)
	if err != nil {
		return nil, err
	}
	return &models.Document{
		ID:    uuid.New().String(),
		Name:  name,
		Text:  text,
		Pages: pages,
	}, nil
}

func (e *Extractor) extract(r io.Reader) (string, int, error) {
	if e.config.MaxBytes > 0 {
		r = io.LimitReader(r, e.config.MaxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read PDF: %w", err)
	}
	if e.config.MaxBytes > 0 && int64(len(data)) > e.config.MaxBytes {
		return "", 0, fmt.Errorf("%w: document exceeds %d bytes", ErrInvalidPDF, e.config.MaxBytes)
	}
	if len(data) == 0 {
		return "", 0, fmt.Errorf("%w: empty input", ErrInvalidPDF)
	}

	if e.config.Validate {
		if _, err := pageCount(data); err != nil {
			return "", 0, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
		}
	}

	doc, err := e.open(data)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}

	var builder strings.Builder
	n := doc.NumPage()
	for i := 1; i <= n; i++ {
		text, err := doc.PageText(i)
		if err != nil {
			return "", 0, fmt.Errorf("%w: page %d: %v", ErrInvalidPDF, i, err)
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}

	return builder.String(), n, nil
}

func pageCount(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.PageCount(bytes.NewReader(data), conf)
}

type ledongthucReader struct {
	reader *pdf.Reader
}

func openLedongthuc(data []byte) (doc pageReader, err error) {
	// The parser panics on some malformed input.
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("decode: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return &ledongthucReader{reader: reader}, nil
}

func (l *ledongthucReader) NumPage() int {
	return l.reader.NumPage()
}

func (l *ledongthucReader) PageText(i int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("decode: %v", r)
		}
	}()

	page := l.reader.Page(i)
	if page.V.IsNull() {
		return "", nil
	}
	text, err = page.GetPlainText(nil)
	if err != nil {
		return "", err
	}
	// GetPlainText opens every BT block with a newline, the first one included.
	return strings.TrimPrefix(text, "\n"), nil
}
