package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPDF writes a minimal uncompressed PDF with one Helvetica text run per page.
// An empty string produces a page without any text operators.
func buildPDF(pages ...string) []byte {
	var buf bytes.Buffer
	var offsets []int

	writeObj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")

	// 1: catalog, 2: pages, 3: font, then page/content pairs.
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+i*2)
	}
	writeObj("<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	writeObj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	for i, text := range pages {
		content := ""
		if text != "" {
			content = fmt.Sprintf("BT /F1 24 Tf 72 720 Td (%s) Tj ET", text)
		}
		writeObj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+i*2))
		writeObj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

type fakePages struct {
	pages []string
	err   error
}

func (f fakePages) NumPage() int { return len(f.pages) }

func (f fakePages) PageText(i int) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.pages[i-1], nil
}

func withPages(e *Extractor, doc pageReader) *Extractor {
	e.open = func([]byte) (pageReader, error) { return doc, nil }
	return e
}

func TestExtractTwoPages(t *testing.T) {
	e := NewWithConfig(ExtractorConfig{})

	text, err := e.Extract(bytes.NewReader(buildPDF("Hello", "World")))
	require.NoError(t, err)
	assert.Equal(t, "Hello\nWorld\n", text)
}

func TestExtractDocument(t *testing.T) {
	e := NewWithConfig(ExtractorConfig{})

	doc, err := e.ExtractDocument("report.pdf", bytes.NewReader(buildPDF("Hello", "", "World")))
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "report.pdf", doc.Name)
	assert.Equal(t, 3, doc.Pages)
	assert.Equal(t, "Hello\n\nWorld\n", doc.Text)
}

func TestExtractConcatenatesInPageOrder(t *testing.T) {
	tests := []struct {
		name  string
		pages []string
		want  string
	}{
		{"single page", []string{"only"}, "only\n"},
		{"empty page keeps newline", []string{"a", "", "c"}, "a\n\nc\n"},
		{"multi line page", []string{"line1\nline2", "next"}, "line1\nline2\nnext\n"},
		{"no pages", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := withPages(NewWithConfig(ExtractorConfig{}), fakePages{pages: tt.pages})
			text, err := e.Extract(strings.NewReader("%PDF-stub"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, text)
		})
	}
}

func TestExtractInvalidPDF(t *testing.T) {
	for _, validate := range []bool{true, false} {
		t.Run(fmt.Sprintf("validate=%v", validate), func(t *testing.T) {
			e := NewWithConfig(ExtractorConfig{Validate: validate})
			_, err := e.Extract(strings.NewReader("this is not a pdf"))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidPDF))
		})
	}
}

func TestExtractEmptyInput(t *testing.T) {
	_, err := New().Extract(bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrInvalidPDF)
}

func TestExtractPageError(t *testing.T) {
	e := withPages(NewWithConfig(ExtractorConfig{}), fakePages{pages: []string{"x"}, err: errors.New("bad font")})
	_, err := e.Extract(strings.NewReader("%PDF-stub"))
	assert.ErrorIs(t, err, ErrInvalidPDF)
	assert.Contains(t, err.Error(), "page 1")
}

func TestExtractMaxBytes(t *testing.T) {
	e := NewWithConfig(ExtractorConfig{MaxBytes: 10})
	_, err := e.Extract(bytes.NewReader(buildPDF("Hello")))
	assert.ErrorIs(t, err, ErrInvalidPDF)
}

func TestPageTextHasNoLeadingNewline(t *testing.T) {
	data := buildPDF("Hello", "", "World")
	doc, err := openLedongthuc(data)
	require.NoError(t, err)
	require.Equal(t, 3, doc.NumPage())

	for i, want := range []string{"Hello", "", "World"} {
		text, err := doc.PageText(i + 1)
		require.NoError(t, err)
		assert.Equal(t, want, text, "page %d", i+1)
	}
}
