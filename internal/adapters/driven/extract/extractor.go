package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-graph/internal/core/domain"
	"github.com/custodia-labs/sercha-graph/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-graph/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.ContentExtractor = (*Extractor)(nil)

// Func converts a whole document into text. maxLength bounds any data the
// format expands internally, such as decompressed archive parts (<0 disables).
type Func func(data []byte, maxLength int64) (string, error)

// Extractor dispatches on file extension.
type Extractor struct {
	formats map[string]Func
}

// New creates an extractor with every built-in format registered.
func New() *Extractor {
	e := &Extractor{formats: make(map[string]Func)}

	for _, ext := range []string{".txt", ".text", ".md", ".markdown", ".csv", ".tsv", ".json", ".xml", ".log", ".yaml", ".yml", ".ini", ".vtt"} {
		e.Register(ext, plainText)
	}
	for _, ext := range []string{".html", ".htm", ".xhtml", ".aspx"} {
		e.Register(ext, htmlText)
	}
	e.Register(".docx", docxText)
	e.Register(".xlsx", xlsxText)
	e.Register(".pptx", pptxText)
	e.Register(".pdf", pdfText)
	return e
}

// Register adds or replaces the handler of an extension (".pdf").
func (e *Extractor) Register(ext string, fn Func) {
	e.formats[strings.ToLower(ext)] = fn
}

// Supports reports whether filename has a registered format.
func (e *Extractor) Supports(filename string) bool {
	_, ok := e.formats[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Extract reads at most maxLength bytes of r (maxLength < 0 disables the
// ceiling) and returns its text. Longer content is rejected with
// domain.ErrContentTooLarge, never truncated.
func (e *Extractor) Extract(ctx context.Context, r io.Reader, filename string, maxLength int64) (string, error) {
	fn, ok := e.formats[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		logger.Debug("no extractor for %s, indexing without content", filename)
		return "", nil
	}

	data, err := readLimited(r, maxLength)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	text, err := fn(data, maxLength)
	if errors.Is(err, domain.ErrContentTooLarge) {
		return "", fmt.Errorf("%s: %w", filename, err)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrExtractionFailed, filename, err)
	}
	return strings.TrimSpace(text), nil
}

func readLimited(r io.Reader, maxLength int64) ([]byte, error) {
	if maxLength < 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("%w: read: %v", domain.ErrExtractionFailed, err)
		}
		return data, nil
	}

	data, err := io.ReadAll(io.LimitReader(r, maxLength+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read: %v", domain.ErrExtractionFailed, err)
	}
	if int64(len(data)) > maxLength {
		return nil, fmt.Errorf("%w: more than %d bytes", domain.ErrContentTooLarge, maxLength)
	}
	return data, nil
}

// plainText decodes UTF-8, dropping a byte order mark and invalid sequences.
func plainText(data []byte, _ int64) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return strings.ToValidUTF8(string(data), ""), nil
	}
	return string(data), nil
}
