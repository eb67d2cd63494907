// Package pdf extracts text and metadata from uploaded PDF documents and
// persists the extracted context per room for the agent pipeline.
package pdf

import (
	"bytes"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	// DefaultMaxFileSize is the upload ceiling (10 MiB)
	DefaultMaxFileSize = 10 * 1024 * 1024
	// DefaultMaxTextLength bounds the extracted context passed to the agent
	DefaultMaxTextLength = 50000

	truncationMarker = "\n\n[Text truncated due to length...]"
)

// Document holds the extracted content and metadata of one processed PDF
type Document struct {
	Filename  string `json:"filename"`
	NumPages  int    `json:"num_pages"`
	FileSize  int    `json:"file_size"`
	Text      string `json:"text"`
	Truncated bool   `json:"truncated,omitempty"`
}

// Processor extracts text content from PDF documents
type Processor struct {
	MaxFileSize   int
	MaxTextLength int
}

// NewProcessor creates a processor with the default size and length limits
func NewProcessor() *Processor {
	return &Processor{
		MaxFileSize:   DefaultMaxFileSize,
		MaxTextLength: DefaultMaxTextLength,
	}
}

var (
	collapseWhitespace = regexp.MustCompile(`[ \t]+`)
	collapseNewlines   = regexp.MustCompile(`\n{3,}`)
)

// Extract parses a PDF and returns its text content page by page, cleaned
// and truncated to the processor's context limit
func (p *Processor) Extract(filename string, data []byte) (*Document, error) {
	if len(data) > p.MaxFileSize {
		return nil, fmt.Errorf("file size exceeds %dMB limit", p.MaxFileSize/(1024*1024))
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse PDF: %w", err)
	}

	doc := &Document{
		Filename: filename,
		NumPages: reader.NumPage(),
		FileSize: len(data),
	}

	var sb strings.Builder
	for pageNum := 1; pageNum <= doc.NumPages; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			log.Printf("[PDF]: failed to extract text from page %d of %s: %v", pageNum, filename, err)
			continue
		}

		fmt.Fprintf(&sb, "\n--- Page %d ---\n%s\n", pageNum, text)
	}

	doc.Text = p.clean(sb.String())

	if len(doc.Text) > p.MaxTextLength {
		doc.Text = doc.Text[:p.MaxTextLength] + truncationMarker
		doc.Truncated = true
	}

	return doc, nil
}

// clean normalizes extracted text: strips control characters, collapses runs
// of spaces and blank lines, and trims the result
func (p *Processor) clean(text string) string {
	text = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || r >= 0x20 {
			return r
		}
		return -1
	}, text)

	text = collapseWhitespace.ReplaceAllString(text, " ")
	text = collapseNewlines.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
