// Package extract pulls plain text out of uploaded documents. PDF, Markdown,
// CSV and plain-text files are supported; each extractor produces per-page
// text so chunk citations can point back at a page number.
package extract

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Page is one unit of extracted text. Formats without physical pages
// (Markdown, CSV, plain text) produce a single page numbered 1.
type Page struct {
	// Number is the 1-based page number.
	Number int
	// Text is the extracted plain text of the page.
	Text string
}

// Extract reads the file at path and returns its text, one Page per
// physical page. fileType must be one of pdf, md, markdown, csv, txt.
func Extract(path, fileType string) ([]Page, error) {
	switch fileType {
	case "pdf":
		return extractPDF(path)
	case "md", "markdown":
		return extractMarkdown(path)
	case "csv":
		return extractCSV(path)
	case "txt":
		return extractText(path)
	default:
		return nil, fmt.Errorf("extract: unsupported file type %q", fileType)
	}
}

// extractPDF reads every page of a PDF and returns its plain text.
// Pages whose text cannot be decoded are skipped rather than failing the
// whole document.
func extractPDF(path string) ([]Page, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("extract: open pdf %s: %w", path, err)
	}
	defer f.Close()

	var pages []Page
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		pages = append(pages, Page{Number: i, Text: text})
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("extract: no extractable text in %s", path)
	}
	return pages, nil
}

// Markdown syntax stripped before embedding. Links keep their anchor text.
var (
	mdCodeFence = regexp.MustCompile("(?s)```.*?```")
	mdHeading   = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdLink      = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	mdEmphasis  = regexp.MustCompile(`[*_]{1,3}([^*_]+)[*_]{1,3}`)
	mdInline    = regexp.MustCompile("`([^`]*)`")
)

// extractMarkdown strips Markdown syntax, keeping the readable text.
func extractMarkdown(path string) ([]Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("extract: read %s: %w", path, err)
	}

	text := string(data)
	text = mdCodeFence.ReplaceAllString(text, "")
	text = mdHeading.ReplaceAllString(text, "")
	text = mdLink.ReplaceAllString(text, "$1")
	text = mdEmphasis.ReplaceAllString(text, "$1")
	text = mdInline.ReplaceAllString(text, "$1")
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("extract: no extractable text in %s", path)
	}
	return []Page{{Number: 1, Text: text}}, nil
}

// extractCSV renders each record as a comma-joined line. The header row is
// kept so column names remain available to retrieval.
func extractCSV(path string) ([]Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("extract: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // tolerate ragged rows

	var buf bytes.Buffer
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("extract: parse csv %s: %w", path, err)
		}
		buf.WriteString(strings.Join(record, ", "))
		buf.WriteByte('\n')
	}

	text := strings.TrimSpace(buf.String())
	if text == "" {
		return nil, fmt.Errorf("extract: no extractable text in %s", path)
	}
	return []Page{{Number: 1, Text: text}}, nil
}

// extractText reads a plain-text file verbatim.
func extractText(path string) ([]Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("extract: read %s: %w", path, err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, fmt.Errorf("extract: no extractable text in %s", path)
	}
	return []Page{{Number: 1, Text: text}}, nil
}
