package extract

import (
	"fmt"
	"path/filepath"
	"strings"
)

// extensionTypes maps file extensions to canonical file types.
var extensionTypes = map[string]string{
	".pdf":      "pdf",
	".md":       "md",
	".markdown": "markdown",
	".csv":      "csv",
	".txt":      "txt",
}

// contentTypeAliases maps MIME types seen at upload to canonical file types.
// The file extension takes precedence — content types reported by browsers
// are unreliable for text formats.
var contentTypeAliases = map[string]string{
	"application/pdf": "pdf",
	"text/markdown":   "md",
	"text/csv":        "csv",
	"application/csv": "csv",
	"text/plain":      "txt",
}

// DetectFileType infers the canonical file type from the uploaded file name,
// falling back to the reported content type. Returns an error for formats
// the extractors cannot handle.
func DetectFileType(fileName, contentType string) (string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	if t, ok := extensionTypes[ext]; ok {
		return t, nil
	}

	ct := strings.ToLower(contentType)
	// Strip any charset suffix (e.g. "text/plain; charset=utf-8").
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if t, ok := contentTypeAliases[ct]; ok {
		return t, nil
	}

	return "", fmt.Errorf("extract: unsupported file type for %q (content type %q)", fileName, contentType)
}
