package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func Test_DetectFileType(t *testing.T) {
	t.Parallel()
	tests := []struct {
		fileName    string
		contentType string
		want        string
		wantErr     bool
	}{
		{"report.pdf", "application/pdf", "pdf", false},
		{"README.md", "", "md", false},
		{"notes.MARKDOWN", "", "markdown", false},
		{"data.csv", "text/csv", "csv", false},
		{"log.txt", "", "txt", false},
		{"unknown.bin", "text/plain; charset=utf-8", "txt", false},
		{"noext", "application/csv", "csv", false},
		{"image.png", "image/png", "", true},
	}
	for _, tt := range tests {
		got, err := DetectFileType(tt.fileName, tt.contentType)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%s: expected error", tt.fileName)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: %v", tt.fileName, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.fileName, got, tt.want)
		}
	}
}

func Test_Extract_Markdown(t *testing.T) {
	t.Parallel()
	path := writeTempFile(t, "doc.md", "# Title\n\nSome **bold** text with a [link](https://example.com).\n\n```go\nfmt.Println(\"skipped\")\n```\n\nPlain `code` end.\n")

	pages, err := Extract(path, "md")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(pages) != 1 || pages[0].Number != 1 {
		t.Fatalf("pages = %+v", pages)
	}
	text := pages[0].Text
	for _, want := range []string{"Title", "Some bold text", "link", "Plain code end."} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in %q", want, text)
		}
	}
	for _, absent := range []string{"#", "**", "https://example.com", "fmt.Println"} {
		if strings.Contains(text, absent) {
			t.Errorf("unexpected %q in %q", absent, text)
		}
	}
}

func Test_Extract_CSV(t *testing.T) {
	t.Parallel()
	path := writeTempFile(t, "data.csv", "name,role\nalice,admin\nbob,viewer\n")

	pages, err := Extract(path, "csv")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	text := pages[0].Text
	if !strings.Contains(text, "name, role") || !strings.Contains(text, "alice, admin") {
		t.Errorf("text = %q", text)
	}
}

func Test_Extract_Text(t *testing.T) {
	t.Parallel()
	path := writeTempFile(t, "notes.txt", "  plain contents here  \n")

	pages, err := Extract(path, "txt")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if pages[0].Text != "plain contents here" {
		t.Errorf("text = %q", pages[0].Text)
	}
}

func Test_Extract_EmptyFile(t *testing.T) {
	t.Parallel()
	path := writeTempFile(t, "empty.txt", "   \n  ")

	if _, err := Extract(path, "txt"); err == nil {
		t.Fatal("expected error for empty file")
	}
}

func Test_Extract_UnsupportedType(t *testing.T) {
	t.Parallel()
	if _, err := Extract("whatever.bin", "bin"); err == nil {
		t.Fatal("expected error for unsupported type")
	}
}
