package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"code.sajari.com/docconv"
)

// TextExtractor converts a résumé file into plain text. An empty string with
// a nil error means the format is unsupported; the caller proceeds with
// whatever text it already has.
type TextExtractor interface {
	Extract(path string) (string, error)
}

var (
	nonASCII   = regexp.MustCompile(`[^\x20-\x7E\n\t]`)
	whitespace = regexp.MustCompile(`[ \t]+`)
	blankLines = regexp.MustCompile(`\n{3,}`)
)

// DocExtractor extracts text from common résumé formats using docconv.
type DocExtractor struct{}

func NewDocExtractor() *DocExtractor { return &DocExtractor{} }

func (e *DocExtractor) Extract(path string) (string, error) {
	var text string

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".docx", ".doc", ".rtf", ".odt":
		res, err := docconv.ConvertPath(path)
		if err != nil {
			return "", fmt.Errorf("failed to parse document: %w", err)
		}
		text = res.Body
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read text file: %w", err)
		}
		text = string(data)
	default:
		return "", nil
	}

	return CleanText(text), nil
}

// CleanText strips non-printable characters and collapses runs of
// whitespace so the model sees compact, readable input.
func CleanText(s string) string {
	s = nonASCII.ReplaceAllString(s, " ")
	s = whitespace.ReplaceAllString(s, " ")
	s = blankLines.ReplaceAllString(s, "\n\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
