package objectstore

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Store archives résumé files and returns a durable URL. Upload failures are
// non-fatal to ingestion; callers log and continue.
type Store interface {
	Upload(ctx context.Context, filePath, suggestedName string) (string, error)
}

var (
	unsafeChars = regexp.MustCompile(`[\\/*?:"<>|]`)
	spaces      = regexp.MustCompile(`\s+`)
)

// ResumeObjectName derives the stored filename from the applicant's name and
// the original file extension. Nameless applicants get a random suffix.
func ResumeObjectName(applicantName, originalPath string) string {
	ext := filepath.Ext(originalPath)
	if ext == "" {
		ext = ".pdf"
	}

	name := strings.TrimSpace(applicantName)
	if name == "" {
		return "resume_" + uuid.NewString()[:8] + ext
	}

	name = unsafeChars.ReplaceAllString(name, "_")
	name = spaces.ReplaceAllString(name, "_")
	return fmt.Sprintf("%s_Resume%s", name, ext)
}
