package inference

import (
	"strings"
	"unicode"
)

// roleMapping maps a canonical role label to the keywords that identify it.
// Order matters: the first entry with a matching keyword wins.
type roleMapping struct {
	label    string
	keywords []string
}

var roleMappings = []roleMapping{
	{"DevOps Engineer", []string{"devops", "aws cloud engineer"}},
	{"Full Stack Developer", []string{"full stack", "full-stack", "fullstack"}},
	{"AI/ML Engineer", []string{"ai/ml", "machine learning", "ml engineer"}},
	{"QA Engineer", []string{"qa", "quality assurance", "testing"}},
	{"Software Developer", []string{"software developer", "software engineer"}},
	{"Digital Marketing", []string{"digital marketing", "ppc"}},
	{"Content", []string{"content writing", "content creation", "copywriting"}},
	{"UI/UX", []string{"ui/ux", "ui", "ux", "designer"}},
}

// NormalizeDomain maps the model's free-text role onto a canonical label
// via case-insensitive keyword matching. Unmatched roles fall back to the
// title-cased original.
func NormalizeDomain(text string) string {
	if text == "" {
		return "Other"
	}

	lower := strings.ToLower(text)
	for _, m := range roleMappings {
		for _, kw := range m.keywords {
			if strings.Contains(lower, kw) {
				return m.label
			}
		}
	}
	return titleCase(text)
}

func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
		} else {
			b.WriteRune(r)
			prevLetter = false
		}
	}
	return b.String()
}
