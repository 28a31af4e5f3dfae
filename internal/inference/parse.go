package inference

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/applyflow/applyflow/internal/core/domain"
)

var (
	retryAfterSeconds = regexp.MustCompile(`try again in (\d+) seconds?`)
	retryAfterHours   = regexp.MustCompile(`quota.*?(\d+)\s*hour`)
	retryAfterMinutes = regexp.MustCompile(`quota.*?(\d+)\s*minute`)
	nonDigits         = regexp.MustCompile(`\D`)
)

// ParseRetryAfter extracts a cooldown from a quota error message. Providers
// phrase it as "try again in N seconds" or "quota ... N hour/minute";
// anything else falls back to DefaultCooldown.
func ParseRetryAfter(msg string) time.Duration {
	lower := strings.ToLower(msg)

	if m := retryAfterSeconds.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	if m := retryAfterHours.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return time.Duration(n) * time.Hour
		}
	}
	if m := retryAfterMinutes.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return time.Duration(n) * time.Minute
		}
	}
	return DefaultCooldown
}

// extractJSON locates the first brace-delimited object substring in raw
// model output, tolerating prose and markdown fences around it.
func extractJSON(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

// ParseResult extracts and sanitizes a structured result from raw model
// output. Returns nil when no parseable JSON object is present.
func ParseResult(raw string) *domain.ExtractionResult {
	blob, ok := extractJSON(raw)
	if !ok {
		return nil
	}

	var res domain.ExtractionResult
	if err := json.Unmarshal([]byte(blob), &res); err != nil {
		return nil
	}

	res.Phone = SanitizePhone(res.Phone)
	return &res
}

// SanitizePhone strips non-digits, drops an Indian "91" country prefix on
// 12-digit numbers and keeps the rightmost 10 digits otherwise. Numbers
// shorter than 10 digits pass through unchanged.
func SanitizePhone(s string) string {
	digits := nonDigits.ReplaceAllString(s, "")
	if len(digits) == 12 && strings.HasPrefix(digits, "91") {
		digits = digits[2:]
	}
	if len(digits) >= 10 {
		return digits[len(digits)-10:]
	}
	return digits
}
