package processing

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"
	"time"
)

var (
	horizontalSpace = regexp.MustCompile(`[ \t\f\v]+`)
	blankLines      = regexp.MustCompile(`\n{3,}`)
)

// BulletMarker is the prefix every summary bullet carries.
const BulletMarker = "-"

// CleanText normalizes line endings, squeezes runs of horizontal whitespace and
// collapses long blank stretches, keeping the line structure intact.
func CleanText(input string) string {
	if input == "" {
		return ""
	}
	s := strings.ReplaceAll(input, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = horizontalSpace.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// Truncate returns at most max runes of s. A non-positive max disables truncation.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// Shorten renders err and keeps at most max runes of the message.
func Shorten(err error, max int) string {
	if err == nil {
		return ""
	}
	return Truncate(err.Error(), max)
}

// ParseBullets keeps the lines of text that start with BulletMarker after trimming,
// in order, and stops after limit lines; a non-positive limit keeps every bullet.
// It does not pad short output.
func ParseBullets(text string, limit int) []string {
	bullets := make([]string, 0, max(limit, 0))
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, BulletMarker) {
			continue
		}
		bullets = append(bullets, line)
		if limit > 0 && len(bullets) >= limit {
			break
		}
	}
	return bullets
}

// BuildDocumentID hashes the query and run time into a deterministic archive ID.
func BuildDocumentID(query string, ts time.Time) string {
	s := sha1.Sum([]byte(query + "|" + ts.UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(s[:])
}
