package cache

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Entry is the cached summary of one source URL.
type Entry struct {
	Title    string    `json:"title" yaml:"title"`
	Summary  []string  `json:"summary" yaml:"summary"`
	CachedAt Timestamp `json:"cached_at" yaml:"cached_at"`
}

// Timestamp is written as RFC 3339 and read leniently, so files produced by
// tools that emit naive ISO-8601 local times still load.
type Timestamp struct {
	time.Time
}

// zoned layouts carry their own offset; naive ones are read as local time.
var (
	zonedFormats = []string{time.RFC3339Nano, time.RFC3339}
	naiveFormats = []string{"2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05.999999999"}
)

// ParseTimestamp accepts RFC 3339 or a naive ISO-8601 date-time.
func ParseTimestamp(raw string) (Timestamp, error) {
	raw = strings.TrimSpace(raw)
	for _, f := range zonedFormats {
		if ts, err := time.Parse(f, raw); err == nil {
			return Timestamp{Time: ts}, nil
		}
	}
	for _, f := range naiveFormats {
		if ts, err := time.ParseInLocation(f, raw, time.Local); err == nil {
			return Timestamp{Time: ts}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("cached_at: %w", err)
	}
	parsed, err := ParseTimestamp(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalYAML renders the same string as the JSON form.
func (t Timestamp) MarshalYAML() (any, error) {
	return t.Time.Format(time.RFC3339Nano), nil
}

func cloneEntry(e Entry) Entry {
	out := e
	if e.Summary != nil {
		out.Summary = append([]string(nil), e.Summary...)
	}
	return out
}
