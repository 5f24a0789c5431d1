package research

import (
	"errors"
	"fmt"
)

// ErrInvalidQuery is returned when the trimmed query is shorter than MinQueryLength.
var ErrInvalidQuery = errors.New("query must be at least 3 characters")

// Kind names the pipeline stage that failed.
type Kind string

const (
	KindSearch        Kind = "search"
	KindExtraction    Kind = "extraction"
	KindSummarization Kind = "summarization"
	KindReport        Kind = "report"
)

// StageError is a stage failure. The agent degrades each kind to data instead
// of aborting the run.
type StageError struct {
	Kind Kind
	URL  string
	Err  error
}

func (e *StageError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("%s failed for %s: %v", e.Kind, e.URL, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageError(kind Kind, url string, err error) *StageError {
	return &StageError{Kind: kind, URL: url, Err: err}
}
