package research

import (
	"context"
	"fmt"

	"github.com/DeafMist/deep-research/internal/llm"
	"github.com/DeafMist/deep-research/internal/processing"
)

const (
	// MaxBullets caps the bullets kept per source.
	MaxBullets = 7
	// placeholderErrorChars bounds the error text in a failed summary.
	placeholderErrorChars = 50
)

const summarizePrompt = `Summarize this content into exactly 5-7 concise bullet points.
Each bullet should be a single line, maximum 15 words.
Focus on key facts and insights only.

Title: %s
Content: %s

Return ONLY the bullet points, one per line, starting with '- '.`

// Summarizer condenses page text into bullets.
type Summarizer struct {
	model llm.Model
}

func NewSummarizer(model llm.Model) *Summarizer {
	return &Summarizer{model: model}
}

// Summarize asks the model for bullets and keeps at most MaxBullets marked lines.
// Fewer lines, including none, are returned as-is.
func (s *Summarizer) Summarize(ctx context.Context, title, content string) ([]string, error) {
	text, err := s.model.Complete(ctx, fmt.Sprintf(summarizePrompt, title, content))
	if err != nil {
		return nil, err
	}
	return processing.ParseBullets(text, MaxBullets), nil
}

// SummaryPlaceholder is the single bullet a source gets when summarization fails.
func SummaryPlaceholder(err error) []string {
	return []string{"- Error summarizing content: " + processing.Shorten(err, placeholderErrorChars)}
}
