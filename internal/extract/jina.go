// Package extract turns a web page URL into plain text for summarization.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/DeafMist/deep-research/internal/processing"
)

// ErrEmptyContent is returned when the page yields no text.
var ErrEmptyContent = errors.New("extracted content is empty")

const (
	jinaDefaultBaseURL = "https://r.jina.ai"
	defaultMaxChars    = 5000
	// upper bound on the body we read before truncating
	maxBodyBytes = 1 << 20
)

// Reader fetches the readable text of a URL.
type Reader interface {
	Read(ctx context.Context, url string) (string, error)
}

// Jina reads pages through the Jina AI reader proxy.
type Jina struct {
	baseURL  string
	maxChars int
	client   *http.Client
}

// NewJina builds a reader. timeout bounds each request; maxChars caps the returned text in runes.
func NewJina(baseURL string, timeout time.Duration, maxChars int) *Jina {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return NewJinaWithClient(baseURL, maxChars, &http.Client{Timeout: timeout})
}

// NewJinaWithClient is NewJina with a caller-supplied HTTP client.
func NewJinaWithClient(baseURL string, maxChars int, client *http.Client) *Jina {
	if baseURL == "" {
		baseURL = jinaDefaultBaseURL
	}
	if maxChars <= 0 {
		maxChars = defaultMaxChars
	}
	return &Jina{baseURL: strings.TrimRight(baseURL, "/"), maxChars: maxChars, client: client}
}

func (j *Jina) Read(ctx context.Context, url string) (string, error) {
	trimmed := strings.TrimSpace(url)
	if trimmed == "" {
		return "", errors.New("extract url is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.baseURL+"/"+trimmed, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("X-Return-Format", "text")

	resp, err := j.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("jina request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("jina http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read jina body: %w", err)
	}

	text := processing.CleanText(string(body))
	if text == "" {
		return "", ErrEmptyContent
	}
	return processing.Truncate(text, j.maxChars), nil
}
