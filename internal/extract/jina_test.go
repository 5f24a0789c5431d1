package extract_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/deep-research/internal/extract"
)

func TestJinaReadsText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text", r.Header.Get("X-Return-Format"))
		assert.Equal(t, "/https://example.com/article", r.URL.Path)
		w.Write([]byte("\n\n  Title   line \n\nBody text.  \n"))
	}))
	defer srv.Close()

	j := extract.NewJinaWithClient(srv.URL, 5000, srv.Client())
	text, err := j.Read(context.Background(), "https://example.com/article")
	require.NoError(t, err)
	require.Equal(t, "Title line\n\nBody text.", text)
}

func TestJinaTruncates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("ä", 6000)))
	}))
	defer srv.Close()

	text, err := extract.NewJinaWithClient(srv.URL, 5000, srv.Client()).Read(context.Background(), "https://x.example")
	require.NoError(t, err)
	require.Equal(t, 5000, utf8.RuneCountInString(text))
}

func TestJinaFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "upstream failed", http.StatusBadGateway)
			},
		},
		{
			name: "empty body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("   \n  "))
			},
			wantErr: extract.ErrEmptyContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := extract.NewJinaWithClient(srv.URL, 0, srv.Client()).Read(context.Background(), "https://x.example")
			require.Error(t, err)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestJinaTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	j := extract.NewJina(srv.URL, 20*time.Millisecond, 5000)
	_, err := j.Read(context.Background(), "https://slow.example")
	require.Error(t, err)
}

func TestJinaRejectsEmptyURL(t *testing.T) {
	_, err := extract.NewJina("", time.Second, 0).Read(context.Background(), "  ")
	require.Error(t, err)
}
