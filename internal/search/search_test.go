package search_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/deep-research/internal/search"
)

func TestMockCapsResults(t *testing.T) {
	m := search.NewMock()

	all, err := m.Search(context.Background(), "quantum computing", 5)
	require.NoError(t, err)
	require.Len(t, all, 5)
	require.Equal(t, "Article about quantum computing - Wikipedia", all[0].Title)
	require.Equal(t, "https://en.wikipedia.org/wiki/Artificial_intelligence", all[0].URL)

	two, err := m.Search(context.Background(), "quantum computing", 2)
	require.NoError(t, err)
	require.Len(t, two, 2)
	require.Equal(t, all[:2], two)
}

func TestSerpAPIMapsOrganicResults(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		q := r.URL.Query()
		gotQuery = map[string]string{
			"engine":  q.Get("engine"),
			"q":       q.Get("q"),
			"num":     q.Get("num"),
			"api_key": q.Get("api_key"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"organic_results": [
			{"title": "One", "link": "https://one.example", "snippet": "first"},
			{"title": "No link", "snippet": "skipped"},
			{"title": "Two", "link": "https://two.example", "snippet": "second"},
			{"title": "Three", "link": "https://three.example", "snippet": "third"}
		]}`))
	}))
	defer srv.Close()

	p := search.NewSerpAPI("secret", srv.URL, srv.Client())
	results, err := p.Search(context.Background(), "rust async", 2)
	require.NoError(t, err)

	require.Equal(t, map[string]string{"engine": "google", "q": "rust async", "num": "2", "api_key": "secret"}, gotQuery)
	require.Len(t, results, 2)
	require.Equal(t, "https://one.example", results[0].URL)
	require.Equal(t, "first", results[0].Snippet)
	require.Equal(t, "Two", results[1].Title)
}

func TestSerpAPIErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "http error", status: http.StatusUnauthorized, body: `{"error": "Invalid API key"}`},
		{name: "api error", status: http.StatusOK, body: `{"error": "Google hasn't returned any results"}`},
		{name: "bad json", status: http.StatusOK, body: `<html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := search.NewSerpAPI("k", srv.URL, srv.Client()).Search(context.Background(), "q", 5)
			require.Error(t, err)
		})
	}
}

func TestNew(t *testing.T) {
	p, err := search.New("mock", "", "")
	require.NoError(t, err)
	require.IsType(t, &search.Mock{}, p)

	_, err = search.New("serpapi", "", "")
	require.Error(t, err)

	p, err = search.New("serpapi", "key", "")
	require.NoError(t, err)
	require.IsType(t, &search.SerpAPI{}, p)

	_, err = search.New("bing", "key", "")
	require.Error(t, err)
}
