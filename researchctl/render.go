package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/DeafMist/deep-research/internal/cache"
	"github.com/DeafMist/deep-research/internal/models"
)

func renderResult(w io.Writer, format string, res *models.ResearchResult) error {
	switch format {
	case outputJSON:
		return writeJSON(w, res)
	case outputYAML:
		return writeYAML(w, res)
	}

	fmt.Fprintf(w, "Query: %s\n", res.Query)
	fmt.Fprintf(w, "Sources: %d of %d search results\n", len(res.Sources), len(res.SearchResults))
	for i, src := range res.Sources {
		fmt.Fprintf(w, "\n[%d] %s\n    %s\n", i+1, src.Title, src.URL)
		for _, bullet := range src.Summary {
			fmt.Fprintf(w, "    %s\n", bullet)
		}
	}
	fmt.Fprintf(w, "\n%s\n%s\n", strings.Repeat("=", 60), res.Report)
	return nil
}

type cacheRow struct {
	URL      string    `json:"url" yaml:"url"`
	Title    string    `json:"title" yaml:"title"`
	Summary  []string  `json:"summary" yaml:"summary"`
	CachedAt time.Time `json:"cached_at" yaml:"cached_at"`
}

func renderCache(w io.Writer, format string, entries map[string]cache.Entry) error {
	rows := make([]cacheRow, 0, len(entries))
	for url, e := range entries {
		rows = append(rows, cacheRow{URL: url, Title: e.Title, Summary: e.Summary, CachedAt: e.CachedAt.Time})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].URL < rows[j].URL })

	switch format {
	case outputJSON:
		return writeJSON(w, rows)
	case outputYAML:
		return writeYAML(w, rows)
	}

	if len(rows) == 0 {
		fmt.Fprintln(w, "Cache is empty")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "URL\tTITLE\tBULLETS\tCACHED AT")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.URL, r.Title, len(r.Summary), r.CachedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
