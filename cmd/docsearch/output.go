package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	summaryStyle = lipgloss.NewStyle().Faint(true)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderResults(w io.Writer, res *executor.SearchResult) {
	if len(res.Results) == 0 {
		fmt.Fprintf(w, "no results for %q\n", res.Query)
		return
	}
	t := newTable("SCORE", "KIND", "TITLE", "DESCRIPTION", "LINK")
	for _, r := range res.Results {
		t.Row(strconv.Itoa(r.Score), r.Kind, r.Title, r.Description, r.URL)
	}
	fmt.Fprintln(w, t)
	summary := fmt.Sprintf("%d of %d results in %.2fms", len(res.Results), res.TotalHits, res.TookMs)
	for name, msg := range res.Failed {
		summary += fmt.Sprintf("; %s failed: %s", name, msg)
	}
	fmt.Fprintln(w, summaryStyle.Render(summary))
}

func renderObjects(w io.Writer, hits []executor.ObjectHit) {
	t := newTable("INDEX", "OBJECT", "KIND", "PAGE", "LINK")
	for _, h := range hits {
		t.Row(h.Index, h.FullName, h.Kind, h.Title, h.URL)
	}
	fmt.Fprintln(w, t)
}
