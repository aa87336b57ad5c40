package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/foyzulkarim/codiesvibe-search/internal/search"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	scoreStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	recoveredStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("178"))
)

// renderResponse formats a search response for the terminal.
func renderResponse(response *search.Response, debug bool) string {
	var b strings.Builder

	for i, c := range response.Candidates {
		name := c.ID
		if n, ok := c.Payload["name"].(string); ok && n != "" {
			name = n
		}
		b.WriteString(fmt.Sprintf("%2d. %s  %s\n",
			i+1, titleStyle.Render(name), scoreStyle.Render(fmt.Sprintf("%.3f", c.Score))))

		var sources []string
		for _, p := range c.Provenance {
			sources = append(sources, fmt.Sprintf("%s#%d", p.Source, p.Rank))
		}
		b.WriteString("    " + dimStyle.Render(strings.Join(sources, " ")) + "\n")
	}

	if len(response.Candidates) == 0 {
		b.WriteString(dimStyle.Render("no results") + "\n")
	}

	for _, e := range response.Errors {
		style := errorStyle
		if e.Recovered {
			style = recoveredStyle
		}
		b.WriteString(style.Render(fmt.Sprintf("[%s] %s: %s", e.Kind, e.Node, e.Message)) + "\n")
	}

	b.WriteString(dimStyle.Render(fmt.Sprintf("request=%s fusion=%s elapsed=%dms cached=%v",
		response.RequestID, response.Stats.Fusion, response.Stats.ElapsedMS, response.Cached)) + "\n")

	if debug {
		if out, err := json.MarshalIndent(map[string]interface{}{
			"intent": response.Intent,
			"plan":   response.Plan,
			"stats":  response.Stats,
		}, "", "  "); err == nil {
			b.WriteString(dimStyle.Render(string(out)) + "\n")
		}
	}
	return b.String()
}
