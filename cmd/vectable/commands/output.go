package commands

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	gojson "github.com/goccy/go-json"
	"github.com/goccy/go-yaml"
)

var (
	accent      = lipgloss.Color("#00ff9f")
	dim         = lipgloss.Color("#6e7681")
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(accent).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(dim)
	okStyle     = lipgloss.NewStyle().Foreground(accent)
)

// grid is a tabular rendering of a result.
type grid struct {
	headers []string
	rows    [][]string
}

func (gr grid) String() string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(gr.headers...).
		Rows(gr.rows...).
		String()
}

// emit prints v as JSON or YAML when requested, and as the grid returned by
// render otherwise.
func (g *globals) emit(v any, render func() grid) error {
	switch {
	case g.asJSON:
		data, err := gojson.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		_, err = fmt.Fprintln(g.out, string(data))
		return err
	case g.asYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		_, err = g.out.Write(data)
		return err
	default:
		_, err := fmt.Fprintln(g.out, render().String())
		return err
	}
}

// success prints a confirmation unless structured output was requested.
func (g *globals) success(format string, args ...any) {
	if g.asJSON || g.asYAML {
		return
	}
	fmt.Fprintln(g.out, okStyle.Render("✓ "+fmt.Sprintf(format, args...)))
}
