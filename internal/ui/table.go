package ui

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/desertthunder/spotdash/internal/shared"
)

// MaxCellWidth bounds every cell so long titles do not wrap the table.
const MaxCellWidth = 40

// Table renders rows under headers with a rounded border. A leading "#" column numbers the rows from 1.
func Table(headers []string, rows [][]string) string {
	numbered := make([][]string, len(rows))
	for i, row := range rows {
		cells := make([]string, 0, len(row)+1)
		cells = append(cells, strconv.Itoa(i+1))
		for _, cell := range row {
			cells = append(cells, shared.Truncate(cell, MaxCellWidth))
		}
		numbered[i] = cells
	}

	header := Styles.title.Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(Styles.help).
		Headers(append([]string{"#"}, headers...)...).
		Rows(numbered...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
	return t.Render()
}

// KeyValues renders label/value pairs one per line with aligned labels.
func KeyValues(pairs [][2]string) string {
	width := 0
	for _, p := range pairs {
		width = max(width, lipgloss.Width(p[0]))
	}

	label := Styles.help.Width(width + 2)
	lines := make([]string, len(pairs))
	for i, p := range pairs {
		lines[i] = label.Render(p[0]+":") + p[1]
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
