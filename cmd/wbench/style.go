package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/avichaym/flinksql-workbench/executor"
	"github.com/avichaym/flinksql-workbench/gateway"
)

// Output styles.
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("14"))

	successStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("10"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("9"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	cellStyle = lipgloss.NewStyle().
			Padding(0, 1)
)

func printHeader(title string) {
	fmt.Println(headerStyle.Render(title))
}

func printSuccess(message string) {
	fmt.Println(successStyle.Render("✓") + " " + message)
}

func printError(message string) {
	fmt.Println(errorStyle.Render("✗") + " " + message)
}

func printWarning(message string) {
	fmt.Println(warnStyle.Render("⚠") + " " + message)
}

func printMuted(message string) {
	fmt.Println(mutedStyle.Render(message))
}

// renderResultTable formats a terminal snapshot as an aligned table.
func renderResultTable(snap *executor.StateSnapshot) string {
	if len(snap.Columns) == 0 {
		return mutedStyle.Render("(no result set)")
	}

	headers := make([]string, len(snap.Columns))
	for i, col := range snap.Columns {
		headers[i] = col.Name
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	cells := make([][]string, len(snap.Rows))
	for r, row := range snap.Rows {
		cells[r] = make([]string, len(headers))
		for i := range headers {
			var v interface{}
			if i < len(row) {
				v = row[i]
			}
			cells[r][i] = renderValue(v)
			if len(cells[r][i]) > widths[i] {
				widths[i] = len(cells[r][i])
			}
		}
	}

	var b strings.Builder
	writeRow := func(values []string, style lipgloss.Style) {
		for i, v := range values {
			b.WriteString(style.Render(cellStyle.Render(pad(v, widths[i]))))
			if i < len(values)-1 {
				b.WriteString(mutedStyle.Render("|"))
			}
		}
		b.WriteString("\n")
	}

	writeRow(headers, headerStyle)
	separator := make([]string, len(headers))
	for i, w := range widths {
		separator[i] = strings.Repeat("-", w)
	}
	writeRow(separator, mutedStyle)
	for _, row := range cells {
		writeRow(row, lipgloss.NewStyle())
	}

	b.WriteString(mutedStyle.Render(fmt.Sprintf("%d row(s)", len(snap.Rows))))
	return b.String()
}

func renderValue(v interface{}) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// describeOutcome renders the terminal marker for an execution.
func describeOutcome(snap *executor.StateSnapshot) string {
	if snap.ResultType == gateway.ResultTypeCancelled {
		return warnStyle.Render("CANCELLED")
	}
	return successStyle.Render("COMPLETED")
}
