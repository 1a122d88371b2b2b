// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/jonathan/lead-scraper/internal/crawler"
	"github.com/jonathan/lead-scraper/internal/events"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 72
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
	// maxCellWidth caps a column of the row preview
	maxCellWidth = 16
)

// previewColumns are the row fields shown by PrintRows, by header position.
var previewColumns = []int{0, 1, 3, 4}

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// fit pads or truncates s to exactly width terminal cells.
func fit(s string, width int) string {
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "...")
	}
	return runewidth.FillRight(s, width)
}

// printBox prints a formatted box with a title and content. Widths are measured
// in terminal cells so accented and wide names keep the border aligned.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	inner := boxWidth - 4
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", fit(title, inner))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", fit(line, inner))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintCrawlSummary outputs the final status of a crawl run.
func (p *Printer) PrintCrawlSummary(status crawler.Status) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:      %s\n", status.RunID))
	sb.WriteString(fmt.Sprintf("State:    %s\n", status.State))
	sb.WriteString(fmt.Sprintf("Message:  %s\n", status.Message))
	sb.WriteString(fmt.Sprintf("Pages:    %d\n", status.Page))
	sb.WriteString(fmt.Sprintf("Rows:     %d", status.Rows))
	if status.StartedAt != nil && status.FinishedAt != nil {
		sb.WriteString(fmt.Sprintf("\nDuration: %s", status.FinishedAt.Sub(*status.StartedAt).Round(time.Second)))
	}
	if status.Error != "" {
		sb.WriteString(fmt.Sprintf("\nError:    %s", status.Error))
	}

	p.printBox("CRAWL SUMMARY", sb.String())
}

// PrintRows outputs a preview table of stored rows, header first.
func (p *Printer) PrintRows(rows [][]string, limit int) {
	if len(rows) == 0 {
		p.printBox("STORED ROWS", "No rows stored")
		return
	}
	if limit <= 0 {
		limit = maxItemsToShow
	}

	cell := func(row []string, i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}
	line := func(row []string) string {
		parts := make([]string, 0, len(previewColumns))
		for _, col := range previewColumns {
			parts = append(parts, fit(cell(row, col), maxCellWidth))
		}
		return strings.TrimRight(strings.Join(parts, " "), " ")
	}

	data := rows[1:]
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total rows: %d\n\n", len(data)))
	sb.WriteString(line(rows[0]))

	count := min(len(data), limit)
	for i := 0; i < count; i++ {
		sb.WriteString("\n")
		sb.WriteString(line(data[i]))
	}
	if len(data) > limit {
		sb.WriteString(fmt.Sprintf("\n... and %d more rows", len(data)-limit))
	}

	p.printBox("STORED ROWS", sb.String())
}

// PrintEvent writes one progress line for a crawl event.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintEvent(evt events.Event) {
	switch evt.Type {
	case events.TypeState:
		fmt.Fprintf(p.out, "● %s: %s (%d rows)\n", evt.State, evt.Message, evt.Rows)
	case events.TypeRow:
		fmt.Fprintf(p.out, "  + %d rows stored\n", evt.Rows)
	default:
		if evt.Roles > 0 {
			fmt.Fprintf(p.out, "  [page %d] %s (role %d/%d)\n", evt.Page, evt.Lead, evt.Role, evt.Roles)
			return
		}
		fmt.Fprintf(p.out, "  [page %d] %s\n", evt.Page, evt.Message)
	}
}
