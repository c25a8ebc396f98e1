package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"roadlog/internal/store"
)

// statusColors maps session lifecycle states to their display color. Stopped
// stays uncolored.
var statusColors = map[store.SessionStatus]text.Color{
	store.StatusRecording:          text.FgRed,
	store.StatusPaused:             text.FgYellow,
	store.StatusPublishing:         text.FgCyan,
	store.StatusPublished:          text.FgGreen,
	store.StatusPartiallyPublished: text.FgHiYellow,
}

// statusCell renders a session status for table output, colored only when
// stdout is a terminal so piped output stays plain.
func statusCell(status store.SessionStatus) string {
	color, ok := statusColors[status]
	if !ok || !isTTY() {
		return string(status)
	}
	return color.Sprint(string(status))
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number: i + 1,
			Align:  align,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}
