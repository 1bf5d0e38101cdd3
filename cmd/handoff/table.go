package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// wrapWidth bounds columns holding paths and error messages.
const wrapWidth = 72

type column struct {
	title string
	right bool
	// wrap soft-wraps long values instead of widening the table.
	wrap bool
}

func renderTable(columns []column, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, col := range columns {
		header[i] = col.title
		cfg := table.ColumnConfig{
			Number:      i + 1,
			Align:       text.AlignLeft,
			AlignHeader: text.AlignLeft,
		}
		if col.right {
			cfg.Align = text.AlignRight
		}
		if col.wrap {
			cfg.WidthMax = wrapWidth
			cfg.WidthMaxEnforcer = text.WrapSoft
		}
		configs[i] = cfg
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, values := range rows {
		row := make(table.Row, len(columns))
		for i := range columns {
			if i < len(values) {
				row[i] = values[i]
			}
		}
		tw.AppendRow(row)
	}

	return tw.Render()
}
