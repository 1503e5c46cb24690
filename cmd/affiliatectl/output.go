package main

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// column describes one table column. Zero Max means no width limit.
type column struct {
	Title string
	Align text.Align
	Max   int
}

var (
	crawlColumns = []column{
		{Title: "Source"},
		{Title: "Total", Align: text.AlignRight},
		{Title: "New", Align: text.AlignRight},
		{Title: "Error", Max: 40},
	}
	threadColumns = []column{
		{Title: "ID", Max: 24},
		{Title: "Source"},
		{Title: "Title", Max: 50},
		{Title: "Replies", Align: text.AlignRight},
		{Title: "Views", Align: text.AlignRight},
		{Title: "Crawled"},
	}
	campaignColumns = []column{
		{Title: "ID"},
		{Title: "Status"},
		{Title: "Product", Max: 30},
		{Title: "Bait", Max: 40},
		{Title: "Created"},
		{Title: "Post"},
	}
	campaignResultColumns = []column{
		{Title: "ID"},
		{Title: "Status"},
		{Title: "Post"},
		{Title: "Posted"},
		{Title: "Error", Max: 50},
	}
	linkColumns = []column{
		{Title: "ID"},
		{Title: "Name", Max: 30},
		{Title: "Short URL"},
		{Title: "Service"},
		{Title: "Collection"},
		{Title: "Clicks", Align: text.AlignRight},
	}
	shortenColumns = []column{
		{Title: "Service"},
		{Title: "Shortened"},
	}
	statsColumns = []column{
		{Title: "Metric"},
		{Title: "Value", Align: text.AlignRight},
	}
)

// listing is a table of rows. Total is the server-side count when the rows
// are one page of a longer list.
type listing struct {
	Columns []column
	Rows    [][]string
	Total   int
}

func (l listing) render() string {
	if len(l.Columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Header = text.FormatDefault

	header := make(table.Row, len(l.Columns))
	configs := make([]table.ColumnConfig, len(l.Columns))
	for i, c := range l.Columns {
		header[i] = c.Title
		configs[i] = table.ColumnConfig{
			Number:      i + 1,
			Align:       c.Align,
			AlignHeader: text.AlignLeft,
			WidthMax:    c.Max,
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range l.Rows {
		r := make(table.Row, len(l.Columns))
		for i := range r {
			r[i] = ""
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	if l.Total > len(l.Rows) {
		tw.SetCaption("showing %d of %d", len(l.Rows), l.Total)
	}
	return tw.Render()
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// emit prints v as JSON, or the listing built by build otherwise.
func emit(ctx *commandContext, cmd *cobra.Command, v any, build func() listing) error {
	if ctx.wantJSON(cmd) {
		return writeJSON(cmd, v)
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), build().render())
	return err
}
