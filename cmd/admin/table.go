package main

import (
	"sort"
	"strconv"

	"studio-api/internal/services"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

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
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range r {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// renderRevenue prints per-package rows sorted by id with a totals footer
func renderRevenue(stats *services.RevenueStats) string {
	ids := make([]string, 0, len(stats.RevenueByPackage))
	for id := range stats.RevenueByPackage {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([][]string, 0, len(ids)+1)
	for _, id := range ids {
		pkg := stats.RevenueByPackage[id]
		rows = append(rows, []string{id, strconv.FormatInt(pkg.Count, 10), pkg.Revenue.StringFixed(2)})
	}
	rows = append(rows, []string{
		"TOTAL",
		strconv.FormatInt(stats.TotalPurchases, 10),
		stats.TotalRevenue.StringFixed(2),
	})

	out := renderTable(
		[]string{"Package", "Purchases", "Revenue"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight},
	)
	return out + "\nCredits issued: " + strconv.FormatInt(stats.TotalCreditsIssued, 10)
}
