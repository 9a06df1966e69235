package cli

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"go.viam.com/camcal/calibration"
)

const progressBarWidth = 20

func progressBar(progress float64) string {
	filled := int(progress*progressBarWidth + 0.5)
	filled = max(0, min(filled, progressBarWidth))
	return strings.Repeat("#", filled) + strings.Repeat(".", progressBarWidth-filled)
}

// coverageTable renders how much of each pose parameter the samples span.
func coverageTable(cov calibration.CoverageState) string {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("%d samples", cov.SampleCount))
	t.AppendHeader(table.Row{"Axis", "Min", "Max", "Progress", ""})
	for _, axis := range cov.Axes() {
		t.AppendRow(table.Row{
			axis.Name,
			fmt.Sprintf("%.2f", axis.Min),
			fmt.Sprintf("%.2f", axis.Max),
			progressBar(axis.Progress),
			fmt.Sprintf("%3.0f%%", axis.Progress*100),
		})
	}
	ready := "no"
	if cov.Ready {
		ready = "yes"
	}
	t.AppendFooter(table.Row{"Ready", "", "", ready, ""})
	return t.Render()
}

// metricRow is one evaluated image.
type metricRow struct {
	name   string
	values []float64
	found  bool
}

// metricsTable renders one row per evaluated image.
func metricsTable(columns []string, rows []metricRow) string {
	t := table.NewWriter()
	header := table.Row{"Image"}
	for _, col := range columns {
		header = append(header, col)
	}
	t.AppendHeader(header)
	for _, r := range rows {
		row := table.Row{r.name}
		for i := range columns {
			if !r.found {
				row = append(row, "not found")
				continue
			}
			row = append(row, fmt.Sprintf("%.4f", r.values[i]))
		}
		t.AppendRow(row)
	}
	return t.Render()
}
