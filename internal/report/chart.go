// Package report renders the final scoreboard as files.
package report

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"rpsboard/internal/roster"
)

var (
	barColor    = drawing.ColorFromHex("5b7db1")
	winnerColor = drawing.ColorFromHex("e0a526")
	textColor   = drawing.ColorFromHex("222222")
)

// ChartPNG draws one bar per participant in ranking order, the winner
// highlighted.
func ChartPNG(summary roster.Summary) ([]byte, error) {
	if len(summary.Rows) == 0 {
		return placeholderPNG("No scores yet")
	}

	maxScore := 1.0
	bars := make([]chart.Value, 0, len(summary.Rows))
	for _, row := range summary.Rows {
		score := float64(row.RankScore())
		if score > maxScore {
			maxScore = score
		}
		fill := barColor
		if row.Rank == 1 {
			fill = winnerColor
		}
		bars = append(bars, chart.Value{
			Label: fmt.Sprintf("#%d %s", row.Rank, row.Name),
			Value: score,
			Style: chart.Style{FillColor: fill, StrokeColor: fill},
		})
	}

	graph := chart.BarChart{
		Title:    "Final scoreboard",
		Width:    120*len(bars) + 160,
		Height:   400,
		BarWidth: 60,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		YAxis: chart.YAxis{
			Style: chart.Style{FontColor: textColor},
			// go-chart cannot derive a range from all-zero values.
			Range: &chart.ContinuousRange{Min: 0, Max: maxScore},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), nil
}

func placeholderPNG(msg string) ([]byte, error) {
	graph := chart.Chart{
		Width:  400,
		Height: 200,
		Elements: []chart.Renderable{
			func(r chart.Renderer, cb chart.Box, _ chart.Style) {
				r.SetFontColor(textColor)
				r.SetFontSize(12.0)
				tb := r.MeasureText(msg)
				r.Text(msg, (cb.Width()-tb.Width())/2, (cb.Height()+tb.Height())/2)
			},
		},
	}
	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render placeholder: %w", err)
	}
	return buf.Bytes(), nil
}
