package bot

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"

	"example.com/crypto-profit-bot/internal/portfolio"
)

// maxChartBars ограничивает количество столбцов, чтобы подписи оставались читаемыми
const maxChartBars = 12

// RenderValueChart рисует столбчатую диаграмму текущей стоимости позиций.
// Активы без известной цены пропускаются.
func RenderValueChart(positions []portfolio.Position) ([]byte, error) {
	var bars []chart.Value
	for _, p := range positions {
		if !p.HasPrice {
			continue
		}
		bars = append(bars, chart.Value{
			Label: p.Symbol,
			Value: p.CurrentValue,
		})
		if len(bars) == maxChartBars {
			break
		}
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no priced positions to draw")
	}

	graph := chart.BarChart{
		Title:    "Текущая стоимость, USD",
		Width:    800,
		Height:   400,
		BarWidth: 40,
		Bars:     bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), nil
}
