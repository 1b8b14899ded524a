package portfolio

import (
	"sort"

	"example.com/crypto-profit-bot/internal/storage"
)

// Position агрегированная позиция пользователя по одному активу.
type Position struct {
	Symbol     string
	HeldAmount float64 // суммарное количество актива
	TotalSpent float64 // Σ amount * price
	AvgPrice   float64 // Σ amount * price² / Σ amount * price

	// CurrentPrice и CurrentValue заполняются только при HasPrice.
	CurrentPrice float64
	CurrentValue float64
	HasPrice     bool
}

// GeneralInfo сводка по всему портфелю пользователя.
type GeneralInfo struct {
	TotalSpent    float64
	TotalValue    float64
	ProfitPercent float64
}

// Positions строит разбивку по активам из транзакций пользователя и
// представления последних цен. Чистая функция своих двух входов.
// Результат отсортирован по текущей стоимости по убыванию; активы без
// известной цены идут в конце.
func Positions(txs []storage.Transaction, prices map[string]float64) []Position {
	bySymbol := make(map[string]*Position)
	order := make([]string, 0)

	for _, t := range txs {
		p, ok := bySymbol[t.AssetSymbol]
		if !ok {
			p = &Position{Symbol: t.AssetSymbol}
			bySymbol[t.AssetSymbol] = p
			order = append(order, t.AssetSymbol)
		}
		p.HeldAmount += t.Amount
		p.TotalSpent += t.Amount * t.Price
		// Числитель средневзвешенной цены копится отдельно и делится ниже.
		p.AvgPrice += t.Amount * t.Price * t.Price
	}

	positions := make([]Position, 0, len(bySymbol))
	sort.Strings(order)
	for _, symbol := range order {
		p := *bySymbol[symbol]
		if p.TotalSpent != 0 {
			p.AvgPrice = p.AvgPrice / p.TotalSpent
		} else {
			p.AvgPrice = 0
		}
		if price, ok := prices[symbol]; ok {
			p.CurrentPrice = price
			p.CurrentValue = p.HeldAmount * price
			p.HasPrice = true
		}
		positions = append(positions, p)
	}

	sort.SliceStable(positions, func(i, j int) bool {
		if positions[i].HasPrice != positions[j].HasPrice {
			return positions[i].HasPrice
		}
		return positions[i].CurrentValue > positions[j].CurrentValue
	})

	return positions
}

// Summary считает сводку по портфелю. Возвращает nil ("нет данных"), когда у
// пользователя нет транзакций либо ни по одному из его активов нет цены:
// явное отсутствие значения вместо нуля или NaN.
func Summary(txs []storage.Transaction, prices map[string]float64) *GeneralInfo {
	positions := Positions(txs, prices)
	if len(positions) == 0 {
		return nil
	}

	var totalSpent, totalValue float64
	priced := false
	for _, p := range positions {
		totalSpent += p.TotalSpent
		if p.HasPrice {
			totalValue += p.CurrentValue
			priced = true
		}
	}

	// Нет ни одной цены или нечем делить: сводка не определена.
	if !priced || totalSpent == 0 {
		return nil
	}

	return &GeneralInfo{
		TotalSpent:    totalSpent,
		TotalValue:    totalValue,
		ProfitPercent: totalValue / totalSpent * 100,
	}
}
