package portfolio

import (
	"math"
	"testing"
	"time"

	"example.com/crypto-profit-bot/internal/storage"
)

func tx(symbol string, price, amount float64) storage.Transaction {
	return storage.Transaction{
		CreatedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		AssetSymbol: symbol,
		Price:       price,
		Amount:      amount,
		UserID:      1,
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPositionsSingleAsset(t *testing.T) {
	txs := []storage.Transaction{
		tx("BTC", 40000, 0.5),
		tx("BTC", 50000, 0.5),
	}
	prices := map[string]float64{"BTC": 60000}

	positions := Positions(txs, prices)
	if len(positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(positions))
	}

	p := positions[0]
	if !almostEqual(p.HeldAmount, 1.0) {
		t.Errorf("held amount: expected 1.0, got %v", p.HeldAmount)
	}
	if !almostEqual(p.TotalSpent, 45000) {
		t.Errorf("total spent: expected 45000, got %v", p.TotalSpent)
	}
	if !p.HasPrice || !almostEqual(p.CurrentPrice, 60000) {
		t.Errorf("current price: expected 60000, got %v (has=%v)", p.CurrentPrice, p.HasPrice)
	}
	if !almostEqual(p.CurrentValue, 60000) {
		t.Errorf("current value: expected 60000, got %v", p.CurrentValue)
	}

	// Σ amount*price² / Σ amount*price = (0.5*40000² + 0.5*50000²) / 45000
	wantAvg := (0.5*40000*40000 + 0.5*50000*50000) / 45000
	if !almostEqual(p.AvgPrice, wantAvg) {
		t.Errorf("avg price: expected %v, got %v", wantAvg, p.AvgPrice)
	}
}

func TestPositionsOrdering(t *testing.T) {
	txs := []storage.Transaction{
		tx("AAA", 10, 1),
		tx("BBB", 10, 5),
		tx("CCC", 10, 2),
	}
	// CCC без цены: должен оказаться последним
	prices := map[string]float64{"AAA": 100, "BBB": 100}

	positions := Positions(txs, prices)
	if len(positions) != 3 {
		t.Fatalf("expected 3 positions, got %d", len(positions))
	}
	if positions[0].Symbol != "BBB" || positions[1].Symbol != "AAA" {
		t.Errorf("priced positions out of order: %s, %s", positions[0].Symbol, positions[1].Symbol)
	}
	if positions[2].Symbol != "CCC" || positions[2].HasPrice {
		t.Errorf("unpriced position must be last, got %s (has=%v)", positions[2].Symbol, positions[2].HasPrice)
	}
}

func TestPositionsUnpricedAggregatesStillComputed(t *testing.T) {
	txs := []storage.Transaction{tx("XYZ", 2, 3)}

	positions := Positions(txs, map[string]float64{})
	if len(positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(positions))
	}
	p := positions[0]
	if p.HasPrice {
		t.Error("expected no price")
	}
	if !almostEqual(p.HeldAmount, 3) || !almostEqual(p.TotalSpent, 6) {
		t.Errorf("raw aggregates must be computable without price: held=%v spent=%v", p.HeldAmount, p.TotalSpent)
	}
}

func TestSummaryScenario(t *testing.T) {
	txs := []storage.Transaction{
		tx("BTC", 40000, 0.5),
		tx("BTC", 50000, 0.5),
	}
	info := Summary(txs, map[string]float64{"BTC": 60000})
	if info == nil {
		t.Fatal("expected summary, got nil")
	}
	if !almostEqual(info.TotalSpent, 45000) {
		t.Errorf("total spent: expected 45000, got %v", info.TotalSpent)
	}
	if !almostEqual(info.TotalValue, 60000) {
		t.Errorf("total value: expected 60000, got %v", info.TotalValue)
	}
	wantProfit := 60000.0 / 45000.0 * 100
	if !almostEqual(info.ProfitPercent, wantProfit) {
		t.Errorf("profit: expected %v, got %v", wantProfit, info.ProfitPercent)
	}
}

func TestSummaryNoTransactions(t *testing.T) {
	if info := Summary(nil, map[string]float64{"BTC": 60000}); info != nil {
		t.Errorf("expected nil summary for empty history, got %+v", info)
	}
}

func TestSummaryNoPrices(t *testing.T) {
	txs := []storage.Transaction{tx("BTC", 40000, 1)}
	if info := Summary(txs, map[string]float64{}); info != nil {
		t.Errorf("expected nil summary without prices, got %+v", info)
	}
}

func TestSummaryUnpricedAssetExcludedFromValue(t *testing.T) {
	txs := []storage.Transaction{
		tx("BTC", 100, 1), // spent 100
		tx("XYZ", 50, 2),  // spent 100, цены нет
	}
	info := Summary(txs, map[string]float64{"BTC": 150})
	if info == nil {
		t.Fatal("expected summary, got nil")
	}
	// Потрачено считается по всем активам, стоимость только по активам с ценой
	if !almostEqual(info.TotalSpent, 200) {
		t.Errorf("total spent: expected 200, got %v", info.TotalSpent)
	}
	if !almostEqual(info.TotalValue, 150) {
		t.Errorf("total value: expected 150, got %v", info.TotalValue)
	}
	if !almostEqual(info.ProfitPercent, 75) {
		t.Errorf("profit: expected 75, got %v", info.ProfitPercent)
	}
}

func TestSummaryZeroSpent(t *testing.T) {
	txs := []storage.Transaction{tx("BTC", 0, 1)}
	if info := Summary(txs, map[string]float64{"BTC": 100}); info != nil {
		t.Errorf("expected nil summary for zero denominator, got %+v", info)
	}
}
