package bot

import (
	"testing"
	"time"

	"example.com/crypto-profit-bot/internal/storage"
)

func TestParseTransaction(t *testing.T) {
	tx, err := ParseTransaction("2024-12-03 btc 73000 0.1")
	if err != nil {
		t.Fatalf("ParseTransaction failed: %v", err)
	}
	if tx.AssetSymbol != "BTC" {
		t.Errorf("expected symbol BTC, got %s", tx.AssetSymbol)
	}
	if tx.Price != 73000 || tx.Amount != 0.1 {
		t.Errorf("unexpected price/amount: %v %v", tx.Price, tx.Amount)
	}
	want := time.Date(2024, 12, 3, 0, 0, 0, 0, time.UTC)
	if !tx.CreatedAt.Equal(want) {
		t.Errorf("expected date %v, got %v", want, tx.CreatedAt)
	}
}

func TestParseTransactionRFC3339Date(t *testing.T) {
	tx, err := ParseTransaction("2024-12-03T15:04:05Z ETH 2000 1.5")
	if err != nil {
		t.Fatalf("ParseTransaction failed: %v", err)
	}
	want := time.Date(2024, 12, 3, 15, 4, 5, 0, time.UTC)
	if !tx.CreatedAt.Equal(want) {
		t.Errorf("expected date %v, got %v", want, tx.CreatedAt)
	}
}

func TestParseTransactionErrors(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"2024-12-03 BTC 73000", "bad size of args"},
		{"2024-12-03 BTC 73000 0.1 extra", "bad size of args"},
		{"", "bad size of args"},
		{"03.12.2024 BTC 73000 0.1", "bad date"},
		{"2024-12-03 BTC abc 0.1", "bad price"},
		{"2024-12-03 BTC 73000 xyz", "bad amount"},
	}
	for _, c := range cases {
		_, err := ParseTransaction(c.input)
		if err == nil {
			t.Errorf("%q: expected error", c.input)
			continue
		}
		if err.Error() != c.want {
			t.Errorf("%q: expected %q, got %q", c.input, c.want, err.Error())
		}
	}
}

func TestParseCSV(t *testing.T) {
	content := "2024-12-03,BTC,73000,0.1\n\nbroken line\n2024-12-04,ETH,2000,1.5\n"
	txs, rowErrs := ParseCSV(content)

	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
	if txs[0].AssetSymbol != "BTC" || txs[1].AssetSymbol != "ETH" {
		t.Errorf("unexpected symbols: %s %s", txs[0].AssetSymbol, txs[1].AssetSymbol)
	}

	// Битые строки не останавливают разбор, пустые пропускаются молча
	if len(rowErrs) != 1 {
		t.Fatalf("expected 1 row error, got %d", len(rowErrs))
	}
	if rowErrs[0].Line != 3 {
		t.Errorf("expected error on line 3, got %d", rowErrs[0].Line)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	txs := []storage.Transaction{
		{CreatedAt: time.Date(2024, 12, 3, 10, 30, 0, 0, time.UTC), AssetSymbol: "BTC", Price: 73000.25, Amount: 0.1},
		{CreatedAt: time.Date(2024, 12, 4, 0, 0, 0, 0, time.UTC), AssetSymbol: "ETH", Price: 2000, Amount: 1.5},
	}

	restored, rowErrs := ParseCSV(ExportCSV(txs))
	if len(rowErrs) != 0 {
		t.Fatalf("unexpected row errors: %v", rowErrs)
	}
	if len(restored) != len(txs) {
		t.Fatalf("expected %d transactions, got %d", len(txs), len(restored))
	}
	for i := range txs {
		if !restored[i].CreatedAt.Equal(txs[i].CreatedAt) {
			t.Errorf("tx %d: date %v != %v", i, restored[i].CreatedAt, txs[i].CreatedAt)
		}
		if restored[i].AssetSymbol != txs[i].AssetSymbol {
			t.Errorf("tx %d: symbol %s != %s", i, restored[i].AssetSymbol, txs[i].AssetSymbol)
		}
		if restored[i].Price != txs[i].Price || restored[i].Amount != txs[i].Amount {
			t.Errorf("tx %d: price/amount mismatch", i)
		}
	}
}
