package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"example.com/crypto-profit-bot/internal/storage"
)

// ParseTransaction разбирает строку вида "2024-12-03 BTC 73000 0.1".
// Дата принимается как YYYY-MM-DD или полный RFC3339 (формат экспорта).
func ParseTransaction(value string) (storage.Transaction, error) {
	parts := strings.Fields(value)
	if len(parts) != 4 {
		return storage.Transaction{}, fmt.Errorf("bad size of args")
	}

	createdAt, err := parseDate(parts[0])
	if err != nil {
		return storage.Transaction{}, fmt.Errorf("bad date")
	}

	price, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return storage.Transaction{}, fmt.Errorf("bad price")
	}

	amount, err := strconv.ParseFloat(parts[3], 64)
	if err != nil {
		return storage.Transaction{}, fmt.Errorf("bad amount")
	}

	return storage.Transaction{
		CreatedAt:   createdAt,
		AssetSymbol: strings.ToUpper(parts[1]),
		Price:       price,
		Amount:      amount,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// RowError ошибка разбора одной строки CSV.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// ParseCSV разбирает содержимое CSV файла, по строке на транзакцию:
// "2024-12-03,BTC,73000,0.1". Некорректные строки отбрасываются по одной
// и не мешают остальным; до хранилища они не доходят.
func ParseCSV(content string) ([]storage.Transaction, []RowError) {
	var txs []storage.Transaction
	var rowErrs []RowError

	for i, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		tx, err := ParseTransaction(strings.ReplaceAll(line, ",", " "))
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: i + 1, Err: err})
			continue
		}
		txs = append(txs, tx)
	}

	return txs, rowErrs
}

// ExportCSV выгружает транзакции в формат, пригодный для обратного импорта.
func ExportCSV(txs []storage.Transaction) string {
	var sb strings.Builder
	for i, t := range txs {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(t.CreatedAt.UTC().Format(time.RFC3339))
		sb.WriteByte(',')
		sb.WriteString(t.AssetSymbol)
		sb.WriteByte(',')
		sb.WriteString(strconv.FormatFloat(t.Price, 'f', -1, 64))
		sb.WriteByte(',')
		sb.WriteString(strconv.FormatFloat(t.Amount, 'f', -1, 64))
	}
	return sb.String()
}
