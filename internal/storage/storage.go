package storage

import (
	"context"
	"time"
)

// Transaction запись о покупке актива пользователем.
type Transaction struct {
	ID          int64
	CreatedAt   time.Time
	AssetSymbol string
	Price       float64
	Amount      float64
	UserID      int64
}

// Quote наблюдение рыночной цены актива в момент времени.
type Quote struct {
	Symbol string
	Value  float64
	At     time.Time
}

// TransactionStore операции над транзакциями пользователей.
// Пакетная вставка атомарна: недостающие активы и пользователь создаются
// в той же транзакции БД, что и сами записи.
type TransactionStore interface {
	EnsureUser(ctx context.Context, userID int64) error
	CreateTransaction(ctx context.Context, tx Transaction) (int64, error)
	CreateTransactions(ctx context.Context, txs []Transaction) ([]int64, error)
	DeleteTransaction(ctx context.Context, id int64) error
	DeleteAllByUser(ctx context.Context, userID int64) error
	CheckOwnership(ctx context.Context, id, userID int64) (bool, error)
	// ListByUser возвращает транзакции пользователя по возрастанию created_at.
	ListByUser(ctx context.Context, userID int64) ([]Transaction, error)
}

// PriceStore append-only временной ряд цен по активам.
type PriceStore interface {
	AppendPrice(ctx context.Context, q Quote) error
	AppendPrices(ctx context.Context, qs []Quote) error
	// LatestPrice возвращает цену с максимальным created_at; ok=false если цен нет.
	LatestPrice(ctx context.Context, symbol string) (price float64, ok bool, err error)
	// LatestPrices возвращает последнюю цену для каждого актива одним запросом.
	LatestPrices(ctx context.Context) (map[string]float64, error)
}

// Store объединяет оба хранилища поверх одной БД.
type Store interface {
	TransactionStore
	PriceStore
	Close() error
}
