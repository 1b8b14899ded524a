package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // драйвер "pgx" для database/sql
	"github.com/sirupsen/logrus"

	"example.com/crypto-profit-bot/internal/storage"
)

// Store реализация хранилищ поверх Postgres.
type Store struct {
	db *sql.DB
}

func New(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	logrus.Info("postgres storage initialized")
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS assets (
  id SERIAL PRIMARY KEY,
  symbol VARCHAR(64) NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS prices (
  id SERIAL PRIMARY KEY,
  created_at TIMESTAMPTZ NOT NULL,
  value DOUBLE PRECISION NOT NULL,
  asset_id INTEGER NOT NULL REFERENCES assets(id)
);
CREATE INDEX IF NOT EXISTS idx_prices_asset_id ON prices(asset_id);
CREATE INDEX IF NOT EXISTS idx_prices_created_at ON prices(created_at);
CREATE TABLE IF NOT EXISTS users (
  id BIGINT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS transactions (
  id SERIAL PRIMARY KEY,
  created_at TIMESTAMPTZ NOT NULL,
  price DOUBLE PRECISION NOT NULL,
  amount DOUBLE PRECISION NOT NULL,
  asset_id INTEGER NOT NULL REFERENCES assets(id),
  user_id BIGINT NOT NULL REFERENCES users(id)
);
CREATE INDEX IF NOT EXISTS idx_transactions_user_id ON transactions(user_id);
CREATE INDEX IF NOT EXISTS idx_transactions_asset_id ON transactions(asset_id);
CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at);
`)
	return err
}

func (s *Store) EnsureUser(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, userID)
	return err
}

func (s *Store) CreateTransaction(ctx context.Context, tx storage.Transaction) (int64, error) {
	ids, err := s.CreateTransactions(ctx, []storage.Transaction{tx})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// CreateTransactions атомарная пакетная вставка: активы и пользователи
// создаются в той же транзакции БД, id актива резолвится по символу.
func (s *Store) CreateTransactions(ctx context.Context, txs []storage.Transaction) ([]int64, error) {
	if len(txs) == 0 {
		return nil, nil
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer dbTx.Rollback()

	for _, t := range txs {
		symbol := strings.ToUpper(strings.TrimSpace(t.AssetSymbol))
		if symbol == "" {
			return nil, fmt.Errorf("empty asset symbol")
		}
		if _, err := dbTx.ExecContext(ctx,
			`INSERT INTO users (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, t.UserID); err != nil {
			return nil, err
		}
		if _, err := dbTx.ExecContext(ctx,
			`INSERT INTO assets (symbol) VALUES ($1) ON CONFLICT (symbol) DO NOTHING`, symbol); err != nil {
			return nil, err
		}
	}

	ids := make([]int64, 0, len(txs))
	for _, t := range txs {
		symbol := strings.ToUpper(strings.TrimSpace(t.AssetSymbol))
		var id int64
		err := dbTx.QueryRowContext(ctx, `
			INSERT INTO transactions (created_at, price, amount, asset_id, user_id)
			SELECT $1, $2, $3, a.id, $4
			FROM assets a WHERE a.symbol = $5
			RETURNING id`,
			t.CreatedAt, t.Price, t.Amount, t.UserID, symbol).Scan(&id)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("asset %s was not resolved", symbol)
		}
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := dbTx.Commit(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	return err
}

func (s *Store) DeleteAllByUser(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE user_id = $1`, userID)
	return err
}

func (s *Store) CheckOwnership(ctx context.Context, id, userID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM transactions WHERE id = $1 AND user_id = $2)`,
		id, userID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (s *Store) ListByUser(ctx context.Context, userID int64) ([]storage.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.created_at, a.symbol, t.price, t.amount, t.user_id
		FROM transactions t
		JOIN assets a ON a.id = t.asset_id
		WHERE t.user_id = $1
		ORDER BY t.created_at ASC, t.id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []storage.Transaction
	for rows.Next() {
		var t storage.Transaction
		if err := rows.Scan(&t.ID, &t.CreatedAt, &t.AssetSymbol, &t.Price, &t.Amount, &t.UserID); err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (s *Store) AppendPrice(ctx context.Context, q storage.Quote) error {
	return s.AppendPrices(ctx, []storage.Quote{q})
}

func (s *Store) AppendPrices(ctx context.Context, qs []storage.Quote) error {
	if len(qs) == 0 {
		return nil
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer dbTx.Rollback()

	for _, q := range qs {
		symbol := strings.ToUpper(strings.TrimSpace(q.Symbol))
		if symbol == "" {
			return fmt.Errorf("empty asset symbol")
		}
		if _, err := dbTx.ExecContext(ctx,
			`INSERT INTO assets (symbol) VALUES ($1) ON CONFLICT (symbol) DO NOTHING`, symbol); err != nil {
			return err
		}
		res, err := dbTx.ExecContext(ctx, `
			INSERT INTO prices (created_at, value, asset_id)
			SELECT $1, $2, a.id
			FROM assets a WHERE a.symbol = $3`,
			q.At, q.Value, symbol)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected != 1 {
			return fmt.Errorf("asset %s was not resolved", symbol)
		}
	}

	return dbTx.Commit()
}

func (s *Store) LatestPrice(ctx context.Context, symbol string) (float64, bool, error) {
	var value float64
	err := s.db.QueryRowContext(ctx, `
		SELECT p.value
		FROM prices p
		JOIN assets a ON a.id = p.asset_id
		WHERE a.symbol = $1
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT 1`, strings.ToUpper(strings.TrimSpace(symbol))).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return value, true, nil
}

// LatestPrices группирует последнюю цену по каждому активу через DISTINCT ON.
func (s *Store) LatestPrices(ctx context.Context) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT ON (p.asset_id) a.symbol, p.value
		FROM prices p
		JOIN assets a ON a.id = p.asset_id
		ORDER BY p.asset_id, p.created_at DESC, p.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prices := make(map[string]float64)
	for rows.Next() {
		var symbol string
		var value float64
		if err := rows.Scan(&symbol, &value); err != nil {
			return nil, err
		}
		prices[symbol] = value
	}
	return prices, rows.Err()
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

var _ storage.Store = (*Store)(nil)
