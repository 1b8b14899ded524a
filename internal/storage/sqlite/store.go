package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // pure Go SQLite драйвер

	"example.com/crypto-profit-bot/internal/storage"
)

// Store реализация хранилищ поверх SQLite.
type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	if dbPath == "" {
		dbPath = "data/portfolio.db"
	}

	db, err := sql.Open("sqlite", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	logrus.WithField("db_path", dbPath).Info("sqlite storage initialized")
	return s, nil
}

func (s *Store) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS assets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol TEXT NOT NULL UNIQUE
		)`,

		`CREATE TABLE IF NOT EXISTS prices (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at DATETIME NOT NULL,
			value REAL NOT NULL,
			asset_id INTEGER NOT NULL REFERENCES assets(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_prices_asset_id ON prices(asset_id)`,
		`CREATE INDEX IF NOT EXISTS idx_prices_created_at ON prices(created_at)`,

		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY
		)`,

		`CREATE TABLE IF NOT EXISTS transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at DATETIME NOT NULL,
			price REAL NOT NULL,
			amount REAL NOT NULL,
			asset_id INTEGER NOT NULL REFERENCES assets(id),
			user_id INTEGER NOT NULL REFERENCES users(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_user_id ON transactions(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_asset_id ON transactions(asset_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("migration query failed: %w", err)
		}
	}

	logrus.Info("database migration completed")
	return nil
}

func (s *Store) EnsureUser(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id) VALUES (?) ON CONFLICT(id) DO NOTHING`, userID)
	return err
}

func (s *Store) CreateTransaction(ctx context.Context, tx storage.Transaction) (int64, error) {
	ids, err := s.CreateTransactions(ctx, []storage.Transaction{tx})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// CreateTransactions вставляет пакет транзакций атомарно: недостающие активы
// и пользователи создаются в той же транзакции БД, id актива резолвится
// по символу на вставке. Либо фиксируется весь пакет, либо ничего.
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
			`INSERT INTO users (id) VALUES (?) ON CONFLICT(id) DO NOTHING`, t.UserID); err != nil {
			return nil, err
		}
		if _, err := dbTx.ExecContext(ctx,
			`INSERT INTO assets (symbol) VALUES (?) ON CONFLICT(symbol) DO NOTHING`, symbol); err != nil {
			return nil, err
		}
	}

	ids := make([]int64, 0, len(txs))
	for _, t := range txs {
		symbol := strings.ToUpper(strings.TrimSpace(t.AssetSymbol))
		res, err := dbTx.ExecContext(ctx, `
			INSERT INTO transactions (created_at, price, amount, asset_id, user_id)
			SELECT ?, ?, ?, a.id, ?
			FROM assets a WHERE a.symbol = ?`,
			t.CreatedAt, t.Price, t.Amount, t.UserID, symbol)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected != 1 {
			return nil, fmt.Errorf("asset %s was not resolved", symbol)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := dbTx.Commit(); err != nil {
		return nil, err
	}

	logrus.WithField("count", len(ids)).Debug("transactions inserted")
	return ids, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	return err
}

func (s *Store) DeleteAllByUser(ctx context.Context, userID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE user_id = ?`, userID)
	if err != nil {
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected > 0 {
		logrus.WithFields(logrus.Fields{
			"user_id": userID,
			"count":   affected,
		}).Debug("transactions deleted")
	}
	return nil
}

func (s *Store) CheckOwnership(ctx context.Context, id, userID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM transactions WHERE id = ? AND user_id = ?)`,
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
		WHERE t.user_id = ?
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

// AppendPrices добавляет пакет цен атомарно, создавая недостающие активы
// в той же транзакции БД.
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
			`INSERT INTO assets (symbol) VALUES (?) ON CONFLICT(symbol) DO NOTHING`, symbol); err != nil {
			return err
		}
		res, err := dbTx.ExecContext(ctx, `
			INSERT INTO prices (created_at, value, asset_id)
			SELECT ?, ?, a.id
			FROM assets a WHERE a.symbol = ?`,
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

	if err := dbTx.Commit(); err != nil {
		return err
	}

	logrus.WithField("count", len(qs)).Debug("prices appended")
	return nil
}

func (s *Store) LatestPrice(ctx context.Context, symbol string) (float64, bool, error) {
	var value float64
	err := s.db.QueryRowContext(ctx, `
		SELECT p.value
		FROM prices p
		JOIN assets a ON a.id = p.asset_id
		WHERE a.symbol = ?
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

// LatestPrices возвращает последнюю цену каждого актива одним запросом.
// При равных created_at побеждает строка с большим id.
func (s *Store) LatestPrices(ctx context.Context) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.symbol, p.value
		FROM prices p
		JOIN assets a ON a.id = p.asset_id
		WHERE p.id = (
			SELECT p2.id FROM prices p2
			WHERE p2.asset_id = p.asset_id
			ORDER BY p2.created_at DESC, p2.id DESC
			LIMIT 1
		)`)
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
