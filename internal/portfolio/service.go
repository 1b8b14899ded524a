package portfolio

import (
	"context"
	"fmt"

	"example.com/crypto-profit-bot/internal/storage"
)

// Service связывает агрегатор с хранилищами. Только чтение; ошибка любого из
// хранилищ возвращается как есть, частично посчитанный результат не отдается.
type Service struct {
	txs    storage.TransactionStore
	prices storage.PriceStore
}

func NewService(txs storage.TransactionStore, prices storage.PriceStore) *Service {
	return &Service{txs: txs, prices: prices}
}

func (s *Service) PositionsByUser(ctx context.Context, userID int64) ([]Position, error) {
	txs, err := s.txs.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	prices, err := s.prices.LatestPrices(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest prices: %w", err)
	}
	return Positions(txs, prices), nil
}

func (s *Service) SummaryByUser(ctx context.Context, userID int64) (*GeneralInfo, error) {
	txs, err := s.txs.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	prices, err := s.prices.LatestPrices(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest prices: %w", err)
	}
	return Summary(txs, prices), nil
}
