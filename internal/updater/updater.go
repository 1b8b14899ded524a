package updater

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"example.com/crypto-profit-bot/internal/market"
	"example.com/crypto-profit-bot/internal/storage"
)

// Updater периодически обновляет каталог цен из внешнего фида.
// Ошибка одного запуска логируется и не прерывает процесс: следующий тик
// повторяет попытку самостоятельно, без ретраев внутри запуска.
type Updater struct {
	client   *market.Client
	store    storage.PriceStore
	limit    int
	pages    int
	interval time.Duration
}

func New(client *market.Client, store storage.PriceStore, limit, pages int, interval time.Duration) *Updater {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Updater{
		client:   client,
		store:    store,
		limit:    limit,
		pages:    pages,
		interval: interval,
	}
}

// Run запускает цикл обновления до завершения контекста. Первый проход сразу.
func (u *Updater) Run(ctx context.Context) {
	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	if err := u.RunOnce(ctx); err != nil {
		logrus.WithError(err).Warn("price update failed")
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := u.RunOnce(ctx); err != nil {
				logrus.WithError(err).Warn("price update failed")
			}
		}
	}
}

// RunOnce выполняет один проход обновления: забирает все страницы топа и
// записывает их в хранилище одним атомарным пакетом.
func (u *Updater) RunOnce(ctx context.Context) error {
	logrus.Debug("price update started")

	coins, err := u.client.FetchTop(ctx, u.limit, u.pages)
	if err != nil {
		return fmt.Errorf("fetch coin top: %w", err)
	}
	if len(coins) == 0 {
		logrus.Warn("coin top is empty, nothing to update")
		return nil
	}

	now := time.Now().UTC()
	quotes := make([]storage.Quote, 0, len(coins))
	for _, coin := range coins {
		quotes = append(quotes, storage.Quote{
			Symbol: coin.Symbol,
			Value:  coin.Price,
			At:     now,
		})
	}

	if err := u.store.AppendPrices(ctx, quotes); err != nil {
		return fmt.Errorf("append prices: %w", err)
	}

	logrus.WithField("count", len(quotes)).Info("price catalog updated")
	return nil
}
