package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultBaseURL = "https://min-api.cryptocompare.com"

// Coin символ и текущая цена в USD.
type Coin struct {
	Symbol string
	Price  float64
}

// topResponse описывает ответ CryptoCompare /data/top/mktcapfull
type topResponse struct {
	Message string    `json:"Message"`
	Data    []topCoin `json:"Data"`
}

type topCoin struct {
	CoinInfo struct {
		Name string `json:"Name"`
	} `json:"CoinInfo"`
	// RAW отсутствует у монет без рыночных данных
	Raw *struct {
		USD struct {
			Price float64 `json:"PRICE"`
		} `json:"USD"`
	} `json:"RAW"`
}

// Client клиент CryptoCompare для получения топа монет по капитализации.
type Client struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

func NewClient(apiKey string) *Client {
	return &Client{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
	}
}

// NewClientWithBaseURL используется в тестах для подмены адреса API.
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	c := NewClient(apiKey)
	c.baseURL = baseURL
	return c
}

// FetchTopPage получает одну страницу топа монет. Монеты без цены отфильтровываются.
func (c *Client) FetchTopPage(ctx context.Context, limit, page int) ([]Coin, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("page", strconv.Itoa(page))
	q.Set("tsym", "USD")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/data/top/mktcapfull?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("authorization", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("cryptocompare http status %d", resp.StatusCode)
	}

	var response topResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	coins := make([]Coin, 0, len(response.Data))
	for _, entry := range response.Data {
		if entry.Raw == nil || entry.Raw.USD.Price == 0 {
			logrus.WithField("symbol", entry.CoinInfo.Name).Debug("coin without price skipped")
			continue
		}
		coins = append(coins, Coin{
			Symbol: entry.CoinInfo.Name,
			Price:  entry.Raw.USD.Price,
		})
	}

	logrus.WithFields(logrus.Fields{
		"page":  page,
		"count": len(coins),
	}).Debug("cryptocompare page fetched")

	return coins, nil
}

// FetchTop получает pages страниц топа по limit монет и склеивает результат.
func (c *Client) FetchTop(ctx context.Context, limit, pages int) ([]Coin, error) {
	var result []Coin
	for page := 0; page < pages; page++ {
		coins, err := c.FetchTopPage(ctx, limit, page)
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", page, err)
		}
		result = append(result, coins...)
	}
	return result, nil
}
