package webapp

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"example.com/crypto-profit-bot/internal/bot"
	"example.com/crypto-profit-bot/internal/portfolio"
	"example.com/crypto-profit-bot/internal/storage"
)

// Server HTTP вариант бота для телеграм веб-аппа: те же операции чтения
// портфеля за подписанным заголовком Telegram-Data.
type Server struct {
	svc    *portfolio.Service
	txs    storage.TransactionStore
	router chi.Router
}

func NewServer(svc *portfolio.Service, txs storage.TransactionStore, botToken, signingKey string) *Server {
	s := &Server{svc: svc, txs: txs}

	r := chi.NewRouter()
	r.Use(AuthMiddleware(botToken, signingKey))
	r.Get("/api/general", s.handleGeneral)
	r.Get("/api/positions", s.handlePositions)
	r.Get("/api/export", s.handleExport)
	s.router = r

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

type generalResponse struct {
	TotalSpent    float64 `json:"totalSpent"`
	TotalValue    float64 `json:"totalValue"`
	ProfitPercent float64 `json:"profitPercent"`
}

type positionResponse struct {
	Symbol       string   `json:"symbol"`
	HeldAmount   float64  `json:"heldAmount"`
	TotalSpent   float64  `json:"totalSpent"`
	AvgPrice     float64  `json:"avgPrice"`
	CurrentPrice *float64 `json:"currentPrice,omitempty"`
	CurrentValue *float64 `json:"currentValue,omitempty"`
}

func (s *Server) handleGeneral(w http.ResponseWriter, r *http.Request) {
	info, err := s.svc.SummaryByUser(r.Context(), UserID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "data unavailable")
		return
	}
	if info == nil {
		writeError(w, http.StatusNotFound, "no transactions")
		return
	}
	writeJSON(w, generalResponse{
		TotalSpent:    info.TotalSpent,
		TotalValue:    info.TotalValue,
		ProfitPercent: info.ProfitPercent,
	})
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	positions, err := s.svc.PositionsByUser(r.Context(), UserID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "data unavailable")
		return
	}

	out := make([]positionResponse, 0, len(positions))
	for _, p := range positions {
		resp := positionResponse{
			Symbol:     p.Symbol,
			HeldAmount: p.HeldAmount,
			TotalSpent: p.TotalSpent,
			AvgPrice:   p.AvgPrice,
		}
		if p.HasPrice {
			price, value := p.CurrentPrice, p.CurrentValue
			resp.CurrentPrice = &price
			resp.CurrentValue = &value
		}
		out = append(out, resp)
	}
	writeJSON(w, out)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	txs, err := s.txs.ListByUser(r.Context(), UserID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "data unavailable")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="export.csv"`)
	if _, err := w.Write([]byte(bot.ExportCSV(txs))); err != nil {
		logrus.WithError(err).Debug("export write failed")
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Debug("response encode failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
