package webapp

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

type ctxKey int

const userIDKey ctxKey = 0

// AuthMiddleware проверяет подпись заголовка Telegram-Data и кладет id
// пользователя в контекст запроса. Невалидная подпись отклоняется на границе,
// до бизнес-логики запрос не доходит.
func AuthMiddleware(botToken, signingKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := checkAuthorization(r.Header.Get("Telegram-Data"), botToken, signingKey)
			if err != nil {
				logrus.WithError(err).Debug("webapp auth rejected")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
		})
	}
}

// UserID возвращает id пользователя, положенный миддлварью.
func UserID(r *http.Request) int64 {
	id, _ := r.Context().Value(userIDKey).(int64)
	return id
}

// checkAuthorization валидирует init data телеграм веб-аппа: из строки
// выкидывается hash, остальные пары сортируются по ключу и склеиваются через
// перевод строки, затем сверяется HMAC-SHA256 c производным секретом.
func checkAuthorization(initData, botToken, signingKey string) (int64, error) {
	if initData == "" {
		return 0, fmt.Errorf("empty telegram-data header")
	}

	values, err := url.ParseQuery(initData)
	if err != nil {
		return 0, fmt.Errorf("parse init data: %w", err)
	}

	hash := values.Get("hash")
	if hash == "" {
		return 0, fmt.Errorf("hash is missing")
	}
	values.Del("hash")

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+values.Get(k))
	}
	dataCheckString := strings.Join(pairs, "\n")

	secret := encodeHmac([]byte(botToken), []byte(signingKey))
	expected := hex.EncodeToString(encodeHmac([]byte(dataCheckString), secret))
	if !hmac.Equal([]byte(expected), []byte(hash)) {
		return 0, fmt.Errorf("bad signature")
	}

	var user struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil {
		return 0, fmt.Errorf("parse user field: %w", err)
	}
	if user.ID == 0 {
		return 0, fmt.Errorf("user id is missing")
	}
	return user.ID, nil
}

func encodeHmac(message, key []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	return mac.Sum(nil)
}
