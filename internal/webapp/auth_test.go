package webapp

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"
)

const (
	testBotToken   = "12345:test-bot-token"
	testSigningKey = "WebAppData"
)

// signInitData подписывает init data тем же алгоритмом, что и телеграм клиент.
func signInitData(t *testing.T, values url.Values) string {
	t.Helper()

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+values.Get(k))
	}

	secretMac := hmac.New(sha256.New, []byte(testSigningKey))
	secretMac.Write([]byte(testBotToken))
	secret := secretMac.Sum(nil)

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(strings.Join(pairs, "\n")))
	values.Set("hash", hex.EncodeToString(mac.Sum(nil)))

	return values.Encode()
}

func authRequest(telegramData string) (*httptest.ResponseRecorder, int64) {
	var gotUserID int64
	handler := AuthMiddleware(testBotToken, testSigningKey)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUserID = UserID(r)
			w.WriteHeader(http.StatusOK)
		}))

	req := httptest.NewRequest(http.MethodGet, "/api/general", nil)
	if telegramData != "" {
		req.Header.Set("Telegram-Data", telegramData)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, gotUserID
}

func TestAuthMiddlewareValidSignature(t *testing.T) {
	values := url.Values{}
	values.Set("user", `{"id":42,"first_name":"Test"}`)
	values.Set("auth_date", "1733220000")
	values.Set("query_id", "AAF-test")

	rec, userID := authRequest(signInitData(t, values))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if userID != 42 {
		t.Errorf("expected user id 42, got %d", userID)
	}
}

func TestAuthMiddlewareTamperedData(t *testing.T) {
	values := url.Values{}
	values.Set("user", `{"id":42}`)
	values.Set("auth_date", "1733220000")

	signed := signInitData(t, values)
	// Подмена id после подписи
	tampered := strings.Replace(signed, "42", "43", 1)

	rec, _ := authRequest(tampered)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for tampered data, got %d", rec.Code)
	}
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	rec, _ := authRequest("")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing header, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected json error body, got %s", ct)
	}
}

func TestAuthMiddlewareMissingHash(t *testing.T) {
	values := url.Values{}
	values.Set("user", `{"id":42}`)

	rec, _ := authRequest(values.Encode())
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing hash, got %d", rec.Code)
	}
}

func TestAuthMiddlewareWrongToken(t *testing.T) {
	values := url.Values{}
	values.Set("user", `{"id":42}`)
	signed := signInitData(t, values)

	handler := AuthMiddleware("other:token", testSigningKey)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	req := httptest.NewRequest(http.MethodGet, "/api/general", nil)
	req.Header.Set("Telegram-Data", signed)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong bot token, got %d", rec.Code)
	}
}
