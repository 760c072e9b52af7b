package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"vetpos/internal/domain"
	"vetpos/internal/service"
	"vetpos/internal/store"
)

func TestMiddlewareSetsSecurityHeaders(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	if got := res.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected X-Content-Type-Options nosniff, got %q", got)
	}
	if got := res.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("expected X-Frame-Options DENY, got %q", got)
	}
	if got := res.Header().Get("Referrer-Policy"); got == "" {
		t.Fatalf("expected Referrer-Policy to be set")
	}
	if got := res.Header().Get("X-Request-Id"); got != "" {
		t.Fatalf("request id must not leak as a response header, got %q", got)
	}
}

func TestPreflightReturnsNoContent(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/sales", nil)
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", res.Code)
	}
	if got := res.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "DELETE") {
		t.Fatalf("expected DELETE in allowed methods, got %q", got)
	}
}

func TestLoginRateLimitReturns429(t *testing.T) {
	api := newTestAPI(t)
	body, _ := json.Marshal(domain.LoginRequest{Username: "admin", Password: "wrong-pass"})

	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "127.0.0.1:5000"
		res := httptest.NewRecorder()

		api.Handler().ServeHTTP(res, req)

		if i < 5 && res.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d expected 401 before limit, got %d", i+1, res.Code)
		}
		if i == 5 && res.Code != http.StatusTooManyRequests {
			t.Fatalf("attempt 6 expected 429, got %d", res.Code)
		}
	}

	// Other clients keep their own budget.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "10.0.0.7:5000"
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a different client, got %d", res.Code)
	}
}

func TestJSONBodyTooLargeRejected(t *testing.T) {
	api := newTestAPI(t)
	veryLong := strings.Repeat("a", (1<<20)+1024)
	body := fmt.Sprintf(`{"username":"%s","password":"x"}`, veryLong)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for too large body, got %d", res.Code)
	}
}

func TestUnknownFieldsRejected(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := login(t, handler, "cashier", "cashier123")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/drawers", strings.NewReader(`{"terminal_id":"caja-1","float":100}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()

	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", res.Code)
	}
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions", nil)
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["success"] != false {
		t.Fatalf("expected success=false, got %v", body)
	}
}

func TestInternalErrorsStayGeneric(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	api := New(nil, nil, Options{Logger: zap.New(core)})

	res := httptest.NewRecorder()
	api.writeServiceError(res, errors.New("pq: relation \"sales\" does not exist"))

	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.Code)
	}
	if strings.Contains(res.Body.String(), "relation") {
		t.Fatalf("internal error detail leaked: %s", res.Body.String())
	}
	entries := logs.FilterMessage("internal error").All()
	if len(entries) != 1 {
		t.Fatalf("expected the cause on the API logger, got %d entries", len(entries))
	}
	if got := entries[0].ContextMap()["error"]; !strings.Contains(fmt.Sprint(got), "relation") {
		t.Fatalf("expected logged cause, got %v", got)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: quantity must be positive", store.ErrInvalidInput), http.StatusBadRequest},
		{service.ErrTotalMismatch, http.StatusBadRequest},
		{service.ErrUnauthenticated, http.StatusUnauthorized},
		{service.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("sale: %w", store.ErrNotFound), http.StatusNotFound},
		{service.ErrNoOpenDrawer, http.StatusConflict},
		{service.ErrDrawerNotOpen, http.StatusConflict},
		{service.ErrDrawerAlreadyOpen, http.StatusConflict},
		{service.ErrDrawerNotClosed, http.StatusConflict},
		{service.ErrSaleNotCancellable, http.StatusConflict},
		{store.ErrInsufficientStock, http.StatusConflict},
		{store.ErrConflict, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Fatalf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestParsePositiveLimit(t *testing.T) {
	if got := parsePositiveLimit("", 50, 200); got != 50 {
		t.Fatalf("expected fallback 50, got %d", got)
	}
	if got := parsePositiveLimit("-3", 50, 200); got != 50 {
		t.Fatalf("expected fallback for negative, got %d", got)
	}
	if got := parsePositiveLimit(" 20 ", 50, 200); got != 20 {
		t.Fatalf("expected 20, got %d", got)
	}
	if got := parsePositiveLimit("1000", 50, 200); got != 200 {
		t.Fatalf("expected cap 200, got %d", got)
	}
}
