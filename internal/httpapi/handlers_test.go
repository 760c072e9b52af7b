package httpapi

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vetpos/internal/domain"
	"vetpos/internal/metrics"
	"vetpos/internal/service"
	"vetpos/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	m := metrics.New()
	svc := service.New(repo, service.Options{Metrics: m})
	auth := NewAuthManager("test-secret-key", time.Hour, repo)

	return New(svc, auth, Options{AllowedOrigin: "*", Metrics: m})
}

func doJSON(t *testing.T, handler http.Handler, method string, path string, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dest); err != nil {
		t.Fatalf("decode body: %v (body: %s)", err, rec.Body.String())
	}
}

func login(t *testing.T, handler http.Handler, username string, password string) string {
	t.Helper()
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{Username: username, Password: password})
	if rec.Code != http.StatusOK {
		t.Fatalf("%s login failed, status %d: %s", username, rec.Code, rec.Body.String())
	}
	var payload struct {
		Success     bool   `json:"success"`
		AccessToken string `json:"access_token"`
	}
	decodeBody(t, rec, &payload)
	if !payload.Success || strings.TrimSpace(payload.AccessToken) == "" {
		t.Fatalf("expected access token in login response")
	}
	return payload.AccessToken
}

func TestHandleHealth(t *testing.T) {
	handler := newTestAPI(t).Handler()

	rec := doJSON(t, handler, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	decodeBody(t, rec, &body)
	if body["ok"] != true || body["success"] != true {
		t.Fatalf("expected ok and success, got %v", body)
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	handler := newTestAPI(t).Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{Username: "admin", Password: "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var body map[string]any
	decodeBody(t, rec, &body)
	if body["success"] != false || body["error"] == "" {
		t.Fatalf("expected error envelope, got %v", body)
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	handler := newTestAPI(t).Handler()

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/inventory", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/inventory", "not-a-jwt", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with garbage token, got %d", rec.Code)
	}
}

func TestRoleGuards(t *testing.T) {
	handler := newTestAPI(t).Handler()
	vet := login(t, handler, "vet", "vet123")
	cashier := login(t, handler, "cashier", "cashier123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/drawers", vet, domain.OpenDrawerRequest{TerminalID: "caja-1"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected vet to be forbidden from opening drawers, got %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/reports/daily", cashier, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected cashier to be forbidden from reports, got %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/inventory/alerts", vet, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected vet to read alerts, got %d", rec.Code)
	}
}

func TestSaleFlowOverHTTP(t *testing.T) {
	handler := newTestAPI(t).Handler()
	admin := login(t, handler, "admin", "admin123")
	cashier := login(t, handler, "cashier", "cashier123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/drawers", cashier, domain.OpenDrawerRequest{TerminalID: "caja-1", OpeningCents: 10000})
	if rec.Code != http.StatusCreated {
		t.Fatalf("open drawer: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var opened struct {
		Drawer domain.CashDrawer `json:"drawer"`
	}
	decodeBody(t, rec, &opened)

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/drawers", cashier, domain.OpenDrawerRequest{TerminalID: "caja-1"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("second open: expected 409, got %d", rec.Code)
	}

	sale := domain.CreateSaleRequest{
		DrawerID: opened.Drawer.ID,
		Items: []domain.SaleLineRequest{
			{InventoryItemID: "inv-amoxicilina", Description: "Amoxicilina 500mg", Quantity: 2, UnitPriceCents: 2500, TotalCents: 5000},
			{ServiceID: "svc-consulta", Description: "Consulta general", Quantity: 1, UnitPriceCents: 3000, TotalCents: 3000},
		},
		SubtotalCents: 8000,
		TotalCents:    8000,
		PaymentMethod: domain.PaymentCash,
	}
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/sales", cashier, sale)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create sale: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Success       bool   `json:"success"`
		SaleID        string `json:"sale_id"`
		ReceiptNumber string `json:"receipt_number"`
	}
	decodeBody(t, rec, &created)
	if !created.Success || created.SaleID == "" || !strings.HasSuffix(created.ReceiptNumber, "-0001") {
		t.Fatalf("unexpected create sale response: %+v", created)
	}

	mismatch := sale
	mismatch.TotalCents = 1
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/sales", cashier, mismatch)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("total mismatch: expected 400, got %d", rec.Code)
	}

	noDrawer := sale
	noDrawer.DrawerID = ""
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/sales", cashier, noDrawer)
	if rec.Code != http.StatusConflict {
		t.Fatalf("no drawer: expected 409, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/drawers/"+opened.Drawer.ID, cashier, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get drawer: expected 200, got %d", rec.Code)
	}
	var drawerView struct {
		BalanceCents int64 `json:"balance_cents"`
	}
	decodeBody(t, rec, &drawerView)
	if drawerView.BalanceCents != 18000 {
		t.Fatalf("expected balance 18000, got %d", drawerView.BalanceCents)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/sales/"+created.SaleID+"/cancel", cashier, domain.CancelSaleRequest{})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("cashier cancel: expected 403, got %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/sales/"+created.SaleID+"/cancel", admin, domain.CancelSaleRequest{Reason: "cliente desistió"})
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var cancelled struct {
		Sale           domain.Sale `json:"sale"`
		RefundDrawerID string      `json:"refund_drawer_id"`
		RefundSkipped  bool        `json:"refund_skipped"`
	}
	decodeBody(t, rec, &cancelled)
	if cancelled.Sale.Status != domain.SaleCancelled || cancelled.RefundDrawerID != opened.Drawer.ID || cancelled.RefundSkipped {
		t.Fatalf("unexpected cancel response: %+v", cancelled)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/sales/"+created.SaleID+"/cancel", admin, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second cancel: expected 409, got %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/sales/sale-missing", cashier, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing sale: expected 404, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/sales?status=CANCELLED", cashier, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list sales: expected 200, got %d", rec.Code)
	}
	var listed struct {
		Total int64 `json:"total"`
	}
	decodeBody(t, rec, &listed)
	if listed.Total != 1 {
		t.Fatalf("expected 1 cancelled sale, got %d", listed.Total)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/drawers/"+opened.Drawer.ID+"/close", cashier, domain.CloseDrawerRequest{CountedCents: 10000})
	if rec.Code != http.StatusOK {
		t.Fatalf("close drawer: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var closed struct {
		VarianceCents int64 `json:"variance_cents"`
	}
	decodeBody(t, rec, &closed)
	if closed.VarianceCents != 0 {
		t.Fatalf("expected zero variance, got %d", closed.VarianceCents)
	}
}

func TestInventoryEndpoints(t *testing.T) {
	handler := newTestAPI(t).Handler()
	admin := login(t, handler, "admin", "admin123")
	vet := login(t, handler, "vet", "vet123")

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/inventory?status=out_of_stock", vet, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list inventory: expected 200, got %d", rec.Code)
	}
	var listed struct {
		Items []domain.InventoryItemView `json:"items"`
	}
	decodeBody(t, rec, &listed)
	if len(listed.Items) != 1 || listed.Items[0].ID != "inv-dieta-renal" {
		t.Fatalf("unexpected out of stock items: %+v", listed.Items)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/inventory", admin, domain.CreateInventoryItemRequest{
		Name:           "Vacuna parvovirus",
		Category:       domain.CategoryVaccine,
		Quantity:       12,
		MinStock:       4,
		PriceCents:     15000,
		CostCents:      8000,
		ExpirationDate: time.Now().AddDate(1, 0, 0).Format("2006-01-02"),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create item: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Item domain.InventoryItemView `json:"item"`
	}
	decodeBody(t, rec, &created)

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/inventory", admin, map[string]any{"name": "Sin categoría", "category": "TOYS"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad category: expected 400, got %d", rec.Code)
	}

	price := int64(16000)
	rec = doJSON(t, handler, http.MethodPatch, "/api/v1/inventory/"+created.Item.ID+"/price", admin, domain.InventoryPriceUpdateRequest{PriceCents: &price})
	if rec.Code != http.StatusOK {
		t.Fatalf("update price: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/inventory/"+created.Item.ID+"/movements", vet, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("movements: expected 200, got %d", rec.Code)
	}
	var movements struct {
		Movements []domain.InventoryMovement `json:"movements"`
	}
	decodeBody(t, rec, &movements)
	if len(movements.Movements) != 1 || movements.Movements[0].Reason != domain.ReasonInitialStock {
		t.Fatalf("unexpected movements: %+v", movements.Movements)
	}

	body := `{"category":"VACCINE","component":"both","type":"percent","direction":"decrease","value":"10"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/price-adjustments/preview", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+admin)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("preview: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var preview struct {
		Adjustment domain.PriceAdjustmentResult `json:"adjustment"`
	}
	decodeBody(t, rec, &preview)
	if preview.Adjustment.Affected != 2 || preview.Adjustment.Applied {
		t.Fatalf("unexpected preview: %+v", preview.Adjustment)
	}

	rec = doJSON(t, handler, http.MethodPut, "/api/v1/inventory/price-adjustments", vet, map[string]any{"component": "price", "type": "fixed", "direction": "increase", "value": 100})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("vet apply: expected 403, got %d", rec.Code)
	}
}

func TestServiceCatalogEndpoints(t *testing.T) {
	handler := newTestAPI(t).Handler()
	admin := login(t, handler, "admin", "admin123")
	cashier := login(t, handler, "cashier", "cashier123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/services", admin, domain.ServiceCreateRequest{Name: "Limpieza dental", Category: "odontologia", PriceCents: 90000, DurationMinutes: 90})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create service: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Service domain.Service `json:"service"`
	}
	decodeBody(t, rec, &created)
	if created.Service.Category != "ODONTOLOGIA" {
		t.Fatalf("expected upper-cased category, got %s", created.Service.Category)
	}

	rec = doJSON(t, handler, http.MethodDelete, "/api/v1/services/"+created.Service.ID, cashier, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("cashier delete: expected 403, got %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodDelete, "/api/v1/services/"+created.Service.ID, admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/services/"+created.Service.ID, cashier, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get deactivated service: expected 200, got %d", rec.Code)
	}
	var fetched struct {
		Service domain.Service `json:"service"`
	}
	decodeBody(t, rec, &fetched)
	if fetched.Service.Active {
		t.Fatalf("expected service to be inactive after delete")
	}
}

func TestDailyReportCSVAndExport(t *testing.T) {
	handler := newTestAPI(t).Handler()
	admin := login(t, handler, "admin", "admin123")

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/reports/daily?format=csv", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("csv report: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("expected csv content type, got %q", ct)
	}
	rows, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) < 2 || rows[0][0] != "metric" {
		t.Fatalf("unexpected csv: %v", rows)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/reports/daily?date=yesterday", admin, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date: expected 400, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/sales/export.xlsx?from=2025-01-01", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Fatalf("expected xlsx (zip) payload")
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/sales?from=01/01/2025", admin, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad from: expected 400, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/sales?page=9223372036854775807&page_size=100", admin, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("huge page: expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDashboardAndMetrics(t *testing.T) {
	handler := newTestAPI(t).Handler()
	cashier := login(t, handler, "cashier", "cashier123")

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/dashboard", cashier, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard: expected 200, got %d", rec.Code)
	}
	var payload struct {
		Dashboard domain.Dashboard `json:"dashboard"`
	}
	decodeBody(t, rec, &payload)
	if payload.Dashboard.LowStockItems != 1 || payload.Dashboard.OutOfStockItems != 1 {
		t.Fatalf("unexpected dashboard: %+v", payload.Dashboard)
	}

	rec = doJSON(t, handler, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `route="/api/v1/dashboard"`) {
		t.Fatalf("expected http metrics labelled by route pattern")
	}
}

func TestStaffEndpoints(t *testing.T) {
	handler := newTestAPI(t).Handler()
	admin := login(t, handler, "admin", "admin123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/users", admin, domain.StaffCreateRequest{Username: "recepcion", Password: "turno-matutino", Role: domain.RoleCashier})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create staff: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	login(t, handler, "recepcion", "turno-matutino")

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/users", admin, domain.StaffCreateRequest{Username: "recepcion", Password: "turno-matutino"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate staff: expected 409, got %d", rec.Code)
	}
}
