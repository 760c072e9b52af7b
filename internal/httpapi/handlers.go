package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"vetpos/internal/domain"
	"vetpos/internal/service"
)

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.loginLimiter.Allow(clientKey(r)) {
		a.writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, errInvalidCredentials) || errors.Is(err, errInactiveAccount) {
			a.writeError(w, http.StatusUnauthorized, err)
			return
		}
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"access_token": resp.AccessToken,
		"role":         resp.Role,
		"expires_at":   resp.ExpiresAt,
	})
}

func (a *API) handleCreateStaff(w http.ResponseWriter, r *http.Request) {
	var req domain.StaffCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := a.auth.CreateStaff(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]any{"user": user})
}

func (a *API) handleListStaff(w http.ResponseWriter, r *http.Request) {
	users, err := a.auth.ListStaff(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"users": users})
}

func (a *API) handleOpenDrawer(w http.ResponseWriter, r *http.Request) {
	var req domain.OpenDrawerRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	drawer, err := a.service.OpenDrawer(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]any{"drawer": drawer})
}

func (a *API) handleListOpenDrawers(w http.ResponseWriter, r *http.Request) {
	drawers, err := a.service.ListOpenDrawers(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"drawers": drawers})
}

func (a *API) handleGetDrawer(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.GetDrawer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"drawer":        view.Drawer,
		"balance_cents": view.BalanceCents,
		"transactions":  view.Transactions,
	})
}

func (a *API) handleCloseDrawer(w http.ResponseWriter, r *http.Request) {
	var req domain.CloseDrawerRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := a.service.CloseDrawer(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"drawer":         resp.Drawer,
		"expected_cents": resp.ExpectedCents,
		"counted_cents":  resp.CountedCents,
		"variance_cents": resp.VarianceCents,
	})
}

func (a *API) handleReconcileDrawer(w http.ResponseWriter, r *http.Request) {
	drawer, err := a.service.ReconcileDrawer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"drawer": drawer})
}

func (a *API) handleCashMovement(w http.ResponseWriter, r *http.Request) {
	var req domain.CashMovementRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	txn, err := a.service.RecordCashMovement(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]any{"transaction": txn})
}

func (a *API) handleCreateSale(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateSaleRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	sale, err := a.service.CreateSale(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]any{
		"sale_id":        sale.ID,
		"receipt_number": sale.ReceiptNumber,
		"sale":           sale,
	})
}

func (a *API) handleListSales(w http.ResponseWriter, r *http.Request) {
	filter, err := a.saleFilterFromQuery(r)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := a.service.ListSales(r.Context(), filter)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"sales":     resp.Sales,
		"total":     resp.Total,
		"page":      resp.Page,
		"page_size": resp.PageSize,
	})
}

func (a *API) handleExportSales(w http.ResponseWriter, r *http.Request) {
	filter, err := a.saleFilterFromQuery(r)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	var buf bytes.Buffer
	if err := a.service.ExportSalesXLSX(r.Context(), filter, &buf); err != nil {
		a.writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"ventas-%s.xlsx\"", time.Now().In(a.service.Location()).Format("20060102")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (a *API) handleGetSale(w http.ResponseWriter, r *http.Request) {
	sale, err := a.service.GetSale(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"sale": sale})
}

func (a *API) handleCancelSale(w http.ResponseWriter, r *http.Request) {
	var req domain.CancelSaleRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	resp, err := a.service.CancelSale(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"sale":             resp.Sale,
		"refund_drawer_id": resp.RefundDrawerID,
		"refund_skipped":   resp.RefundSkipped,
	})
}

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := a.service.Dashboard(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"dashboard": dash})
}

func (a *API) handleDailyReport(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))

	report, err := a.service.DailyReport(r.Context(), date)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	switch format {
	case "csv":
		var buf bytes.Buffer
		if err := service.WriteDailyReportCSV(&buf, report); err != nil {
			a.writeServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"daily-report-%s.csv\"", report.Date))
		_, _ = w.Write(buf.Bytes())
	default:
		writeSuccess(w, http.StatusOK, map[string]any{"report": report})
	}
}

func (a *API) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 100, 500)

	logs, err := a.service.ListAuditLogs(r.Context(), date, limit)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"logs": logs})
}

func (a *API) handleListInventory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	includeInactive, _ := strconv.ParseBool(q.Get("include_inactive"))
	items, err := a.service.ListInventory(r.Context(), domain.InventoryFilter{
		Category:        domain.InventoryCategory(strings.ToUpper(strings.TrimSpace(q.Get("category")))),
		Status:          domain.InventoryStatus(strings.ToUpper(strings.TrimSpace(q.Get("status")))),
		Search:          q.Get("search"),
		IncludeInactive: includeInactive,
	})
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) handleCreateInventoryItem(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateInventoryItemRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	item, err := a.service.CreateInventoryItem(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]any{"item": item})
}

func (a *API) handleGetInventoryItem(w http.ResponseWriter, r *http.Request) {
	item, err := a.service.GetInventoryItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"item": item})
}

func (a *API) handleUpdateInventoryItem(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateInventoryItemRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	item, err := a.service.UpdateInventoryItem(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"item": item})
}

func (a *API) handleUpdateInventoryPrice(w http.ResponseWriter, r *http.Request) {
	var req domain.InventoryPriceUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	item, err := a.service.UpdateInventoryPrice(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"item": item})
}

func (a *API) handleListMovements(w http.ResponseWriter, r *http.Request) {
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 100, 500)
	movements, err := a.service.ListMovements(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"movements": movements})
}

func (a *API) handleInventoryAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := a.service.InventoryAlerts(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"alerts": alerts})
}

func (a *API) handlePreviewPriceAdjustment(w http.ResponseWriter, r *http.Request) {
	var req domain.PriceAdjustmentRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := a.service.PreviewPriceAdjustment(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"adjustment": result})
}

func (a *API) handleApplyPriceAdjustment(w http.ResponseWriter, r *http.Request) {
	var req domain.PriceAdjustmentRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := a.service.ApplyPriceAdjustment(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"adjustment": result})
}

func (a *API) handleListServices(w http.ResponseWriter, r *http.Request) {
	includeInactive, _ := strconv.ParseBool(r.URL.Query().Get("include_inactive"))
	services, err := a.service.ListServices(r.Context(), includeInactive)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"services": services})
}

func (a *API) handleCreateService(w http.ResponseWriter, r *http.Request) {
	var req domain.ServiceCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	svc, err := a.service.CreateService(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]any{"service": svc})
}

func (a *API) handleGetService(w http.ResponseWriter, r *http.Request) {
	svc, err := a.service.GetService(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"service": svc})
}

func (a *API) handleUpdateService(w http.ResponseWriter, r *http.Request) {
	var req domain.ServiceUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	svc, err := a.service.UpdateService(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"service": svc})
}

func (a *API) handleDeactivateService(w http.ResponseWriter, r *http.Request) {
	svc, err := a.service.DeactivateService(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"service": svc})
}

// saleFilterFromQuery reads from/to as clinic-local dates (YYYY-MM-DD, to is
// inclusive) or RFC3339 instants, plus payment_method, status, page and
// page_size.
func (a *API) saleFilterFromQuery(r *http.Request) (domain.SaleFilter, error) {
	q := r.URL.Query()
	loc := a.service.Location()

	from, err := parseTimeParam(q.Get("from"), loc, false)
	if err != nil {
		return domain.SaleFilter{}, fmt.Errorf("from: %w", err)
	}
	to, err := parseTimeParam(q.Get("to"), loc, true)
	if err != nil {
		return domain.SaleFilter{}, fmt.Errorf("to: %w", err)
	}

	return domain.SaleFilter{
		From:          from,
		To:            to,
		PaymentMethod: domain.PaymentMethod(strings.ToUpper(strings.TrimSpace(q.Get("payment_method")))),
		Status:        domain.SaleStatus(strings.ToUpper(strings.TrimSpace(q.Get("status")))),
		Page:          parsePositiveLimit(q.Get("page"), 1, 0),
		PageSize:      parsePositiveLimit(q.Get("page_size"), 20, 100),
	}, nil
}

func parseTimeParam(raw string, loc *time.Location, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	day, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		return nil, errors.New("expected YYYY-MM-DD or RFC3339")
	}
	if endOfDay {
		day = day.AddDate(0, 0, 1)
	}
	day = day.UTC()
	return &day, nil
}
