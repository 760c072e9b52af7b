package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"vetpos/internal/domain"
	"vetpos/internal/metrics"
	"vetpos/internal/service"
	"vetpos/internal/store"
)

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	loginLimiter  *attemptLimiter
	metrics       *metrics.Metrics
	log           *zap.Logger
}

type Options struct {
	AllowedOrigin string
	Metrics       *metrics.Metrics
	Logger        *zap.Logger
}

func New(svc *service.Service, auth *AuthManager, opts Options) *API {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: opts.AllowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
		metrics:       opts.Metrics,
		log:           opts.Logger,
	}
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(a.withMiddleware)

	r.Get("/healthz", a.handleHealth)
	if a.metrics != nil {
		r.Method(http.MethodGet, "/metrics", a.metrics.Handler())
	}

	staff := []domain.Role{domain.RoleAdmin, domain.RoleCashier, domain.RoleVet}
	tills := []domain.Role{domain.RoleAdmin, domain.RoleCashier}
	admin := a.requireAuth(domain.RoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", a.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth(staff...))

			r.With(admin).Get("/users", a.handleListStaff)
			r.With(admin).Post("/users", a.handleCreateStaff)

			r.Route("/drawers", func(r chi.Router) {
				r.With(a.requireAuth(tills...)).Post("/", a.handleOpenDrawer)
				r.Get("/open", a.handleListOpenDrawers)
				r.Get("/{id}", a.handleGetDrawer)
				r.With(a.requireAuth(tills...)).Post("/{id}/close", a.handleCloseDrawer)
				r.With(admin).Post("/{id}/reconcile", a.handleReconcileDrawer)
				r.With(a.requireAuth(tills...)).Post("/{id}/transactions", a.handleCashMovement)
			})

			r.Route("/sales", func(r chi.Router) {
				r.Post("/", a.handleCreateSale)
				r.Get("/", a.handleListSales)
				r.With(admin).Get("/export.xlsx", a.handleExportSales)
				r.Get("/{id}", a.handleGetSale)
				r.With(admin).Post("/{id}/cancel", a.handleCancelSale)
			})

			r.Get("/dashboard", a.handleDashboard)
			r.With(admin).Get("/reports/daily", a.handleDailyReport)
			r.With(admin).Get("/audit-logs", a.handleAuditLogs)

			r.Route("/inventory", func(r chi.Router) {
				r.Get("/", a.handleListInventory)
				r.With(admin).Post("/", a.handleCreateInventoryItem)
				r.Get("/alerts", a.handleInventoryAlerts)
				r.With(admin).Post("/price-adjustments/preview", a.handlePreviewPriceAdjustment)
				r.With(admin).Put("/price-adjustments", a.handleApplyPriceAdjustment)
				r.Get("/{id}", a.handleGetInventoryItem)
				r.With(admin).Put("/{id}", a.handleUpdateInventoryItem)
				r.With(admin).Patch("/{id}/price", a.handleUpdateInventoryPrice)
				r.Get("/{id}/movements", a.handleListMovements)
			})

			r.Route("/services", func(r chi.Router) {
				r.Get("/", a.handleListServices)
				r.With(admin).Post("/", a.handleCreateService)
				r.Get("/{id}", a.handleGetService)
				r.With(admin).Put("/{id}", a.handleUpdateService)
				r.With(admin).Delete("/{id}", a.handleDeactivateService)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		a.writeError(w, http.StatusNotFound, errors.New("route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		a.writeMethodNotAllowed(w)
	})
	return r
}

// requireAuth authenticates the bearer token and, when roles are given,
// rejects actors outside them.
func (a *API) requireAuth(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := service.ActorFromContext(r.Context())
			if !ok {
				authorization := strings.TrimSpace(r.Header.Get("Authorization"))
				if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
					a.writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
					return
				}
				token := strings.TrimSpace(authorization[len("Bearer "):])
				parsed, err := a.auth.ParseToken(token)
				if err != nil {
					a.writeError(w, http.StatusUnauthorized, err)
					return
				}
				actor = parsed
				r = r.WithContext(service.WithActor(r.Context(), actor))
			}

			if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
				a.writeError(w, http.StatusForbidden, errors.New("forbidden role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isRoleAllowed(role domain.Role, allowed []domain.Role) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if (r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut) && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		elapsed := time.Since(startedAt)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		a.metrics.ObserveHTTP(r.Method, route, status, elapsed)
		a.log.Info("request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// statusFor maps service and store errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrInvalidInput), errors.Is(err, service.ErrTotalMismatch):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNoOpenDrawer),
		errors.Is(err, service.ErrDrawerNotOpen),
		errors.Is(err, service.ErrDrawerAlreadyOpen),
		errors.Is(err, service.ErrDrawerNotClosed),
		errors.Is(err, service.ErrSaleNotCancellable),
		errors.Is(err, store.ErrInsufficientStock),
		errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func (a *API) writeMethodNotAllowed(w http.ResponseWriter) {
	a.writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	a.writeError(w, statusFor(err), err)
}

func (a *API) writeError(w http.ResponseWriter, status int, err error) {
	// 5xx bodies stay generic; the cause goes to the log only.
	msg := err.Error()
	if status >= 500 {
		a.log.Error("internal error", zap.Int("status", status), zap.Error(err))
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   msg,
	})
}

func writeSuccess(w http.ResponseWriter, status int, fields map[string]any) {
	if fields == nil {
		fields = map[string]any{}
	}
	fields["success"] = true
	writeJSON(w, status, fields)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
