package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"vetpos/internal/cache"
	"vetpos/internal/domain"
	"vetpos/internal/metrics"
	"vetpos/internal/store"
	"vetpos/internal/xid"
)

var (
	ErrUnauthenticated    = errors.New("authentication required")
	ErrForbidden          = errors.New("insufficient role")
	ErrNoOpenDrawer       = errors.New("no open cash drawer")
	ErrDrawerNotOpen      = errors.New("cash drawer is not open")
	ErrDrawerAlreadyOpen  = errors.New("terminal already has an open cash drawer")
	ErrDrawerNotClosed    = errors.New("only closed drawers can be reconciled")
	ErrSaleNotCancellable = errors.New("only completed sales can be cancelled")
	ErrTotalMismatch      = domain.ErrTotalMismatch
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo     store.Repository
	views    cache.ViewCache
	viewTTL  time.Duration
	metrics  *metrics.Metrics
	log      *zap.Logger
	location *time.Location
	now      func() time.Time
}

type Options struct {
	Views    cache.ViewCache
	ViewTTL  time.Duration
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
	Location *time.Location
}

func New(repo store.Repository, opts Options) *Service {
	if opts.Views == nil {
		opts.Views = cache.NoopViewCache{}
	}
	if opts.ViewTTL <= 0 {
		opts.ViewTTL = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	return &Service{
		repo:     repo,
		views:    opts.Views,
		viewTTL:  opts.ViewTTL,
		metrics:  opts.Metrics,
		log:      opts.Logger,
		location: opts.Location,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Location is the clinic timezone used for receipt days and daily reports.
func (s *Service) Location() *time.Location {
	return s.location
}

func (s *Service) requireRole(ctx context.Context, roles ...domain.Role) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || strings.TrimSpace(actor.Username) == "" {
		return domain.Actor{}, ErrUnauthenticated
	}
	if len(roles) > 0 && !slices.Contains(roles, actor.Role) {
		return domain.Actor{}, ErrForbidden
	}
	return actor, nil
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", store.ErrInvalidInput, fmt.Sprintf(format, args...))
}

// invalidate drops cached views after a committed write. Failures only cost
// freshness, so they are logged and swallowed.
func (s *Service) invalidate(ctx context.Context, namespaces ...string) {
	if err := s.views.Invalidate(ctx, namespaces...); err != nil {
		s.log.Warn("view cache invalidation failed", zap.Strings("views", namespaces), zap.Error(err))
	}
}

// storeView caches value under the version its lookup saw. A failed lookup
// leaves the cache alone.
func (s *Service) storeView(ctx context.Context, namespace string, key string, version cache.Version, lookupErr error, value any) {
	if lookupErr != nil {
		return
	}
	if err := s.views.Set(ctx, namespace, key, version, value, s.viewTTL); err != nil {
		s.log.Warn("view cache write failed", zap.String("view", namespace), zap.Error(err))
	}
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUsername: actor.Username,
		ActorRole:     string(actor.Role),
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     s.now(),
	}); err != nil {
		s.log.Warn("audit log write failed",
			zap.String("action", action),
			zap.String("entity", entityType+"/"+entityID),
			zap.Error(err))
	}
}

func (s *Service) ListAuditLogs(ctx context.Context, date string, limit int) ([]domain.AuditLog, error) {
	if _, err := s.requireRole(ctx, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}

	q := store.AuditQuery{Limit: limit}
	if strings.TrimSpace(date) == "" {
		q.From = s.now().Add(-24 * time.Hour)
	} else {
		from, to, err := s.dayBounds(date)
		if err != nil {
			return nil, err
		}
		q.From, q.To = from, to
	}
	return s.repo.ListAuditLogs(ctx, q)
}

// dayBounds resolves a YYYY-MM-DD date (today when empty) to the half-open
// UTC interval covering that calendar day in the clinic timezone.
func (s *Service) dayBounds(date string) (time.Time, time.Time, error) {
	var day time.Time
	if strings.TrimSpace(date) == "" {
		now := s.now().In(s.location)
		day = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
	} else {
		parsed, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(date), s.location)
		if err != nil {
			return time.Time{}, time.Time{}, invalidf("date must be YYYY-MM-DD")
		}
		day = parsed
	}
	return day.UTC(), day.AddDate(0, 0, 1).UTC(), nil
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
