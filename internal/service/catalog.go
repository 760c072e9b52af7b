package service

import (
	"context"
	"fmt"
	"strings"

	"vetpos/internal/domain"
	"vetpos/internal/store"
	"vetpos/internal/xid"
)

func (s *Service) CreateService(ctx context.Context, req domain.ServiceCreateRequest) (domain.Service, error) {
	if _, err := s.requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.Service{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Service{}, invalidf("name is required")
	}
	if req.PriceCents < 0 || req.DurationMinutes < 0 {
		return domain.Service{}, invalidf("price_cents and duration_minutes must be >= 0")
	}
	category := strings.ToUpper(strings.TrimSpace(req.Category))
	if category == "" {
		category = "GENERAL"
	}

	now := s.now()
	svc := domain.Service{
		ID:              xid.New("svc"),
		Name:            name,
		Category:        category,
		Description:     strings.TrimSpace(req.Description),
		PriceCents:      req.PriceCents,
		DurationMinutes: req.DurationMinutes,
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.CreateService(ctx, svc); err != nil {
		return domain.Service{}, err
	}
	s.logAudit(ctx, "service_create", "service", svc.ID, fmt.Sprintf("name=%s,price=%d", svc.Name, svc.PriceCents))
	return svc, nil
}

func (s *Service) UpdateService(ctx context.Context, id string, req domain.ServiceUpdateRequest) (domain.Service, error) {
	if _, err := s.requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.Service{}, err
	}

	var out domain.Service
	err := s.repo.WithinTx(ctx, func(tx store.Tx) error {
		svc, err := tx.GetService(ctx, strings.TrimSpace(id))
		if err != nil {
			return err
		}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return invalidf("name must not be empty")
			}
			svc.Name = name
		}
		if req.Category != nil {
			svc.Category = strings.ToUpper(strings.TrimSpace(*req.Category))
		}
		if req.Description != nil {
			svc.Description = strings.TrimSpace(*req.Description)
		}
		if req.PriceCents != nil {
			if *req.PriceCents < 0 {
				return invalidf("price_cents must be >= 0")
			}
			svc.PriceCents = *req.PriceCents
		}
		if req.DurationMinutes != nil {
			if *req.DurationMinutes < 0 {
				return invalidf("duration_minutes must be >= 0")
			}
			svc.DurationMinutes = *req.DurationMinutes
		}
		if req.Active != nil {
			svc.Active = *req.Active
		}
		svc.UpdatedAt = s.now()
		if err := tx.UpdateService(ctx, *svc); err != nil {
			return err
		}
		out = *svc
		return nil
	})
	if err != nil {
		return domain.Service{}, err
	}
	s.logAudit(ctx, "service_update", "service", out.ID, fmt.Sprintf("price=%d,active=%t", out.PriceCents, out.Active))
	return out, nil
}

// DeactivateService hides a service from the catalog. Rows stay so past sale
// lines keep their reference.
func (s *Service) DeactivateService(ctx context.Context, id string) (domain.Service, error) {
	inactive := false
	return s.UpdateService(ctx, id, domain.ServiceUpdateRequest{Active: &inactive})
}

func (s *Service) ListServices(ctx context.Context, includeInactive bool) ([]domain.Service, error) {
	if _, err := s.requireRole(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListServices(ctx, includeInactive)
}

func (s *Service) GetService(ctx context.Context, id string) (domain.Service, error) {
	if _, err := s.requireRole(ctx); err != nil {
		return domain.Service{}, err
	}
	svc, err := s.repo.GetService(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Service{}, err
	}
	return *svc, nil
}
