package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"vetpos/internal/cache"
	"vetpos/internal/domain"
	"vetpos/internal/store"
	"vetpos/internal/xid"
)

func (s *Service) CreateInventoryItem(ctx context.Context, req domain.CreateInventoryItemRequest) (domain.InventoryItemView, error) {
	actor, err := s.requireRole(ctx, domain.RoleAdmin)
	if err != nil {
		return domain.InventoryItemView{}, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.InventoryItemView{}, invalidf("name is required")
	}
	if !req.Category.Valid() {
		return domain.InventoryItemView{}, invalidf("unknown category %q", req.Category)
	}
	if req.Quantity < 0 || req.MinStock < 0 {
		return domain.InventoryItemView{}, invalidf("quantity and min_stock must be >= 0")
	}
	if req.PriceCents < 0 || req.CostCents < 0 {
		return domain.InventoryItemView{}, invalidf("price_cents and cost_cents must be >= 0")
	}
	expiration, err := domain.ParseExpirationDate(strings.TrimSpace(req.ExpirationDate))
	if err != nil {
		return domain.InventoryItemView{}, invalidf("%v", err)
	}

	now := s.now()
	item := domain.InventoryItem{
		ID:             xid.New("inv"),
		Name:           name,
		Category:       req.Category,
		Presentation:   strings.TrimSpace(req.Presentation),
		Quantity:       req.Quantity,
		MinStock:       req.MinStock,
		PriceCents:     req.PriceCents,
		CostCents:      req.CostCents,
		Active:         true,
		ExpirationDate: expiration,
		Location:       strings.TrimSpace(req.Location),
		Batch:          strings.TrimSpace(req.Batch),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err = s.repo.WithinTx(ctx, func(tx store.Tx) error {
		if err := tx.CreateInventoryItem(ctx, item); err != nil {
			return err
		}
		if item.Quantity == 0 {
			return nil
		}
		return tx.InsertInventoryMovement(ctx, domain.InventoryMovement{
			ID:              xid.New("mov"),
			InventoryItemID: item.ID,
			Type:            domain.MovementIn,
			Quantity:        item.Quantity,
			Reason:          domain.ReasonInitialStock,
			UserID:          actor.Username,
			CreatedAt:       now,
		})
	})
	if err != nil {
		return domain.InventoryItemView{}, err
	}

	s.invalidate(ctx, cache.ViewInventory, cache.ViewDashboard)
	s.logAudit(ctx, "inventory_create", "inventory_item", item.ID, fmt.Sprintf("name=%s,qty=%d,price=%d", item.Name, item.Quantity, item.PriceCents))
	return domain.NewInventoryItemView(item, s.now().In(s.location)), nil
}

// UpdateInventoryItem applies a partial edit. A quantity change is recorded
// as an IN or OUT movement for the difference in the same transaction.
func (s *Service) UpdateInventoryItem(ctx context.Context, id string, req domain.UpdateInventoryItemRequest) (domain.InventoryItemView, error) {
	actor, err := s.requireRole(ctx, domain.RoleAdmin)
	if err != nil {
		return domain.InventoryItemView{}, err
	}

	now := s.now()
	var updated domain.InventoryItem
	var delta int
	err = s.repo.WithinTx(ctx, func(tx store.Tx) error {
		current, err := tx.GetInventoryItemForUpdate(ctx, strings.TrimSpace(id))
		if err != nil {
			return err
		}
		next := *current
		if err := applyInventoryUpdate(&next, req); err != nil {
			return err
		}
		next.UpdatedAt = now
		if err := tx.UpdateInventoryItem(ctx, next); err != nil {
			return err
		}

		delta = next.Quantity - current.Quantity
		if delta != 0 {
			movementType := domain.MovementIn
			qty := delta
			if delta < 0 {
				movementType = domain.MovementOut
				qty = -delta
			}
			reason := strings.TrimSpace(req.Reason)
			if reason == "" {
				reason = domain.ReasonManualAdjust
			}
			if err := tx.InsertInventoryMovement(ctx, domain.InventoryMovement{
				ID:              xid.New("mov"),
				InventoryItemID: next.ID,
				Type:            movementType,
				Quantity:        qty,
				Reason:          reason,
				UserID:          actor.Username,
				CreatedAt:       now,
			}); err != nil {
				return err
			}
		}
		updated = next
		return nil
	})
	if err != nil {
		return domain.InventoryItemView{}, err
	}

	s.invalidate(ctx, cache.ViewInventory, cache.ViewDashboard)
	s.logAudit(ctx, "inventory_update", "inventory_item", updated.ID, fmt.Sprintf("qty_delta=%d", delta))
	return domain.NewInventoryItemView(updated, s.now().In(s.location)), nil
}

func applyInventoryUpdate(item *domain.InventoryItem, req domain.UpdateInventoryItemRequest) error {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return invalidf("name must not be empty")
		}
		item.Name = name
	}
	if req.Category != nil {
		if !req.Category.Valid() {
			return invalidf("unknown category %q", *req.Category)
		}
		item.Category = *req.Category
	}
	if req.Presentation != nil {
		item.Presentation = strings.TrimSpace(*req.Presentation)
	}
	if req.Quantity != nil {
		if *req.Quantity < 0 {
			return invalidf("quantity must be >= 0")
		}
		item.Quantity = *req.Quantity
	}
	if req.MinStock != nil {
		if *req.MinStock < 0 {
			return invalidf("min_stock must be >= 0")
		}
		item.MinStock = *req.MinStock
	}
	if req.PriceCents != nil {
		if *req.PriceCents < 0 {
			return invalidf("price_cents must be >= 0")
		}
		item.PriceCents = *req.PriceCents
	}
	if req.CostCents != nil {
		if *req.CostCents < 0 {
			return invalidf("cost_cents must be >= 0")
		}
		item.CostCents = *req.CostCents
	}
	if req.Active != nil {
		item.Active = *req.Active
	}
	if req.ExpirationDate != nil {
		expiration, err := domain.ParseExpirationDate(strings.TrimSpace(*req.ExpirationDate))
		if err != nil {
			return invalidf("%v", err)
		}
		item.ExpirationDate = expiration
	}
	if req.Location != nil {
		item.Location = strings.TrimSpace(*req.Location)
	}
	if req.Batch != nil {
		item.Batch = strings.TrimSpace(*req.Batch)
	}
	return nil
}

func (s *Service) UpdateInventoryPrice(ctx context.Context, id string, req domain.InventoryPriceUpdateRequest) (domain.InventoryItemView, error) {
	if req.PriceCents == nil && req.CostCents == nil {
		return domain.InventoryItemView{}, invalidf("price_cents or cost_cents is required")
	}
	return s.UpdateInventoryItem(ctx, id, domain.UpdateInventoryItemRequest{
		PriceCents: req.PriceCents,
		CostCents:  req.CostCents,
	})
}

func (s *Service) PreviewPriceAdjustment(ctx context.Context, req domain.PriceAdjustmentRequest) (domain.PriceAdjustmentResult, error) {
	if _, err := s.requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.PriceAdjustmentResult{}, err
	}
	spec, err := adjustmentSpec(req)
	if err != nil {
		return domain.PriceAdjustmentResult{}, err
	}
	items, err := s.repo.ListInventoryItems(ctx, store.InventoryQuery{Category: req.Category})
	if err != nil {
		return domain.PriceAdjustmentResult{}, err
	}
	result, _, err := summarizeAdjustment(items, req.Component, spec)
	if err != nil {
		return domain.PriceAdjustmentResult{}, err
	}
	return result, nil
}

// ApplyPriceAdjustment rewrites every selected row in one transaction using
// the same arithmetic as PreviewPriceAdjustment.
func (s *Service) ApplyPriceAdjustment(ctx context.Context, req domain.PriceAdjustmentRequest) (domain.PriceAdjustmentResult, error) {
	if _, err := s.requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.PriceAdjustmentResult{}, err
	}
	spec, err := adjustmentSpec(req)
	if err != nil {
		return domain.PriceAdjustmentResult{}, err
	}

	now := s.now()
	var result domain.PriceAdjustmentResult
	err = s.repo.WithinTx(ctx, func(tx store.Tx) error {
		items, err := tx.ListInventoryItems(ctx, store.InventoryQuery{Category: req.Category})
		if err != nil {
			return err
		}
		var adjusted []domain.InventoryItem
		result, adjusted, err = summarizeAdjustment(items, req.Component, spec)
		if err != nil {
			return err
		}
		for _, item := range adjusted {
			if err := tx.UpdateInventoryPricing(ctx, item.ID, item.PriceCents, item.CostCents, now); err != nil {
				return fmt.Errorf("adjust %s: %w", item.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return domain.PriceAdjustmentResult{}, err
	}
	result.Applied = true

	s.invalidate(ctx, cache.ViewInventory, cache.ViewDashboard)
	s.metrics.PriceAdjusted(result.Affected)
	category := string(req.Category)
	if category == "" {
		category = "ALL"
	}
	s.logAudit(ctx, "inventory_price_adjust", "inventory", category, fmt.Sprintf("component=%s,type=%s,direction=%s,value=%s,affected=%d", req.Component, req.Type, req.Direction, req.Value.String(), result.Affected))
	return result, nil
}

func adjustmentSpec(req domain.PriceAdjustmentRequest) (domain.AdjustmentSpec, error) {
	if !req.Component.Valid() {
		return domain.AdjustmentSpec{}, invalidf("component must be price, cost or both")
	}
	if req.Category != "" && !req.Category.Valid() {
		return domain.AdjustmentSpec{}, invalidf("unknown category %q", req.Category)
	}
	spec := domain.AdjustmentSpec{Type: req.Type, Direction: req.Direction, Value: req.Value}
	if err := spec.Validate(); err != nil {
		return domain.AdjustmentSpec{}, invalidf("%v", err)
	}
	return spec, nil
}

func summarizeAdjustment(items []domain.InventoryItem, component domain.PriceComponent, spec domain.AdjustmentSpec) (domain.PriceAdjustmentResult, []domain.InventoryItem, error) {
	result := domain.PriceAdjustmentResult{Affected: len(items)}
	adjusted := make([]domain.InventoryItem, 0, len(items))
	var priceBefore, priceAfter, costBefore, costAfter []int64
	for _, item := range items {
		next := item
		if component.AffectsPrice() {
			price, err := domain.AdjustPrice(item.PriceCents, spec)
			if err != nil {
				return domain.PriceAdjustmentResult{}, nil, invalidf("%s price: %v", item.ID, err)
			}
			next.PriceCents = price
			priceBefore = append(priceBefore, item.PriceCents)
			priceAfter = append(priceAfter, next.PriceCents)
		}
		if component.AffectsCost() {
			cost, err := domain.AdjustPrice(item.CostCents, spec)
			if err != nil {
				return domain.PriceAdjustmentResult{}, nil, invalidf("%s cost: %v", item.ID, err)
			}
			next.CostCents = cost
			costBefore = append(costBefore, item.CostCents)
			costAfter = append(costAfter, next.CostCents)
		}
		adjusted = append(adjusted, next)
	}
	if component.AffectsPrice() {
		result.Price = &domain.ComponentSummary{AvgBeforeCents: domain.AverageCents(priceBefore), AvgAfterCents: domain.AverageCents(priceAfter)}
	}
	if component.AffectsCost() {
		result.Cost = &domain.ComponentSummary{AvgBeforeCents: domain.AverageCents(costBefore), AvgAfterCents: domain.AverageCents(costAfter)}
	}
	return result, adjusted, nil
}

func (s *Service) ListInventory(ctx context.Context, filter domain.InventoryFilter) ([]domain.InventoryItemView, error) {
	if _, err := s.requireRole(ctx); err != nil {
		return nil, err
	}
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, invalidf("unknown category %q", filter.Category)
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, invalidf("unknown status %q", filter.Status)
	}
	if filter.Status == domain.InventoryInactive {
		filter.IncludeInactive = true
	}

	key := fmt.Sprintf("list:%s:%s:%s:%t", filter.Category, filter.Status, strings.ToLower(strings.TrimSpace(filter.Search)), filter.IncludeInactive)
	var cached []domain.InventoryItemView
	hit, version, lookupErr := s.views.Get(ctx, cache.ViewInventory, key, &cached)
	if lookupErr == nil && hit {
		return cached, nil
	}

	items, err := s.repo.ListInventoryItems(ctx, store.InventoryQuery{
		Category:        filter.Category,
		Search:          filter.Search,
		IncludeInactive: filter.IncludeInactive,
	})
	if err != nil {
		return nil, err
	}
	now := s.now().In(s.location)
	out := make([]domain.InventoryItemView, 0, len(items))
	for _, item := range items {
		view := domain.NewInventoryItemView(item, now)
		if filter.Status != "" && view.Status != filter.Status {
			continue
		}
		out = append(out, view)
	}

	s.storeView(ctx, cache.ViewInventory, key, version, lookupErr, out)
	return out, nil
}

func (s *Service) GetInventoryItem(ctx context.Context, id string) (domain.InventoryItemView, error) {
	if _, err := s.requireRole(ctx); err != nil {
		return domain.InventoryItemView{}, err
	}
	item, err := s.repo.GetInventoryItem(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.InventoryItemView{}, err
	}
	return domain.NewInventoryItemView(*item, s.now().In(s.location)), nil
}

func (s *Service) ListMovements(ctx context.Context, itemID string, limit int) ([]domain.InventoryMovement, error) {
	if _, err := s.requireRole(ctx); err != nil {
		return nil, err
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	itemID = strings.TrimSpace(itemID)
	if _, err := s.repo.GetInventoryItem(ctx, itemID); err != nil {
		return nil, err
	}
	return s.repo.ListInventoryMovements(ctx, itemID, limit)
}

func (s *Service) InventoryAlerts(ctx context.Context) ([]domain.InventoryAlert, error) {
	if _, err := s.requireRole(ctx); err != nil {
		return nil, err
	}
	return s.ScanInventoryAlerts(ctx)
}

// ScanInventoryAlerts lists active items that are low, out of stock, expired
// or expiring within the warning window. It needs no actor so scheduled jobs
// can call it.
func (s *Service) ScanInventoryAlerts(ctx context.Context) ([]domain.InventoryAlert, error) {
	items, err := s.repo.ListInventoryItems(ctx, store.InventoryQuery{})
	if err != nil {
		return nil, err
	}
	now := s.now().In(s.location)
	windowDays := int(domain.ExpiryWarningWindow / (24 * time.Hour))

	alerts := make([]domain.InventoryAlert, 0, 16)
	for _, item := range items {
		view := domain.NewInventoryItemView(item, now)
		days := domain.DaysToExpiry(item, now)
		var code string
		switch view.Status {
		case domain.InventoryExpired, domain.InventoryOutOfStock, domain.InventoryLowStock:
			code = string(view.Status)
		default:
			if days != nil && *days <= windowDays {
				code = domain.AlertExpiringSoon
			}
		}
		if code == "" {
			continue
		}
		alerts = append(alerts, domain.InventoryAlert{Item: view, Code: code, DaysToExpiry: days})
	}
	return alerts, nil
}
