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
	"vetpos/internal/store"
	"vetpos/internal/xid"
)

// CreateSale posts a sale against an open drawer. Everything it writes,
// including the receipt counter, commits together or not at all.
func (s *Service) CreateSale(ctx context.Context, req domain.CreateSaleRequest) (domain.Sale, error) {
	actor, err := s.requireRole(ctx, domain.RoleAdmin, domain.RoleCashier, domain.RoleVet)
	if err != nil {
		return domain.Sale{}, err
	}

	req.DrawerID = strings.TrimSpace(req.DrawerID)
	if req.DrawerID == "" {
		s.metrics.SaleRejected()
		return domain.Sale{}, ErrNoOpenDrawer
	}
	for i := range req.Items {
		req.Items[i].InventoryItemID = strings.TrimSpace(req.Items[i].InventoryItemID)
		req.Items[i].ServiceID = strings.TrimSpace(req.Items[i].ServiceID)
		req.Items[i].Description = strings.TrimSpace(req.Items[i].Description)
	}
	if err := domain.ValidateSaleRequest(req); err != nil {
		s.metrics.SaleRejected()
		if errors.Is(err, domain.ErrTotalMismatch) {
			return domain.Sale{}, err
		}
		return domain.Sale{}, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}

	now := s.now()
	sale := domain.Sale{
		ID:            xid.New("sale"),
		ClientID:      optionalString(req.ClientID),
		PetID:         optionalString(req.PetID),
		DrawerID:      req.DrawerID,
		SubtotalCents: req.SubtotalCents,
		TaxCents:      req.TaxCents,
		DiscountCents: req.DiscountCents,
		TotalCents:    req.TotalCents,
		PaymentMethod: req.PaymentMethod,
		Status:        domain.SaleCompleted,
		Notes:         strings.TrimSpace(req.Notes),
		CreatedBy:     actor.Username,
		CreatedAt:     now,
		UpdatedAt:     now,
		Items:         make([]domain.SaleItem, 0, len(req.Items)),
	}
	for _, line := range req.Items {
		sale.Items = append(sale.Items, domain.SaleItem{
			ID:              xid.New("sitem"),
			SaleID:          sale.ID,
			InventoryItemID: optionalString(line.InventoryItemID),
			ServiceID:       optionalString(line.ServiceID),
			Description:     line.Description,
			Quantity:        line.Quantity,
			UnitPriceCents:  line.UnitPriceCents,
			TotalCents:      line.TotalCents,
		})
	}

	err = s.repo.WithinTx(ctx, func(tx store.Tx) error {
		drawer, err := tx.GetDrawerForUpdate(ctx, sale.DrawerID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrNoOpenDrawer
		}
		if err != nil {
			return err
		}
		if drawer.Status != domain.DrawerOpen {
			return ErrNoOpenDrawer
		}

		local := now.In(s.location)
		seq, err := tx.NextReceiptSequence(ctx, domain.ReceiptDay(local))
		if err != nil {
			return fmt.Errorf("next receipt number: %w", err)
		}
		sale.ReceiptNumber = domain.FormatReceiptNumber(local, seq)

		for _, item := range sale.Items {
			if !item.IsService() {
				continue
			}
			if _, err := tx.GetService(ctx, *item.ServiceID); err != nil {
				return fmt.Errorf("service %s: %w", *item.ServiceID, err)
			}
		}

		if err := tx.InsertSale(ctx, sale); err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}

		for _, item := range productLinesByItem(sale.Items) {
			stock, err := tx.GetInventoryItemForUpdate(ctx, *item.InventoryItemID)
			if err != nil {
				return fmt.Errorf("inventory item %s: %w", *item.InventoryItemID, err)
			}
			if stock.Quantity < item.Quantity {
				return fmt.Errorf("%s has %d, requested %d: %w", stock.Name, stock.Quantity, item.Quantity, store.ErrInsufficientStock)
			}
			stock.Quantity -= item.Quantity
			stock.UpdatedAt = now
			if err := tx.UpdateInventoryItem(ctx, *stock); err != nil {
				return err
			}
			if err := tx.InsertInventoryMovement(ctx, domain.InventoryMovement{
				ID:              xid.New("mov"),
				InventoryItemID: stock.ID,
				Type:            domain.MovementOut,
				Quantity:        item.Quantity,
				Reason:          domain.ReasonSale,
				SaleID:          &sale.ID,
				UserID:          actor.Username,
				CreatedAt:       now,
			}); err != nil {
				return err
			}
		}

		if sale.TotalCents == 0 {
			return nil
		}
		return tx.InsertCashTransaction(ctx, domain.CashTransaction{
			ID:          xid.New("ctx"),
			DrawerID:    drawer.ID,
			Type:        domain.TransactionSale,
			AmountCents: domain.TransactionSale.SignedAmount(sale.TotalCents),
			SaleID:      &sale.ID,
			Description: "Venta " + sale.ReceiptNumber,
			UserID:      actor.Username,
			CreatedAt:   now,
		})
	})
	if err != nil {
		s.metrics.SaleRejected()
		return domain.Sale{}, err
	}

	s.invalidate(ctx, cache.ViewSales, cache.ViewDashboard, cache.ViewInventory)
	s.metrics.SaleCompleted(string(sale.PaymentMethod), sale.TotalCents)
	s.logAudit(ctx, "sale_create", "sale", sale.ID, fmt.Sprintf("receipt=%s,total=%d,payment=%s,drawer=%s", sale.ReceiptNumber, sale.TotalCents, sale.PaymentMethod, sale.DrawerID))
	s.log.Info("sale completed",
		zap.String("sale_id", sale.ID),
		zap.String("receipt", sale.ReceiptNumber),
		zap.Int64("total_cents", sale.TotalCents),
		zap.String("actor", actor.Username))

	return sale, nil
}

// CancelSale reverses a completed sale: stock goes back with RETURN
// movements and, when a drawer is open, a REFUND is posted. The refund lands
// on the sale's own drawer if it is still open, otherwise on req.DrawerID.
func (s *Service) CancelSale(ctx context.Context, saleID string, req domain.CancelSaleRequest) (domain.CancelSaleResponse, error) {
	actor, err := s.requireRole(ctx, domain.RoleAdmin)
	if err != nil {
		return domain.CancelSaleResponse{}, err
	}
	saleID = strings.TrimSpace(saleID)
	if saleID == "" {
		return domain.CancelSaleResponse{}, invalidf("sale id is required")
	}
	fallbackDrawer := strings.TrimSpace(req.DrawerID)

	now := s.now()
	var resp domain.CancelSaleResponse
	err = s.repo.WithinTx(ctx, func(tx store.Tx) error {
		sale, err := tx.GetSaleForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.Status != domain.SaleCompleted {
			return ErrSaleNotCancellable
		}

		if err := tx.UpdateSaleStatus(ctx, sale.ID, domain.SaleCancelled, now); err != nil {
			return err
		}

		// Drawers before stock rows, same as CreateSale.
		refundDrawer, err := refundDrawerFor(ctx, tx, sale.DrawerID, fallbackDrawer)
		if err != nil {
			return err
		}

		for _, item := range productLinesByItem(sale.Items) {
			stock, err := tx.GetInventoryItemForUpdate(ctx, *item.InventoryItemID)
			if err != nil {
				return fmt.Errorf("inventory item %s: %w", *item.InventoryItemID, err)
			}
			stock.Quantity += item.Quantity
			stock.UpdatedAt = now
			if err := tx.UpdateInventoryItem(ctx, *stock); err != nil {
				return err
			}
			if err := tx.InsertInventoryMovement(ctx, domain.InventoryMovement{
				ID:              xid.New("mov"),
				InventoryItemID: stock.ID,
				Type:            domain.MovementReturn,
				Quantity:        item.Quantity,
				Reason:          domain.ReasonCancellation,
				SaleID:          &sale.ID,
				UserID:          actor.Username,
				CreatedAt:       now,
			}); err != nil {
				return err
			}
		}

		if refundDrawer == "" {
			resp.RefundSkipped = sale.TotalCents > 0
		} else if sale.TotalCents > 0 {
			if err := tx.InsertCashTransaction(ctx, domain.CashTransaction{
				ID:          xid.New("ctx"),
				DrawerID:    refundDrawer,
				Type:        domain.TransactionRefund,
				AmountCents: domain.TransactionRefund.SignedAmount(sale.TotalCents),
				SaleID:      &sale.ID,
				Description: "Cancelación " + sale.ReceiptNumber,
				UserID:      actor.Username,
				CreatedAt:   now,
			}); err != nil {
				return err
			}
			resp.RefundDrawerID = refundDrawer
		}

		updated, err := tx.GetSale(ctx, sale.ID)
		if err != nil {
			return err
		}
		resp.Sale = *updated
		return nil
	})
	if err != nil {
		return domain.CancelSaleResponse{}, err
	}

	s.invalidate(ctx, cache.ViewSales, cache.ViewDashboard, cache.ViewInventory)
	s.metrics.SaleCancelled(resp.RefundSkipped)
	detail := fmt.Sprintf("receipt=%s,total=%d,refund_drawer=%s,reason=%s", resp.Sale.ReceiptNumber, resp.Sale.TotalCents, resp.RefundDrawerID, strings.TrimSpace(req.Reason))
	if resp.RefundSkipped {
		detail += ",refund_skipped=true"
		s.log.Warn("sale cancelled without refund: no open drawer",
			zap.String("sale_id", resp.Sale.ID),
			zap.Int64("total_cents", resp.Sale.TotalCents))
	}
	s.logAudit(ctx, "sale_cancel", "sale", resp.Sale.ID, detail)

	return resp, nil
}

// productLinesByItem returns the product lines sorted by inventory item id,
// the order stock rows are locked in.
func productLinesByItem(items []domain.SaleItem) []domain.SaleItem {
	out := make([]domain.SaleItem, 0, len(items))
	for _, item := range items {
		if item.IsProduct() {
			out = append(out, item)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.SaleItem) int {
		return strings.Compare(*a.InventoryItemID, *b.InventoryItemID)
	})
	return out
}

func refundDrawerFor(ctx context.Context, tx store.Tx, candidates ...string) (string, error) {
	for _, id := range candidates {
		if id == "" {
			continue
		}
		drawer, err := tx.GetDrawerForUpdate(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return "", err
		}
		if drawer.Status == domain.DrawerOpen {
			return drawer.ID, nil
		}
	}
	return "", nil
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	if _, err := s.requireRole(ctx); err != nil {
		return domain.Sale{}, err
	}
	sale, err := s.repo.GetSale(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

const (
	maxSalesPageSize = 100
	// maxSalesPage keeps (page-1)*page_size well inside int range.
	maxSalesPage = 1_000_000
)

func (s *Service) ListSales(ctx context.Context, filter domain.SaleFilter) (domain.SaleListResponse, error) {
	if _, err := s.requireRole(ctx); err != nil {
		return domain.SaleListResponse{}, err
	}
	if filter.PaymentMethod != "" && !filter.PaymentMethod.Valid() {
		return domain.SaleListResponse{}, invalidf("unknown payment_method %q", filter.PaymentMethod)
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return domain.SaleListResponse{}, invalidf("unknown status %q", filter.Status)
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Page > maxSalesPage {
		return domain.SaleListResponse{}, invalidf("page must be <= %d", maxSalesPage)
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	if filter.PageSize > maxSalesPageSize {
		filter.PageSize = maxSalesPageSize
	}

	key := fmt.Sprintf("list:%s:%s:%s:%s:%d:%d", timeKey(filter.From), timeKey(filter.To), filter.PaymentMethod, filter.Status, filter.Page, filter.PageSize)
	var cached domain.SaleListResponse
	hit, version, lookupErr := s.views.Get(ctx, cache.ViewSales, key, &cached)
	if lookupErr == nil && hit {
		return cached, nil
	}

	sales, total, err := s.repo.ListSales(ctx, store.SaleQuery{
		From:          filter.From,
		To:            filter.To,
		PaymentMethod: filter.PaymentMethod,
		Status:        filter.Status,
		Offset:        (filter.Page - 1) * filter.PageSize,
		Limit:         filter.PageSize,
	})
	if err != nil {
		return domain.SaleListResponse{}, err
	}
	resp := domain.SaleListResponse{Sales: sales, Total: total, Page: filter.Page, PageSize: filter.PageSize}
	s.storeView(ctx, cache.ViewSales, key, version, lookupErr, resp)
	return resp, nil
}

func timeKey(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
