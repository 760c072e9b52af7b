package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"vetpos/internal/cache"
	"vetpos/internal/domain"
	"vetpos/internal/store"
	"vetpos/internal/xid"
)

func (s *Service) OpenDrawer(ctx context.Context, req domain.OpenDrawerRequest) (domain.CashDrawer, error) {
	actor, err := s.requireRole(ctx, domain.RoleAdmin, domain.RoleCashier)
	if err != nil {
		return domain.CashDrawer{}, err
	}
	terminalID := strings.TrimSpace(req.TerminalID)
	if terminalID == "" {
		return domain.CashDrawer{}, invalidf("terminal_id is required")
	}
	if req.OpeningCents < 0 {
		return domain.CashDrawer{}, invalidf("opening_cents must be >= 0")
	}

	drawer := domain.CashDrawer{
		ID:           xid.New("drawer"),
		TerminalID:   terminalID,
		OpeningCents: req.OpeningCents,
		Status:       domain.DrawerOpen,
		OpenedBy:     actor.Username,
		OpenedAt:     s.now(),
		Notes:        strings.TrimSpace(req.Notes),
	}
	err = s.repo.WithinTx(ctx, func(tx store.Tx) error {
		if _, err := tx.FindOpenDrawer(ctx, terminalID); err == nil {
			return ErrDrawerAlreadyOpen
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if err := tx.CreateDrawer(ctx, drawer); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return ErrDrawerAlreadyOpen
			}
			return err
		}
		return nil
	})
	if err != nil {
		return domain.CashDrawer{}, err
	}

	s.invalidate(ctx, cache.ViewDashboard)
	s.metrics.DrawerEvent("open")
	s.logAudit(ctx, "drawer_open", "cash_drawer", drawer.ID, fmt.Sprintf("terminal=%s,opening=%d", terminalID, drawer.OpeningCents))
	return drawer, nil
}

// CloseDrawer records the counted cash against the expected balance. The
// drawer closes whatever the variance.
func (s *Service) CloseDrawer(ctx context.Context, drawerID string, req domain.CloseDrawerRequest) (domain.CloseDrawerResponse, error) {
	actor, err := s.requireRole(ctx, domain.RoleAdmin, domain.RoleCashier)
	if err != nil {
		return domain.CloseDrawerResponse{}, err
	}
	if req.CountedCents < 0 {
		return domain.CloseDrawerResponse{}, invalidf("counted_cents must be >= 0")
	}

	var resp domain.CloseDrawerResponse
	err = s.repo.WithinTx(ctx, func(tx store.Tx) error {
		drawer, err := tx.GetDrawerForUpdate(ctx, strings.TrimSpace(drawerID))
		if err != nil {
			return err
		}
		if drawer.Status != domain.DrawerOpen {
			return ErrDrawerNotOpen
		}
		txns, err := tx.ListCashTransactions(ctx, drawer.ID)
		if err != nil {
			return err
		}

		expected := domain.CalculateDrawerBalance(*drawer, txns)
		counted := req.CountedCents
		variance := domain.DrawerVariance(counted, expected)
		closedAt := s.now()
		closedBy := actor.Username

		drawer.Status = domain.DrawerClosed
		drawer.ClosingCents = &counted
		drawer.ExpectedCents = &expected
		drawer.VarianceCents = &variance
		drawer.ClosedBy = &closedBy
		drawer.ClosedAt = &closedAt
		if notes := strings.TrimSpace(req.Notes); notes != "" {
			drawer.Notes = strings.TrimSpace(drawer.Notes + "\n" + notes)
		}
		if err := tx.UpdateDrawer(ctx, *drawer); err != nil {
			return err
		}

		resp = domain.CloseDrawerResponse{
			Drawer:        *drawer,
			ExpectedCents: expected,
			CountedCents:  counted,
			VarianceCents: variance,
		}
		return nil
	})
	if err != nil {
		return domain.CloseDrawerResponse{}, err
	}

	s.invalidate(ctx, cache.ViewDashboard)
	s.metrics.DrawerEvent("close")
	if resp.VarianceCents != 0 {
		s.log.Info("drawer closed with variance",
			zap.String("drawer_id", resp.Drawer.ID),
			zap.Int64("expected_cents", resp.ExpectedCents),
			zap.Int64("variance_cents", resp.VarianceCents))
	}
	s.logAudit(ctx, "drawer_close", "cash_drawer", resp.Drawer.ID, fmt.Sprintf("expected=%d,counted=%d,variance=%d", resp.ExpectedCents, resp.CountedCents, resp.VarianceCents))
	return resp, nil
}

func (s *Service) ReconcileDrawer(ctx context.Context, drawerID string) (domain.CashDrawer, error) {
	if _, err := s.requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.CashDrawer{}, err
	}

	var out domain.CashDrawer
	err := s.repo.WithinTx(ctx, func(tx store.Tx) error {
		drawer, err := tx.GetDrawerForUpdate(ctx, strings.TrimSpace(drawerID))
		if err != nil {
			return err
		}
		if drawer.Status != domain.DrawerClosed {
			return ErrDrawerNotClosed
		}
		drawer.Status = domain.DrawerReconciled
		if err := tx.UpdateDrawer(ctx, *drawer); err != nil {
			return err
		}
		out = *drawer
		return nil
	})
	if err != nil {
		return domain.CashDrawer{}, err
	}

	s.metrics.DrawerEvent("reconcile")
	s.logAudit(ctx, "drawer_reconcile", "cash_drawer", out.ID, "")
	return out, nil
}

// RecordCashMovement posts a manual deposit, withdrawal or adjustment. The
// stored sign follows the transaction type, not the caller.
func (s *Service) RecordCashMovement(ctx context.Context, drawerID string, req domain.CashMovementRequest) (domain.CashTransaction, error) {
	actor, err := s.requireRole(ctx, domain.RoleAdmin, domain.RoleCashier)
	if err != nil {
		return domain.CashTransaction{}, err
	}
	var reason string
	switch req.Type {
	case domain.TransactionDeposit:
		reason = domain.ReasonCashDeposit
	case domain.TransactionWithdrawal:
		reason = domain.ReasonCashWithdraw
	case domain.TransactionAdjustment:
		reason = domain.ReasonCashAdjusting
	default:
		return domain.CashTransaction{}, invalidf("type must be DEPOSIT, WITHDRAWAL or ADJUSTMENT")
	}
	amount := req.Type.SignedAmount(req.AmountCents)
	if err := domain.ValidateSignedAmount(req.Type, amount); err != nil {
		return domain.CashTransaction{}, invalidf("%v", err)
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = reason
	}

	txn := domain.CashTransaction{
		ID:          xid.New("ctx"),
		DrawerID:    strings.TrimSpace(drawerID),
		Type:        req.Type,
		AmountCents: amount,
		Description: description,
		UserID:      actor.Username,
		CreatedAt:   s.now(),
	}
	err = s.repo.WithinTx(ctx, func(tx store.Tx) error {
		drawer, err := tx.GetDrawerForUpdate(ctx, txn.DrawerID)
		if err != nil {
			return err
		}
		if drawer.Status != domain.DrawerOpen {
			return ErrDrawerNotOpen
		}
		return tx.InsertCashTransaction(ctx, txn)
	})
	if err != nil {
		return domain.CashTransaction{}, err
	}

	s.invalidate(ctx, cache.ViewDashboard)
	s.metrics.DrawerEvent(strings.ToLower(string(req.Type)))
	s.logAudit(ctx, "drawer_cash_movement", "cash_drawer", txn.DrawerID, fmt.Sprintf("type=%s,amount=%d", txn.Type, txn.AmountCents))
	return txn, nil
}

func (s *Service) GetDrawer(ctx context.Context, drawerID string) (domain.DrawerView, error) {
	if _, err := s.requireRole(ctx); err != nil {
		return domain.DrawerView{}, err
	}
	drawer, err := s.repo.GetDrawer(ctx, strings.TrimSpace(drawerID))
	if err != nil {
		return domain.DrawerView{}, err
	}
	txns, err := s.repo.ListCashTransactions(ctx, drawer.ID)
	if err != nil {
		return domain.DrawerView{}, err
	}
	return domain.DrawerView{
		Drawer:       *drawer,
		BalanceCents: domain.CalculateDrawerBalance(*drawer, txns),
		Transactions: txns,
	}, nil
}

func (s *Service) ListOpenDrawers(ctx context.Context) ([]domain.DrawerSummary, error) {
	if _, err := s.requireRole(ctx); err != nil {
		return nil, err
	}
	return s.openDrawerSummaries(ctx)
}

func (s *Service) openDrawerSummaries(ctx context.Context) ([]domain.DrawerSummary, error) {
	drawers, err := s.repo.ListOpenDrawers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.DrawerSummary, 0, len(drawers))
	for _, drawer := range drawers {
		txns, err := s.repo.ListCashTransactions(ctx, drawer.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.DrawerSummary{Drawer: drawer, BalanceCents: domain.CalculateDrawerBalance(drawer, txns)})
	}
	return out, nil
}
