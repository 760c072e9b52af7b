package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var ErrTotalMismatch = errors.New("sale totals do not add up")

// ValidateSaleRequest checks shape and arithmetic of a sale before anything is
// written. Arithmetic failures wrap ErrTotalMismatch; all others are plain
// validation errors.
func ValidateSaleRequest(req CreateSaleRequest) error {
	if len(req.Items) == 0 {
		return fmt.Errorf("sale must contain at least one item")
	}
	if !req.PaymentMethod.Valid() {
		return fmt.Errorf("payment_method %q is not supported", req.PaymentMethod)
	}
	if req.TaxCents < 0 || req.DiscountCents < 0 {
		return fmt.Errorf("tax_cents and discount_cents must be >= 0")
	}

	var subtotal int64
	for i, line := range req.Items {
		if strings.TrimSpace(line.InventoryItemID) != "" && strings.TrimSpace(line.ServiceID) != "" {
			return fmt.Errorf("item %d: a line references either a product or a service, not both", i)
		}
		if strings.TrimSpace(line.Description) == "" {
			return fmt.Errorf("item %d: description is required", i)
		}
		if line.Quantity < 1 {
			return fmt.Errorf("item %d: quantity must be >= 1", i)
		}
		if line.UnitPriceCents < 0 {
			return fmt.Errorf("item %d: unit_price_cents must be >= 0", i)
		}
		if line.UnitPriceCents > math.MaxInt64/int64(line.Quantity) {
			return fmt.Errorf("item %d: quantity x unit_price_cents: %w", i, ErrAmountOutOfRange)
		}
		if line.TotalCents != int64(line.Quantity)*line.UnitPriceCents {
			return fmt.Errorf("item %d: total_cents must equal quantity x unit_price_cents: %w", i, ErrTotalMismatch)
		}
		if subtotal > math.MaxInt64-line.TotalCents {
			return fmt.Errorf("item %d: running subtotal: %w", i, ErrAmountOutOfRange)
		}
		subtotal += line.TotalCents
	}

	if req.SubtotalCents != subtotal {
		return fmt.Errorf("subtotal_cents %d, items sum to %d: %w", req.SubtotalCents, subtotal, ErrTotalMismatch)
	}
	if req.TaxCents > math.MaxInt64-req.SubtotalCents {
		return fmt.Errorf("subtotal_cents plus tax_cents: %w", ErrAmountOutOfRange)
	}
	if req.DiscountCents > req.SubtotalCents+req.TaxCents {
		return fmt.Errorf("discount_cents exceeds subtotal plus tax: %w", ErrTotalMismatch)
	}
	if want := req.SubtotalCents + req.TaxCents - req.DiscountCents; req.TotalCents != want {
		return fmt.Errorf("total_cents %d, expected %d: %w", req.TotalCents, want, ErrTotalMismatch)
	}
	return nil
}
