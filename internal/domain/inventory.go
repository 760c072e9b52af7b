package domain

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// ExpiryWarningWindow is how far ahead InventoryAlerts looks for expiring lots.
const ExpiryWarningWindow = 30 * 24 * time.Hour

// AlertExpiringSoon is the alert code for sellable items inside the warning window.
const AlertExpiringSoon = "EXPIRING_SOON"

// DeriveInventoryStatus computes an item's status from its fields. The first
// matching rule wins: inactive, expired, out of stock, low stock, active.
// Expiry is compared by calendar day in now's location.
func DeriveInventoryStatus(item InventoryItem, now time.Time) InventoryStatus {
	if !item.Active {
		return InventoryInactive
	}
	if item.ExpirationDate != nil && dayOf(*item.ExpirationDate, now.Location()).Before(dayOf(now, now.Location())) {
		return InventoryExpired
	}
	if item.Quantity <= 0 {
		return InventoryOutOfStock
	}
	if item.Quantity <= item.MinStock {
		return InventoryLowStock
	}
	return InventoryActive
}

func NewInventoryItemView(item InventoryItem, now time.Time) InventoryItemView {
	return InventoryItemView{InventoryItem: item, Status: DeriveInventoryStatus(item, now)}
}

// DaysToExpiry returns whole days from now's calendar day to the expiration
// day, or nil when the item has no expiration date.
func DaysToExpiry(item InventoryItem, now time.Time) *int {
	if item.ExpirationDate == nil {
		return nil
	}
	loc := now.Location()
	days := int(dayOf(*item.ExpirationDate, loc).Sub(dayOf(now, loc)).Hours() / 24)
	return &days
}

// dayOf keeps the calendar date of t and drops the time of day. Dates stored
// without a zone (type:date) come back as midnight UTC, so their Y/M/D is
// taken as-is.
func dayOf(t time.Time, loc *time.Location) time.Time {
	if t.Location() != time.UTC {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// ParseExpirationDate accepts YYYY-MM-DD; empty input means no expiration.
func ParseExpirationDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("expiration_date must be YYYY-MM-DD: %w", err)
	}
	return &t, nil
}

type PriceComponent string

const (
	ComponentPrice PriceComponent = "price"
	ComponentCost  PriceComponent = "cost"
	ComponentBoth  PriceComponent = "both"
)

func (c PriceComponent) Valid() bool {
	return c == ComponentPrice || c == ComponentCost || c == ComponentBoth
}

func (c PriceComponent) AffectsPrice() bool { return c == ComponentPrice || c == ComponentBoth }

func (c PriceComponent) AffectsCost() bool { return c == ComponentCost || c == ComponentBoth }

type AdjustmentType string

const (
	AdjustmentPercent AdjustmentType = "percent"
	AdjustmentFixed   AdjustmentType = "fixed"
)

func (t AdjustmentType) Valid() bool { return t == AdjustmentPercent || t == AdjustmentFixed }

type AdjustmentDirection string

const (
	DirectionIncrease AdjustmentDirection = "increase"
	DirectionDecrease AdjustmentDirection = "decrease"
)

func (d AdjustmentDirection) Valid() bool { return d == DirectionIncrease || d == DirectionDecrease }

// AdjustmentSpec describes one bulk price transformation. For fixed
// adjustments Value is in cents.
type AdjustmentSpec struct {
	Type      AdjustmentType
	Direction AdjustmentDirection
	Value     decimal.Decimal
}

func (s AdjustmentSpec) Validate() error {
	if !s.Type.Valid() {
		return fmt.Errorf("adjustment type must be percent or fixed")
	}
	if !s.Direction.Valid() {
		return fmt.Errorf("adjustment direction must be increase or decrease")
	}
	if s.Value.IsNegative() {
		return fmt.Errorf("adjustment value must be >= 0")
	}
	return nil
}

var (
	hundred  = decimal.NewFromInt(100)
	maxCents = decimal.NewFromInt(math.MaxInt64)
)

// ErrAmountOutOfRange reports an amount too large to store in cents.
var ErrAmountOutOfRange = errors.New("amount out of range")

// AdjustPrice applies spec to old, rounds half away from zero to the cent and
// never returns a negative amount.
func AdjustPrice(old int64, spec AdjustmentSpec) (int64, error) {
	base := decimal.NewFromInt(old)
	delta := spec.Value
	if spec.Type == AdjustmentPercent {
		delta = base.Mul(spec.Value).Div(hundred)
	}
	var next decimal.Decimal
	if spec.Direction == DirectionDecrease {
		next = base.Sub(delta)
	} else {
		next = base.Add(delta)
	}
	next = next.Round(0)
	if next.IsNegative() {
		return 0, nil
	}
	if next.GreaterThan(maxCents) {
		return 0, fmt.Errorf("%s from %d: %w", next.String(), old, ErrAmountOutOfRange)
	}
	return next.IntPart(), nil
}

// AverageCents returns the mean of values rounded to two decimals, or zero for
// an empty slice.
func AverageCents(values []int64) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(decimal.NewFromInt(v))
	}
	return sum.Div(decimal.NewFromInt(int64(len(values)))).Round(2)
}
