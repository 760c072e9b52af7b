package domain

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDeriveInventoryStatus(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	yesterday := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	today := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		item InventoryItem
		want InventoryStatus
	}{
		{"at min stock", InventoryItem{Active: true, Quantity: 10, MinStock: 10}, InventoryLowStock},
		{"empty", InventoryItem{Active: true, Quantity: 0, MinStock: 10}, InventoryOutOfStock},
		{"healthy", InventoryItem{Active: true, Quantity: 50, MinStock: 10}, InventoryActive},
		{"inactive wins", InventoryItem{Active: false, Quantity: 0, ExpirationDate: &yesterday}, InventoryInactive},
		{"expired wins over stock", InventoryItem{Active: true, Quantity: 0, ExpirationDate: &yesterday}, InventoryExpired},
		{"expires today is not expired", InventoryItem{Active: true, Quantity: 50, MinStock: 1, ExpirationDate: &today}, InventoryActive},
	}
	for _, tc := range cases {
		if got := DeriveInventoryStatus(tc.item, now); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestDaysToExpiry(t *testing.T) {
	now := time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC)
	exp := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)
	days := DaysToExpiry(InventoryItem{ExpirationDate: &exp}, now)
	if days == nil || *days != 10 {
		t.Fatalf("expected 10 days, got %v", days)
	}
	if DaysToExpiry(InventoryItem{}, now) != nil {
		t.Fatalf("expected nil for item without expiration")
	}
}

func TestAdjustPrice(t *testing.T) {
	cases := []struct {
		name string
		old  int64
		spec AdjustmentSpec
		want int64
	}{
		{"percent increase", 10000, AdjustmentSpec{AdjustmentPercent, DirectionIncrease, decimal.NewFromInt(10)}, 11000},
		{"percent decrease rounds", 999, AdjustmentSpec{AdjustmentPercent, DirectionDecrease, decimal.NewFromInt(15)}, 849},
		{"fixed increase", 5000, AdjustmentSpec{AdjustmentFixed, DirectionIncrease, decimal.NewFromInt(250)}, 5250},
		{"fixed decrease floors at zero", 5000, AdjustmentSpec{AdjustmentFixed, DirectionDecrease, decimal.NewFromInt(1000000)}, 0},
		{"percent decrease past 100 floors at zero", 5000, AdjustmentSpec{AdjustmentPercent, DirectionDecrease, decimal.NewFromInt(150)}, 0},
	}
	for _, tc := range cases {
		got, err := AdjustPrice(tc.old, tc.spec)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}

func TestAdjustPriceRejectsOverflow(t *testing.T) {
	huge := []AdjustmentSpec{
		{AdjustmentPercent, DirectionIncrease, decimal.New(2, 17)},
		{AdjustmentFixed, DirectionIncrease, decimal.NewFromInt(math.MaxInt64)},
	}
	for _, spec := range huge {
		got, err := AdjustPrice(5000, spec)
		if !errors.Is(err, ErrAmountOutOfRange) {
			t.Fatalf("%s %s: expected out of range error, got %d, %v", spec.Type, spec.Value, got, err)
		}
	}

	got, err := AdjustPrice(math.MaxInt64-10, AdjustmentSpec{AdjustmentFixed, DirectionIncrease, decimal.NewFromInt(10)})
	if err != nil || got != math.MaxInt64 {
		t.Fatalf("expected exact max to fit, got %d, %v", got, err)
	}
}

func TestAdjustmentSpecValidate(t *testing.T) {
	if err := (AdjustmentSpec{Type: "ratio", Direction: DirectionIncrease}).Validate(); err == nil {
		t.Fatalf("expected unknown type to be rejected")
	}
	if err := (AdjustmentSpec{Type: AdjustmentFixed, Direction: DirectionIncrease, Value: decimal.NewFromInt(-1)}).Validate(); err == nil {
		t.Fatalf("expected negative value to be rejected")
	}
}

func TestCalculateDrawerBalanceIsPure(t *testing.T) {
	drawer := CashDrawer{ID: "drawer-1", OpeningCents: 10000}
	txns := []CashTransaction{
		{DrawerID: "drawer-1", Type: TransactionSale, AmountCents: 2500},
		{DrawerID: "drawer-1", Type: TransactionRefund, AmountCents: -500},
		{DrawerID: "drawer-1", Type: TransactionWithdrawal, AmountCents: -1000},
		{DrawerID: "drawer-2", Type: TransactionSale, AmountCents: 99999},
	}
	first := CalculateDrawerBalance(drawer, txns)
	second := CalculateDrawerBalance(drawer, txns)
	if first != 11000 || second != first {
		t.Fatalf("expected stable balance 11000, got %d then %d", first, second)
	}
	if DrawerVariance(10500, first) != -500 {
		t.Fatalf("expected variance -500")
	}
}

func TestSignedAmountAndValidation(t *testing.T) {
	if TransactionRefund.SignedAmount(700) != -700 {
		t.Fatalf("refund must be negative")
	}
	if TransactionDeposit.SignedAmount(-700) != 700 {
		t.Fatalf("deposit must be positive")
	}
	if TransactionAdjustment.SignedAmount(-30) != -30 {
		t.Fatalf("adjustment keeps sign")
	}
	if err := ValidateSignedAmount(TransactionAdjustment, 0); err == nil {
		t.Fatalf("zero adjustment must be rejected")
	}
	if err := ValidateSignedAmount(TransactionWithdrawal, 10); err == nil {
		t.Fatalf("positive withdrawal must be rejected")
	}
}

func TestFormatReceiptNumber(t *testing.T) {
	at := time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC)
	if got := FormatReceiptNumber(at, 1); got != "250115-0001" {
		t.Fatalf("unexpected receipt number %s", got)
	}
	if got := FormatReceiptNumber(at, 12345); got != "250115-12345" {
		t.Fatalf("unexpected overflow receipt number %s", got)
	}
}

func TestValidateSaleRequest(t *testing.T) {
	valid := CreateSaleRequest{
		DrawerID:      "drawer-1",
		PaymentMethod: PaymentCash,
		Items: []SaleLineRequest{
			{InventoryItemID: "inv-1", Description: "Amoxicilina", Quantity: 2, UnitPriceCents: 1500, TotalCents: 3000},
			{ServiceID: "svc-1", Description: "Consulta", Quantity: 1, UnitPriceCents: 5000, TotalCents: 5000},
		},
		SubtotalCents: 8000,
		TaxCents:      1280,
		DiscountCents: 280,
		TotalCents:    9000,
	}
	if err := ValidateSaleRequest(valid); err != nil {
		t.Fatalf("expected valid sale, got %v", err)
	}

	mismatch := valid
	mismatch.TotalCents = 9001
	if err := ValidateSaleRequest(mismatch); !errors.Is(err, ErrTotalMismatch) {
		t.Fatalf("expected total mismatch, got %v", err)
	}

	both := valid
	both.Items = []SaleLineRequest{{InventoryItemID: "inv-1", ServiceID: "svc-1", Description: "x", Quantity: 1}}
	both.SubtotalCents, both.TaxCents, both.DiscountCents, both.TotalCents = 0, 0, 0, 0
	if err := ValidateSaleRequest(both); err == nil || errors.Is(err, ErrTotalMismatch) {
		t.Fatalf("expected validation error for product+service line, got %v", err)
	}

	empty := valid
	empty.Items = nil
	if err := ValidateSaleRequest(empty); err == nil {
		t.Fatalf("expected empty sale to be rejected")
	}

	// Wrapped sums must not pass as a small consistent total.
	wrapped := valid
	wrapped.Items = []SaleLineRequest{
		{ServiceID: "svc-1", Description: "a", Quantity: 1, UnitPriceCents: 1 << 62, TotalCents: 1 << 62},
		{ServiceID: "svc-1", Description: "b", Quantity: 1, UnitPriceCents: 1 << 62, TotalCents: 1 << 62},
		{ServiceID: "svc-1", Description: "c", Quantity: 1, UnitPriceCents: 100, TotalCents: 100},
	}
	wrapped.SubtotalCents = math.MinInt64 + 100
	wrapped.TaxCents = math.MaxInt64
	wrapped.DiscountCents = 0
	wrapped.TotalCents = 99
	if err := ValidateSaleRequest(wrapped); !errors.Is(err, ErrAmountOutOfRange) {
		t.Fatalf("expected out of range for wrapped subtotal, got %v", err)
	}

	bigLine := valid
	bigLine.Items = []SaleLineRequest{{InventoryItemID: "inv-1", Description: "x", Quantity: 4, UnitPriceCents: math.MaxInt64 / 3, TotalCents: 0}}
	if err := ValidateSaleRequest(bigLine); !errors.Is(err, ErrAmountOutOfRange) {
		t.Fatalf("expected out of range for line product, got %v", err)
	}

	bigTax := valid
	bigTax.TaxCents = math.MaxInt64 - 100
	if err := ValidateSaleRequest(bigTax); !errors.Is(err, ErrAmountOutOfRange) {
		t.Fatalf("expected out of range for subtotal plus tax, got %v", err)
	}
}
