package domain

import (
	"fmt"
	"time"
)

// CalculateDrawerBalance is opening cash plus every signed transaction on the
// drawer. Transactions belonging to other drawers are ignored.
func CalculateDrawerBalance(drawer CashDrawer, txns []CashTransaction) int64 {
	balance := drawer.OpeningCents
	for _, txn := range txns {
		if txn.DrawerID != "" && txn.DrawerID != drawer.ID {
			continue
		}
		balance += txn.AmountCents
	}
	return balance
}

// DrawerVariance is counted minus expected. Positive means surplus.
func DrawerVariance(counted, expected int64) int64 {
	return counted - expected
}

// ValidateSignedAmount enforces the ledger sign rules per transaction type.
func ValidateSignedAmount(t TransactionType, amount int64) error {
	switch t {
	case TransactionSale, TransactionDeposit:
		if amount <= 0 {
			return fmt.Errorf("%s amount must be positive", t)
		}
	case TransactionRefund, TransactionWithdrawal:
		if amount >= 0 {
			return fmt.Errorf("%s amount must be negative", t)
		}
	case TransactionAdjustment:
		if amount == 0 {
			return fmt.Errorf("adjustment amount must be non-zero")
		}
	default:
		return fmt.Errorf("unknown transaction type %q", t)
	}
	return nil
}

// FormatReceiptNumber renders a receipt as YYMMDD-NNNN for the calendar day of
// at (already converted to the clinic timezone by the caller).
func FormatReceiptNumber(at time.Time, seq int) string {
	return fmt.Sprintf("%s-%04d", ReceiptDay(at), seq)
}

// ReceiptDay is the YYMMDD key receipt counters are kept under.
func ReceiptDay(at time.Time) string {
	return at.Format("060102")
}
