package store

import (
	"context"
	"errors"
	"time"

	"vetpos/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrConflict          = errors.New("conflict")
)

type SaleQuery struct {
	From          *time.Time
	To            *time.Time
	PaymentMethod domain.PaymentMethod
	Status        domain.SaleStatus
	Offset        int
	Limit         int
}

type InventoryQuery struct {
	Category        domain.InventoryCategory
	Search          string
	IncludeInactive bool
}

type AuditQuery struct {
	From  time.Time
	To    time.Time
	Limit int
}

// Tx is the set of queries available both inside and outside a transaction.
// The ...ForUpdate getters lock the row until the surrounding transaction
// ends; outside WithinTx they behave like plain reads.
type Tx interface {
	GetDrawer(ctx context.Context, id string) (*domain.CashDrawer, error)
	GetDrawerForUpdate(ctx context.Context, id string) (*domain.CashDrawer, error)
	FindOpenDrawer(ctx context.Context, terminalID string) (*domain.CashDrawer, error)
	ListOpenDrawers(ctx context.Context) ([]domain.CashDrawer, error)
	CreateDrawer(ctx context.Context, drawer domain.CashDrawer) error
	UpdateDrawer(ctx context.Context, drawer domain.CashDrawer) error
	InsertCashTransaction(ctx context.Context, txn domain.CashTransaction) error
	ListCashTransactions(ctx context.Context, drawerID string) ([]domain.CashTransaction, error)

	NextReceiptSequence(ctx context.Context, day string) (int, error)

	InsertSale(ctx context.Context, sale domain.Sale) error
	GetSale(ctx context.Context, id string) (*domain.Sale, error)
	GetSaleForUpdate(ctx context.Context, id string) (*domain.Sale, error)
	UpdateSaleStatus(ctx context.Context, id string, status domain.SaleStatus, at time.Time) error
	ListSales(ctx context.Context, q SaleQuery) ([]domain.Sale, int64, error)

	CreateInventoryItem(ctx context.Context, item domain.InventoryItem) error
	GetInventoryItem(ctx context.Context, id string) (*domain.InventoryItem, error)
	GetInventoryItemForUpdate(ctx context.Context, id string) (*domain.InventoryItem, error)
	UpdateInventoryItem(ctx context.Context, item domain.InventoryItem) error
	// UpdateInventoryPricing writes only price, cost and updated_at, leaving
	// quantity to the paths that lock the row.
	UpdateInventoryPricing(ctx context.Context, id string, priceCents int64, costCents int64, at time.Time) error
	ListInventoryItems(ctx context.Context, q InventoryQuery) ([]domain.InventoryItem, error)
	InsertInventoryMovement(ctx context.Context, movement domain.InventoryMovement) error
	ListInventoryMovements(ctx context.Context, itemID string, limit int) ([]domain.InventoryMovement, error)

	CreateService(ctx context.Context, svc domain.Service) error
	GetService(ctx context.Context, id string) (*domain.Service, error)
	UpdateService(ctx context.Context, svc domain.Service) error
	ListServices(ctx context.Context, includeInactive bool) ([]domain.Service, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, q AuditQuery) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	GetUser(ctx context.Context, username string) (*domain.UserAccount, error)
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
}

// Repository runs fn atomically: if fn returns an error nothing it wrote is
// visible afterwards.
type Repository interface {
	Tx
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}
