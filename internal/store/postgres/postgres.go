package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"vetpos/internal/domain"
	"vetpos/internal/store"
)

// Store is a GORM-backed store.Repository. Inside WithinTx the same type is
// rebound to the transaction handle.
type Store struct {
	db *gorm.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := gorm.Open(pgdriver.Open(databaseURL), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(8)
	sqlDB.SetMaxOpenConns(30)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *Store) forUpdate(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
}

func (s *Store) GetDrawer(ctx context.Context, id string) (*domain.CashDrawer, error) {
	var drawer domain.CashDrawer
	if err := s.conn(ctx).First(&drawer, "id = ?", id).Error; err != nil {
		return nil, mapError(err)
	}
	return &drawer, nil
}

func (s *Store) GetDrawerForUpdate(ctx context.Context, id string) (*domain.CashDrawer, error) {
	var drawer domain.CashDrawer
	if err := s.forUpdate(ctx).First(&drawer, "id = ?", id).Error; err != nil {
		return nil, mapError(err)
	}
	return &drawer, nil
}

func (s *Store) FindOpenDrawer(ctx context.Context, terminalID string) (*domain.CashDrawer, error) {
	var drawer domain.CashDrawer
	err := s.conn(ctx).
		Where("terminal_id = ? AND status = ?", terminalID, domain.DrawerOpen).
		First(&drawer).Error
	if err != nil {
		return nil, mapError(err)
	}
	return &drawer, nil
}

func (s *Store) ListOpenDrawers(ctx context.Context) ([]domain.CashDrawer, error) {
	drawers := make([]domain.CashDrawer, 0, 4)
	err := s.conn(ctx).
		Where("status = ?", domain.DrawerOpen).
		Order("opened_at ASC").
		Find(&drawers).Error
	return drawers, mapError(err)
}

func (s *Store) CreateDrawer(ctx context.Context, drawer domain.CashDrawer) error {
	return mapError(s.conn(ctx).Create(&drawer).Error)
}

func (s *Store) UpdateDrawer(ctx context.Context, drawer domain.CashDrawer) error {
	res := s.conn(ctx).Model(&drawer).Select("*").Omit("id", "opened_at").Updates(&drawer)
	if res.Error != nil {
		return mapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) InsertCashTransaction(ctx context.Context, txn domain.CashTransaction) error {
	return mapError(s.conn(ctx).Create(&txn).Error)
}

func (s *Store) ListCashTransactions(ctx context.Context, drawerID string) ([]domain.CashTransaction, error) {
	txns := make([]domain.CashTransaction, 0, 32)
	err := s.conn(ctx).
		Where("drawer_id = ?", drawerID).
		Order("created_at ASC, id ASC").
		Find(&txns).Error
	return txns, mapError(err)
}

// NextReceiptSequence increments the day's counter in place. The row lock it
// takes serialises concurrent sales for the same day until commit.
func (s *Store) NextReceiptSequence(ctx context.Context, day string) (int, error) {
	var seq int
	err := s.conn(ctx).Raw(`
		INSERT INTO receipt_counters (day, seq) VALUES (?, 1)
		ON CONFLICT (day) DO UPDATE SET seq = receipt_counters.seq + 1
		RETURNING seq
	`, day).Scan(&seq).Error
	if err != nil {
		return 0, mapError(err)
	}
	return seq, nil
}

func (s *Store) InsertSale(ctx context.Context, sale domain.Sale) error {
	return mapError(s.conn(ctx).Create(&sale).Error)
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	var sale domain.Sale
	if err := s.conn(ctx).Preload("Items").First(&sale, "id = ?", id).Error; err != nil {
		return nil, mapError(err)
	}
	return &sale, nil
}

func (s *Store) GetSaleForUpdate(ctx context.Context, id string) (*domain.Sale, error) {
	var sale domain.Sale
	if err := s.forUpdate(ctx).Preload("Items").First(&sale, "id = ?", id).Error; err != nil {
		return nil, mapError(err)
	}
	return &sale, nil
}

func (s *Store) UpdateSaleStatus(ctx context.Context, id string, status domain.SaleStatus, at time.Time) error {
	updates := map[string]any{"status": status, "updated_at": at}
	if status == domain.SaleCancelled {
		updates["cancelled_at"] = at
	}
	res := s.conn(ctx).Model(&domain.Sale{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return mapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListSales(ctx context.Context, q store.SaleQuery) ([]domain.Sale, int64, error) {
	base := s.conn(ctx).Model(&domain.Sale{})
	if q.From != nil {
		base = base.Where("created_at >= ?", *q.From)
	}
	if q.To != nil {
		base = base.Where("created_at < ?", *q.To)
	}
	if q.PaymentMethod != "" {
		base = base.Where("payment_method = ?", q.PaymentMethod)
	}
	if q.Status != "" {
		base = base.Where("status = ?", q.Status)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, mapError(err)
	}

	page := base.Session(&gorm.Session{}).Preload("Items").Order("created_at DESC, receipt_number DESC")
	if q.Offset > 0 {
		page = page.Offset(q.Offset)
	}
	if q.Limit > 0 {
		page = page.Limit(q.Limit)
	}
	sales := make([]domain.Sale, 0, max(q.Limit, 0))
	if err := page.Find(&sales).Error; err != nil {
		return nil, 0, mapError(err)
	}
	return sales, total, nil
}

func (s *Store) CreateInventoryItem(ctx context.Context, item domain.InventoryItem) error {
	return mapError(s.conn(ctx).Create(&item).Error)
}

func (s *Store) GetInventoryItem(ctx context.Context, id string) (*domain.InventoryItem, error) {
	var item domain.InventoryItem
	if err := s.conn(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, mapError(err)
	}
	return &item, nil
}

func (s *Store) GetInventoryItemForUpdate(ctx context.Context, id string) (*domain.InventoryItem, error) {
	var item domain.InventoryItem
	if err := s.forUpdate(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, mapError(err)
	}
	return &item, nil
}

func (s *Store) UpdateInventoryItem(ctx context.Context, item domain.InventoryItem) error {
	res := s.conn(ctx).Model(&item).Select("*").Omit("id", "created_at").Updates(&item)
	if res.Error != nil {
		return mapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateInventoryPricing(ctx context.Context, id string, priceCents int64, costCents int64, at time.Time) error {
	res := s.conn(ctx).Model(&domain.InventoryItem{}).Where("id = ?", id).Updates(map[string]any{
		"price_cents": priceCents,
		"cost_cents":  costCents,
		"updated_at":  at,
	})
	if res.Error != nil {
		return mapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListInventoryItems(ctx context.Context, q store.InventoryQuery) ([]domain.InventoryItem, error) {
	query := s.conn(ctx).Model(&domain.InventoryItem{})
	if !q.IncludeInactive {
		query = query.Where("active = ?", true)
	}
	if q.Category != "" {
		query = query.Where("category = ?", q.Category)
	}
	if search := strings.TrimSpace(q.Search); search != "" {
		like := "%" + search + "%"
		query = query.Where("name ILIKE ? OR batch ILIKE ?", like, like)
	}
	items := make([]domain.InventoryItem, 0, 64)
	err := query.Order("category ASC, name ASC").Find(&items).Error
	return items, mapError(err)
}

func (s *Store) InsertInventoryMovement(ctx context.Context, movement domain.InventoryMovement) error {
	return mapError(s.conn(ctx).Create(&movement).Error)
}

func (s *Store) ListInventoryMovements(ctx context.Context, itemID string, limit int) ([]domain.InventoryMovement, error) {
	query := s.conn(ctx).Order("created_at DESC, id DESC")
	if itemID != "" {
		query = query.Where("inventory_item_id = ?", itemID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	movements := make([]domain.InventoryMovement, 0, 32)
	err := query.Find(&movements).Error
	return movements, mapError(err)
}

func (s *Store) CreateService(ctx context.Context, svc domain.Service) error {
	return mapError(s.conn(ctx).Create(&svc).Error)
}

func (s *Store) GetService(ctx context.Context, id string) (*domain.Service, error) {
	var svc domain.Service
	if err := s.conn(ctx).First(&svc, "id = ?", id).Error; err != nil {
		return nil, mapError(err)
	}
	return &svc, nil
}

func (s *Store) UpdateService(ctx context.Context, svc domain.Service) error {
	res := s.conn(ctx).Model(&svc).Select("*").Omit("id", "created_at").Updates(&svc)
	if res.Error != nil {
		return mapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListServices(ctx context.Context, includeInactive bool) ([]domain.Service, error) {
	query := s.conn(ctx).Order("name ASC")
	if !includeInactive {
		query = query.Where("active = ?", true)
	}
	services := make([]domain.Service, 0, 32)
	err := query.Find(&services).Error
	return services, mapError(err)
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	return mapError(s.conn(ctx).Create(&entry).Error)
}

func (s *Store) ListAuditLogs(ctx context.Context, q store.AuditQuery) ([]domain.AuditLog, error) {
	query := s.conn(ctx).Order("created_at DESC")
	if !q.From.IsZero() {
		query = query.Where("created_at >= ?", q.From)
	}
	if !q.To.IsZero() {
		query = query.Where("created_at < ?", q.To)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	logs := make([]domain.AuditLog, 0, 64)
	err := query.Find(&logs).Error
	return logs, mapError(err)
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	return mapError(s.conn(ctx).Create(&user).Error)
}

func (s *Store) GetUser(ctx context.Context, username string) (*domain.UserAccount, error) {
	var user domain.UserAccount
	err := s.conn(ctx).First(&user, "username = ?", strings.ToLower(strings.TrimSpace(username))).Error
	if err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	users := make([]domain.UserAccount, 0, 16)
	err := s.conn(ctx).Order("username ASC").Find(&users).Error
	return users, mapError(err)
}

// mapError folds driver errors into the store sentinels. Unknown errors pass
// through untouched.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%s: %w", pgErr.ConstraintName, store.ErrConflict)
		case "23503":
			return fmt.Errorf("%s: %w", pgErr.ConstraintName, store.ErrNotFound)
		case "23514":
			if strings.Contains(pgErr.ConstraintName, "quantity") {
				return fmt.Errorf("%s: %w", pgErr.ConstraintName, store.ErrInsufficientStock)
			}
			return fmt.Errorf("%s: %w", pgErr.ConstraintName, store.ErrInvalidInput)
		}
	}
	return err
}
