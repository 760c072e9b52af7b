package memory

import (
	"context"
	"maps"
	"os"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"vetpos/internal/domain"
	"vetpos/internal/store"
)

// Store keeps everything in maps behind one mutex. WithinTx runs against a
// copy of the state and swaps it in only when fn succeeds.
type Store struct {
	mu    sync.Mutex
	state *state
}

type state struct {
	drawers        map[string]domain.CashDrawer
	openByTerminal map[string]string
	cashTxns       []domain.CashTransaction
	receiptSeq     map[string]int
	sales          map[string]domain.Sale
	inventory      map[string]domain.InventoryItem
	movements      []domain.InventoryMovement
	services       map[string]domain.Service
	auditLogs      []domain.AuditLog
	users          map[string]domain.UserAccount
}

func newState() *state {
	return &state{
		drawers:        make(map[string]domain.CashDrawer),
		openByTerminal: make(map[string]string),
		cashTxns:       make([]domain.CashTransaction, 0, 64),
		receiptSeq:     make(map[string]int),
		sales:          make(map[string]domain.Sale),
		inventory:      make(map[string]domain.InventoryItem),
		movements:      make([]domain.InventoryMovement, 0, 128),
		services:       make(map[string]domain.Service),
		auditLogs:      make([]domain.AuditLog, 0, 128),
		users:          make(map[string]domain.UserAccount),
	}
}

// clone copies the maps. Append-only slices are clipped so appends made
// through the copy reallocate instead of writing into shared backing arrays.
func (st *state) clone() *state {
	return &state{
		drawers:        maps.Clone(st.drawers),
		openByTerminal: maps.Clone(st.openByTerminal),
		cashTxns:       slices.Clip(st.cashTxns),
		receiptSeq:     maps.Clone(st.receiptSeq),
		sales:          maps.Clone(st.sales),
		inventory:      maps.Clone(st.inventory),
		movements:      slices.Clip(st.movements),
		services:       maps.Clone(st.services),
		auditLogs:      slices.Clip(st.auditLogs),
		users:          maps.Clone(st.users),
	}
}

func New() *Store {
	return &Store{state: newState()}
}

// seedUsers builds the initial in-memory accounts for dev/demo mode.
// Passwords come from SEED_ADMIN_PASSWORD, SEED_CASHIER_PASSWORD and
// SEED_VET_PASSWORD; unset values fall back to dev defaults with a warning.
func seedUsers(now time.Time, log *zap.Logger) map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	vetPwd := envOr("SEED_VET_PASSWORD", "vet123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Warn("memory store using default dev credentials; set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override")
	}

	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     domain.Role
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"cashier", cashierPwd, domain.RoleCashier},
		{"vet", vetPwd, domain.RoleVet},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Error("seed account skipped", zap.String("username", u.username), zap.Error(err))
			continue
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewSeeded returns a store with demo inventory, services and staff.
func NewSeeded() *Store {
	return NewSeededWithLogger(zap.NewNop())
}

// NewSeededWithLogger is NewSeeded reporting seeding problems to log.
func NewSeededWithLogger(log *zap.Logger) *Store {
	now := time.Now().UTC()
	nextYear := time.Date(now.Year()+1, now.Month(), 1, 0, 0, 0, 0, time.UTC)

	st := newState()
	for _, item := range []domain.InventoryItem{
		{ID: "inv-amoxicilina", Name: "Amoxicilina 500mg", Category: domain.CategoryAntibiotic, Presentation: "caja 20 tabletas", Quantity: 40, MinStock: 10, PriceCents: 1850, CostCents: 1100, Location: "A1"},
		{ID: "inv-vacuna-rabia", Name: "Vacuna antirrábica", Category: domain.CategoryVaccine, Presentation: "vial 1ml", Quantity: 15, MinStock: 5, PriceCents: 12000, CostCents: 7000, ExpirationDate: &nextYear, Location: "REFRI", Batch: "RB-2291"},
		{ID: "inv-desparasitante", Name: "Desparasitante interno", Category: domain.CategoryDewormer, Presentation: "tableta", Quantity: 8, MinStock: 10, PriceCents: 4500, CostCents: 2600, Location: "A2"},
		{ID: "inv-dieta-renal", Name: "Alimento renal 2kg", Category: domain.CategoryPrescriptionDiet, Presentation: "bolsa 2kg", Quantity: 0, MinStock: 3, PriceCents: 38000, CostCents: 27000, Location: "B1"},
		{ID: "inv-collar", Name: "Collar ajustable", Category: domain.CategoryCollarLeash, Quantity: 25, MinStock: 5, PriceCents: 9000, CostCents: 4000, Location: "C3"},
	} {
		item.Active = true
		item.CreatedAt = now
		item.UpdatedAt = now
		st.inventory[item.ID] = item
	}
	for _, svc := range []domain.Service{
		{ID: "svc-consulta", Name: "Consulta general", Category: "CONSULTA", PriceCents: 50000, DurationMinutes: 30},
		{ID: "svc-vacunacion", Name: "Aplicación de vacuna", Category: "PREVENTIVO", PriceCents: 15000, DurationMinutes: 15},
		{ID: "svc-bano", Name: "Baño y corte", Category: "ESTETICA", PriceCents: 25000, DurationMinutes: 60},
	} {
		svc.Active = true
		svc.CreatedAt = now
		svc.UpdatedAt = now
		st.services[svc.ID] = svc
	}
	st.users = seedUsers(now, log)

	return &Store{state: st}
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(work); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *Store) GetDrawer(ctx context.Context, id string) (*domain.CashDrawer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GetDrawer(ctx, id)
}

func (s *Store) GetDrawerForUpdate(ctx context.Context, id string) (*domain.CashDrawer, error) {
	return s.GetDrawer(ctx, id)
}

func (s *Store) FindOpenDrawer(ctx context.Context, terminalID string) (*domain.CashDrawer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.FindOpenDrawer(ctx, terminalID)
}

func (s *Store) ListOpenDrawers(ctx context.Context) ([]domain.CashDrawer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ListOpenDrawers(ctx)
}

func (s *Store) CreateDrawer(ctx context.Context, drawer domain.CashDrawer) error {
	return s.WithinTx(ctx, func(tx store.Tx) error { return tx.CreateDrawer(ctx, drawer) })
}

func (s *Store) UpdateDrawer(ctx context.Context, drawer domain.CashDrawer) error {
	return s.WithinTx(ctx, func(tx store.Tx) error { return tx.UpdateDrawer(ctx, drawer) })
}

func (s *Store) InsertCashTransaction(ctx context.Context, txn domain.CashTransaction) error {
	return s.WithinTx(ctx, func(tx store.Tx) error { return tx.InsertCashTransaction(ctx, txn) })
}

func (s *Store) ListCashTransactions(ctx context.Context, drawerID string) ([]domain.CashTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ListCashTransactions(ctx, drawerID)
}

func (s *Store) NextReceiptSequence(ctx context.Context, day string) (int, error) {
	var seq int
	err := s.WithinTx(ctx, func(tx store.Tx) error {
		var err error
		seq, err = tx.NextReceiptSequence(ctx, day)
		return err
	})
	return seq, err
}

func (s *Store) InsertSale(ctx context.Context, sale domain.Sale) error {
	return s.WithinTx(ctx, func(tx store.Tx) error { return tx.InsertSale(ctx, sale) })
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GetSale(ctx, id)
}

func (s *Store) GetSaleForUpdate(ctx context.Context, id string) (*domain.Sale, error) {
	return s.GetSale(ctx, id)
}

func (s *Store) UpdateSaleStatus(ctx context.Context, id string, status domain.SaleStatus, at time.Time) error {
	return s.WithinTx(ctx, func(tx store.Tx) error { return tx.UpdateSaleStatus(ctx, id, status, at) })
}

func (s *Store) ListSales(ctx context.Context, q store.SaleQuery) ([]domain.Sale, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ListSales(ctx, q)
}

func (s *Store) CreateInventoryItem(ctx context.Context, item domain.InventoryItem) error {
	return s.WithinTx(ctx, func(tx store.Tx) error { return tx.CreateInventoryItem(ctx, item) })
}

func (s *Store) GetInventoryItem(ctx context.Context, id string) (*domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GetInventoryItem(ctx, id)
}

func (s *Store) GetInventoryItemForUpdate(ctx context.Context, id string) (*domain.InventoryItem, error) {
	return s.GetInventoryItem(ctx, id)
}

func (s *Store) UpdateInventoryItem(ctx context.Context, item domain.InventoryItem) error {
	return s.WithinTx(ctx, func(tx store.Tx) error { return tx.UpdateInventoryItem(ctx, item) })
}

func (s *Store) UpdateInventoryPricing(ctx context.Context, id string, priceCents int64, costCents int64, at time.Time) error {
	return s.WithinTx(ctx, func(tx store.Tx) error { return tx.UpdateInventoryPricing(ctx, id, priceCents, costCents, at) })
}

func (s *Store) ListInventoryItems(ctx context.Context, q store.InventoryQuery) ([]domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ListInventoryItems(ctx, q)
}

func (s *Store) InsertInventoryMovement(ctx context.Context, movement domain.InventoryMovement) error {
	return s.WithinTx(ctx, func(tx store.Tx) error { return tx.InsertInventoryMovement(ctx, movement) })
}

func (s *Store) ListInventoryMovements(ctx context.Context, itemID string, limit int) ([]domain.InventoryMovement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ListInventoryMovements(ctx, itemID, limit)
}

func (s *Store) CreateService(ctx context.Context, svc domain.Service) error {
	return s.WithinTx(ctx, func(tx store.Tx) error { return tx.CreateService(ctx, svc) })
}

func (s *Store) GetService(ctx context.Context, id string) (*domain.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GetService(ctx, id)
}

func (s *Store) UpdateService(ctx context.Context, svc domain.Service) error {
	return s.WithinTx(ctx, func(tx store.Tx) error { return tx.UpdateService(ctx, svc) })
}

func (s *Store) ListServices(ctx context.Context, includeInactive bool) ([]domain.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ListServices(ctx, includeInactive)
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	return s.WithinTx(ctx, func(tx store.Tx) error { return tx.CreateAuditLog(ctx, entry) })
}

func (s *Store) ListAuditLogs(ctx context.Context, q store.AuditQuery) ([]domain.AuditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ListAuditLogs(ctx, q)
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	return s.WithinTx(ctx, func(tx store.Tx) error { return tx.CreateUser(ctx, user) })
}

func (s *Store) GetUser(ctx context.Context, username string) (*domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GetUser(ctx, username)
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ListUsers(ctx)
}

// state implements store.Tx without locking; callers hold Store.mu.

func (st *state) GetDrawer(_ context.Context, id string) (*domain.CashDrawer, error) {
	d, ok := st.drawers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &d, nil
}

func (st *state) GetDrawerForUpdate(ctx context.Context, id string) (*domain.CashDrawer, error) {
	return st.GetDrawer(ctx, id)
}

func (st *state) FindOpenDrawer(ctx context.Context, terminalID string) (*domain.CashDrawer, error) {
	id, ok := st.openByTerminal[terminalID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return st.GetDrawer(ctx, id)
}

func (st *state) ListOpenDrawers(_ context.Context) ([]domain.CashDrawer, error) {
	out := make([]domain.CashDrawer, 0, len(st.openByTerminal))
	for _, id := range st.openByTerminal {
		out = append(out, st.drawers[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.Before(out[j].OpenedAt) })
	return out, nil
}

func (st *state) CreateDrawer(_ context.Context, drawer domain.CashDrawer) error {
	if drawer.ID == "" || drawer.TerminalID == "" {
		return store.ErrInvalidInput
	}
	if _, exists := st.drawers[drawer.ID]; exists {
		return store.ErrConflict
	}
	if drawer.Status == domain.DrawerOpen {
		if _, busy := st.openByTerminal[drawer.TerminalID]; busy {
			return store.ErrConflict
		}
		st.openByTerminal[drawer.TerminalID] = drawer.ID
	}
	st.drawers[drawer.ID] = drawer
	return nil
}

func (st *state) UpdateDrawer(_ context.Context, drawer domain.CashDrawer) error {
	prev, ok := st.drawers[drawer.ID]
	if !ok {
		return store.ErrNotFound
	}
	if prev.Status == domain.DrawerOpen && drawer.Status != domain.DrawerOpen {
		delete(st.openByTerminal, prev.TerminalID)
	}
	st.drawers[drawer.ID] = drawer
	return nil
}

func (st *state) InsertCashTransaction(_ context.Context, txn domain.CashTransaction) error {
	if _, ok := st.drawers[txn.DrawerID]; !ok {
		return store.ErrNotFound
	}
	st.cashTxns = append(st.cashTxns, txn)
	return nil
}

func (st *state) ListCashTransactions(_ context.Context, drawerID string) ([]domain.CashTransaction, error) {
	out := make([]domain.CashTransaction, 0, 16)
	for _, txn := range st.cashTxns {
		if txn.DrawerID == drawerID {
			out = append(out, txn)
		}
	}
	return out, nil
}

func (st *state) NextReceiptSequence(_ context.Context, day string) (int, error) {
	st.receiptSeq[day]++
	return st.receiptSeq[day], nil
}

func (st *state) InsertSale(_ context.Context, sale domain.Sale) error {
	if _, exists := st.sales[sale.ID]; exists {
		return store.ErrConflict
	}
	for _, other := range st.sales {
		if other.ReceiptNumber == sale.ReceiptNumber {
			return store.ErrConflict
		}
	}
	sale.Items = slices.Clone(sale.Items)
	st.sales[sale.ID] = sale
	return nil
}

func (st *state) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	sale, ok := st.sales[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	sale.Items = slices.Clone(sale.Items)
	return &sale, nil
}

func (st *state) GetSaleForUpdate(ctx context.Context, id string) (*domain.Sale, error) {
	return st.GetSale(ctx, id)
}

func (st *state) UpdateSaleStatus(_ context.Context, id string, status domain.SaleStatus, at time.Time) error {
	sale, ok := st.sales[id]
	if !ok {
		return store.ErrNotFound
	}
	sale.Status = status
	sale.UpdatedAt = at
	if status == domain.SaleCancelled {
		cancelledAt := at
		sale.CancelledAt = &cancelledAt
	}
	st.sales[id] = sale
	return nil
}

func (st *state) ListSales(_ context.Context, q store.SaleQuery) ([]domain.Sale, int64, error) {
	matched := make([]domain.Sale, 0, len(st.sales))
	for _, sale := range st.sales {
		if q.From != nil && sale.CreatedAt.Before(*q.From) {
			continue
		}
		if q.To != nil && !sale.CreatedAt.Before(*q.To) {
			continue
		}
		if q.PaymentMethod != "" && sale.PaymentMethod != q.PaymentMethod {
			continue
		}
		if q.Status != "" && sale.Status != q.Status {
			continue
		}
		matched = append(matched, sale)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ReceiptNumber > matched[j].ReceiptNumber
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := min(max(q.Offset, 0), len(matched))
	end := len(matched)
	if q.Limit > 0 {
		end = min(start+q.Limit, len(matched))
	}
	page := make([]domain.Sale, 0, end-start)
	for _, sale := range matched[start:end] {
		sale.Items = slices.Clone(sale.Items)
		page = append(page, sale)
	}
	return page, total, nil
}

func (st *state) CreateInventoryItem(_ context.Context, item domain.InventoryItem) error {
	if item.ID == "" || strings.TrimSpace(item.Name) == "" {
		return store.ErrInvalidInput
	}
	if _, exists := st.inventory[item.ID]; exists {
		return store.ErrConflict
	}
	st.inventory[item.ID] = item
	return nil
}

func (st *state) GetInventoryItem(_ context.Context, id string) (*domain.InventoryItem, error) {
	item, ok := st.inventory[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &item, nil
}

func (st *state) GetInventoryItemForUpdate(ctx context.Context, id string) (*domain.InventoryItem, error) {
	return st.GetInventoryItem(ctx, id)
}

func (st *state) UpdateInventoryItem(_ context.Context, item domain.InventoryItem) error {
	if _, ok := st.inventory[item.ID]; !ok {
		return store.ErrNotFound
	}
	if item.Quantity < 0 {
		return store.ErrInsufficientStock
	}
	if item.PriceCents < 0 || item.CostCents < 0 {
		return store.ErrInvalidInput
	}
	st.inventory[item.ID] = item
	return nil
}

func (st *state) UpdateInventoryPricing(_ context.Context, id string, priceCents int64, costCents int64, at time.Time) error {
	item, ok := st.inventory[id]
	if !ok {
		return store.ErrNotFound
	}
	if priceCents < 0 || costCents < 0 {
		return store.ErrInvalidInput
	}
	item.PriceCents = priceCents
	item.CostCents = costCents
	item.UpdatedAt = at
	st.inventory[id] = item
	return nil
}

func (st *state) ListInventoryItems(_ context.Context, q store.InventoryQuery) ([]domain.InventoryItem, error) {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]domain.InventoryItem, 0, len(st.inventory))
	for _, item := range st.inventory {
		if !q.IncludeInactive && !item.Active {
			continue
		}
		if q.Category != "" && item.Category != q.Category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(item.Name), search) &&
			!strings.Contains(strings.ToLower(item.Batch), search) {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category == out[j].Category {
			return out[i].Name < out[j].Name
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

func (st *state) InsertInventoryMovement(_ context.Context, movement domain.InventoryMovement) error {
	if movement.Quantity <= 0 {
		return store.ErrInvalidInput
	}
	if _, ok := st.inventory[movement.InventoryItemID]; !ok {
		return store.ErrNotFound
	}
	st.movements = append(st.movements, movement)
	return nil
}

func (st *state) ListInventoryMovements(_ context.Context, itemID string, limit int) ([]domain.InventoryMovement, error) {
	out := make([]domain.InventoryMovement, 0, 16)
	for i := len(st.movements) - 1; i >= 0; i-- {
		if itemID != "" && st.movements[i].InventoryItemID != itemID {
			continue
		}
		out = append(out, st.movements[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (st *state) CreateService(_ context.Context, svc domain.Service) error {
	if svc.ID == "" || strings.TrimSpace(svc.Name) == "" {
		return store.ErrInvalidInput
	}
	if _, exists := st.services[svc.ID]; exists {
		return store.ErrConflict
	}
	st.services[svc.ID] = svc
	return nil
}

func (st *state) GetService(_ context.Context, id string) (*domain.Service, error) {
	svc, ok := st.services[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &svc, nil
}

func (st *state) UpdateService(_ context.Context, svc domain.Service) error {
	if _, ok := st.services[svc.ID]; !ok {
		return store.ErrNotFound
	}
	st.services[svc.ID] = svc
	return nil
}

func (st *state) ListServices(_ context.Context, includeInactive bool) ([]domain.Service, error) {
	out := make([]domain.Service, 0, len(st.services))
	for _, svc := range st.services {
		if !includeInactive && !svc.Active {
			continue
		}
		out = append(out, svc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (st *state) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	st.auditLogs = append(st.auditLogs, entry)
	return nil
}

func (st *state) ListAuditLogs(_ context.Context, q store.AuditQuery) ([]domain.AuditLog, error) {
	out := make([]domain.AuditLog, 0, 32)
	for i := len(st.auditLogs) - 1; i >= 0; i-- {
		entry := st.auditLogs[i]
		if !q.From.IsZero() && entry.CreatedAt.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && !entry.CreatedAt.Before(q.To) {
			continue
		}
		out = append(out, entry)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

func (st *state) CreateUser(_ context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if _, exists := st.users[user.Username]; exists {
		return store.ErrConflict
	}
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	st.users[user.Username] = user
	return nil
}

func (st *state) GetUser(_ context.Context, username string) (*domain.UserAccount, error) {
	user, ok := st.users[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &user, nil
}

func (st *state) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	out := make([]domain.UserAccount, 0, len(st.users))
	for _, user := range st.users {
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}
