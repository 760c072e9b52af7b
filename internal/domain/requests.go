package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        Role   `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type StaffCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

type StaffUser struct {
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type SaleLineRequest struct {
	InventoryItemID string `json:"inventory_item_id,omitempty"`
	ServiceID       string `json:"service_id,omitempty"`
	Description     string `json:"description"`
	Quantity        int    `json:"quantity"`
	UnitPriceCents  int64  `json:"unit_price_cents"`
	TotalCents      int64  `json:"total_cents"`
}

type CreateSaleRequest struct {
	DrawerID      string            `json:"drawer_id"`
	ClientID      string            `json:"client_id,omitempty"`
	PetID         string            `json:"pet_id,omitempty"`
	Items         []SaleLineRequest `json:"items"`
	SubtotalCents int64             `json:"subtotal_cents"`
	TaxCents      int64             `json:"tax_cents"`
	DiscountCents int64             `json:"discount_cents"`
	TotalCents    int64             `json:"total_cents"`
	PaymentMethod PaymentMethod     `json:"payment_method"`
	Notes         string            `json:"notes,omitempty"`
}

type CancelSaleRequest struct {
	DrawerID string `json:"drawer_id,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

type CancelSaleResponse struct {
	Sale           Sale   `json:"sale"`
	RefundDrawerID string `json:"refund_drawer_id,omitempty"`
	RefundSkipped  bool   `json:"refund_skipped"`
}

type SaleFilter struct {
	From          *time.Time
	To            *time.Time
	PaymentMethod PaymentMethod
	Status        SaleStatus
	Page          int
	PageSize      int
}

type SaleListResponse struct {
	Sales    []Sale `json:"sales"`
	Total    int64  `json:"total"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

type OpenDrawerRequest struct {
	TerminalID   string `json:"terminal_id"`
	OpeningCents int64  `json:"opening_cents"`
	Notes        string `json:"notes,omitempty"`
}

type CloseDrawerRequest struct {
	CountedCents int64  `json:"counted_cents"`
	Notes        string `json:"notes,omitempty"`
}

type CashMovementRequest struct {
	Type        TransactionType `json:"type"`
	AmountCents int64           `json:"amount_cents"`
	Description string          `json:"description,omitempty"`
}

type DrawerView struct {
	Drawer       CashDrawer        `json:"drawer"`
	BalanceCents int64             `json:"balance_cents"`
	Transactions []CashTransaction `json:"transactions"`
}

type CloseDrawerResponse struct {
	Drawer        CashDrawer `json:"drawer"`
	ExpectedCents int64      `json:"expected_cents"`
	CountedCents  int64      `json:"counted_cents"`
	VarianceCents int64      `json:"variance_cents"`
}

// InventoryItemView is an item plus its status derived at read time.
type InventoryItemView struct {
	InventoryItem
	Status InventoryStatus `json:"status"`
}

type InventoryFilter struct {
	Category        InventoryCategory
	Status          InventoryStatus
	Search          string
	IncludeInactive bool
}

type CreateInventoryItemRequest struct {
	Name           string            `json:"name"`
	Category       InventoryCategory `json:"category"`
	Presentation   string            `json:"presentation,omitempty"`
	Quantity       int               `json:"quantity"`
	MinStock       int               `json:"min_stock"`
	PriceCents     int64             `json:"price_cents"`
	CostCents      int64             `json:"cost_cents"`
	ExpirationDate string            `json:"expiration_date,omitempty"`
	Location       string            `json:"location,omitempty"`
	Batch          string            `json:"batch,omitempty"`
}

type UpdateInventoryItemRequest struct {
	Name           *string            `json:"name,omitempty"`
	Category       *InventoryCategory `json:"category,omitempty"`
	Presentation   *string            `json:"presentation,omitempty"`
	Quantity       *int               `json:"quantity,omitempty"`
	MinStock       *int               `json:"min_stock,omitempty"`
	PriceCents     *int64             `json:"price_cents,omitempty"`
	CostCents      *int64             `json:"cost_cents,omitempty"`
	Active         *bool              `json:"active,omitempty"`
	ExpirationDate *string            `json:"expiration_date,omitempty"`
	Location       *string            `json:"location,omitempty"`
	Batch          *string            `json:"batch,omitempty"`
	Reason         string             `json:"reason,omitempty"`
}

type InventoryPriceUpdateRequest struct {
	PriceCents *int64 `json:"price_cents,omitempty"`
	CostCents  *int64 `json:"cost_cents,omitempty"`
}

type PriceAdjustmentRequest struct {
	Category  InventoryCategory   `json:"category,omitempty"`
	Component PriceComponent      `json:"component"`
	Type      AdjustmentType      `json:"type"`
	Direction AdjustmentDirection `json:"direction"`
	Value     decimal.Decimal     `json:"value"`
}

type ComponentSummary struct {
	AvgBeforeCents decimal.Decimal `json:"avg_before_cents"`
	AvgAfterCents  decimal.Decimal `json:"avg_after_cents"`
}

type PriceAdjustmentResult struct {
	Affected int               `json:"affected"`
	Applied  bool              `json:"applied"`
	Price    *ComponentSummary `json:"price,omitempty"`
	Cost     *ComponentSummary `json:"cost,omitempty"`
}

type InventoryAlert struct {
	Item         InventoryItemView `json:"item"`
	Code         string            `json:"code"`
	DaysToExpiry *int              `json:"days_to_expiry,omitempty"`
}

type ServiceCreateRequest struct {
	Name            string `json:"name"`
	Category        string `json:"category"`
	Description     string `json:"description,omitempty"`
	PriceCents      int64  `json:"price_cents"`
	DurationMinutes int    `json:"duration_minutes"`
}

type ServiceUpdateRequest struct {
	Name            *string `json:"name,omitempty"`
	Category        *string `json:"category,omitempty"`
	Description     *string `json:"description,omitempty"`
	PriceCents      *int64  `json:"price_cents,omitempty"`
	DurationMinutes *int    `json:"duration_minutes,omitempty"`
	Active          *bool   `json:"active,omitempty"`
}

type DailyReportPayment struct {
	PaymentMethod PaymentMethod `json:"payment_method"`
	Sales         int64         `json:"sales"`
	TotalCents    int64         `json:"total_cents"`
}

type DailyReport struct {
	Date           string               `json:"date"`
	CompletedSales int64                `json:"completed_sales"`
	CancelledSales int64                `json:"cancelled_sales"`
	SubtotalCents  int64                `json:"subtotal_cents"`
	TaxCents       int64                `json:"tax_cents"`
	DiscountCents  int64                `json:"discount_cents"`
	NetSalesCents  int64                `json:"net_sales_cents"`
	ByPayment      []DailyReportPayment `json:"by_payment"`
}

type DrawerSummary struct {
	Drawer       CashDrawer `json:"drawer"`
	BalanceCents int64      `json:"balance_cents"`
}

type Dashboard struct {
	Date              string          `json:"date"`
	OpenDrawers       []DrawerSummary `json:"open_drawers"`
	SalesToday        int64           `json:"sales_today"`
	RevenueTodayCents int64           `json:"revenue_today_cents"`
	CancelledToday    int64           `json:"cancelled_today"`
	LowStockItems     int             `json:"low_stock_items"`
	OutOfStockItems   int             `json:"out_of_stock_items"`
	ExpiredItems      int             `json:"expired_items"`
	GeneratedAt       string          `json:"generated_at"`
}
