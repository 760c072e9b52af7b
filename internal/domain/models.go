package domain

import "time"

type Sale struct {
	ID            string        `json:"id" gorm:"primaryKey;type:text"`
	ReceiptNumber string        `json:"receipt_number" gorm:"type:text;not null;uniqueIndex"`
	ClientID      *string       `json:"client_id,omitempty" gorm:"type:text;index"`
	PetID         *string       `json:"pet_id,omitempty" gorm:"type:text"`
	DrawerID      string        `json:"drawer_id" gorm:"type:text;not null;index"`
	SubtotalCents int64         `json:"subtotal_cents" gorm:"not null"`
	TaxCents      int64         `json:"tax_cents" gorm:"not null;default:0"`
	DiscountCents int64         `json:"discount_cents" gorm:"not null;default:0"`
	TotalCents    int64         `json:"total_cents" gorm:"not null"`
	PaymentMethod PaymentMethod `json:"payment_method" gorm:"type:text;not null"`
	Status        SaleStatus    `json:"status" gorm:"type:text;not null;index"`
	Notes         string        `json:"notes,omitempty"`
	CreatedBy     string        `json:"created_by" gorm:"type:text;not null"`
	CreatedAt     time.Time     `json:"created_at" gorm:"index"`
	UpdatedAt     time.Time     `json:"updated_at"`
	CancelledAt   *time.Time    `json:"cancelled_at,omitempty"`
	Items         []SaleItem    `json:"items" gorm:"foreignKey:SaleID"`
}

// SaleItem references an inventory product, a catalog service, or neither
// (free-form charge). Never both.
type SaleItem struct {
	ID              string  `json:"id" gorm:"primaryKey;type:text"`
	SaleID          string  `json:"sale_id" gorm:"type:text;not null;index"`
	InventoryItemID *string `json:"inventory_item_id,omitempty" gorm:"type:text;index"`
	ServiceID       *string `json:"service_id,omitempty" gorm:"type:text;index"`
	Description     string  `json:"description" gorm:"not null"`
	Quantity        int     `json:"quantity" gorm:"not null"`
	UnitPriceCents  int64   `json:"unit_price_cents" gorm:"not null"`
	TotalCents      int64   `json:"total_cents" gorm:"not null"`
}

func (i SaleItem) IsProduct() bool { return i.InventoryItemID != nil && *i.InventoryItemID != "" }

func (i SaleItem) IsService() bool { return i.ServiceID != nil && *i.ServiceID != "" }

type InventoryItem struct {
	ID             string            `json:"id" gorm:"primaryKey;type:text"`
	Name           string            `json:"name" gorm:"not null"`
	Category       InventoryCategory `json:"category" gorm:"type:text;not null;index"`
	Presentation   string            `json:"presentation,omitempty"`
	Quantity       int               `json:"quantity" gorm:"not null;default:0"`
	MinStock       int               `json:"min_stock" gorm:"not null;default:0"`
	PriceCents     int64             `json:"price_cents" gorm:"not null;default:0"`
	CostCents      int64             `json:"cost_cents" gorm:"not null;default:0"`
	Active         bool              `json:"active" gorm:"not null;default:true"`
	ExpirationDate *time.Time        `json:"expiration_date,omitempty" gorm:"type:date"`
	Location       string            `json:"location,omitempty"`
	Batch          string            `json:"batch,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

type InventoryMovement struct {
	ID              string       `json:"id" gorm:"primaryKey;type:text"`
	InventoryItemID string       `json:"inventory_item_id" gorm:"type:text;not null;index"`
	Type            MovementType `json:"type" gorm:"type:text;not null"`
	Quantity        int          `json:"quantity" gorm:"not null"`
	Reason          string       `json:"reason"`
	SaleID          *string      `json:"sale_id,omitempty" gorm:"type:text;index"`
	UserID          string       `json:"user_id" gorm:"type:text;not null"`
	CreatedAt       time.Time    `json:"created_at" gorm:"index"`
}

type CashDrawer struct {
	ID            string       `json:"id" gorm:"primaryKey;type:text"`
	TerminalID    string       `json:"terminal_id" gorm:"type:text;not null"`
	OpeningCents  int64        `json:"opening_cents" gorm:"not null"`
	ClosingCents  *int64       `json:"closing_cents,omitempty"`
	ExpectedCents *int64       `json:"expected_cents,omitempty"`
	VarianceCents *int64       `json:"variance_cents,omitempty"`
	Status        DrawerStatus `json:"status" gorm:"type:text;not null;index"`
	OpenedBy      string       `json:"opened_by" gorm:"type:text;not null"`
	ClosedBy      *string      `json:"closed_by,omitempty" gorm:"type:text"`
	OpenedAt      time.Time    `json:"opened_at"`
	ClosedAt      *time.Time   `json:"closed_at,omitempty"`
	Notes         string       `json:"notes,omitempty"`
}

type CashTransaction struct {
	ID          string          `json:"id" gorm:"primaryKey;type:text"`
	DrawerID    string          `json:"drawer_id" gorm:"type:text;not null;index"`
	Type        TransactionType `json:"type" gorm:"type:text;not null"`
	AmountCents int64           `json:"amount_cents" gorm:"not null"`
	SaleID      *string         `json:"sale_id,omitempty" gorm:"type:text;index"`
	Description string          `json:"description,omitempty"`
	UserID      string          `json:"user_id" gorm:"type:text;not null"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Service is a billable catalog entry (consultation, surgery, grooming...).
type Service struct {
	ID              string    `json:"id" gorm:"primaryKey;type:text"`
	Name            string    `json:"name" gorm:"not null"`
	Category        string    `json:"category" gorm:"not null;default:'GENERAL'"`
	Description     string    `json:"description,omitempty"`
	PriceCents      int64     `json:"price_cents" gorm:"not null"`
	DurationMinutes int       `json:"duration_minutes"`
	Active          bool      `json:"active" gorm:"not null;default:true"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type AuditLog struct {
	ID            string    `json:"id" gorm:"primaryKey;type:text"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action" gorm:"index"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at" gorm:"index"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string    `gorm:"primaryKey;type:text"`
	Password  string    `gorm:"not null"`
	Role      Role      `gorm:"type:text;not null"`
	Active    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time
}

type Actor struct {
	Username string
	Role     Role
}
