package domain

// Closed string sets shared by every layer. Values are persisted verbatim.

type PaymentMethod string

const (
	PaymentCash       PaymentMethod = "CASH"
	PaymentCreditCard PaymentMethod = "CREDIT_CARD"
	PaymentDebitCard  PaymentMethod = "DEBIT_CARD"
	PaymentTransfer   PaymentMethod = "TRANSFER"
	PaymentCheck      PaymentMethod = "CHECK"
	PaymentOther      PaymentMethod = "OTHER"
)

func AllPaymentMethods() []PaymentMethod {
	return []PaymentMethod{PaymentCash, PaymentCreditCard, PaymentDebitCard, PaymentTransfer, PaymentCheck, PaymentOther}
}

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCreditCard, PaymentDebitCard, PaymentTransfer, PaymentCheck, PaymentOther:
		return true
	default:
		return false
	}
}

type SaleStatus string

const (
	SalePending   SaleStatus = "PENDING"
	SaleCompleted SaleStatus = "COMPLETED"
	SaleCancelled SaleStatus = "CANCELLED"
	SaleRefunded  SaleStatus = "REFUNDED"
)

func (s SaleStatus) Valid() bool {
	switch s {
	case SalePending, SaleCompleted, SaleCancelled, SaleRefunded:
		return true
	default:
		return false
	}
}

type InventoryStatus string

const (
	InventoryActive     InventoryStatus = "ACTIVE"
	InventoryInactive   InventoryStatus = "INACTIVE"
	InventoryLowStock   InventoryStatus = "LOW_STOCK"
	InventoryOutOfStock InventoryStatus = "OUT_OF_STOCK"
	InventoryExpired    InventoryStatus = "EXPIRED"
)

func (s InventoryStatus) Valid() bool {
	switch s {
	case InventoryActive, InventoryInactive, InventoryLowStock, InventoryOutOfStock, InventoryExpired:
		return true
	default:
		return false
	}
}

type MovementType string

const (
	MovementIn         MovementType = "IN"
	MovementOut        MovementType = "OUT"
	MovementReturn     MovementType = "RETURN"
	MovementAdjustment MovementType = "ADJUSTMENT"
	MovementExpired    MovementType = "EXPIRED"
)

func (t MovementType) Valid() bool {
	switch t {
	case MovementIn, MovementOut, MovementReturn, MovementAdjustment, MovementExpired:
		return true
	default:
		return false
	}
}

type DrawerStatus string

const (
	DrawerOpen       DrawerStatus = "OPEN"
	DrawerClosed     DrawerStatus = "CLOSED"
	DrawerReconciled DrawerStatus = "RECONCILED"
)

func (s DrawerStatus) Valid() bool {
	switch s {
	case DrawerOpen, DrawerClosed, DrawerReconciled:
		return true
	default:
		return false
	}
}

type TransactionType string

const (
	TransactionSale       TransactionType = "SALE"
	TransactionRefund     TransactionType = "REFUND"
	TransactionDeposit    TransactionType = "DEPOSIT"
	TransactionWithdrawal TransactionType = "WITHDRAWAL"
	TransactionAdjustment TransactionType = "ADJUSTMENT"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionSale, TransactionRefund, TransactionDeposit, TransactionWithdrawal, TransactionAdjustment:
		return true
	default:
		return false
	}
}

// SignedAmount normalises amount to the sign the transaction type carries in
// the ledger. ADJUSTMENT keeps the caller's sign.
func (t TransactionType) SignedAmount(amount int64) int64 {
	abs := amount
	if abs < 0 {
		abs = -abs
	}
	switch t {
	case TransactionSale, TransactionDeposit:
		return abs
	case TransactionRefund, TransactionWithdrawal:
		return -abs
	default:
		return amount
	}
}

type InventoryCategory string

const (
	CategoryMedicine         InventoryCategory = "MEDICINE"
	CategoryAntibiotic       InventoryCategory = "ANTIBIOTIC"
	CategoryAntiInflammatory InventoryCategory = "ANTI_INFLAMMATORY"
	CategoryAnalgesic        InventoryCategory = "ANALGESIC"
	CategoryAnesthetic       InventoryCategory = "ANESTHETIC"
	CategorySedative         InventoryCategory = "SEDATIVE"
	CategoryAntiparasitic    InventoryCategory = "ANTIPARASITIC"
	CategoryDewormer         InventoryCategory = "DEWORMER"
	CategoryVaccine          InventoryCategory = "VACCINE"
	CategorySupplement       InventoryCategory = "VITAMIN_SUPPLEMENT"
	CategoryDermatological   InventoryCategory = "DERMATOLOGICAL"
	CategoryOphthalmic       InventoryCategory = "OPHTHALMIC"
	CategoryOtic             InventoryCategory = "OTIC"
	CategoryHormone          InventoryCategory = "HORMONE"
	CategoryFluidTherapy     InventoryCategory = "FLUID_THERAPY"
	CategorySurgicalMaterial InventoryCategory = "SURGICAL_MATERIAL"
	CategoryDisposable       InventoryCategory = "DISPOSABLE"
	CategoryBandage          InventoryCategory = "BANDAGE"
	CategorySyringe          InventoryCategory = "SYRINGE"
	CategoryLabSupply        InventoryCategory = "LAB_SUPPLY"
	CategoryDiagnosticTest   InventoryCategory = "DIAGNOSTIC_TEST"
	CategoryFood             InventoryCategory = "FOOD"
	CategoryPrescriptionDiet InventoryCategory = "PRESCRIPTION_DIET"
	CategoryTreat            InventoryCategory = "TREAT"
	CategoryAccessory        InventoryCategory = "ACCESSORY"
	CategoryToy              InventoryCategory = "TOY"
	CategoryCollarLeash      InventoryCategory = "COLLAR_LEASH"
	CategoryGrooming         InventoryCategory = "GROOMING"
	CategoryHygiene          InventoryCategory = "HYGIENE"
	CategoryCleaning         InventoryCategory = "CLEANING"
	CategoryEquipment        InventoryCategory = "EQUIPMENT"
	CategoryOther            InventoryCategory = "OTHER"
)

var inventoryCategories = []InventoryCategory{
	CategoryMedicine, CategoryAntibiotic, CategoryAntiInflammatory, CategoryAnalgesic,
	CategoryAnesthetic, CategorySedative, CategoryAntiparasitic, CategoryDewormer,
	CategoryVaccine, CategorySupplement, CategoryDermatological, CategoryOphthalmic,
	CategoryOtic, CategoryHormone, CategoryFluidTherapy, CategorySurgicalMaterial,
	CategoryDisposable, CategoryBandage, CategorySyringe, CategoryLabSupply,
	CategoryDiagnosticTest, CategoryFood, CategoryPrescriptionDiet, CategoryTreat,
	CategoryAccessory, CategoryToy, CategoryCollarLeash, CategoryGrooming,
	CategoryHygiene, CategoryCleaning, CategoryEquipment, CategoryOther,
}

func AllInventoryCategories() []InventoryCategory {
	out := make([]InventoryCategory, len(inventoryCategories))
	copy(out, inventoryCategories)
	return out
}

func (c InventoryCategory) Valid() bool {
	for _, known := range inventoryCategories {
		if c == known {
			return true
		}
	}
	return false
}

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCashier Role = "cashier"
	RoleVet     Role = "vet"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCashier, RoleVet:
		return true
	default:
		return false
	}
}

const (
	ReasonSale          = "VENTA"
	ReasonCancellation  = "CANCELACIÓN"
	ReasonManualAdjust  = "AJUSTE MANUAL"
	ReasonInitialStock  = "INVENTARIO INICIAL"
	ReasonCashDeposit   = "DEPÓSITO"
	ReasonCashWithdraw  = "RETIRO"
	ReasonCashAdjusting = "AJUSTE DE CAJA"
)
