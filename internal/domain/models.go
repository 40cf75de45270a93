// Package domain defines the persistence models for the grocery ordering
// backend. These types are mapped with GORM and form the core data layer.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Branch is a physical fulfillment location (store or warehouse) with its
// own inventory rows and delivery slots.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Name: human-readable branch name.
//   - IsActive: inactive branches cannot fulfill pickups or deliveries.
type Branch struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	Name      string    `json:"name"      gorm:"type:varchar(255);not null"`
	IsActive  bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Branch.
func (Branch) TableName() string { return "branches" }

// DeliverySlot is a bookable delivery window offered by a branch. Slot
// boundaries are stored as minutes since midnight so window arithmetic does
// not depend on time zones.
type DeliverySlot struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	BranchID    string    `json:"branch_id"    gorm:"type:char(36);not null;index"`
	StartMinute int       `json:"start_minute" gorm:"not null"`
	EndMinute   int       `json:"end_minute"   gorm:"not null"`
	IsActive    bool      `json:"is_active"    gorm:"not null;default:true"`
	CreatedAt   time.Time `json:"created_at"`

	Branch Branch `json:"-" gorm:"foreignKey:BranchID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for DeliverySlot.
func (DeliverySlot) TableName() string { return "delivery_slots" }

// Product is the catalog entry referenced by carts and inventory rows.
// Order items snapshot name/sku/price at order time, so later catalog edits
// never alter historical orders.
type Product struct {
	ID        string          `json:"id"    gorm:"type:char(36);primaryKey"`
	Name      string          `json:"name"  gorm:"type:varchar(255);not null"`
	SKU       string          `json:"sku"   gorm:"type:varchar(64);not null;uniqueIndex"`
	Price     decimal.Decimal `json:"price" gorm:"type:numeric;not null"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TableName returns the database table name for Product.
func (Product) TableName() string { return "products" }

// Inventory is the per (product, branch) stock ledger row. AvailableQuantity
// must never go negative; the row is only mutated inside a row-lock scope by
// the checkout and stock-review workflows.
type Inventory struct {
	ID                string    `json:"id"                 gorm:"type:char(36);primaryKey"`
	ProductID         string    `json:"product_id"         gorm:"type:char(36);not null;uniqueIndex:ux_inventory_product_branch,priority:1"`
	BranchID          string    `json:"branch_id"          gorm:"type:char(36);not null;uniqueIndex:ux_inventory_product_branch,priority:2"`
	AvailableQuantity int       `json:"available_quantity" gorm:"not null;default:0;check:available_quantity >= 0"`
	ReservedQuantity  int       `json:"reserved_quantity"  gorm:"not null;default:0"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	Product Product `json:"-" gorm:"foreignKey:ProductID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Branch  Branch  `json:"-" gorm:"foreignKey:BranchID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Inventory.
func (Inventory) TableName() string { return "inventory" }

// Cart is a user's shopping cart. Checkout treats carts as read-only input:
// it locks the row for the duration of the confirm transaction but never
// mutates it.
type Cart struct {
	ID        string    `json:"id"      gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id" gorm:"type:varchar(64);not null;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items []CartItem `json:"items" gorm:"foreignKey:CartID;references:ID"`
}

// TableName returns the database table name for Cart.
func (Cart) TableName() string { return "carts" }

// CartItem is a cart line item carrying the unit price locked in by the
// (external) cart service. Checkout never recomputes prices from the live
// catalog.
type CartItem struct {
	ID        string          `json:"id"         gorm:"type:char(36);primaryKey"`
	CartID    string          `json:"cart_id"    gorm:"type:char(36);not null;index"`
	ProductID string          `json:"product_id" gorm:"type:char(36);not null"`
	Quantity  int             `json:"quantity"   gorm:"not null;check:quantity > 0"`
	UnitPrice decimal.Decimal `json:"unit_price" gorm:"type:numeric;not null"`
	CreatedAt time.Time       `json:"created_at"`

	Product Product `json:"-" gorm:"foreignKey:ProductID;references:ID"`
}

// TableName returns the database table name for CartItem.
func (CartItem) TableName() string { return "cart_items" }

// Order is a committed checkout. It is created atomically with its items and
// exactly one fulfillment-detail record; it is never deleted (cancellation
// is a status, not removal).
type Order struct {
	ID              string          `json:"id"               gorm:"type:char(36);primaryKey"`
	OrderNumber     string          `json:"order_number"     gorm:"type:varchar(32);not null;uniqueIndex"`
	UserID          string          `json:"user_id"          gorm:"type:varchar(64);not null;index"`
	BranchID        string          `json:"branch_id"        gorm:"type:char(36);not null;index"`
	TotalAmount     decimal.Decimal `json:"total_amount"     gorm:"type:numeric;not null"`
	FulfillmentType FulfillmentType `json:"fulfillment_type" gorm:"type:varchar(16);not null"`
	Status          OrderStatus     `json:"status"           gorm:"type:varchar(16);not null;index"`
	PaymentRef      string          `json:"payment_ref"      gorm:"type:varchar(64)"`
	CreatedAt       time.Time       `json:"created_at"       gorm:"index"`
	UpdatedAt       time.Time       `json:"updated_at"`

	Items    []OrderItem           `json:"items"              gorm:"foreignKey:OrderID;references:ID"`
	Delivery *OrderDeliveryDetails `json:"delivery,omitempty" gorm:"foreignKey:OrderID;references:ID"`
	Pickup   *OrderPickupDetails   `json:"pickup,omitempty"   gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the database table name for Order.
func (Order) TableName() string { return "orders" }

// OrderItem is a denormalized snapshot of a cart line at order time.
// Name/sku/unit price are immutable once written; only PickedStatus is
// mutated afterwards, by fulfillment staff.
type OrderItem struct {
	ID           string          `json:"id"            gorm:"type:char(36);primaryKey"`
	OrderID      string          `json:"order_id"      gorm:"type:char(36);not null;index"`
	ProductID    string          `json:"product_id"    gorm:"type:char(36);not null"`
	Name         string          `json:"name"          gorm:"type:varchar(255);not null"`
	SKU          string          `json:"sku"           gorm:"type:varchar(64);not null"`
	UnitPrice    decimal.Decimal `json:"unit_price"    gorm:"type:numeric;not null"`
	Quantity     int             `json:"quantity"      gorm:"not null"`
	PickedStatus PickedStatus    `json:"picked_status" gorm:"type:varchar(16);not null;default:'PENDING'"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// TableName returns the database table name for OrderItem.
func (OrderItem) TableName() string { return "order_items" }

// OrderDeliveryDetails is the fulfillment record for DELIVERY orders. An
// order owns exactly one fulfillment-detail record, delivery or pickup.
type OrderDeliveryDetails struct {
	ID             string    `json:"id"               gorm:"type:char(36);primaryKey"`
	OrderID        string    `json:"order_id"         gorm:"type:char(36);not null;uniqueIndex"`
	DeliverySlotID string    `json:"delivery_slot_id" gorm:"type:char(36);not null"`
	Address        string    `json:"address"          gorm:"type:text;not null"`
	CreatedAt      time.Time `json:"created_at"`

	DeliverySlot DeliverySlot `json:"-" gorm:"foreignKey:DeliverySlotID;references:ID"`
}

// TableName returns the database table name for OrderDeliveryDetails.
func (OrderDeliveryDetails) TableName() string { return "order_delivery_details" }

// OrderPickupDetails is the fulfillment record for PICKUP orders.
type OrderPickupDetails struct {
	ID                string    `json:"id"                  gorm:"type:char(36);primaryKey"`
	OrderID           string    `json:"order_id"            gorm:"type:char(36);not null;uniqueIndex"`
	BranchID          string    `json:"branch_id"           gorm:"type:char(36);not null"`
	PickupWindowStart time.Time `json:"pickup_window_start" gorm:"not null"`
	PickupWindowEnd   time.Time `json:"pickup_window_end"   gorm:"not null"`
	CreatedAt         time.Time `json:"created_at"`
}

// TableName returns the database table name for OrderPickupDetails.
func (OrderPickupDetails) TableName() string { return "order_pickup_details" }

// StockRequest is a staff-submitted request to adjust a branch's inventory,
// terminalized exactly once by a manager/admin review. On approval the
// realized quantity overwrites Quantity.
type StockRequest struct {
	ID              string             `json:"id"            gorm:"type:char(36);primaryKey"`
	BranchID        string             `json:"branch_id"     gorm:"type:char(36);not null;index"`
	ProductID       string             `json:"product_id"    gorm:"type:char(36);not null;index"`
	Quantity        int                `json:"quantity"      gorm:"not null"`
	RequestType     StockRequestType   `json:"request_type"  gorm:"type:varchar(16);not null"`
	Status          StockRequestStatus `json:"status"        gorm:"type:varchar(16);not null;index"`
	ActorUserID     string             `json:"actor_user_id" gorm:"type:varchar(64);not null;index"`
	RejectionReason string             `json:"rejection_reason,omitempty" gorm:"type:text"`
	CreatedAt       time.Time          `json:"created_at"    gorm:"index"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// TableName returns the database table name for StockRequest.
func (StockRequest) TableName() string { return "stock_requests" }
