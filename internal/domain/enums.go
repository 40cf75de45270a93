// Package domain defines the persistence models for the grocery ordering
// backend: branches, inventory, carts, orders, stock requests, and the
// supporting idempotency and audit tables. These types are mapped with GORM
// and are shared across the repository and service layers.
package domain

// FulfillmentType describes how an order leaves the branch.
type FulfillmentType string

const (
	FulfillmentPickup   FulfillmentType = "PICKUP"
	FulfillmentDelivery FulfillmentType = "DELIVERY"
)

// Valid reports whether t is a recognized fulfillment type.
func (t FulfillmentType) Valid() bool {
	return t == FulfillmentPickup || t == FulfillmentDelivery
}

// OrderStatus is the order-level state machine. Orders advance monotonically
// CREATED → IN_PROGRESS → {READY, MISSING}; COMPLETED and CANCELLED are
// terminal states reachable outside the employee picking flow.
type OrderStatus string

const (
	OrderCreated    OrderStatus = "CREATED"
	OrderInProgress OrderStatus = "IN_PROGRESS"
	OrderReady      OrderStatus = "READY"
	OrderMissing    OrderStatus = "MISSING"
	OrderCompleted  OrderStatus = "COMPLETED"
	OrderCancelled  OrderStatus = "CANCELLED"
)

// Valid reports whether s is a recognized order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderCreated, OrderInProgress, OrderReady, OrderMissing, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

// PickedStatus tracks per-item fulfillment progress set by warehouse staff.
type PickedStatus string

const (
	PickedPending PickedStatus = "PENDING"
	PickedPicked  PickedStatus = "PICKED"
	PickedMissing PickedStatus = "MISSING"
)

// Valid reports whether s is a recognized picked status.
func (s PickedStatus) Valid() bool {
	return s == PickedPending || s == PickedPicked || s == PickedMissing
}

// StockRequestStatus is the review state of a stock request. A request is
// reviewed exactly once: PENDING → {APPROVED, REJECTED}.
type StockRequestStatus string

const (
	StockRequestPending  StockRequestStatus = "PENDING"
	StockRequestApproved StockRequestStatus = "APPROVED"
	StockRequestRejected StockRequestStatus = "REJECTED"
)

// Valid reports whether s is a recognized stock request status.
func (s StockRequestStatus) Valid() bool {
	return s == StockRequestPending || s == StockRequestApproved || s == StockRequestRejected
}

// StockRequestType selects how an approved quantity is applied to the
// inventory row.
type StockRequestType string

const (
	StockRequestSetQuantity StockRequestType = "SET_QUANTITY"
	StockRequestAddQuantity StockRequestType = "ADD_QUANTITY"
)

// Valid reports whether t is a recognized stock request type.
func (t StockRequestType) Valid() bool {
	return t == StockRequestSetQuantity || t == StockRequestAddQuantity
}

// Role is the actor role attached to a request by the (external) auth layer.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleEmployee Role = "EMPLOYEE"
	RoleManager  Role = "MANAGER"
	RoleAdmin    Role = "ADMIN"
)

// Valid reports whether r is a recognized role.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleEmployee || r == RoleManager || r == RoleAdmin
}
