// Package services – CheckoutService
//
// This file implements the checkout workflow: previewing a cart against a
// branch's inventory, and confirming it into a committed order under
// concurrent inventory pressure. Confirm is idempotent per (user,
// Idempotency-Key): a replay with an identical body returns the recorded
// response verbatim, a replay with a different body is a conflict.
//
// Concurrency: two simultaneous confirmations against the same branch and
// product serialize on the inventory row lock, not on application logic.
// The second transaction observes the first one's decrement before
// evaluating sufficiency, so the ledger can never go negative.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// cart/user identifiers.
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-grocery-backend/internal/domain"
	"github.com/tbourn/go-grocery-backend/internal/repo"
)

// Delivery slots must be 2-hour windows fully inside store hours.
const (
	slotOpenMinute  = 6 * 60  // 06:00
	slotCloseMinute = 22 * 60 // 22:00
	slotWindow      = 120
)

// CheckoutSettings carries the configured pricing and routing knobs the
// workflow reads (see internal/config).
type CheckoutSettings struct {
	// DeliveryMinTotal is the cart total below which the flat delivery fee
	// applies.
	DeliveryMinTotal decimal.Decimal
	// DeliveryFeeUnderMin is the flat fee added to under-minimum deliveries.
	DeliveryFeeUnderMin decimal.Decimal
	// DeliverySourceBranchID is the branch all deliveries ship from.
	DeliverySourceBranchID string
}

// CheckoutRequest is the normalized confirm/preview input. The idempotency
// key is carried out of band (header or body) and is excluded from the
// request hash.
type CheckoutRequest struct {
	CartID          string                 `json:"cart_id"`
	FulfillmentType domain.FulfillmentType `json:"fulfillment_type"`
	BranchID        string                 `json:"branch_id,omitempty"`
	DeliverySlotID  string                 `json:"delivery_slot_id,omitempty"`
	Address         string                 `json:"address,omitempty"`
	PaymentToken    string                 `json:"payment_token,omitempty"`
}

// MissingItem describes a cart line the resolved branch cannot satisfy.
type MissingItem struct {
	ProductID         string `json:"product_id"`
	RequestedQuantity int    `json:"requested_quantity"`
	AvailableQuantity int    `json:"available_quantity"`
}

// CheckoutTotals is the pricing breakdown for a cart.
type CheckoutTotals struct {
	CartTotal   decimal.Decimal `json:"cart_total"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// CheckoutPreview is the read-only preview result.
type CheckoutPreview struct {
	CheckoutTotals
	BranchID     string        `json:"branch_id"`
	MissingItems []MissingItem `json:"missing_items"`
}

// CheckoutConfirmation is the committed order summary returned by Confirm
// and replayed verbatim on idempotent retries.
type CheckoutConfirmation struct {
	OrderID         string                 `json:"order_id"`
	OrderNumber     string                 `json:"order_number"`
	BranchID        string                 `json:"branch_id"`
	FulfillmentType domain.FulfillmentType `json:"fulfillment_type"`
	Status          domain.OrderStatus     `json:"status"`
	TotalAmount     decimal.Decimal        `json:"total_amount"`
	PaymentRef      string                 `json:"payment_ref"`

	// Replayed marks a response served from the idempotency store.
	Replayed bool `json:"-"`
}

// CheckoutService converts carts into committed orders.
type CheckoutService struct {
	DB       *gorm.DB
	Audit    AuditSink
	Payments PaymentCharger
	Settings CheckoutSettings
}

// NewCheckoutService wires the workflow with its collaborators.
func NewCheckoutService(db *gorm.DB, sink AuditSink, payments PaymentCharger, settings CheckoutSettings) *CheckoutService {
	return &CheckoutService{DB: db, Audit: sink, Payments: payments, Settings: settings}
}

// Preview resolves the fulfilling branch and reports totals plus the items
// the branch cannot satisfy. Pure read: no locks, no writes.
func (s *CheckoutService) Preview(ctx context.Context, userID string, req CheckoutRequest) (*CheckoutPreview, error) {
	tr := otel.Tracer("services/CheckoutService")
	ctx, span := tr.Start(ctx, "Preview",
		trace.WithAttributes(
			attribute.String("cart.id", req.CartID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	branchID, err := s.resolveBranch(ctx, s.DB, req.FulfillmentType, req.BranchID)
	if err != nil {
		return nil, err
	}

	cart, err := repo.GetCartWithItems(ctx, s.DB, req.CartID, false)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, NotFound("Cart not found")
		}
		return nil, err
	}

	missing := make([]MissingItem, 0)
	for _, item := range cart.Items {
		available := 0
		if inv, err := repo.GetInventory(ctx, s.DB, branchID, item.ProductID); err == nil {
			available = inv.AvailableQuantity
		} else if !errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
		if available < item.Quantity {
			missing = append(missing, MissingItem{
				ProductID:         item.ProductID,
				RequestedQuantity: item.Quantity,
				AvailableQuantity: available,
			})
		}
	}

	return &CheckoutPreview{
		CheckoutTotals: s.pricing(cart, req.FulfillmentType),
		BranchID:       branchID,
		MissingItems:   missing,
	}, nil
}

// Confirm executes the checkout transaction: idempotency check, branch and
// slot validation, locked inventory read, pricing, order creation,
// inventory decrement, payment capture, and idempotency record, all
// committed atomically.
func (s *CheckoutService) Confirm(ctx context.Context, userID, idemKey string, req CheckoutRequest) (*CheckoutConfirmation, error) {
	tr := otel.Tracer("services/CheckoutService")
	ctx, span := tr.Start(ctx, "Confirm",
		trace.WithAttributes(
			attribute.String("cart.id", req.CartID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	if strings.TrimSpace(idemKey) == "" {
		return nil, BadRequest("Idempotency key is required")
	}

	requestHash := hashCheckoutRequest(req)
	if existing, err := repo.GetIdempotencyKey(ctx, s.DB, userID, idemKey); err == nil {
		if existing.RequestHash != requestHash {
			return nil, IdempotencyConflict("Request payload differs for same Idempotency-Key")
		}
		var cached CheckoutConfirmation
		if err := json.Unmarshal(existing.ResponsePayload, &cached); err != nil {
			return nil, err
		}
		cached.Replayed = true
		return &cached, nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	branchID, err := s.resolveBranch(ctx, s.DB, req.FulfillmentType, req.BranchID)
	if err != nil {
		return nil, err
	}
	if err := s.validateDeliverySlot(ctx, s.DB, req.FulfillmentType, req.DeliverySlotID, branchID); err != nil {
		return nil, err
	}

	var (
		out             *CheckoutConfirmation
		paymentCaptured bool
	)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := repo.GetCartWithItems(ctx, tx, req.CartID, true)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NotFound("Cart not found")
			}
			return err
		}
		if len(cart.Items) == 0 {
			return BadRequest("Cart is empty")
		}

		productIDs := make([]string, 0, len(cart.Items))
		for _, item := range cart.Items {
			productIDs = append(productIDs, item.ProductID)
		}
		invMap, err := repo.LockInventory(ctx, tx, branchID, productIDs)
		if err != nil {
			return err
		}

		missing := missingItems(cart.Items, invMap)
		if len(missing) > 0 {
			return InsufficientStock("Insufficient stock for one or more items").
				WithDetails(map[string]any{"missing_items": missing})
		}

		totals := s.pricing(cart, req.FulfillmentType)
		order := s.buildOrder(cart, req, branchID, totals.TotalAmount)
		if req.FulfillmentType == domain.FulfillmentDelivery {
			order.Delivery = &domain.OrderDeliveryDetails{
				ID:             uuid.NewString(),
				OrderID:        order.ID,
				DeliverySlotID: req.DeliverySlotID,
				Address:        req.Address,
			}
		} else {
			now := time.Now().UTC()
			order.Pickup = &domain.OrderPickupDetails{
				ID:                uuid.NewString(),
				OrderID:           order.ID,
				BranchID:          branchID,
				PickupWindowStart: now,
				PickupWindowEnd:   now.Add(2 * time.Hour),
			}
		}
		if err := repo.CreateOrder(ctx, tx, order); err != nil {
			return err
		}
		if err := s.Audit.Record(ctx, tx, AuditEvent{
			EntityType:  AuditEntityOrder,
			Action:      AuditOrderCreate,
			ActorUserID: cart.UserID,
			EntityID:    order.ID,
			NewValue: map[string]any{
				"order_number": order.OrderNumber,
				"total_amount": totals.TotalAmount,
			},
		}); err != nil {
			return err
		}

		if err := s.decrementInventory(ctx, tx, cart.Items, invMap, cart.UserID); err != nil {
			return err
		}

		ref, err := s.Payments.Charge(ctx, req.PaymentToken, totals.TotalAmount)
		if err != nil {
			return err
		}
		paymentCaptured = true
		if err := tx.Model(&domain.Order{}).Where("id = ?", order.ID).
			Update("payment_ref", ref).Error; err != nil {
			return err
		}

		out = &CheckoutConfirmation{
			OrderID:         order.ID,
			OrderNumber:     order.OrderNumber,
			BranchID:        branchID,
			FulfillmentType: order.FulfillmentType,
			Status:          order.Status,
			TotalAmount:     totals.TotalAmount,
			PaymentRef:      ref,
		}
		payload, err := json.Marshal(out)
		if err != nil {
			return err
		}
		if _, err := repo.CreateIdempotencyKey(ctx, tx, userID, idemKey, requestHash, payload, 201); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				return IdempotencyConflict("Concurrent request with same Idempotency-Key")
			}
			return err
		}
		return nil
	})
	if err != nil {
		if paymentCaptured {
			// Money has moved but the transaction did not commit. Record a
			// reconciliation signal on a fresh session, best effort, then
			// propagate. No automatic refund or retry.
			s.auditPaymentNotCommitted(ctx, userID, req, err)
		}
		return nil, err
	}
	return out, nil
}

// resolveBranch maps the fulfillment type to the branch that will fulfill
// the order. DELIVERY ships from the configured source branch; PICKUP needs
// an explicit, active branch.
func (s *CheckoutService) resolveBranch(ctx context.Context, db *gorm.DB, ft domain.FulfillmentType, branchID string) (string, error) {
	if !ft.Valid() {
		return "", BadRequest("Unknown fulfillment type")
	}
	if ft == domain.FulfillmentDelivery {
		if s.Settings.DeliverySourceBranchID == "" {
			return "", NotFound("Delivery source branch is not configured")
		}
		branch, err := repo.GetBranch(ctx, db, s.Settings.DeliverySourceBranchID)
		if err != nil || !branch.IsActive {
			return "", NotFound("Delivery source branch not found")
		}
		return branch.ID, nil
	}
	if branchID == "" {
		return "", BadRequest("Branch is required for pickup")
	}
	branch, err := repo.GetBranch(ctx, db, branchID)
	if err != nil || !branch.IsActive {
		return "", NotFound("Branch not found")
	}
	return branch.ID, nil
}

// validateDeliverySlot enforces the slot rules for DELIVERY orders: the slot
// must belong to the resolved branch, be active, and span an exact 2-hour
// window inside 06:00–22:00.
func (s *CheckoutService) validateDeliverySlot(ctx context.Context, db *gorm.DB, ft domain.FulfillmentType, slotID, branchID string) error {
	if ft != domain.FulfillmentDelivery {
		return nil
	}
	if slotID == "" {
		return BadRequest("Delivery slot is required for delivery")
	}
	slot, err := repo.GetDeliverySlot(ctx, db, slotID)
	if err != nil || !slot.IsActive {
		return NotFound("Delivery slot not found")
	}
	if slot.BranchID != branchID {
		return InvalidSlot("Delivery slot does not belong to delivery branch")
	}
	if slot.StartMinute < slotOpenMinute || slot.EndMinute > slotCloseMinute ||
		slot.EndMinute-slot.StartMinute != slotWindow {
		return InvalidSlot("Delivery slot must be a 2-hour window between 06:00-22:00")
	}
	return nil
}

// pricing computes cart total and the delivery fee. DELIVERY below the
// configured minimum adds the configured flat fee; PICKUP never carries one.
func (s *CheckoutService) pricing(cart *domain.Cart, ft domain.FulfillmentType) CheckoutTotals {
	cartTotal := decimal.Zero
	for _, item := range cart.Items {
		cartTotal = cartTotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	fee := decimal.Zero
	if ft == domain.FulfillmentDelivery && cartTotal.LessThan(s.Settings.DeliveryMinTotal) {
		fee = s.Settings.DeliveryFeeUnderMin
	}
	return CheckoutTotals{
		CartTotal:   cartTotal,
		DeliveryFee: fee,
		TotalAmount: cartTotal.Add(fee),
	}
}

// buildOrder assembles the order aggregate, snapshotting name/sku/price from
// the cart's resolved products rather than live catalog state.
func (s *CheckoutService) buildOrder(cart *domain.Cart, req CheckoutRequest, branchID string, total decimal.Decimal) *domain.Order {
	order := &domain.Order{
		ID:              uuid.NewString(),
		OrderNumber:     newOrderNumber(),
		UserID:          cart.UserID,
		BranchID:        branchID,
		TotalAmount:     total,
		FulfillmentType: req.FulfillmentType,
		Status:          domain.OrderCreated,
		CreatedAt:       time.Now().UTC(),
	}
	for _, item := range cart.Items {
		order.Items = append(order.Items, domain.OrderItem{
			ID:           uuid.NewString(),
			OrderID:      order.ID,
			ProductID:    item.ProductID,
			Name:         item.Product.Name,
			SKU:          item.Product.SKU,
			UnitPrice:    item.UnitPrice,
			Quantity:     item.Quantity,
			PickedStatus: domain.PickedPending,
		})
	}
	return order
}

// decrementInventory applies the ordered quantities to the locked rows and
// records an audit entry per row with old/new quantities.
func (s *CheckoutService) decrementInventory(ctx context.Context, tx *gorm.DB, items []domain.CartItem, invMap map[string]*domain.Inventory, actorID string) error {
	for _, item := range items {
		inv := invMap[item.ProductID]
		if inv == nil {
			continue
		}
		old := map[string]any{
			"available_quantity": inv.AvailableQuantity,
			"reserved_quantity":  inv.ReservedQuantity,
		}
		inv.AvailableQuantity -= item.Quantity
		if err := repo.SaveInventory(ctx, tx, inv); err != nil {
			return err
		}
		if err := s.Audit.Record(ctx, tx, AuditEvent{
			EntityType:  AuditEntityInventory,
			Action:      AuditInventoryDecrement,
			ActorUserID: actorID,
			EntityID:    inv.ID,
			OldValue:    old,
			NewValue: map[string]any{
				"available_quantity": inv.AvailableQuantity,
				"reserved_quantity":  inv.ReservedQuantity,
			},
		}); err != nil {
			return err
		}
	}
	return nil
}

// auditPaymentNotCommitted writes the distinguished reconciliation record
// for the payment-captured-but-not-committed window. Best effort: a failure
// here is logged and swallowed because the original error must propagate.
func (s *CheckoutService) auditPaymentNotCommitted(ctx context.Context, userID string, req CheckoutRequest, cause error) {
	err := s.Audit.Record(ctx, s.DB.Session(&gorm.Session{NewDB: true}), AuditEvent{
		EntityType:  AuditEntityPayment,
		Action:      AuditPaymentNotCommitted,
		ActorUserID: userID,
		Context: map[string]any{
			"cart_id": req.CartID,
			"error":   cause.Error(),
		},
	})
	if err != nil {
		log.Error().Err(err).
			Str("cart_id", req.CartID).
			Msg("failed to record payment-captured-not-committed audit entry")
	}
}

// missingItems reports every cart line whose locked availability cannot
// cover the requested quantity. Absent rows count as zero availability.
func missingItems(items []domain.CartItem, invMap map[string]*domain.Inventory) []MissingItem {
	var missing []MissingItem
	for _, item := range items {
		available := 0
		if inv := invMap[item.ProductID]; inv != nil {
			available = inv.AvailableQuantity
		}
		if available < item.Quantity {
			missing = append(missing, MissingItem{
				ProductID:         item.ProductID,
				RequestedQuantity: item.Quantity,
				AvailableQuantity: available,
			})
		}
	}
	return missing
}

// newOrderNumber generates the human-readable order number
// ORD-<unix-ts>-<random6>.
func newOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("ORD-%d-%s", time.Now().UTC().Unix(), suffix)
}

// hashCheckoutRequest digests the normalized request body, excluding the
// idempotency key itself, for replay comparison.
func hashCheckoutRequest(req CheckoutRequest) string {
	b, _ := json.Marshal(req)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
