// Package services – StockRequestService
//
// This file implements the stock-replenishment review workflow. Employees
// file stock requests; managers/admins review them exactly once. An approved
// review mutates the same inventory ledger checkout reads, under the same
// row-lock discipline, so the two workflows can never observe stale
// quantities from each other.
//
// A single review is one transaction: any failure leaves zero state
// mutations and zero audit entries. Bulk review is deliberately different:
// best-effort per item, collecting individual results.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-grocery-backend/internal/domain"
	"github.com/tbourn/go-grocery-backend/internal/repo"
)

// StockRequestCreate is the input for filing a new request.
type StockRequestCreate struct {
	BranchID    string                  `json:"branch_id"`
	ProductID   string                  `json:"product_id"`
	Quantity    int                     `json:"quantity"`
	RequestType domain.StockRequestType `json:"request_type"`
}

// ReviewDecision is the input for reviewing one request.
type ReviewDecision struct {
	RequestID        string                    `json:"request_id"`
	Status           domain.StockRequestStatus `json:"status"`
	ApprovedQuantity int                       `json:"approved_quantity,omitempty"`
	RejectionReason  string                    `json:"rejection_reason,omitempty"`
}

// BulkReviewResult is one entry of the best-effort bulk review response.
type BulkReviewResult struct {
	RequestID string                    `json:"request_id"`
	Status    domain.StockRequestStatus `json:"status,omitempty"`
	Result    string                    `json:"result"`
	ErrorCode string                    `json:"error_code,omitempty"`
	Message   string                    `json:"message,omitempty"`
}

// StockRequestService owns the stock request lifecycle.
type StockRequestService struct {
	DB    *gorm.DB
	Audit AuditSink
}

// NewStockRequestService wires the service with its audit sink.
func NewStockRequestService(db *gorm.DB, sink AuditSink) *StockRequestService {
	return &StockRequestService{DB: db, Audit: sink}
}

// Create files a new PENDING stock request. The inventory row must already
// exist; provisioning new (product, branch) rows is an admin concern.
func (s *StockRequestService) Create(ctx context.Context, actorID string, req StockRequestCreate) (*domain.StockRequest, error) {
	if req.Quantity <= 0 {
		return nil, InvalidQuantity("Requested quantity must be positive")
	}
	if !req.RequestType.Valid() {
		return nil, BadRequest("Unknown stock request type")
	}
	if _, err := repo.GetInventory(ctx, s.DB, req.BranchID, req.ProductID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, NotFound("Inventory row not found for branch/product")
		}
		return nil, err
	}

	var created *domain.StockRequest
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := repo.CreateStockRequest(ctx, tx, req.BranchID, req.ProductID, req.Quantity, req.RequestType, actorID)
		if err != nil {
			return err
		}
		if err := s.Audit.Record(ctx, tx, AuditEvent{
			EntityType:  AuditEntityStockRequest,
			Action:      AuditStockRequestCreate,
			ActorUserID: actorID,
			EntityID:    r.ID,
			NewValue: map[string]any{
				"branch_id":    r.BranchID,
				"product_id":   r.ProductID,
				"quantity":     r.Quantity,
				"request_type": r.RequestType,
			},
		}); err != nil {
			return err
		}
		created = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Review terminalizes one PENDING request. APPROVED applies the delta to the
// locked inventory row; REJECTED requires a reason. The whole operation is
// one transaction.
func (s *StockRequestService) Review(ctx context.Context, decision ReviewDecision, actorID string) (*domain.StockRequest, error) {
	tr := otel.Tracer("services/StockRequestService")
	ctx, span := tr.Start(ctx, "Review",
		trace.WithAttributes(
			attribute.String("stock_request.id", decision.RequestID),
			attribute.String("stock_request.decision", string(decision.Status)),
		),
	)
	defer span.End()

	if decision.Status != domain.StockRequestApproved && decision.Status != domain.StockRequestRejected {
		return nil, BadRequest("Review status must be APPROVED or REJECTED")
	}

	var reviewed *domain.StockRequest
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		request, err := repo.GetStockRequestLocked(ctx, tx, decision.RequestID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NotFound("Stock request not found")
			}
			return err
		}
		if request.Status != domain.StockRequestPending {
			return InvalidStatus("Stock request already reviewed")
		}

		if decision.Status == domain.StockRequestApproved {
			if decision.ApprovedQuantity <= 0 {
				return InvalidQuantity("Approved quantity must be positive")
			}
			if err := s.applyInventoryChange(ctx, tx, request, decision.ApprovedQuantity, actorID); err != nil {
				return err
			}
			request.Quantity = decision.ApprovedQuantity
		} else if strings.TrimSpace(decision.RejectionReason) == "" {
			return InvalidRejection("Rejection reason is required")
		}

		request.Status = decision.Status
		request.RejectionReason = decision.RejectionReason
		if err := tx.Save(request).Error; err != nil {
			return err
		}
		if err := s.Audit.Record(ctx, tx, AuditEvent{
			EntityType:  AuditEntityStockRequest,
			Action:      AuditStockRequestReview,
			ActorUserID: actorID,
			EntityID:    request.ID,
			OldValue:    map[string]any{"status": domain.StockRequestPending},
			NewValue: map[string]any{
				"status":            request.Status,
				"approved_quantity": request.Quantity,
				"rejection_reason":  request.RejectionReason,
			},
		}); err != nil {
			return err
		}
		reviewed = request
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reviewed, nil
}

// BulkReview applies Review to each item independently. A failure in one
// item does not abort the others; each result is collected individually.
func (s *StockRequestService) BulkReview(ctx context.Context, items []ReviewDecision, actorID string) []BulkReviewResult {
	results := make([]BulkReviewResult, 0, len(items))
	for _, item := range items {
		reviewed, err := s.Review(ctx, item, actorID)
		if err != nil {
			var de *DomainError
			if errors.As(err, &de) {
				results = append(results, BulkReviewResult{
					RequestID: item.RequestID,
					Result:    "error",
					ErrorCode: de.Code,
					Message:   de.Message,
				})
				continue
			}
			results = append(results, BulkReviewResult{
				RequestID: item.RequestID,
				Result:    "error",
				ErrorCode: "INTERNAL",
				Message:   "unexpected failure",
			})
			continue
		}
		results = append(results, BulkReviewResult{
			RequestID: item.RequestID,
			Status:    reviewed.Status,
			Result:    "ok",
		})
	}
	return results
}

// ListMine returns a page of the actor's own requests plus the total count.
func (s *StockRequestService) ListMine(ctx context.Context, actorID string, limit, offset int) ([]domain.StockRequest, int64, error) {
	total, err := repo.CountStockRequestsByActor(ctx, s.DB, actorID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.StockRequest{}, 0, nil
	}
	items, err := repo.ListStockRequestsByActor(ctx, s.DB, actorID, limit, offset)
	return items, total, err
}

// ListAdmin returns a page of all requests, optionally filtered by status.
func (s *StockRequestService) ListAdmin(ctx context.Context, status domain.StockRequestStatus, limit, offset int) ([]domain.StockRequest, int64, error) {
	if status != "" && !status.Valid() {
		return nil, 0, BadRequest("Unknown stock request status")
	}
	total, err := repo.CountStockRequests(ctx, s.DB, status)
	if err != nil {
		return nil, 0, err
	}
	items, err := repo.ListStockRequests(ctx, s.DB, status, limit, offset)
	return items, total, err
}

// applyInventoryChange locks the target inventory row and applies the
// approved delta: SET_QUANTITY replaces available_quantity, ADD_QUANTITY
// increments it. Emits the inventory audit entry with old/new quantities.
func (s *StockRequestService) applyInventoryChange(ctx context.Context, tx *gorm.DB, request *domain.StockRequest, approvedQuantity int, actorID string) error {
	inv, err := repo.GetInventoryLocked(ctx, tx, request.BranchID, request.ProductID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return NotFound("Inventory not found for branch/product")
		}
		return err
	}
	old := map[string]any{
		"available_quantity": inv.AvailableQuantity,
		"reserved_quantity":  inv.ReservedQuantity,
	}
	switch request.RequestType {
	case domain.StockRequestSetQuantity:
		inv.AvailableQuantity = approvedQuantity
	case domain.StockRequestAddQuantity:
		inv.AvailableQuantity += approvedQuantity
	default:
		return BadRequest("Unknown stock request type")
	}
	if err := repo.SaveInventory(ctx, tx, inv); err != nil {
		return err
	}
	return s.Audit.Record(ctx, tx, AuditEvent{
		EntityType:  AuditEntityInventory,
		Action:      AuditInventoryStockApply,
		ActorUserID: actorID,
		EntityID:    inv.ID,
		OldValue:    old,
		NewValue: map[string]any{
			"available_quantity": inv.AvailableQuantity,
			"reserved_quantity":  inv.ReservedQuantity,
		},
	})
}
