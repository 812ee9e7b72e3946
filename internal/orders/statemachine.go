package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mdnaeem95/hbbtool-sub002/internal/products"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/db/models"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/enums"
	pkgerrors "github.com/mdnaeem95/hbbtool-sub002/pkg/errors"
)

// AllowedTargets returns the statuses an order may move to from the current
// status under its delivery method. The function is total: any pair outside
// the table yields an empty set, which includes resubmitting the current
// status. CANCELLED and REFUNDED are terminal.
func AllowedTargets(from enums.OrderStatus, method enums.DeliveryMethod) []enums.OrderStatus {
	delivery := method == enums.DeliveryMethodDelivery
	switch from {
	case enums.OrderStatusPending:
		return []enums.OrderStatus{enums.OrderStatusConfirmed, enums.OrderStatusCancelled}
	case enums.OrderStatusConfirmed:
		return []enums.OrderStatus{enums.OrderStatusPreparing, enums.OrderStatusCancelled}
	case enums.OrderStatusPreparing:
		return []enums.OrderStatus{enums.OrderStatusReady, enums.OrderStatusCancelled}
	case enums.OrderStatusReady:
		if delivery {
			return []enums.OrderStatus{enums.OrderStatusOutForDelivery, enums.OrderStatusCancelled}
		}
		return []enums.OrderStatus{enums.OrderStatusCompleted, enums.OrderStatusCancelled}
	case enums.OrderStatusOutForDelivery:
		if delivery {
			return []enums.OrderStatus{enums.OrderStatusDelivered, enums.OrderStatusCancelled}
		}
		return nil
	case enums.OrderStatusDelivered:
		if delivery {
			return []enums.OrderStatus{enums.OrderStatusCompleted, enums.OrderStatusRefunded}
		}
		return nil
	case enums.OrderStatusCompleted:
		return []enums.OrderStatus{enums.OrderStatusRefunded}
	default:
		return nil
	}
}

// CanTransition reports whether the (from, method, target) triple is legal.
func CanTransition(from enums.OrderStatus, method enums.DeliveryMethod, target enums.OrderStatus) bool {
	for _, allowed := range AllowedTargets(from, method) {
		if allowed == target {
			return true
		}
	}
	return false
}

// TransitionInput carries one requested status change.
type TransitionInput struct {
	Target enums.OrderStatus
	Reason *string
	Actor  enums.ActorRole
}

// ApplyTransition validates and applies a status change inside the caller's
// transaction: it persists the new status, stamps the lifecycle timestamp,
// merges a cancellation reason into metadata, restocks tracked inventory on
// cancellation and appends the audit event. The order struct is updated in
// place on success.
func ApplyTransition(ctx context.Context, tx *gorm.DB, order *models.Order, in TransitionInput, now time.Time) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction handle required")
	}
	if !in.Target.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	if !CanTransition(order.Status, order.DeliveryMethod, in.Target) {
		return pkgerrors.New(
			pkgerrors.CodeStateConflict,
			fmt.Sprintf("order cannot move from %s to %s", order.Status, in.Target),
		)
	}

	now = now.UTC()
	updates := map[string]any{"status": in.Target}

	switch in.Target {
	case enums.OrderStatusConfirmed:
		updates["confirmed_at"] = now
		order.ConfirmedAt = &now
	case enums.OrderStatusPreparing:
		updates["prepared_at"] = now
		order.PreparedAt = &now
	case enums.OrderStatusReady:
		updates["ready_at"] = now
		order.ReadyAt = &now
	case enums.OrderStatusDelivered:
		updates["delivered_at"] = now
		order.DeliveredAt = &now
	case enums.OrderStatusCancelled:
		updates["cancelled_at"] = now
		order.CancelledAt = &now
	case enums.OrderStatusCompleted:
		updates["completed_at"] = now
		order.CompletedAt = &now
	}

	payload := map[string]any{
		"from": order.Status.String(),
		"to":   in.Target.String(),
	}
	if in.Reason != nil && *in.Reason != "" {
		payload["reason"] = *in.Reason
		if in.Target == enums.OrderStatusCancelled {
			merged := order.Metadata.Merge(map[string]any{"cancellation_reason": *in.Reason})
			updates["metadata"] = merged
			order.Metadata = merged
		}
	}

	// Conditional on the from-status so a stale snapshot cannot overwrite a
	// transition committed after it was loaded.
	res := tx.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, order.Status).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(
			pkgerrors.CodeStateConflict,
			fmt.Sprintf("order is no longer %s, reload and retry", order.Status),
		)
	}

	if in.Target == enums.OrderStatusCancelled {
		requests := make([]products.InventoryRequest, 0, len(order.Items))
		for _, item := range order.Items {
			requests = append(requests, products.InventoryRequest{ProductID: item.ProductID, Qty: item.Qty})
		}
		if err := products.RestockInventory(ctx, tx, requests); err != nil {
			return err
		}
	}

	event := &models.OrderEvent{
		ID:      uuid.New(),
		OrderID: order.ID,
		Event:   "status_changed",
		Actor:   in.Actor.String(),
		Payload: payload,
	}
	if err := tx.WithContext(ctx).Create(event).Error; err != nil {
		return err
	}

	order.Status = in.Target
	return nil
}
