package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/mdnaeem95/hbbtool-sub002/internal/notifications"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/db/models"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/enums"
	pkgerrors "github.com/mdnaeem95/hbbtool-sub002/pkg/errors"
)

func TestUpdateStatusHappyPath(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	sink := &captureSink{}
	svc, err := NewService(sqliteTx{db: db}, NewRepository(db), sink)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	ctx := context.Background()
	order := seedOrder(t, db, nil)

	updated, err := svc.UpdateStatus(ctx, order.ID, order.MerchantID, enums.OrderStatusConfirmed, nil)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Status != enums.OrderStatusConfirmed || updated.ConfirmedAt == nil {
		t.Fatalf("transition not applied: %+v", updated)
	}

	published := sink.byType(notifications.EventOrderStatusChanged)
	if len(published) != 1 {
		t.Fatalf("published = %d, want 1", len(published))
	}
	if published[0].Payload["from"] != "PENDING" || published[0].Payload["to"] != "CONFIRMED" {
		t.Fatalf("payload = %+v", published[0].Payload)
	}

	events, err := svc.ListEvents(ctx, order.ID, order.MerchantID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 || events[0].Event != "status_changed" {
		t.Fatalf("events = %+v", events)
	}
}

func TestUpdateStatusForeignMerchant(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, err := NewService(sqliteTx{db: db}, NewRepository(db), &captureSink{})
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	ctx := context.Background()
	order := seedOrder(t, db, nil)

	_, err = svc.UpdateStatus(ctx, order.ID, uuid.New(), enums.OrderStatusConfirmed, nil)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	var stored models.Order
	if err := db.First(&stored, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if stored.Status != enums.OrderStatusPending {
		t.Fatalf("status mutated to %s", stored.Status)
	}
}

func TestUpdateStatusIllegalTransitionEmitsNothing(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	sink := &captureSink{}
	svc, err := NewService(sqliteTx{db: db}, NewRepository(db), sink)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	ctx := context.Background()
	order := seedOrder(t, db, nil)

	_, err = svc.UpdateStatus(ctx, order.ID, order.MerchantID, enums.OrderStatusCompleted, nil)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if len(sink.byType(notifications.EventOrderStatusChanged)) != 0 {
		t.Fatal("event published for failed transition")
	}
}

func TestGetForMerchantScopesOwnership(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, err := NewService(sqliteTx{db: db}, NewRepository(db), &captureSink{})
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	ctx := context.Background()
	order := seedOrder(t, db, nil)

	got, err := svc.GetForMerchant(ctx, order.ID, order.MerchantID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.OrderNumber != order.OrderNumber {
		t.Fatalf("order number = %q, want %q", got.OrderNumber, order.OrderNumber)
	}

	if _, err := svc.GetForMerchant(ctx, order.ID, uuid.New()); pkgerrors.As(err) == nil {
		t.Fatalf("expected not found for foreign merchant, got %v", err)
	}
	if _, err := svc.GetForMerchant(ctx, uuid.Nil, order.MerchantID); pkgerrors.As(err) == nil {
		t.Fatalf("expected validation for nil id, got %v", err)
	}
}
