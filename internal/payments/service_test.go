package payments

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mdnaeem95/hbbtool-sub002/internal/notifications"
	"github.com/mdnaeem95/hbbtool-sub002/internal/orders"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/db/models"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/enums"
	pkgerrors "github.com/mdnaeem95/hbbtool-sub002/pkg/errors"
)

type sqliteTx struct {
	db *gorm.DB
}

func (s sqliteTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

type captureSink struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (c *captureSink) Publish(_ context.Context, event notifications.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *captureSink) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	db      *gorm.DB
	service Service
	sink    *captureSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:payments_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.Merchant{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.PaymentProof{},
		&models.OrderEvent{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	sink := &captureSink{}
	svc, err := NewService(
		sqliteTx{db: db},
		NewRepository(db),
		orders.NewRepository(db),
		sink,
		nil,
		3,
		5*1024*1024,
	)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	return &fixture{db: db, service: svc, sink: sink}
}

func seedOrderWithPayment(t *testing.T, db *gorm.DB, mutate func(*models.Order, *models.Payment)) (*models.Order, *models.Payment) {
	t.Helper()
	order := &models.Order{
		ID:             uuid.New(),
		OrderNumber:    "HBB-20260830-" + uuid.NewString()[:6],
		MerchantID:     uuid.New(),
		CustomerName:   "Siti",
		CustomerPhone:  "+6598765432",
		DeliveryMethod: enums.DeliveryMethodPickup,
		SubtotalCents:  1600,
		TotalCents:     1600,
		Status:         enums.OrderStatusPending,
		PaymentStatus:  enums.PaymentStatusPending,
	}
	payment := &models.Payment{
		ID:               uuid.New(),
		OrderID:          order.ID,
		AmountCents:      1600,
		Status:           enums.PaymentStatusPending,
		PaymentReference: "HBB-ABCD2345",
	}
	if mutate != nil {
		mutate(order, payment)
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	if err := db.Create(payment).Error; err != nil {
		t.Fatalf("seed payment: %v", err)
	}
	return order, payment
}

func validProof() ProofInput {
	return ProofInput{
		FileURL:       "https://storage.example.com/proofs/p1.jpg",
		FileName:      "p1.jpg",
		FileSizeBytes: 120_000,
		MimeType:      "image/jpeg",
	}
}

func TestUploadProofFirstProofStartsProcessing(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()
	order, payment := seedOrderWithPayment(t, fx.db, nil)

	proof, err := fx.service.UploadProof(ctx, order.ID, validProof())
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	var stored models.Payment
	if err := fx.db.First(&stored, "id = ?", payment.ID).Error; err != nil {
		t.Fatalf("load payment: %v", err)
	}
	if stored.Status != enums.PaymentStatusProcessing {
		t.Fatalf("payment status = %s, want PROCESSING", stored.Status)
	}
	if stored.PrimaryProofID == nil || *stored.PrimaryProofID != proof.ID {
		t.Fatalf("primary proof = %v, want %s", stored.PrimaryProofID, proof.ID)
	}

	var storedOrder models.Order
	if err := fx.db.First(&storedOrder, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if storedOrder.PaymentStatus != enums.PaymentStatusProcessing {
		t.Fatalf("order payment status = %s, want PROCESSING", storedOrder.PaymentStatus)
	}
	if storedOrder.Status != enums.OrderStatusPending {
		t.Fatalf("order status = %s, want PENDING", storedOrder.Status)
	}

	var events []models.OrderEvent
	if err := fx.db.Where("order_id = ?", order.ID).Find(&events).Error; err != nil {
		t.Fatalf("load events: %v", err)
	}
	if len(events) != 1 || events[0].Event != "payment_proof_uploaded" {
		t.Fatalf("events = %+v", events)
	}
}

func TestUploadProofSecondProofKeepsPrimary(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()
	order, payment := seedOrderWithPayment(t, fx.db, nil)

	first, err := fx.service.UploadProof(ctx, order.ID, validProof())
	if err != nil {
		t.Fatalf("first upload: %v", err)
	}
	second := validProof()
	second.FileName = "p2.png"
	second.MimeType = "image/png"
	if _, err := fx.service.UploadProof(ctx, order.ID, second); err != nil {
		t.Fatalf("second upload: %v", err)
	}

	var stored models.Payment
	if err := fx.db.Preload("Proofs").First(&stored, "id = ?", payment.ID).Error; err != nil {
		t.Fatalf("load payment: %v", err)
	}
	if len(stored.Proofs) != 2 {
		t.Fatalf("proofs = %d, want 2", len(stored.Proofs))
	}
	if stored.PrimaryProofID == nil || *stored.PrimaryProofID != first.ID {
		t.Fatalf("primary proof changed: %v", stored.PrimaryProofID)
	}
}

func TestUploadProofCap(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()
	order, _ := seedOrderWithPayment(t, fx.db, nil)

	for i := 0; i < 3; i++ {
		if _, err := fx.service.UploadProof(ctx, order.ID, validProof()); err != nil {
			t.Fatalf("upload %d: %v", i+1, err)
		}
	}

	_, err := fx.service.UploadProof(ctx, order.ID, validProof())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if typed.Message() != "Maximum number of payment proofs (3) already uploaded." {
		t.Fatalf("message = %q", typed.Message())
	}
}

func TestUploadProofRejectsVerifiedPayment(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()
	order, _ := seedOrderWithPayment(t, fx.db, func(_ *models.Order, p *models.Payment) {
		p.Status = enums.PaymentStatusCompleted
	})

	_, err := fx.service.UploadProof(ctx, order.ID, validProof())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestUploadProofValidatesFile(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()
	order, _ := seedOrderWithPayment(t, fx.db, nil)

	cases := []struct {
		name   string
		mutate func(*ProofInput)
	}{
		{"oversized", func(p *ProofInput) { p.FileSizeBytes = 5*1024*1024 + 1 }},
		{"zero size", func(p *ProofInput) { p.FileSizeBytes = 0 }},
		{"bad mime", func(p *ProofInput) { p.MimeType = "image/gif" }},
		{"missing url", func(p *ProofInput) { p.FileURL = "" }},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			input := validProof()
			tc.mutate(&input)
			_, err := fx.service.UploadProof(ctx, order.ID, input)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	// Exactly the cap is accepted.
	input := validProof()
	input.FileSizeBytes = 5 * 1024 * 1024
	if _, err := fx.service.UploadProof(ctx, order.ID, input); err != nil {
		t.Fatalf("upload at size cap: %v", err)
	}
}

func TestVerifyApproveConfirmsOrder(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()
	order, payment := seedOrderWithPayment(t, fx.db, func(_ *models.Order, p *models.Payment) {
		p.Status = enums.PaymentStatusProcessing
	})
	verifier := uuid.New()

	result, err := fx.service.Verify(ctx, payment.ID, order.MerchantID, VerifyInput{
		Approve:    true,
		VerifiedBy: verifier,
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if result.Status != enums.PaymentStatusCompleted {
		t.Fatalf("payment status = %s, want COMPLETED", result.Status)
	}
	if result.VerifiedBy == nil || *result.VerifiedBy != verifier || result.VerifiedAt == nil {
		t.Fatalf("verifier not stamped: %+v", result)
	}

	var storedOrder models.Order
	if err := fx.db.First(&storedOrder, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if storedOrder.Status != enums.OrderStatusConfirmed || storedOrder.PaymentStatus != enums.PaymentStatusCompleted {
		t.Fatalf("order = %s/%s, want CONFIRMED/COMPLETED", storedOrder.Status, storedOrder.PaymentStatus)
	}
	if storedOrder.ConfirmedAt == nil {
		t.Fatal("confirmed_at not stamped")
	}

	var events []models.OrderEvent
	if err := fx.db.Where("order_id = ?", order.ID).Order("created_at").Find(&events).Error; err != nil {
		t.Fatalf("load events: %v", err)
	}
	names := make([]string, 0, len(events))
	for _, e := range events {
		names = append(names, e.Event)
	}
	joined := strings.Join(names, ",")
	if !strings.Contains(joined, "status_changed") || !strings.Contains(joined, "payment_verified") {
		t.Fatalf("events = %v", names)
	}

	published := fx.sink.types()
	if len(published) != 1 || published[0] != notifications.EventPaymentVerified {
		t.Fatalf("published = %v", published)
	}
}

func TestVerifyRejectLeavesOrderPending(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()
	order, payment := seedOrderWithPayment(t, fx.db, func(_ *models.Order, p *models.Payment) {
		p.Status = enums.PaymentStatusProcessing
	})
	reason := "amount does not match"

	result, err := fx.service.Verify(ctx, payment.ID, order.MerchantID, VerifyInput{
		Approve:    false,
		Reason:     &reason,
		VerifiedBy: uuid.New(),
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if result.Status != enums.PaymentStatusFailed {
		t.Fatalf("payment status = %s, want FAILED", result.Status)
	}

	var storedOrder models.Order
	if err := fx.db.First(&storedOrder, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if storedOrder.Status != enums.OrderStatusPending {
		t.Fatalf("order status = %s, want PENDING", storedOrder.Status)
	}
	if storedOrder.PaymentStatus != enums.PaymentStatusFailed {
		t.Fatalf("order payment status = %s, want FAILED", storedOrder.PaymentStatus)
	}

	var events []models.OrderEvent
	if err := fx.db.Where("order_id = ? AND event = ?", order.ID, "payment_rejected").Find(&events).Error; err != nil {
		t.Fatalf("load events: %v", err)
	}
	if len(events) != 1 || events[0].Payload["reason"] != reason {
		t.Fatalf("rejection event = %+v", events)
	}

	published := fx.sink.types()
	if len(published) != 1 || published[0] != notifications.EventPaymentRejected {
		t.Fatalf("published = %v", published)
	}

	// A failed payment accepts a fresh proof and can be re-verified.
	if _, err := fx.service.UploadProof(ctx, order.ID, validProof()); err != nil {
		t.Fatalf("upload after rejection: %v", err)
	}
	if _, err := fx.service.Verify(ctx, payment.ID, order.MerchantID, VerifyInput{Approve: true, VerifiedBy: uuid.New()}); err != nil {
		t.Fatalf("verify after rejection: %v", err)
	}
}

func TestVerifyIsSingleShot(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()
	order, payment := seedOrderWithPayment(t, fx.db, func(_ *models.Order, p *models.Payment) {
		p.Status = enums.PaymentStatusProcessing
	})

	if _, err := fx.service.Verify(ctx, payment.ID, order.MerchantID, VerifyInput{Approve: true, VerifiedBy: uuid.New()}); err != nil {
		t.Fatalf("first verify: %v", err)
	}

	_, err := fx.service.Verify(ctx, payment.ID, order.MerchantID, VerifyInput{Approve: true, VerifiedBy: uuid.New()})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestUpdateFromStatusSkipsChangedPayment(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()
	_, payment := seedOrderWithPayment(t, fx.db, func(_ *models.Order, p *models.Payment) {
		p.Status = enums.PaymentStatusProcessing
	})

	// A writer holding a stale PENDING snapshot must not overwrite the
	// PROCESSING row.
	repo := NewRepository(fx.db)
	rows, err := repo.UpdateFromStatus(ctx, payment.ID, enums.PaymentStatusPending, map[string]any{
		"status": enums.PaymentStatusCompleted,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if rows != 0 {
		t.Fatalf("rows = %d, want 0", rows)
	}

	stored, err := repo.FindByID(ctx, payment.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Status != enums.PaymentStatusProcessing {
		t.Fatalf("status = %s, want PROCESSING", stored.Status)
	}
}

func TestVerifyForeignMerchant(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()
	_, payment := seedOrderWithPayment(t, fx.db, func(_ *models.Order, p *models.Payment) {
		p.Status = enums.PaymentStatusProcessing
	})

	_, err := fx.service.Verify(ctx, payment.ID, uuid.New(), VerifyInput{Approve: true, VerifiedBy: uuid.New()})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	var stored models.Payment
	if err := fx.db.First(&stored, "id = ?", payment.ID).Error; err != nil {
		t.Fatalf("load payment: %v", err)
	}
	if stored.Status != enums.PaymentStatusProcessing {
		t.Fatalf("payment mutated to %s", stored.Status)
	}
}

func TestVerifyCancelledOrder(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()
	order, payment := seedOrderWithPayment(t, fx.db, func(o *models.Order, p *models.Payment) {
		o.Status = enums.OrderStatusCancelled
		p.Status = enums.PaymentStatusProcessing
	})

	_, err := fx.service.Verify(ctx, payment.ID, order.MerchantID, VerifyInput{Approve: true, VerifiedBy: uuid.New()})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}
