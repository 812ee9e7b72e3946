package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mdnaeem95/hbbtool-sub002/api/controllers"
	"github.com/mdnaeem95/hbbtool-sub002/internal/checkout"
	"github.com/mdnaeem95/hbbtool-sub002/internal/merchants"
	"github.com/mdnaeem95/hbbtool-sub002/internal/notifications"
	"github.com/mdnaeem95/hbbtool-sub002/internal/orders"
	"github.com/mdnaeem95/hbbtool-sub002/internal/payments"
	"github.com/mdnaeem95/hbbtool-sub002/internal/products"
	pkgauth "github.com/mdnaeem95/hbbtool-sub002/pkg/auth"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/config"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/db/models"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/enums"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type sqliteTx struct {
	db *gorm.DB
}

func (s sqliteTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

type nopSink struct{}

func (nopSink) Publish(context.Context, notifications.Event) {}

type fixture struct {
	db       *gorm.DB
	cfg      *config.Config
	handler  http.Handler
	merchant *models.Merchant
	product  *models.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:routes_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.Merchant{},
		&models.Product{},
		&models.CheckoutSession{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.PaymentProof{},
		&models.OrderEvent{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.JWT = config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}
	cfg.Checkout.SessionTTL = 30 * time.Minute
	cfg.Payments.MaxProofsPerPayment = 3
	cfg.Payments.MaxProofSizeBytes = 5 * 1024 * 1024
	cfg.Delivery.BaseETAMinutes = 30

	store := checkout.NewGormStore(db)
	merchantSvc, err := merchants.NewService(merchants.NewRepository(db))
	if err != nil {
		t.Fatalf("merchants service: %v", err)
	}
	checkoutSvc, err := checkout.NewService(store, merchantSvc, products.NewRepository(db), nil, cfg.Checkout.SessionTTL, cfg.Delivery.BaseETAMinutes)
	if err != nil {
		t.Fatalf("checkout service: %v", err)
	}
	ordersRepo := orders.NewRepository(db)
	factory, err := orders.NewFactory(sqliteTx{db: db}, store, merchantSvc, ordersRepo, nil, nopSink{})
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	ordersSvc, err := orders.NewService(sqliteTx{db: db}, ordersRepo, nopSink{})
	if err != nil {
		t.Fatalf("orders service: %v", err)
	}
	paymentsSvc, err := payments.NewService(sqliteTx{db: db}, payments.NewRepository(db), ordersRepo, nopSink{}, nil, cfg.Payments.MaxProofsPerPayment, cfg.Payments.MaxProofSizeBytes)
	if err != nil {
		t.Fatalf("payments service: %v", err)
	}

	handler := NewRouter(Deps{
		Config:   cfg,
		Logger:   nil,
		Pingers:  map[string]controllers.Pinger{"db": stubPinger{}},
		Checkout: checkoutSvc,
		Factory:  factory,
		Orders:   ordersSvc,
		Payments: paymentsSvc,
	})

	merchant := &models.Merchant{
		ID:                 uuid.New(),
		Name:               "Makcik Kitchen",
		Slug:               "makcik-kitchen",
		IsActive:           true,
		DeliveryEnabled:    true,
		PickupEnabled:      true,
		DeliveryFeeCents:   500,
		PreparationMinutes: 45,
		PostalCode:         "520123",
		PayNowName:         "Makcik Kitchen",
		PayNowNumber:       "+6591234567",
	}
	if err := db.Create(merchant).Error; err != nil {
		t.Fatalf("seed merchant: %v", err)
	}
	product := &models.Product{
		ID:             uuid.New(),
		MerchantID:     merchant.ID,
		Name:           "Nasi Lemak",
		PriceCents:     800,
		IsActive:       true,
		TrackInventory: true,
		InventoryCount: 10,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}

	return &fixture{db: db, cfg: cfg, handler: handler, merchant: merchant, product: product}
}

func (fx *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	fx.handler.ServeHTTP(resp, req)
	return resp
}

func (fx *fixture) merchantToken(t *testing.T) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(fx.cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		MerchantID: &fx.merchant.ID,
		Role:       enums.ActorRoleMerchant,
		JTI:        uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func decodeData(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return envelope.Data
}

func TestHealthEndpoints(t *testing.T) {
	fx := newFixture(t)

	if resp := fx.do(t, http.MethodGet, "/health/live", "", nil); resp.Code != http.StatusOK {
		t.Fatalf("live = %d", resp.Code)
	}
	if resp := fx.do(t, http.MethodGet, "/health/ready", "", nil); resp.Code != http.StatusOK {
		t.Fatalf("ready = %d", resp.Code)
	}
	if resp := fx.do(t, http.MethodGet, "/metrics", "", nil); resp.Code != http.StatusOK {
		t.Fatalf("metrics = %d", resp.Code)
	}
}

func TestCheckoutToVerifiedOrderFlow(t *testing.T) {
	fx := newFixture(t)
	token := fx.merchantToken(t)

	// quote, zone 52 to 57 crosses the first surcharge tier
	quotePath := fmt.Sprintf("/api/v1/checkout/quote?merchant_id=%s&postal_code=570123", fx.merchant.ID)
	resp := fx.do(t, http.MethodGet, quotePath, "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("quote = %d body %s", resp.Code, resp.Body.String())
	}
	quote := decodeData(t, resp)
	if quote["delivery_fee_cents"].(float64) != 600 {
		t.Fatalf("fee = %v, want 600", quote["delivery_fee_cents"])
	}

	// create session
	resp = fx.do(t, http.MethodPost, "/api/v1/checkout/sessions", "", map[string]any{
		"merchant_id":     fx.merchant.ID.String(),
		"delivery_method": "PICKUP",
		"items": []map[string]any{
			{"product_id": fx.product.ID.String(), "qty": 2},
		},
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create session = %d body %s", resp.Code, resp.Body.String())
	}
	session := decodeData(t, resp)
	sessionToken := session["token"].(string)
	if session["total_cents"].(float64) != 1600 {
		t.Fatalf("total = %v, want 1600", session["total_cents"])
	}
	if session["paynow_number"].(string) == "" {
		t.Fatal("paynow display missing")
	}

	// session snapshot
	resp = fx.do(t, http.MethodGet, "/api/v1/checkout/sessions/"+sessionToken, "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("get session = %d", resp.Code)
	}

	// complete
	resp = fx.do(t, http.MethodPost, "/api/v1/checkout/sessions/"+sessionToken+"/complete", "", map[string]any{
		"customer_name":  "Siti",
		"customer_phone": "+6598765432",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("complete = %d body %s", resp.Code, resp.Body.String())
	}
	completed := decodeData(t, resp)
	orderID := completed["order_id"].(string)

	// second completion conflicts
	resp = fx.do(t, http.MethodPost, "/api/v1/checkout/sessions/"+sessionToken+"/complete", "", map[string]any{
		"customer_name":  "Siti",
		"customer_phone": "+6598765432",
	})
	if resp.Code != http.StatusConflict {
		t.Fatalf("double complete = %d, want 409", resp.Code)
	}

	// order detail requires auth
	resp = fx.do(t, http.MethodGet, "/api/v1/orders/"+orderID, "", nil)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated detail = %d, want 401", resp.Code)
	}
	resp = fx.do(t, http.MethodGet, "/api/v1/orders/"+orderID, token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("detail = %d body %s", resp.Code, resp.Body.String())
	}
	order := decodeData(t, resp)
	if order["status"].(string) != "PENDING" {
		t.Fatalf("status = %v", order["status"])
	}

	// proof upload (public)
	resp = fx.do(t, http.MethodPost, "/api/v1/orders/"+orderID+"/payment-proofs", "", map[string]any{
		"file_url":        "https://storage.example.com/proofs/p1.jpg",
		"file_name":       "p1.jpg",
		"file_size_bytes": 120000,
		"mime_type":       "image/jpeg",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("upload proof = %d body %s", resp.Code, resp.Body.String())
	}
	proof := decodeData(t, resp)
	paymentID := proof["payment_id"].(string)
	if proof["message"].(string) == "" {
		t.Fatal("proof upload missing confirmation message")
	}

	// verify
	resp = fx.do(t, http.MethodPost, "/api/v1/payments/"+paymentID+"/verify", token, map[string]any{
		"verified": true,
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("verify = %d body %s", resp.Code, resp.Body.String())
	}
	payment := decodeData(t, resp)
	if payment["status"].(string) != "COMPLETED" {
		t.Fatalf("payment status = %v", payment["status"])
	}
	if payment["message"].(string) == "" {
		t.Fatal("verify missing outcome message")
	}

	// order is confirmed now; walk it to completion
	resp = fx.do(t, http.MethodGet, "/api/v1/orders/"+orderID, token, nil)
	order = decodeData(t, resp)
	if order["status"].(string) != "CONFIRMED" {
		t.Fatalf("status = %v, want CONFIRMED", order["status"])
	}

	for _, target := range []string{"PREPARING", "READY", "COMPLETED"} {
		resp = fx.do(t, http.MethodPost, "/api/v1/orders/"+orderID+"/status", token, map[string]any{
			"status": target,
		})
		if resp.Code != http.StatusOK {
			t.Fatalf("transition to %s = %d body %s", target, resp.Code, resp.Body.String())
		}
	}

	// illegal transition maps to 422
	resp = fx.do(t, http.MethodPost, "/api/v1/orders/"+orderID+"/status", token, map[string]any{
		"status": "PREPARING",
	})
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("illegal transition = %d, want 422", resp.Code)
	}

	// audit trail grew along the way
	resp = fx.do(t, http.MethodGet, "/api/v1/orders/"+orderID+"/events", token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("events = %d", resp.Code)
	}
	var envelope struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(envelope.Data) < 6 {
		t.Fatalf("events = %d, want at least 6", len(envelope.Data))
	}
}

func TestExpiredSessionReadsAsAbsent(t *testing.T) {
	fx := newFixture(t)

	token, err := checkout.NewSessionToken()
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	session := &models.CheckoutSession{
		Token:            token,
		MerchantID:       fx.merchant.ID,
		DeliveryMethod:   enums.DeliveryMethodPickup,
		Items:            []models.SessionItem{{ProductID: fx.product.ID, Name: "Nasi Lemak", UnitPriceCents: 800, Qty: 1}},
		SubtotalCents:    800,
		TotalCents:       800,
		PaymentReference: "HBB-ABCD2345",
		Status:           enums.SessionStatusPending,
		ExpiresAt:        time.Now().UTC().Add(-time.Minute),
	}
	if err := fx.db.Create(session).Error; err != nil {
		t.Fatalf("seed session: %v", err)
	}

	resp := fx.do(t, http.MethodGet, "/api/v1/checkout/sessions/"+token, "", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expired session read = %d, want 404", resp.Code)
	}
}

func TestForeignMerchantCannotTouchOrder(t *testing.T) {
	fx := newFixture(t)

	order := &models.Order{
		ID:             uuid.New(),
		OrderNumber:    "HBB-20260830-ABCDEF",
		MerchantID:     fx.merchant.ID,
		CustomerName:   "Siti",
		CustomerPhone:  "+6598765432",
		DeliveryMethod: enums.DeliveryMethodPickup,
		SubtotalCents:  800,
		TotalCents:     800,
		Status:         enums.OrderStatusPending,
		PaymentStatus:  enums.PaymentStatusPending,
	}
	if err := fx.db.Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}

	otherID := uuid.New()
	foreign, err := pkgauth.MintAccessToken(fx.cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		MerchantID: &otherID,
		Role:       enums.ActorRoleMerchant,
		JTI:        uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	resp := fx.do(t, http.MethodGet, "/api/v1/orders/"+order.ID.String(), foreign, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("foreign detail = %d, want 404", resp.Code)
	}
}
