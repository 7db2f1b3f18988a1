package websocket

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ShopPOS/app/config"
	"ShopPOS/app/database"
	"ShopPOS/app/models"
	"ShopPOS/app/services"

	"github.com/shopspring/decimal"
)

func newTestServer(t *testing.T) (*Server, *services.Services) {
	t.Helper()
	db, err := database.OpenInMemory(t.Name())
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	svc := services.NewServices(db, config.ShopSettings{Name: "Boutique Test", CurrencyLabel: "GMD", LowStockThreshold: 5})
	server := NewServer(":0", svc, nil)
	svc.SetNotifier(server)
	return server, svc
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func doAs(t *testing.T, h http.Handler, userID uint, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(actorHeader, fmt.Sprint(userID))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func mustUser(t *testing.T, svc *services.Services, username string, role models.UserRole) *models.User {
	t.Helper()
	user := &models.User{Username: username, Role: role}
	if err := svc.Users.CreateUser(user, "secret", nil); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	server, svc := newTestServer(t)
	h := server.Handler()

	product := &models.Product{Title: "Mangue", Value: decimal.NewFromInt(40), Qty: 5}
	if err := svc.Products.CreateProduct(product, nil); err != nil {
		t.Fatalf("create product: %v", err)
	}

	rec := do(t, h, http.MethodPost, "/api/orders", map[string]interface{}{})
	expectStatus(t, rec, http.StatusCreated)
	var order models.Order
	decode(t, rec, &order)
	if !strings.HasPrefix(order.Title, "CMD-") {
		t.Fatalf("expected generated order number, got %q", order.Title)
	}

	base := fmt.Sprintf("/api/orders/%d", order.ID)
	rec = do(t, h, http.MethodPost, base+"/items", map[string]interface{}{"product_id": product.ID, "qty": 2})
	expectStatus(t, rec, http.StatusOK)
	var added services.AddItemResult
	decode(t, rec, &added)
	if !added.Order.FinalValue.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("expected final value 80, got %s", added.Order.FinalValue)
	}

	rec = do(t, h, http.MethodPost, base+"/items", map[string]interface{}{"product_id": product.ID, "qty": 10})
	expectStatus(t, rec, http.StatusUnprocessableEntity)

	rec = do(t, h, http.MethodPost, base+"/payments", map[string]interface{}{"amount": "100"})
	expectStatus(t, rec, http.StatusUnprocessableEntity)

	rec = do(t, h, http.MethodPost, base+"/payments", map[string]interface{}{"amount": "80", "method": "cash"})
	expectStatus(t, rec, http.StatusCreated)
	var paid services.PaymentResult
	decode(t, rec, &paid)
	if !paid.IsPaid || !paid.Remaining.IsZero() {
		t.Fatalf("order should be settled, got %+v", paid)
	}

	rec = do(t, h, http.MethodPost, fmt.Sprintf("/api/order-items/%d/explode", added.Item.ID), nil)
	expectStatus(t, rec, http.StatusBadRequest)

	rec = do(t, h, http.MethodGet, base+"/receipt", nil)
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "Mangue") {
		t.Fatalf("receipt misses the product:\n%s", rec.Body.String())
	}

	rec = do(t, h, http.MethodDelete, base, nil)
	expectStatus(t, rec, http.StatusNoContent)
	stored, err := svc.Products.GetProduct(product.ID)
	if err != nil || stored.Qty != 5 {
		t.Fatalf("stock should be restored after delete, got %+v (%v)", stored, err)
	}
}

func TestErrorMapping(t *testing.T) {
	server, _ := newTestServer(t)
	h := server.Handler()

	expectStatus(t, do(t, h, http.MethodGet, "/api/orders/999", nil), http.StatusNotFound)
	expectStatus(t, do(t, h, http.MethodPost, "/api/orders/abc/items", map[string]int{"product_id": 1}), http.StatusBadRequest)
	expectStatus(t, do(t, h, http.MethodPost, "/api/orders", map[string]string{"date": "15/12/2024"}), http.StatusBadRequest)
	expectStatus(t, do(t, h, http.MethodPost, "/api/orders", map[string]string{"discount": "-5"}), http.StatusBadRequest)

	expectStatus(t, do(t, h, http.MethodPost, "/api/orders", map[string]string{"title": "VIP-1"}), http.StatusCreated)
	rec := do(t, h, http.MethodPost, "/api/orders", map[string]string{"title": "VIP-1"})
	expectStatus(t, rec, http.StatusConflict)
	var body map[string]string
	decode(t, rec, &body)
	if body["error"] == "" {
		t.Fatalf("error responses carry a message")
	}

	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader("{not json"))
	bad := httptest.NewRecorder()
	h.ServeHTTP(bad, req)
	expectStatus(t, bad, http.StatusBadRequest)
}

func TestLogin(t *testing.T) {
	server, svc := newTestServer(t)
	h := server.Handler()

	if err := svc.Users.CreateUser(&models.User{Username: "awa"}, "secret", nil); err != nil {
		t.Fatalf("create user: %v", err)
	}

	expectStatus(t, do(t, h, http.MethodPost, "/api/auth/login", map[string]string{"username": "awa"}), http.StatusBadRequest)
	expectStatus(t, do(t, h, http.MethodPost, "/api/auth/login", loginRequest{Username: "awa", Password: "wrong"}), http.StatusUnauthorized)

	rec := do(t, h, http.MethodPost, "/api/auth/login", loginRequest{Username: "awa", Password: "secret"})
	expectStatus(t, rec, http.StatusOK)
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("password hash must not be returned: %s", rec.Body.String())
	}
}

func TestCORSAndHealth(t *testing.T) {
	server, _ := newTestServer(t)
	h := server.Handler()

	rec := do(t, h, http.MethodOptions, "/api/orders", nil)
	expectStatus(t, rec, http.StatusOK)
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header")
	}
	if !strings.Contains(rec.Header().Get("Access-Control-Allow-Headers"), actorHeader) {
		t.Fatalf("actor header should be allowed")
	}

	rec = do(t, h, http.MethodGet, "/health", nil)
	expectStatus(t, rec, http.StatusOK)
	var health map[string]interface{}
	decode(t, rec, &health)
	if health["status"] != "healthy" {
		t.Fatalf("unexpected health %v", health)
	}
}

func TestActorID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if actorID(req) != nil {
		t.Fatalf("no header means no actor")
	}
	req.Header.Set(actorHeader, "7")
	if id := actorID(req); id == nil || *id != 7 {
		t.Fatalf("expected actor 7")
	}
	req.Header.Set(actorHeader, "abc")
	if actorID(req) != nil {
		t.Fatalf("garbage header should be ignored")
	}
}

func TestManagerRoutesRequireCapability(t *testing.T) {
	server, svc := newTestServer(t)
	h := server.Handler()
	manager := mustUser(t, svc, "fatou", models.RoleManager)
	employee := mustUser(t, svc, "lamin", models.RoleEmployee)
	retired := mustUser(t, svc, "ousman", models.RoleManager)
	if err := svc.Users.SetActive(retired.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	product := &models.Product{Title: "Riz 25kg", Value: decimal.NewFromInt(1500), Qty: 2}
	if err := svc.Products.CreateProduct(product, nil); err != nil {
		t.Fatalf("create product: %v", err)
	}
	replenish := replenishmentRequest{ProductID: product.ID, Qty: 4, UnitCost: decimal.NewFromInt(1100), Supplier: "Gamcel"}
	adjust := adjustStockRequest{Action: services.AdjustRemove, Qty: 1, Reason: "Sac percé"}
	stockPath := fmt.Sprintf("/api/products/%d/stock", product.ID)

	expectStatus(t, do(t, h, http.MethodPost, "/api/replenishments", replenish), http.StatusUnauthorized)
	expectStatus(t, doAs(t, h, 999, http.MethodPost, "/api/replenishments", replenish), http.StatusUnauthorized)
	expectStatus(t, doAs(t, h, retired.ID, http.MethodPost, "/api/replenishments", replenish), http.StatusUnauthorized)
	expectStatus(t, doAs(t, h, employee.ID, http.MethodPost, "/api/replenishments", replenish), http.StatusForbidden)
	expectStatus(t, doAs(t, h, employee.ID, http.MethodGet, "/api/replenishments", nil), http.StatusForbidden)
	expectStatus(t, doAs(t, h, employee.ID, http.MethodPost, stockPath, adjust), http.StatusForbidden)
	expectStatus(t, doAs(t, h, employee.ID, http.MethodGet, "/api/dashboard", nil), http.StatusForbidden)
	expectStatus(t, doAs(t, h, employee.ID, http.MethodGet, "/api/dashboard/chart?days=3", nil), http.StatusForbidden)

	unchanged, err := svc.Products.GetProduct(product.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if unchanged.Qty != 2 {
		t.Fatalf("refused requests must not touch stock, qty %d", unchanged.Qty)
	}

	rec := doAs(t, h, manager.ID, http.MethodPost, "/api/replenishments", replenish)
	expectStatus(t, rec, http.StatusCreated)
	var created struct {
		Movement models.StockMovement `json:"movement"`
		Product  models.Product       `json:"product"`
	}
	decode(t, rec, &created)
	if created.Product.Qty != 6 || created.Movement.CreatedByID == nil || *created.Movement.CreatedByID != manager.ID {
		t.Fatalf("unexpected replenishment %+v", created)
	}

	expectStatus(t, doAs(t, h, manager.ID, http.MethodPost, stockPath, adjust), http.StatusOK)
	expectStatus(t, doAs(t, h, manager.ID, http.MethodGet, "/api/dashboard", nil), http.StatusOK)
	expectStatus(t, doAs(t, h, manager.ID, http.MethodGet, "/api/dashboard/chart?days=3", nil), http.StatusOK)
}

func TestListReplenishmentsOverHTTP(t *testing.T) {
	server, svc := newTestServer(t)
	h := server.Handler()
	manager := mustUser(t, svc, "fatou", models.RoleManager)

	product := &models.Product{Title: "Huile 5L", Value: decimal.NewFromInt(600), Qty: 0}
	if err := svc.Products.CreateProduct(product, nil); err != nil {
		t.Fatalf("create product: %v", err)
	}
	for _, qty := range []int{3, 5} {
		_, err := svc.Replenishments.CreateReplenishment(services.ReplenishmentInput{ProductID: product.ID, Qty: qty, UnitCost: decimal.NewFromInt(450)})
		if err != nil {
			t.Fatalf("replenish: %v", err)
		}
	}
	// A sale-side movement must not be listed
	if _, err := svc.Stock.AdjustStock(services.AdjustInput{ProductID: product.ID, Action: services.AdjustRemove, Qty: 1}); err != nil {
		t.Fatalf("adjust: %v", err)
	}

	rec := doAs(t, h, manager.ID, http.MethodGet, "/api/replenishments", nil)
	expectStatus(t, rec, http.StatusOK)
	var rows []models.StockMovement
	decode(t, rec, &rows)
	if len(rows) != 2 {
		t.Fatalf("expected 2 replenishments, got %d", len(rows))
	}
	if rows[0].Quantity != 5 || rows[0].Expense == nil || rows[0].Product == nil {
		t.Fatalf("expected newest first with expense and product, got %+v", rows[0])
	}

	rec = doAs(t, h, manager.ID, http.MethodGet, "/api/replenishments?limit=1", nil)
	expectStatus(t, rec, http.StatusOK)
	decode(t, rec, &rows)
	if len(rows) != 1 {
		t.Fatalf("limit ignored, got %d rows", len(rows))
	}

	expectStatus(t, doAs(t, h, manager.ID, http.MethodGet, "/api/replenishments?from=15-12-2024", nil), http.StatusBadRequest)
}
