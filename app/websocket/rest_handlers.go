package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ShopPOS/app/models"
	"ShopPOS/app/services"

	"github.com/shopspring/decimal"
)

const (
	dateLayout     = "2006-01-02"
	actorHeader    = "X-User-ID"
	defaultQRSize  = 256
	maxRequestBody = 1 << 20
)

// RESTHandlers contains the REST API handlers of the back office
type RESTHandlers struct {
	svc *services.Services
}

// NewRESTHandlers creates REST handlers over the domain services
func NewRESTHandlers(svc *services.Services) *RESTHandlers {
	return &RESTHandlers{svc: svc}
}

// Register adds every API route to mux
func (h *RESTHandlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/orders", h.HandleCreateOrder)
	mux.HandleFunc("GET /api/orders", h.HandleListOrders)
	mux.HandleFunc("GET /api/orders/{id}", h.HandleGetOrder)
	mux.HandleFunc("PUT /api/orders/{id}", h.HandleUpdateOrder)
	mux.HandleFunc("DELETE /api/orders/{id}", h.HandleDeleteOrder)
	mux.HandleFunc("POST /api/orders/{id}/recompute", h.HandleRecomputeOrder)
	mux.HandleFunc("POST /api/orders/{id}/duplicate", h.HandleDuplicateOrder)
	mux.HandleFunc("GET /api/orders/{id}/qr", h.HandleOrderQR)
	mux.HandleFunc("GET /api/orders/{id}/receipt", h.HandleOrderReceipt)
	mux.HandleFunc("POST /api/orders/{id}/items", h.HandleAddItem)
	mux.HandleFunc("POST /api/order-items/{id}/{action}", h.HandleModifyItem)
	mux.HandleFunc("GET /api/orders/{id}/payments", h.HandleListPayments)
	mux.HandleFunc("POST /api/orders/{id}/payments", h.HandleAddPayment)
	mux.HandleFunc("DELETE /api/orders/{id}/payments/{pid}", h.HandleDeletePayment)

	mux.HandleFunc("GET /api/products", h.HandleListProducts)
	mux.HandleFunc("POST /api/products/{id}/stock", h.HandleAdjustStock)
	mux.HandleFunc("POST /api/replenishments", h.HandleCreateReplenishment)
	mux.HandleFunc("GET /api/replenishments", h.HandleListReplenishments)
	mux.HandleFunc("GET /api/stock-movements", h.HandleListMovements)
	mux.HandleFunc("POST /api/expenses", h.HandleCreateExpense)
	mux.HandleFunc("GET /api/expenses", h.HandleListExpenses)
	mux.HandleFunc("GET /api/clients", h.HandleSearchClients)

	mux.HandleFunc("POST /api/auth/login", h.HandleLogin)

	mux.HandleFunc("GET /api/dashboard", h.HandleDashboard)
	mux.HandleFunc("GET /api/dashboard/chart", h.HandleSalesChart)
}

// withCORS sets the CORS headers and answers preflight requests
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+actorHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Helpers

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("REST API: Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps a service error onto an HTTP status
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrDuplicateIdentifier):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrOutOfStock),
		errors.Is(err, services.ErrPaymentExceedsBalance),
		errors.Is(err, services.ErrProductInUse):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case services.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("REST API: internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue(name), 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s", name))
		return 0, false
	}
	return uint(id), true
}

// actorID reads the optional acting user from the request header
func actorID(r *http.Request) *uint {
	raw := r.Header.Get(actorHeader)
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return nil
	}
	v := uint(id)
	return &v
}

// requireUser resolves the acting user and checks allowed against it.
// It answers 401 when the header names no active account, 403 when the
// account lacks the capability.
func (h *RESTHandlers) requireUser(w http.ResponseWriter, r *http.Request, allowed func(*models.User) bool) (*models.User, bool) {
	id := actorID(r)
	if id == nil {
		writeError(w, http.StatusUnauthorized, "Missing "+actorHeader+" header")
		return nil, false
	}
	user, err := h.svc.Users.GetUser(*id)
	if errors.Is(err, services.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, "Unknown user")
		return nil, false
	}
	if err != nil {
		writeServiceError(w, err)
		return nil, false
	}
	if !user.IsActive {
		writeError(w, http.StatusUnauthorized, "Account disabled")
		return nil, false
	}
	if !allowed(user) {
		writeError(w, http.StatusForbidden, "Insufficient permissions")
		return nil, false
	}
	return user, true
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, raw)
}

func queryDate(r *http.Request, key string) (*time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	t, err := parseDate(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return &t, nil
}

func queryInt(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return fallback
	}
	return v
}

func queryUint(r *http.Request, key string) *uint {
	v, err := strconv.ParseUint(r.URL.Query().Get(key), 10, 64)
	if err != nil || v == 0 {
		return nil
	}
	id := uint(v)
	return &id
}

// Orders

type orderRequest struct {
	Date     string           `json:"date"`
	Title    *string          `json:"title"`
	Discount *decimal.Decimal `json:"discount"`
	ClientID *uint            `json:"client_id"`
}

// HandleCreateOrder creates an order; a blank title gets the next order number
func (h *RESTHandlers) HandleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date")
		return
	}

	in := services.OrderInput{Date: date, ClientID: req.ClientID}
	if req.Title != nil {
		in.Title = *req.Title
	}
	if req.Discount != nil {
		in.Discount = *req.Discount
	}

	order, err := h.svc.Orders.CreateOrder(in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	log.Printf("REST API: Order %s created", order.Title)
	writeJSON(w, http.StatusCreated, order)
}

// HandleListOrders returns orders and their totals for the query filters
func (h *RESTHandlers) HandleListOrders(w http.ResponseWriter, r *http.Request) {
	filter := services.OrderFilter{
		Search:   r.URL.Query().Get("search"),
		ClientID: queryUint(r, "client_id"),
		Limit:    queryInt(r, "limit", 50),
		Offset:   queryInt(r, "offset", 0),
	}
	var err error
	if filter.DateFrom, err = queryDate(r, "from"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filter.DateTo, err = queryDate(r, "to"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if raw := r.URL.Query().Get("paid"); raw != "" {
		paid, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid paid filter")
			return
		}
		filter.IsPaid = &paid
	}

	orders, err := h.svc.Orders.ListOrders(filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	totals, err := h.svc.Orders.OrderTotals(filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"orders": orders,
		"totals": totals,
	})
}

// HandleGetOrder returns one order with items and payments
func (h *RESTHandlers) HandleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	order, err := h.svc.Orders.GetOrder(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

type orderUpdateRequest struct {
	orderRequest
	ClearClient bool `json:"clear_client"`
}

// HandleUpdateOrder edits the order header
func (h *RESTHandlers) HandleUpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req orderUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	upd := services.OrderUpdate{
		Title:       req.Title,
		Discount:    req.Discount,
		ClientID:    req.ClientID,
		ClearClient: req.ClearClient,
	}
	if req.Date != "" {
		date, err := parseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date")
			return
		}
		upd.Date = &date
	}

	order, err := h.svc.Orders.UpdateOrder(id, upd)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// HandleDeleteOrder deletes an order and puts its items back in stock
func (h *RESTHandlers) HandleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Orders.DeleteOrder(id, actorID(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	log.Printf("REST API: Order %d deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

// HandleRecomputeOrder recalculates the order values from its lines
func (h *RESTHandlers) HandleRecomputeOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	order, err := h.svc.Orders.RecomputeOrder(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// HandleDuplicateOrder copies an order into a new one dated today
func (h *RESTHandlers) HandleDuplicateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	order, err := h.svc.Orders.DuplicateOrder(id, actorID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// HandleOrderQR serves the payment QR code of an order as PNG
func (h *RESTHandlers) HandleOrderQR(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	png, err := h.svc.Receipts.QRCode(id, queryInt(r, "size", defaultQRSize))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// HandleOrderReceipt serves the plain-text receipt of an order
func (h *RESTHandlers) HandleOrderReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	text, err := h.svc.Receipts.ReceiptText(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(text))
}

// Items

type addItemRequest struct {
	ProductID uint `json:"product_id"`
	Qty       int  `json:"qty"`
}

// HandleAddItem adds qty units of a product to an order
func (h *RESTHandlers) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req addItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Qty == 0 {
		req.Qty = 1
	}

	result, err := h.svc.Orders.AddItem(id, req.ProductID, req.Qty, actorID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleModifyItem applies add, remove or delete to one order line
func (h *RESTHandlers) HandleModifyItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	action := services.ItemAction(strings.ToLower(r.PathValue("action")))

	order, err := h.svc.Orders.ModifyItem(id, action, actorID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// Payments

type paymentRequest struct {
	Amount decimal.Decimal      `json:"amount"`
	Method models.PaymentMethod `json:"method"`
	Date   string               `json:"date"`
	Note   string               `json:"note"`
}

// HandleListPayments returns the payments of an order, newest first
func (h *RESTHandlers) HandleListPayments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	payments, err := h.svc.Payments.ListPayments(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

// HandleAddPayment records an installment against an order
func (h *RESTHandlers) HandleAddPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req paymentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date")
		return
	}

	result, err := h.svc.Payments.AddPayment(id, services.PaymentInput{
		Amount: req.Amount,
		Method: req.Method,
		Date:   date,
		Note:   req.Note,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// HandleDeletePayment removes an installment and refreshes the paid flag
func (h *RESTHandlers) HandleDeletePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	paymentID, ok := pathID(w, r, "pid")
	if !ok {
		return
	}
	result, err := h.svc.Payments.DeletePayment(id, paymentID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Stock

// HandleListProducts returns products, optionally filtered by ?search=
func (h *RESTHandlers) HandleListProducts(w http.ResponseWriter, r *http.Request) {
	var (
		products []models.Product
		err      error
	)
	if search := r.URL.Query().Get("search"); search != "" {
		products, err = h.svc.Products.SearchProducts(search)
	} else {
		products, err = h.svc.Products.GetAllProducts()
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

type adjustStockRequest struct {
	Action    services.AdjustAction `json:"action"`
	Qty       int                   `json:"qty"`
	UnitCost  *decimal.Decimal      `json:"unit_cost"`
	Reason    string                `json:"reason"`
	Supplier  string                `json:"supplier"`
	Reference string                `json:"reference"`
}

// HandleAdjustStock applies a quick add/remove/set to a product
func (h *RESTHandlers) HandleAdjustStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	user, ok := h.requireUser(w, r, (*models.User).CanManageProducts)
	if !ok {
		return
	}
	var req adjustStockRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.svc.Stock.AdjustStock(services.AdjustInput{
		ProductID: id,
		Action:    req.Action,
		Qty:       req.Qty,
		UnitCost:  req.UnitCost,
		Reason:    req.Reason,
		Supplier:  req.Supplier,
		Reference: req.Reference,
		ActorID:   &user.ID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type replenishmentRequest struct {
	ProductID   uint            `json:"product_id"`
	Qty         int             `json:"qty"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Description string          `json:"description"`
	Supplier    string          `json:"supplier"`
	Reference   string          `json:"reference"`
	Date        string          `json:"date"`
}

// HandleCreateReplenishment books a stock purchase
func (h *RESTHandlers) HandleCreateReplenishment(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r, (*models.User).CanManageReplenishment)
	if !ok {
		return
	}
	var req replenishmentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date")
		return
	}

	result, err := h.svc.Replenishments.CreateReplenishment(services.ReplenishmentInput{
		ProductID:   req.ProductID,
		Qty:         req.Qty,
		UnitCost:    req.UnitCost,
		Description: req.Description,
		Supplier:    req.Supplier,
		Reference:   req.Reference,
		Date:        date,
		ActorID:     &user.ID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// HandleListReplenishments returns stock purchases with their expense, newest first
func (h *RESTHandlers) HandleListReplenishments(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireUser(w, r, (*models.User).CanManageReplenishment); !ok {
		return
	}
	from, err := queryDate(r, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := queryDate(r, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.svc.Replenishments.ListReplenishments(from, to, queryInt(r, "limit", 100))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// HandleListMovements returns the stock ledger, newest first
func (h *RESTHandlers) HandleListMovements(w http.ResponseWriter, r *http.Request) {
	filter := services.MovementFilter{
		ProductID: queryUint(r, "product_id"),
		Type:      models.MovementType(r.URL.Query().Get("type")),
		Limit:     queryInt(r, "limit", 100),
	}
	var err error
	if filter.From, err = queryDate(r, "from"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filter.To, err = queryDate(r, "to"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	movements, err := h.svc.Stock.ListMovements(filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, movements)
}

// Expenses

type expenseRequest struct {
	ExpenseTypeID uint            `json:"expense_type_id"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	Date          string          `json:"date"`
	Supplier      string          `json:"supplier"`
	Reference     string          `json:"reference"`
	Notes         string          `json:"notes"`
}

// HandleCreateExpense records an expense
func (h *RESTHandlers) HandleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date")
		return
	}

	expense, err := h.svc.Expenses.CreateExpense(services.ExpenseInput{
		ExpenseTypeID: req.ExpenseTypeID,
		Description:   req.Description,
		Amount:        req.Amount,
		Date:          date,
		Supplier:      req.Supplier,
		Reference:     req.Reference,
		Notes:         req.Notes,
		ActorID:       actorID(r),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, expense)
}

// HandleListExpenses returns expenses, newest first
func (h *RESTHandlers) HandleListExpenses(w http.ResponseWriter, r *http.Request) {
	filter := services.ExpenseFilter{
		ExpenseTypeID: queryUint(r, "type_id"),
		Search:        r.URL.Query().Get("search"),
		Limit:         queryInt(r, "limit", 100),
	}
	var err error
	if filter.From, err = queryDate(r, "from"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filter.To, err = queryDate(r, "to"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	expenses, err := h.svc.Expenses.ListExpenses(filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

// Clients

// HandleSearchClients looks clients up by phone fragment (?phone=)
func (h *RESTHandlers) HandleSearchClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.svc.Clients.SearchByPhone(r.URL.Query().Get("phone"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clients)
}

// Auth

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin checks staff credentials. Clients send the returned id in the
// X-User-ID header so stock movements record who made them.
func (h *RESTHandlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	user, err := h.svc.Users.Authenticate(req.Username, req.Password)
	if err != nil {
		log.Printf("REST API: Failed login attempt for user: %s", req.Username)
		writeServiceError(w, err)
		return
	}
	log.Printf("REST API: Successful login for user: %s (ID: %d, Role: %s)", user.Username, user.ID, user.Role)
	writeJSON(w, http.StatusOK, user)
}

// Dashboard

// HandleDashboard returns the dashboard statistics
func (h *RESTHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireUser(w, r, (*models.User).CanViewAnalytics); !ok {
		return
	}
	stats, err := h.svc.Dashboard.GetDashboardStats()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HandleSalesChart returns daily sales for the last ?days= days
func (h *RESTHandlers) HandleSalesChart(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireUser(w, r, (*models.User).CanViewAnalytics); !ok {
		return
	}
	data, err := h.svc.Dashboard.GetSalesChartData(queryInt(r, "days", 7))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}
