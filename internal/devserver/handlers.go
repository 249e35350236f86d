package devserver

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/tably/checkout/internal/backend"
	"github.com/tably/checkout/internal/enum"
)

// tableOrders handles GET /restaurants/{rid}/tables/{tn}/orders.
// The active_orders list is answered in the {"data": ...} envelope on
// purpose: it is one of the legacy shapes the client must normalize.
func (s *Server) tableOrders(w http.ResponseWriter, r *http.Request) {
	restaurantID := chi.URLParam(r, "rid")
	tableNumber := chi.URLParam(r, "tn")

	s.mu.Lock()
	defer s.mu.Unlock()

	active := []*backend.Order{}
	totalDue := decimal.Zero
	for _, o := range s.orders {
		if o.RestaurantID == restaurantID && o.TableNumber == tableNumber && activeStatus(o.Status) {
			active = append(active, o)
			totalDue = totalDue.Add(o.TotalAmount)
		}
	}

	resp := map[string]any{
		"active_orders": map[string]any{"data": active},
		"table_statistics": backend.TableStatistics{
			ActiveOrders: len(active),
			TotalDue:     totalDue,
		},
	}
	if sess, ok := s.sessions[sessionKey(restaurantID, tableNumber)]; ok && len(active) > 0 {
		resp["current_session"] = sess
	}
	writeJSON(w, http.StatusOK, resp)
}

// createOrder handles POST /orders.
func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var req backend.CreateOrderPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}
	if req.RestaurantID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "restaurant is required"})
		return
	}
	if req.CustomerName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "customer_name is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order := s.newOrder(req.RestaurantID, req.OrderType, req.TableNumber, req.CustomerName, req.PaymentMethod, req.Items)
	if req.TableNumber != "" {
		s.openSession(req.RestaurantID, req.TableNumber)
	}
	writeJSON(w, http.StatusCreated, order)
}

// addOrderToTable handles POST /restaurants/{rid}/tables/{tn}/orders,
// attaching a new order to the table's existing session.
func (s *Server) addOrderToTable(w http.ResponseWriter, r *http.Request) {
	restaurantID := chi.URLParam(r, "rid")
	tableNumber := chi.URLParam(r, "tn")

	var req backend.AddOrderPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionKey(restaurantID, tableNumber)]
	if !ok {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no open session on this table"})
		return
	}

	order := s.newOrder(restaurantID, enum.OrderTypeDineIn, tableNumber, req.CustomerName, req.PaymentMethod, req.Items)
	order.SessionID = sess.ID
	sess.OrderCount++
	writeJSON(w, http.StatusCreated, order)
}

// getOrder handles GET /orders/{id}.
func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[chi.URLParam(r, "id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// createPaymentIntent handles POST /orders/{id}/payment-intent.
func (s *Server) createPaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TipAmount    *decimal.Decimal `json:"tip_amount"`
		TotalWithTip *decimal.Decimal `json:"total_with_tip"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[chi.URLParam(r, "id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}
	if req.TipAmount != nil {
		order.TipAmount = *req.TipAmount
		order.TotalAmount = order.Subtotal.Add(*req.TipAmount)
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"client_secret": "pi_" + order.ID + "_secret",
	})
}

// updatePaymentStatus handles PATCH /orders/{id}/payment-status.
func (s *Server) updatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	// Accept both the lowercase wire spelling and the stored enum value.
	status, ok := map[string]string{
		"paid":         enum.PaymentStatusPaid,
		"cash_pending": enum.PaymentStatusCashPending,
	}[strings.ToLower(req.Status)]
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order, found := s.orders[chi.URLParam(r, "id")]
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}
	order.PaymentStatus = status
	writeJSON(w, http.StatusOK, order)
}

// markAsPaid handles POST /orders/{id}/paid.
func (s *Server) markAsPaid(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Method string `json:"method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[chi.URLParam(r, "id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}
	order.PaymentStatus = enum.PaymentStatusPaid
	if req.Method != "" {
		order.PaymentMethod = req.Method
	}
	writeJSON(w, http.StatusOK, order)
}

// requestReceipt handles POST /orders/{id}/receipt. The fake backend just
// acknowledges; nothing is sent.
func (s *Server) requestReceipt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	s.mu.Lock()
	_, ok := s.orders[chi.URLParam(r, "id")]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}
	s.log.WithField("email", req.Email).Info("receipt requested")
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// prepareGuestOrder handles POST /guest/orders.
func (s *Server) prepareGuestOrder(w http.ResponseWriter, r *http.Request) {
	var req backend.GuestOrderPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}
	if req.CustomerName == "" || req.Phone == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "customer_name and phone are required"})
		return
	}
	if !req.Consent {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "consent is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	draft := &draftOrder{
		id:        uuid.NewString(),
		payload:   req,
		createdAt: s.now(),
	}
	s.drafts[draft.id] = draft

	resp := backend.GuestOrderResult{DraftOrderID: draft.id}
	if req.PaymentMethod == enum.PaymentMethodCard {
		resp.ClientSecret = "pi_" + draft.id + "_secret"
	}
	writeJSON(w, http.StatusCreated, resp)
}

// confirmGuestCash handles POST /guest/orders/{id}/cash.
func (s *Server) confirmGuestCash(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft, ok := s.drafts[chi.URLParam(r, "id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "draft not found"})
		return
	}
	if draft.orderID == "" {
		draft.orderID = s.materialize(draft).ID
	}
	writeJSON(w, http.StatusOK, map[string]string{"order_id": draft.orderID})
}

// draftStatus handles GET /guest/orders/{id}/status. A card draft reports an
// order id only once the simulated webhook delay has elapsed.
func (s *Server) draftStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft, ok := s.drafts[chi.URLParam(r, "id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "draft not found"})
		return
	}
	if draft.orderID == "" && s.now().Sub(draft.createdAt) >= s.confirmDelay {
		order := s.materialize(draft)
		order.PaymentStatus = enum.PaymentStatusPaid
		draft.orderID = order.ID
		s.log.WithFields(logrus.Fields{"draft_order_id": draft.id, "order_id": order.ID}).
			Info("draft confirmed")
	}
	writeJSON(w, http.StatusOK, map[string]string{"order_id": draft.orderID})
}

// --- Internals ---

// materialize turns a draft into a real order. Caller holds the lock.
func (s *Server) materialize(draft *draftOrder) *backend.Order {
	p := draft.payload
	orderType := enum.OrderTypeTakeaway
	if p.TableNumber != "" {
		orderType = enum.OrderTypeDineIn
	}
	order := s.newOrder(p.RestaurantID, orderType, p.TableNumber, p.CustomerName, p.PaymentMethod, p.Items)
	if p.TipAmount != nil {
		order.TipAmount = *p.TipAmount
		order.TotalAmount = order.Subtotal.Add(*p.TipAmount)
	}
	if p.TableNumber != "" {
		s.openSession(p.RestaurantID, p.TableNumber)
	}
	return order
}

// newOrder creates and stores an order. Caller holds the lock.
func (s *Server) newOrder(restaurantID, orderType, tableNumber, customerName, method string, items []backend.OrderItemPayload) *backend.Order {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.UnitPrice.Mul(decimal.NewFromInt32(it.Quantity)))
	}
	order := &backend.Order{
		ID:            uuid.NewString(),
		OrderNumber:   s.orderNumber(),
		RestaurantID:  restaurantID,
		OrderType:     orderType,
		TableNumber:   tableNumber,
		CustomerName:  customerName,
		Status:        enum.OrderStatusPending,
		PaymentMethod: method,
		PaymentStatus: enum.PaymentStatusUnpaid,
		Subtotal:      subtotal,
		TotalAmount:   subtotal,
		CreatedAt:     s.now(),
	}
	s.orders[order.ID] = order
	return order
}

// openSession ensures the table has a session. Caller holds the lock.
func (s *Server) openSession(restaurantID, tableNumber string) *backend.TableSession {
	key := sessionKey(restaurantID, tableNumber)
	if sess, ok := s.sessions[key]; ok {
		return sess
	}
	sess := &backend.TableSession{
		ID:          uuid.NewString(),
		TableNumber: tableNumber,
		OpenedAt:    s.now(),
		OrderCount:  1,
	}
	s.sessions[key] = sess
	return sess
}

func activeStatus(status string) bool {
	switch status {
	case enum.OrderStatusCompleted, enum.OrderStatusCancelled:
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers already sent; nothing useful left to do.
		return
	}
}
