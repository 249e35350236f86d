package backend

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the durable server-side entity. Once one exists it is the sole
// source of truth for status and payment; the client never re-derives it
// from the cart.
type Order struct {
	ID            string          `json:"id"`
	OrderNumber   string          `json:"order_number"`
	RestaurantID  string          `json:"restaurant_id"`
	SessionID     string          `json:"session_id,omitempty"`
	OrderType     string          `json:"order_type"`
	TableNumber   string          `json:"table_number,omitempty"`
	CustomerName  string          `json:"customer_name"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"payment_method"`
	PaymentStatus string          `json:"payment_status"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TipAmount     decimal.Decimal `json:"tip_amount"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	CreatedAt     time.Time       `json:"created_at"`
}

// TableSession groups the orders sharing one physical table over a
// continuous dining period.
type TableSession struct {
	ID          string    `json:"id"`
	TableNumber string    `json:"table_number"`
	OpenedAt    time.Time `json:"opened_at"`
	OrderCount  int       `json:"order_count"`
}

// TableStatistics is informational table state returned with a snapshot.
type TableStatistics struct {
	ActiveOrders int             `json:"active_orders"`
	TotalDue     decimal.Decimal `json:"total_due"`
	GuestCount   int             `json:"guest_count"`
}

// TableOrdersSnapshot is the read-only view of a table's live state. It is
// fetched on demand and always treated as possibly stale.
type TableOrdersSnapshot struct {
	ActiveOrders   []Order
	CurrentSession *TableSession
	Statistics     TableStatistics
}

// OrderItemPayload is one cart line as submitted to the backend.
type OrderItemPayload struct {
	MenuItemID     string            `json:"menu_item_id"`
	Name           string            `json:"name"`
	UnitPrice      decimal.Decimal   `json:"unit_price"`
	Quantity       int32             `json:"quantity"`
	Customizations map[string]string `json:"customizations,omitempty"`
	Notes          string            `json:"notes,omitempty"`
}

// CreateOrderPayload is the full-order submission for a new dining session.
type CreateOrderPayload struct {
	RestaurantID  string             `json:"restaurant"`
	OrderType     string             `json:"order_type"`
	TableNumber   string             `json:"table_number,omitempty"`
	CustomerName  string             `json:"customer_name"`
	Phone         string             `json:"phone,omitempty"`
	PaymentMethod string             `json:"payment_method"`
	Notes         string             `json:"notes,omitempty"`
	Items         []OrderItemPayload `json:"items"`
}

// AddOrderPayload attaches a new order to a table's existing session.
type AddOrderPayload struct {
	RestaurantID  string             `json:"restaurant"`
	SessionID     string             `json:"session_id,omitempty"`
	TableNumber   string             `json:"table_number"`
	CustomerName  string             `json:"customer_name"`
	Phone         string             `json:"phone,omitempty"`
	PaymentMethod string             `json:"payment_method"`
	Notes         string             `json:"notes,omitempty"`
	Items         []OrderItemPayload `json:"items"`
}

// GuestOrderPayload prepares a draft order for an unauthenticated diner.
type GuestOrderPayload struct {
	RestaurantID  string             `json:"restaurant_id"`
	TableNumber   string             `json:"table_number,omitempty"`
	Items         []OrderItemPayload `json:"items"`
	CustomerName  string             `json:"customer_name"`
	Phone         string             `json:"phone"`
	Email         string             `json:"email,omitempty"`
	PaymentMethod string             `json:"payment_method"`
	Consent       bool               `json:"consent"`
	TipAmount     *decimal.Decimal   `json:"tip_amount,omitempty"`
	TotalWithTip  *decimal.Decimal   `json:"total_with_tip,omitempty"`
}

// GuestOrderResult is the backend's reply to a guest preparation. For card
// payment the intent secret comes back with the draft id.
type GuestOrderResult struct {
	DraftOrderID string `json:"draft_order_id"`
	ClientSecret string `json:"payment_intent_client_secret,omitempty"`
}
