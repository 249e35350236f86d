package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// tableOrdersBody is the wire shape of the table snapshot. active_orders
// arrives in one of the legacy list shapes and is normalized here, once.
type tableOrdersBody struct {
	ActiveOrders   json.RawMessage `json:"active_orders"`
	CurrentSession *TableSession   `json:"current_session"`
	Statistics     TableStatistics `json:"table_statistics"`
}

// TableOrders fetches the live state of one (restaurant, table) pair.
// Read-only and idempotent; callers re-fetch before every checkout attempt.
func (c *Client) TableOrders(ctx context.Context, restaurantID, tableNumber string) (*TableOrdersSnapshot, error) {
	path := fmt.Sprintf("/restaurants/%s/tables/%s/orders",
		url.PathEscape(restaurantID), url.PathEscape(tableNumber))

	var body tableOrdersBody
	if err := c.get(ctx, path, &body); err != nil {
		return nil, err
	}

	snap := &TableOrdersSnapshot{
		CurrentSession: body.CurrentSession,
		Statistics:     body.Statistics,
	}
	if err := decodeList(body.ActiveOrders, &snap.ActiveOrders); err != nil {
		return nil, err
	}
	return snap, nil
}

// CreateOrderFromCart submits a full order opening a new dining session.
func (c *Client) CreateOrderFromCart(ctx context.Context, payload CreateOrderPayload) (*Order, error) {
	var order Order
	if err := c.post(ctx, "/orders", payload, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// AddOrderToTable attaches a new order to the table's existing session.
func (c *Client) AddOrderToTable(ctx context.Context, payload AddOrderPayload) (*Order, error) {
	path := fmt.Sprintf("/restaurants/%s/tables/%s/orders",
		url.PathEscape(payload.RestaurantID), url.PathEscape(payload.TableNumber))

	var order Order
	if err := c.post(ctx, path, payload, &order); err != nil {
		return nil, err
	}
	return &order, nil
}
