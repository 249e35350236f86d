package backend

import (
	"context"
	"fmt"
	"net/url"
)

// PrepareGuestOrder creates a server-side draft for an unauthenticated
// checkout. For card payment the reply carries the processor intent secret.
func (c *Client) PrepareGuestOrder(ctx context.Context, payload GuestOrderPayload) (*GuestOrderResult, error) {
	var result GuestOrderResult
	if err := c.post(ctx, "/guest/orders", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ConfirmGuestCash turns a cash draft directly into a real order; the
// restaurant collects payment in person.
func (c *Client) ConfirmGuestCash(ctx context.Context, draftOrderID string) (string, error) {
	var body struct {
		OrderID string `json:"order_id"`
	}
	path := fmt.Sprintf("/guest/orders/%s/cash", url.PathEscape(draftOrderID))
	if err := c.post(ctx, path, nil, &body); err != nil {
		return "", err
	}
	return body.OrderID, nil
}

// DraftStatus reports whether the backend's asynchronous payment processing
// has materialized the draft into a real order yet. An empty order id means
// not yet.
func (c *Client) DraftStatus(ctx context.Context, draftOrderID string) (string, error) {
	var body struct {
		OrderID string `json:"order_id"`
	}
	path := fmt.Sprintf("/guest/orders/%s/status", url.PathEscape(draftOrderID))
	if err := c.get(ctx, path, &body); err != nil {
		return "", err
	}
	return body.OrderID, nil
}
