package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"
)

// IntentMetadata is the optional tip information carried on the enhanced
// payment-intent request.
type IntentMetadata struct {
	TipAmount    decimal.Decimal
	TotalWithTip decimal.Decimal
}

type intentRequest struct {
	TipAmount    *decimal.Decimal `json:"tip_amount,omitempty"`
	TotalWithTip *decimal.Decimal `json:"total_with_tip,omitempty"`
}

type intentResponse struct {
	ClientSecret string `json:"client_secret"`
}

// CreatePaymentIntent performs the processor handshake for an order. The
// enhanced request carries tip metadata; backends that predate it reject
// with 400/422, in which case the minimal variant is retried once. Any
// other failure propagates untouched so real problems are not masked.
func (c *Client) CreatePaymentIntent(ctx context.Context, orderID string, meta *IntentMetadata) (string, error) {
	path := fmt.Sprintf("/orders/%s/payment-intent", url.PathEscape(orderID))

	if meta != nil {
		req := intentRequest{TipAmount: &meta.TipAmount, TotalWithTip: &meta.TotalWithTip}
		var resp intentResponse
		err := c.post(ctx, path, req, &resp)
		if err == nil {
			return resp.ClientSecret, nil
		}
		if !IsStatus(err, http.StatusBadRequest, http.StatusUnprocessableEntity) {
			return "", err
		}
	}

	var resp intentResponse
	if err := c.post(ctx, path, intentRequest{}, &resp); err != nil {
		return "", err
	}
	return resp.ClientSecret, nil
}

// Wire values accepted by the payment-status endpoint.
const (
	PaymentStatusPaid        = "paid"
	PaymentStatusCashPending = "cash_pending"
)

// UpdatePaymentStatus sets the order's payment status ("paid" or
// "cash_pending").
func (c *Client) UpdatePaymentStatus(ctx context.Context, orderID, status string) error {
	path := fmt.Sprintf("/orders/%s/payment-status", url.PathEscape(orderID))
	payload := struct {
		Status string `json:"status"`
	}{Status: status}
	return c.patch(ctx, path, payload, nil)
}

// MarkAsPaid records a completed payment with its method.
func (c *Client) MarkAsPaid(ctx context.Context, orderID, method string) error {
	path := fmt.Sprintf("/orders/%s/paid", url.PathEscape(orderID))
	payload := struct {
		Method string `json:"method"`
	}{Method: method}
	return c.post(ctx, path, payload, nil)
}

// RequestReceipt asks the backend to email a receipt. Best effort: callers
// log failures and move on.
func (c *Client) RequestReceipt(ctx context.Context, orderID, email string) error {
	path := fmt.Sprintf("/orders/%s/receipt", url.PathEscape(orderID))
	payload := struct {
		Email string `json:"email"`
	}{Email: email}
	return c.post(ctx, path, payload, nil)
}

// GetOrder fetches a single order by id.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var order Order
	if err := c.get(ctx, "/orders/"+url.PathEscape(orderID), &order); err != nil {
		return nil, err
	}
	return &order, nil
}
