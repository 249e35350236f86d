package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tably/checkout/internal/backend"
)

func money(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestAuthHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"order_id":""}`)
	}))
	defer srv.Close()

	c := backend.NewClient(srv.URL, backend.WithToken("tok-123"))
	_, err := c.DraftStatus(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestAPIErrorCarriesBackendWording(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"error":"table is closed","fields":{"table_number":"table 9 is closed"}}`)
	}))
	defer srv.Close()

	c := backend.NewClient(srv.URL)
	_, err := c.CreateOrderFromCart(context.Background(), backend.CreateOrderPayload{})
	require.Error(t, err)

	var apiErr *backend.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "table is closed", apiErr.Message)
	assert.Equal(t, "table 9 is closed", apiErr.Fields["table_number"])
}

func TestTransportErrorIsNotAPIError(t *testing.T) {
	c := backend.NewClient("http://127.0.0.1:1") // nothing listens here
	_, err := c.DraftStatus(context.Background(), "d1")
	require.Error(t, err)

	var apiErr *backend.APIError
	assert.False(t, errors.As(err, &apiErr), "transport errors are not APIErrors")
	assert.Contains(t, err.Error(), "GET /guest/orders/d1/status")
}

func TestTableOrdersNormalizesAllShapes(t *testing.T) {
	orders := `[{"id":"o1","status":"PENDING"},{"id":"o2","status":"READY"}]`
	shapes := map[string]string{
		"bare array": fmt.Sprintf(`{"active_orders":%s}`, orders),
		"data":       fmt.Sprintf(`{"active_orders":{"data":%s}}`, orders),
		"results":    fmt.Sprintf(`{"active_orders":{"results":%s}}`, orders),
	}

	for name, body := range shapes {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/restaurants/r1/tables/5/orders", r.URL.Path)
				fmt.Fprint(w, body)
			}))
			defer srv.Close()

			snap, err := backend.NewClient(srv.URL).TableOrders(context.Background(), "r1", "5")
			require.NoError(t, err)
			require.Len(t, snap.ActiveOrders, 2)
			assert.Equal(t, "o1", snap.ActiveOrders[0].ID)
			assert.Equal(t, "o2", snap.ActiveOrders[1].ID)
		})
	}
}

func TestTableOrdersEmptyAndSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"active_orders":null,"current_session":{"id":"s1","table_number":"5"},"table_statistics":{"active_orders":0}}`)
	}))
	defer srv.Close()

	snap, err := backend.NewClient(srv.URL).TableOrders(context.Background(), "r1", "5")
	require.NoError(t, err)
	assert.Empty(t, snap.ActiveOrders)
	require.NotNil(t, snap.CurrentSession)
	assert.Equal(t, "s1", snap.CurrentSession.ID)
}

func TestCreatePaymentIntentRichRequest(t *testing.T) {
	var got map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"client_secret":"sec_1"}`)
	}))
	defer srv.Close()

	meta := &backend.IntentMetadata{TipAmount: money("5.00"), TotalWithTip: money("55.00")}
	secret, err := backend.NewClient(srv.URL).CreatePaymentIntent(context.Background(), "o1", meta)
	require.NoError(t, err)
	assert.Equal(t, "sec_1", secret)
	assert.Contains(t, got, "tip_amount")
	assert.Contains(t, got, "total_with_tip")
}

func TestCreatePaymentIntentFallsBackToMinimal(t *testing.T) {
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]json.RawMessage
		_ = json.NewDecoder(r.Body).Decode(&raw)
		if _, rich := raw["tip_amount"]; rich {
			bodies = append(bodies, "rich")
			w.WriteHeader(http.StatusUnprocessableEntity)
			fmt.Fprint(w, `{"error":"unknown field tip_amount"}`)
			return
		}
		bodies = append(bodies, "minimal")
		fmt.Fprint(w, `{"client_secret":"sec_min"}`)
	}))
	defer srv.Close()

	meta := &backend.IntentMetadata{TipAmount: money("5.00"), TotalWithTip: money("55.00")}
	secret, err := backend.NewClient(srv.URL).CreatePaymentIntent(context.Background(), "o1", meta)
	require.NoError(t, err)
	assert.Equal(t, "sec_min", secret)
	assert.Equal(t, []string{"rich", "minimal"}, bodies)
}

func TestCreatePaymentIntentDoesNotMaskServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":"boom"}`)
	}))
	defer srv.Close()

	meta := &backend.IntentMetadata{TipAmount: money("5.00"), TotalWithTip: money("55.00")}
	_, err := backend.NewClient(srv.URL).CreatePaymentIntent(context.Background(), "o1", meta)
	require.Error(t, err)
	assert.Equal(t, 1, calls, "a 500 must not trigger the minimal retry")
	assert.True(t, backend.IsStatus(err, http.StatusInternalServerError))
}

func TestGuestFlowEndpoints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/guest/orders":
			var p backend.GuestOrderPayload
			require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
			assert.Equal(t, "0612345678", p.Phone)
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"draft_order_id":"d1","payment_intent_client_secret":"sec_d1"}`)
		case r.Method == http.MethodPost && r.URL.Path == "/guest/orders/d1/cash":
			fmt.Fprint(w, `{"order_id":"o9"}`)
		case r.Method == http.MethodGet && r.URL.Path == "/guest/orders/d1/status":
			fmt.Fprint(w, `{"order_id":""}`)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := backend.NewClient(srv.URL)
	ctx := context.Background()

	draft, err := c.PrepareGuestOrder(ctx, backend.GuestOrderPayload{Phone: "0612345678"})
	require.NoError(t, err)
	assert.Equal(t, "d1", draft.DraftOrderID)
	assert.Equal(t, "sec_d1", draft.ClientSecret)

	orderID, err := c.ConfirmGuestCash(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "o9", orderID)

	pending, err := c.DraftStatus(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "", pending)
}

func TestUpdatePaymentStatusAndMarkAsPaid(t *testing.T) {
	type call struct{ method, path, body string }
	var calls []call
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sb [256]byte
		n, _ := r.Body.Read(sb[:])
		calls = append(calls, call{r.Method, r.URL.Path, string(sb[:n])})
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	c := backend.NewClient(srv.URL)
	ctx := context.Background()
	require.NoError(t, c.UpdatePaymentStatus(ctx, "o1", "cash_pending"))
	require.NoError(t, c.MarkAsPaid(ctx, "o1", "CARD"))
	require.NoError(t, c.RequestReceipt(ctx, "o1", "a@b.fr"))

	require.Len(t, calls, 3)
	assert.Equal(t, http.MethodPatch, calls[0].method)
	assert.Equal(t, "/orders/o1/payment-status", calls[0].path)
	assert.JSONEq(t, `{"status":"cash_pending"}`, calls[0].body)
	assert.Equal(t, "/orders/o1/paid", calls[1].path)
	assert.Equal(t, "/orders/o1/receipt", calls[2].path)
}
