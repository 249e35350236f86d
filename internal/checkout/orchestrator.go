package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/tably/checkout/internal/backend"
	"github.com/tably/checkout/internal/cart"
	"github.com/tably/checkout/internal/enum"
	"github.com/tably/checkout/internal/guest"
	"github.com/tably/checkout/internal/identity"
	"github.com/tably/checkout/internal/payment"
	"github.com/tably/checkout/internal/session"
)

// Precondition errors. All of these are caught before any network call.
var (
	ErrCartEmpty            = errors.New("cart is empty")
	ErrRestaurantRequired   = errors.New("restaurant is required")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrDecisionRequired     = errors.New("session decision required")
	ErrSessionUnresolved    = errors.New("could not determine table state")
)

// Status of a finished checkout attempt.
type Status string

const (
	// StatusSettled: a durable order exists and payment is settled (or
	// pending cash collection).
	StatusSettled Status = "SETTLED"
	// StatusCanceled: the diner dismissed the payment sheet. Nothing to
	// show; the cart is intact.
	StatusCanceled Status = "CANCELED"
	// StatusProcessing: payment succeeded but the backend has not
	// materialized the order yet. Not a failure; the order will surface
	// in the order list.
	StatusProcessing Status = "PROCESSING"
)

// Result of a checkout attempt that did not error.
type Result struct {
	Status  Status
	OrderID string
}

// SessionDecider is how the orchestrator asks the diner whether to start a
// new dining session or join the table's existing one. It is consulted only
// when the table already has active orders; the orchestrator never guesses.
type SessionDecider interface {
	DecideSession(ctx context.Context, res *session.Resolution) (string, error)
}

// SessionDeciderFunc adapts a function to SessionDecider.
type SessionDeciderFunc func(ctx context.Context, res *session.Resolution) (string, error)

func (f SessionDeciderFunc) DecideSession(ctx context.Context, res *session.Resolution) (string, error) {
	return f(ctx, res)
}

// Navigator receives control once an attempt finishes. Screens implement
// it; the orchestrator never renders anything itself.
type Navigator interface {
	ToOrder(orderID string)
	ToOrderList(message string)
}

// Backend is the slice of the API client the orchestrator needs.
type Backend interface {
	CreateOrderFromCart(ctx context.Context, payload backend.CreateOrderPayload) (*backend.Order, error)
	AddOrderToTable(ctx context.Context, payload backend.AddOrderPayload) (*backend.Order, error)
	PrepareGuestOrder(ctx context.Context, payload backend.GuestOrderPayload) (*backend.GuestOrderResult, error)
	ConfirmGuestCash(ctx context.Context, draftOrderID string) (string, error)
}

// SessionResolver is the slice of the resolver the orchestrator needs.
type SessionResolver interface {
	Resolve(ctx context.Context, restaurantID, tableNumber string) (*session.Resolution, error)
}

// Config carries the per-flow tuning knobs.
type Config struct {
	PollInterval     time.Duration
	GuestPollTimeout time.Duration // full guest flow
	QuickPollTimeout time.Duration // quick flow
}

// Orchestrator turns a cart into a confirmed, paid order. It owns the
// checkout attempt lifecycle and is the only component that clears the
// cart — and only once a durable order reference exists.
type Orchestrator struct {
	cart      *cart.Store
	resolver  SessionResolver
	backend   Backend
	poller    *payment.Poller
	processor payment.Processor
	decider   SessionDecider
	nav       Navigator
	cfg       Config
	log       *logrus.Logger

	paymentBackend payment.Backend
}

// New creates an orchestrator. pb is the payment slice of the same API
// client as b.
func New(c *cart.Store, r SessionResolver, b Backend, pb payment.Backend, proc payment.Processor, dec SessionDecider, nav Navigator, cfg Config, log *logrus.Logger) *Orchestrator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.GuestPollTimeout <= 0 {
		cfg.GuestPollTimeout = 30 * time.Second
	}
	if cfg.QuickPollTimeout <= 0 {
		cfg.QuickPollTimeout = 20 * time.Second
	}
	return &Orchestrator{
		cart:           c,
		resolver:       r,
		backend:        b,
		paymentBackend: pb,
		processor:      proc,
		decider:        dec,
		nav:            nav,
		cfg:            cfg,
		log:            log,
	}
}

// AuthenticatedRequest is a checkout by a signed-in client.
type AuthenticatedRequest struct {
	Token         string
	CustomerName  string // overrides the token's display name when set
	PaymentMethod string
	TipAmount     decimal.Decimal
	Notes         string
	ReceiptEmail  string
	// ProceedWithoutSession is the explicit "continue anyway" choice when
	// the table lookup failed. Never assumed.
	ProceedWithoutSession bool
}

// GuestRequest is an unauthenticated checkout.
type GuestRequest struct {
	Identity      guest.Identity
	PaymentMethod string
	TipAmount     decimal.Decimal
	Notes         string
	// Quick selects the quick flow with its shorter poll timeout.
	Quick                 bool
	ProceedWithoutSession bool
}

// CheckoutAuthenticated runs the full signed-in flow: preconditions, table
// resolution, the session decision, order submission, then payment. The
// cart is cleared as soon as the order exists; a later payment cancel or
// decline leaves an unpaid order, not a resurrected cart.
func (o *Orchestrator) CheckoutAuthenticated(ctx context.Context, req AuthenticatedRequest) (*Result, error) {
	claims, err := identity.Decode(req.Token)
	if err != nil {
		return nil, err
	}
	name := req.CustomerName
	if name == "" {
		name = claims.DisplayName()
	}

	if err := validateMethod(req.PaymentMethod); err != nil {
		return nil, err
	}

	snap, err := o.cart.BeginCheckout()
	if err != nil {
		return nil, err
	}
	defer o.cart.EndCheckout()

	if err := validateSnapshot(snap); err != nil {
		return nil, err
	}

	choice, res, err := o.resolveAndDecide(ctx, snap, req.ProceedWithoutSession)
	if err != nil {
		return nil, err
	}

	wf := payment.NewWorkflow(o.paymentBackend, o.processor, o.log)
	if err := wf.Begin(); err != nil {
		return nil, err
	}

	order, err := o.submit(ctx, snap, name, claims.Phone, req.PaymentMethod, req.Notes, choice, res)
	if err != nil {
		if aerr := wf.Abort(); aerr != nil {
			o.log.WithError(aerr).Warn("abort payment workflow")
		}
		return nil, err
	}

	// Durable order reference obtained: the cart's life ends here.
	o.cart.Clear()
	o.log.WithFields(logrus.Fields{"order_id": order.ID, "order_number": order.OrderNumber}).
		Info("order created")

	switch req.PaymentMethod {
	case enum.PaymentMethodCash:
		if err := wf.PayCash(ctx, order.ID); err != nil {
			return nil, fmt.Errorf("record cash payment: %w", err)
		}
		o.nav.ToOrder(order.ID)
		return &Result{Status: StatusSettled, OrderID: order.ID}, nil

	default: // CARD
		meta := intentMetadata(snap, req.TipAmount)
		billing := payment.BillingDetails{Name: name, Email: req.ReceiptEmail, Phone: claims.Phone}
		outcome, err := wf.PayOnlineOrder(ctx, order.ID, meta, billing)
		if err != nil {
			return nil, err
		}
		if outcome == payment.OutcomeCanceled {
			return &Result{Status: StatusCanceled, OrderID: order.ID}, nil
		}
		if err := wf.Settle(ctx, order.ID, req.ReceiptEmail); err != nil {
			return nil, err
		}
		o.nav.ToOrder(order.ID)
		return &Result{Status: StatusSettled, OrderID: order.ID}, nil
	}
}

// CheckoutGuest runs the unauthenticated flow. Identity is validated before
// anything touches the network. Card payment goes through a draft order and
// the completion poller; the cart is cleared only once a real order id is
// known.
func (o *Orchestrator) CheckoutGuest(ctx context.Context, req GuestRequest) (*Result, error) {
	id, err := guest.Validate(req.Identity)
	if err != nil {
		return nil, err
	}
	if err := validateMethod(req.PaymentMethod); err != nil {
		return nil, err
	}

	snap, err := o.cart.BeginCheckout()
	if err != nil {
		return nil, err
	}
	defer o.cart.EndCheckout()

	if err := validateSnapshot(snap); err != nil {
		return nil, err
	}

	if _, _, err := o.resolveAndDecide(ctx, snap, req.ProceedWithoutSession); err != nil {
		return nil, err
	}

	wf := payment.NewWorkflow(o.paymentBackend, o.processor, o.log)
	if err := wf.Begin(); err != nil {
		return nil, err
	}

	payload := backend.GuestOrderPayload{
		RestaurantID:  snap.RestaurantID,
		TableNumber:   snap.TableNumber,
		Items:         itemPayloads(snap),
		CustomerName:  id.Name,
		Phone:         id.Phone,
		Email:         id.Email,
		PaymentMethod: req.PaymentMethod,
		Consent:       id.Consent,
	}
	if req.PaymentMethod == enum.PaymentMethodCard && req.TipAmount.IsPositive() {
		total := snap.Subtotal().Add(req.TipAmount)
		payload.TipAmount = &req.TipAmount
		payload.TotalWithTip = &total
	}

	draft, err := o.backend.PrepareGuestOrder(ctx, payload)
	if err != nil {
		if aerr := wf.Abort(); aerr != nil {
			o.log.WithError(aerr).Warn("abort payment workflow")
		}
		return nil, fmt.Errorf("prepare guest order: %w", err)
	}
	o.log.WithField("draft_order_id", draft.DraftOrderID).Info("guest draft created")

	if req.PaymentMethod == enum.PaymentMethodCash {
		orderID, err := o.backend.ConfirmGuestCash(ctx, draft.DraftOrderID)
		if err != nil {
			return nil, fmt.Errorf("confirm cash order: %w", err)
		}
		o.cart.Clear()
		if err := wf.PayCash(ctx, orderID); err != nil {
			// The order exists and the restaurant collects in person; a
			// failed status write must not undo the checkout.
			o.log.WithError(err).WithField("order_id", orderID).Warn("record cash payment")
		}
		o.nav.ToOrder(orderID)
		return &Result{Status: StatusSettled, OrderID: orderID}, nil
	}

	// Card: present the sheet for the secret the draft came with.
	if draft.ClientSecret == "" {
		return nil, fmt.Errorf("prepare guest order: backend returned no payment intent")
	}
	billing := payment.BillingDetails{Name: id.Name, Email: id.Email, Phone: id.Phone}
	outcome, err := wf.PresentForSecret(ctx, draft.ClientSecret, billing)
	if err != nil {
		return nil, err
	}
	if outcome == payment.OutcomeCanceled {
		return &Result{Status: StatusCanceled}, nil
	}

	// Payment accepted; wait for the backend's async confirmation to
	// materialize the order.
	timeout := o.cfg.GuestPollTimeout
	if req.Quick {
		timeout = o.cfg.QuickPollTimeout
	}
	orderID, err := o.poll(ctx, draft.DraftOrderID, timeout)
	if err != nil {
		if errors.Is(err, payment.ErrCompletionTimeout) {
			// Explicitly not a failure: the charge went through and the
			// order will appear. The cart stays put until it does.
			o.nav.ToOrderList("Your payment was received; the order is being processed.")
			return &Result{Status: StatusProcessing}, nil
		}
		return nil, err
	}

	o.cart.Clear()
	if err := wf.Settle(ctx, orderID, id.Email); err != nil {
		return nil, err
	}
	o.nav.ToOrder(orderID)
	return &Result{Status: StatusSettled, OrderID: orderID}, nil
}

// poll runs the completion poller, constructing it lazily so tests can
// inject one.
func (o *Orchestrator) poll(ctx context.Context, draftOrderID string, timeout time.Duration) (string, error) {
	p := o.poller
	if p == nil {
		fetcher, ok := o.backend.(payment.DraftStatusFetcher)
		if !ok {
			return "", fmt.Errorf("backend does not support draft polling")
		}
		p = payment.NewPoller(fetcher, o.cfg.PollInterval, o.log)
	}
	return p.Await(ctx, draftOrderID, timeout)
}

// WithPoller injects a pre-built poller (used by tests and the CLI).
func (o *Orchestrator) WithPoller(p *payment.Poller) *Orchestrator {
	o.poller = p
	return o
}

// resolveAndDecide fetches the table state and, when the table already has
// active orders, obtains the diner's explicit new-vs-join choice. A failed
// lookup is only bypassed when the caller explicitly asked to proceed
// without it; in that case it is treated as "no known active orders".
func (o *Orchestrator) resolveAndDecide(ctx context.Context, snap cart.Snapshot, proceedWithout bool) (string, *session.Resolution, error) {
	if snap.TableNumber == "" {
		return enum.SessionChoiceNew, nil, nil
	}

	res, err := o.resolver.Resolve(ctx, snap.RestaurantID, snap.TableNumber)
	if err != nil {
		if !proceedWithout {
			return "", nil, fmt.Errorf("%w: %w", ErrSessionUnresolved, err)
		}
		o.log.WithError(err).Warn("proceeding without table state by explicit choice")
		return enum.SessionChoiceNew, nil, nil
	}

	if !res.HasActiveOrders {
		return enum.SessionChoiceNew, res, nil
	}

	choice, err := o.decider.DecideSession(ctx, res)
	if err != nil {
		return "", nil, err
	}
	switch choice {
	case enum.SessionChoiceNew, enum.SessionChoiceJoin:
		return choice, res, nil
	default:
		return "", nil, ErrDecisionRequired
	}
}

// submit performs exactly one network call for the decided branch.
func (o *Orchestrator) submit(ctx context.Context, snap cart.Snapshot, name, phone, method, notes, choice string, res *session.Resolution) (*backend.Order, error) {
	if choice == enum.SessionChoiceJoin {
		payload := backend.AddOrderPayload{
			RestaurantID:  snap.RestaurantID,
			TableNumber:   snap.TableNumber,
			CustomerName:  name,
			Phone:         phone,
			PaymentMethod: method,
			Notes:         notes,
			Items:         itemPayloads(snap),
		}
		if res != nil && res.CurrentSession != nil {
			payload.SessionID = res.CurrentSession.ID
		}
		order, err := o.backend.AddOrderToTable(ctx, payload)
		if err != nil {
			return nil, fmt.Errorf("add order to table: %w", err)
		}
		return order, nil
	}

	orderType := enum.OrderTypeTakeaway
	if snap.TableNumber != "" {
		orderType = enum.OrderTypeDineIn
	}
	order, err := o.backend.CreateOrderFromCart(ctx, backend.CreateOrderPayload{
		RestaurantID:  snap.RestaurantID,
		OrderType:     orderType,
		TableNumber:   snap.TableNumber,
		CustomerName:  name,
		Phone:         phone,
		PaymentMethod: method,
		Notes:         notes,
		Items:         itemPayloads(snap),
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return order, nil
}

// --- Helpers ---

func validateSnapshot(snap cart.Snapshot) error {
	if len(snap.Items) == 0 {
		return ErrCartEmpty
	}
	if snap.RestaurantID == "" {
		return ErrRestaurantRequired
	}
	return nil
}

func validateMethod(method string) error {
	switch method {
	case enum.PaymentMethodCash, enum.PaymentMethodCard:
		return nil
	}
	return ErrInvalidPaymentMethod
}

func itemPayloads(snap cart.Snapshot) []backend.OrderItemPayload {
	items := make([]backend.OrderItemPayload, len(snap.Items))
	for i, it := range snap.Items {
		items[i] = backend.OrderItemPayload{
			MenuItemID:     it.MenuItemID,
			Name:           it.Name,
			UnitPrice:      it.UnitPrice,
			Quantity:       it.Quantity,
			Customizations: it.Customizations,
			Notes:          it.SpecialInstructions,
		}
	}
	return items
}

func intentMetadata(snap cart.Snapshot, tipAmount decimal.Decimal) *backend.IntentMetadata {
	if !tipAmount.IsPositive() {
		return nil
	}
	return &backend.IntentMetadata{
		TipAmount:    tipAmount,
		TotalWithTip: snap.Subtotal().Add(tipAmount),
	}
}
