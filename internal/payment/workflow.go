package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/tably/checkout/internal/backend"
	"github.com/tably/checkout/internal/enum"
)

// State names every position the payment workflow can be in. Transitions
// are checked, so impossible combinations (paid but still submitting,
// settled without a confirmation) cannot be represented.
type State string

const (
	StateIdle            State = "IDLE"
	StateSubmitting      State = "SUBMITTING"
	StateCashConfirmed   State = "CASH_CONFIRMED"
	StateIntentPending   State = "ONLINE_INTENT_PENDING"
	StatePresenting      State = "ONLINE_PRESENTING"
	StateOnlineConfirmed State = "ONLINE_CONFIRMED"
	StateOnlineCanceled  State = "ONLINE_CANCELED"
	StateOnlineFailed    State = "ONLINE_FAILED"
	StateSettled         State = "SETTLED"
	StateFailed          State = "FAILED"
)

var legalTransitions = map[State][]State{
	StateIdle:            {StateSubmitting},
	StateSubmitting:      {StateSubmitting, StateCashConfirmed, StateIntentPending, StateFailed, StateIdle},
	StateCashConfirmed:   {StateSettled},
	StateIntentPending:   {StatePresenting, StateFailed},
	StatePresenting:      {StateOnlineConfirmed, StateOnlineCanceled, StateOnlineFailed},
	StateOnlineConfirmed: {StateSettled},
	StateOnlineCanceled:  {StateIdle},
	StateOnlineFailed:    {StateIdle},
	StateFailed:          {StateIdle},
}

// Errors surfaced by the workflow.
var (
	ErrDeclined          = errors.New("payment declined")
	ErrIllegalTransition = errors.New("illegal payment state transition")
)

// Backend is the slice of the API client the workflow needs.
type Backend interface {
	CreatePaymentIntent(ctx context.Context, orderID string, meta *backend.IntentMetadata) (string, error)
	UpdatePaymentStatus(ctx context.Context, orderID, status string) error
	MarkAsPaid(ctx context.Context, orderID, method string) error
	RequestReceipt(ctx context.Context, orderID, email string) error
}

// Workflow owns the payment state machine for one checkout attempt. It is
// not safe for concurrent use; a checkout attempt is sequential by design.
type Workflow struct {
	backend   Backend
	processor Processor
	log       *logrus.Logger
	state     State
}

// NewWorkflow creates an idle workflow.
func NewWorkflow(b Backend, p Processor, log *logrus.Logger) *Workflow {
	return &Workflow{backend: b, processor: p, log: log, state: StateIdle}
}

// State returns the current position of the machine.
func (w *Workflow) State() State { return w.state }

func (w *Workflow) transition(to State) error {
	for _, allowed := range legalTransitions[w.state] {
		if allowed == to {
			w.log.WithFields(logrus.Fields{"from": w.state, "to": to}).Debug("payment state")
			w.state = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, w.state, to)
}

// Reset returns a non-settled workflow to idle so the attempt can be
// retried. Resetting a settled workflow is an error.
func (w *Workflow) Reset() error {
	if w.state == StateSettled {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, w.state, StateIdle)
	}
	w.state = StateIdle
	return nil
}

// Begin moves the machine out of idle when order submission starts. The
// orchestrator calls this before its single network call.
func (w *Workflow) Begin() error {
	return w.transition(StateSubmitting)
}

// Abort returns a submitting workflow to idle after a failed submission.
func (w *Workflow) Abort() error {
	return w.transition(StateIdle)
}

// PayCash marks the order's payment as pending cash collection. Synchronous
// from the client's perspective: success settles, failure stays in
// Submitting so the caller can retry.
func (w *Workflow) PayCash(ctx context.Context, orderID string) error {
	if err := w.transition(StateSubmitting); err != nil {
		return err
	}
	if err := w.backend.UpdatePaymentStatus(ctx, orderID, backend.PaymentStatusCashPending); err != nil {
		return err
	}
	if err := w.transition(StateCashConfirmed); err != nil {
		return err
	}
	return w.transition(StateSettled)
}

// PayOnlineOrder drives the card path for an order that already exists
// server-side (authenticated checkout): intent handshake, sheet
// presentation, then the status update. Cancel returns OutcomeCanceled with
// no error; decline returns ErrDeclined with the processor's message and
// leaves the machine retryable from idle.
func (w *Workflow) PayOnlineOrder(ctx context.Context, orderID string, meta *backend.IntentMetadata, billing BillingDetails) (PresentOutcome, error) {
	if err := w.transition(StateIntentPending); err != nil {
		return "", err
	}

	secret, err := w.backend.CreatePaymentIntent(ctx, orderID, meta)
	if err != nil {
		if terr := w.transition(StateFailed); terr != nil {
			return "", terr
		}
		return "", fmt.Errorf("create payment intent: %w", err)
	}

	outcome, err := w.present(ctx, secret, billing)
	if err != nil || outcome != OutcomeCompleted {
		return outcome, err
	}

	// The order exists; record the completed card payment.
	if err := w.backend.MarkAsPaid(ctx, orderID, enum.PaymentMethodCard); err != nil {
		// The charge went through. Surface the bookkeeping failure but do
		// not pretend the payment failed.
		w.log.WithError(err).WithField("order_id", orderID).Error("mark order paid")
	}
	return OutcomeCompleted, w.transition(StateSettled)
}

// PresentForSecret drives the sheet for a secret obtained elsewhere (the
// guest draft flow, where PrepareGuestOrder already produced the intent).
// On completion the machine stays in OnlineConfirmed: settlement waits for
// the draft to materialize into a real order.
func (w *Workflow) PresentForSecret(ctx context.Context, clientSecret string, billing BillingDetails) (PresentOutcome, error) {
	if err := w.transition(StateIntentPending); err != nil {
		return "", err
	}
	return w.present(ctx, clientSecret, billing)
}

// present runs init + presentation and maps the three outcomes onto the
// state machine. Completed leaves the machine in OnlineConfirmed.
func (w *Workflow) present(ctx context.Context, clientSecret string, billing BillingDetails) (PresentOutcome, error) {
	if err := w.processor.InitPaymentSheet(ctx, clientSecret, billing); err != nil {
		if terr := w.transition(StateFailed); terr != nil {
			return "", terr
		}
		return "", fmt.Errorf("init payment sheet: %w", err)
	}
	if err := w.transition(StatePresenting); err != nil {
		return "", err
	}

	result, err := w.processor.PresentPaymentSheet(ctx)
	if err != nil {
		if terr := w.transition(StateOnlineFailed); terr != nil {
			return "", terr
		}
		if terr := w.transition(StateIdle); terr != nil {
			return "", terr
		}
		return "", fmt.Errorf("present payment sheet: %w", err)
	}

	switch result.Outcome {
	case OutcomeCanceled:
		// Silent: stop the spinner, show nothing.
		if err := w.transition(StateOnlineCanceled); err != nil {
			return "", err
		}
		return OutcomeCanceled, w.transition(StateIdle)
	case OutcomeDeclined:
		if err := w.transition(StateOnlineFailed); err != nil {
			return "", err
		}
		if err := w.transition(StateIdle); err != nil {
			return "", err
		}
		return OutcomeDeclined, fmt.Errorf("%w: %s", ErrDeclined, result.DeclineMessage)
	case OutcomeCompleted:
		return OutcomeCompleted, w.transition(StateOnlineConfirmed)
	default:
		return "", fmt.Errorf("unknown presentation outcome %q", result.Outcome)
	}
}

// Settle records settlement side effects for an order with a known id:
// moving to Settled (when not already there) and the best-effort receipt
// request. Cart clearing belongs to the orchestrator.
func (w *Workflow) Settle(ctx context.Context, orderID, receiptEmail string) error {
	if w.state != StateSettled {
		if err := w.transition(StateSettled); err != nil {
			return err
		}
	}
	if receiptEmail != "" {
		if err := w.backend.RequestReceipt(ctx, orderID, receiptEmail); err != nil {
			w.log.WithError(err).WithField("order_id", orderID).Warn("receipt request failed")
		}
	}
	return nil
}
