package payment

import "context"

// BillingDetails pre-fills the processor's payment sheet.
type BillingDetails struct {
	Name  string
	Email string
	Phone string
}

// PresentOutcome is what the diner did with the payment sheet.
type PresentOutcome string

const (
	// OutcomeCompleted: the processor accepted the charge.
	OutcomeCompleted PresentOutcome = "COMPLETED"
	// OutcomeCanceled: the diner dismissed the sheet. Not an error.
	OutcomeCanceled PresentOutcome = "CANCELED"
	// OutcomeDeclined: the processor refused the charge.
	OutcomeDeclined PresentOutcome = "DECLINED"
)

// PresentResult is the outcome of one payment sheet presentation.
// DeclineMessage carries the processor's wording for OutcomeDeclined.
type PresentResult struct {
	Outcome        PresentOutcome
	DeclineMessage string
}

// Processor abstracts the external payment SDK. Implementations wrap the
// platform bridge; tests use fakes. The workflow never retries a charge
// through this interface on its own.
type Processor interface {
	// InitPaymentSheet prepares the sheet for the given intent secret.
	InitPaymentSheet(ctx context.Context, clientSecret string, billing BillingDetails) error
	// PresentPaymentSheet shows the sheet and blocks until the diner is
	// done with it. The error return is for SDK-level failures only;
	// cancel and decline come back as outcomes.
	PresentPaymentSheet(ctx context.Context) (PresentResult, error)
}
