package enum

// ── Order lifecycle (mirrors the backend's CHECK constraints) ──

const (
	OrderStatusPending   = "PENDING"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusPreparing = "PREPARING"
	OrderStatusReady     = "READY"
	OrderStatusServed    = "SERVED"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusCancelled = "CANCELLED"
)

const (
	OrderTypeDineIn   = "DINE_IN"
	OrderTypeTakeaway = "TAKEAWAY"
)

const (
	PaymentMethodCash = "CASH"
	PaymentMethodCard = "CARD"
)

const (
	PaymentStatusUnpaid      = "UNPAID"
	PaymentStatusCashPending = "CASH_PENDING"
	PaymentStatusPaid        = "PAID"
)

// ── Tip selection modes ──

const (
	TipModeNone    = "NONE"
	TipModePercent = "PERCENT"
	TipModeCustom  = "CUSTOM"
)

// ── Session decision at checkout ──
// When a table already has active orders the diner must pick one;
// the orchestrator never guesses.

const (
	SessionChoiceNew  = "NEW_SESSION"
	SessionChoiceJoin = "JOIN_EXISTING"
)
