package payment

import (
	"context"
	"errors"
)

// SimulatedProcessor stands in for the real payment SDK in the demo CLI and
// in development. It records what it was initialized with and answers every
// presentation with a fixed outcome.
type SimulatedProcessor struct {
	Result PresentResult

	LastSecret  string
	LastBilling BillingDetails
	initialized bool
}

// NewSimulatedProcessor approves every charge by default.
func NewSimulatedProcessor() *SimulatedProcessor {
	return &SimulatedProcessor{Result: PresentResult{Outcome: OutcomeCompleted}}
}

func (p *SimulatedProcessor) InitPaymentSheet(_ context.Context, clientSecret string, billing BillingDetails) error {
	if clientSecret == "" {
		return errors.New("simulated processor: empty client secret")
	}
	p.LastSecret = clientSecret
	p.LastBilling = billing
	p.initialized = true
	return nil
}

func (p *SimulatedProcessor) PresentPaymentSheet(_ context.Context) (PresentResult, error) {
	if !p.initialized {
		return PresentResult{}, errors.New("simulated processor: sheet not initialized")
	}
	p.initialized = false
	return p.Result, nil
}
