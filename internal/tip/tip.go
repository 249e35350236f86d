package tip

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tably/checkout/internal/enum"
)

// Percents the UI offers. Anything outside this set is ignored.
var Percents = []int{5, 10, 15, 20}

var hundred = decimal.NewFromInt(100)

// Calculator turns a percentage-of-subtotal or a free-form amount into a tip
// and a combined total. It never errors: unparsable input coerces to zero so
// the screen always has a number to show.
type Calculator struct {
	subtotal decimal.Decimal
	mode     string
	percent  int
	amount   decimal.Decimal
}

// New creates a calculator for the given subtotal with no tip selected.
func New(subtotal decimal.Decimal) *Calculator {
	return &Calculator{subtotal: subtotal, mode: enum.TipModeNone}
}

// SetSubtotal updates the subtotal; an active percent selection is
// recomputed against it.
func (c *Calculator) SetSubtotal(subtotal decimal.Decimal) {
	c.subtotal = subtotal
	if c.mode == enum.TipModePercent {
		c.amount = percentOf(subtotal, c.percent)
	}
}

// SelectPercent toggles a percent selection: picking the already-active
// percent clears the tip. Percents outside the offered set are ignored.
func (c *Calculator) SelectPercent(p int) {
	if !allowedPercent(p) {
		return
	}
	if c.mode == enum.TipModePercent && c.percent == p {
		c.Clear()
		return
	}
	c.mode = enum.TipModePercent
	c.percent = p
	c.amount = percentOf(c.subtotal, p)
}

// SetCustomAmount parses a free-form decimal. Negative or unparsable input
// coerces to 0; any percent selection is cleared.
func (c *Calculator) SetCustomAmount(text string) {
	c.mode = enum.TipModeCustom
	c.percent = 0

	amount, err := decimal.NewFromString(strings.TrimSpace(strings.ReplaceAll(text, ",", ".")))
	if err != nil || amount.IsNegative() {
		c.amount = decimal.Zero
		return
	}
	c.amount = amount.Round(2)
}

// Clear resets to no tip.
func (c *Calculator) Clear() {
	c.mode = enum.TipModeNone
	c.percent = 0
	c.amount = decimal.Zero
}

// Mode returns the active selection mode.
func (c *Calculator) Mode() string { return c.mode }

// Percent returns the active percent, 0 when none is selected.
func (c *Calculator) Percent() int { return c.percent }

// Amount returns the tip amount, never negative.
func (c *Calculator) Amount() decimal.Decimal { return c.amount }

// Total returns subtotal + tip.
func (c *Calculator) Total() decimal.Decimal { return c.subtotal.Add(c.amount) }

func percentOf(subtotal decimal.Decimal, p int) decimal.Decimal {
	return subtotal.Mul(decimal.NewFromInt(int64(p))).Div(hundred).Round(2)
}

func allowedPercent(p int) bool {
	for _, q := range Percents {
		if q == p {
			return true
		}
	}
	return false
}
