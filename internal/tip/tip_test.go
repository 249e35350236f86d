package tip_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/tably/checkout/internal/enum"
	"github.com/tably/checkout/internal/tip"
)

func money(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestSelectPercent(t *testing.T) {
	c := tip.New(money("50.00"))

	c.SelectPercent(10)
	assert.Equal(t, enum.TipModePercent, c.Mode())
	assert.Equal(t, 10, c.Percent())
	assert.True(t, c.Amount().Equal(money("5.00")), "amount = %s", c.Amount())
	assert.True(t, c.Total().Equal(money("55.00")), "total = %s", c.Total())
}

func TestReselectingPercentClears(t *testing.T) {
	c := tip.New(money("50.00"))

	c.SelectPercent(10)
	c.SelectPercent(10)

	assert.Equal(t, enum.TipModeNone, c.Mode())
	assert.Equal(t, 0, c.Percent())
	assert.True(t, c.Amount().IsZero())
	assert.True(t, c.Total().Equal(money("50.00")))
}

func TestSelectPercentRounding(t *testing.T) {
	c := tip.New(money("33.33"))
	c.SelectPercent(15)
	// 33.33 * 0.15 = 4.9995 -> 5.00
	assert.True(t, c.Amount().Equal(money("5.00")), "amount = %s", c.Amount())
}

func TestUnknownPercentIgnored(t *testing.T) {
	c := tip.New(money("50.00"))
	c.SelectPercent(42)
	assert.Equal(t, enum.TipModeNone, c.Mode())
	assert.True(t, c.Amount().IsZero())
}

func TestSetCustomAmount(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "3.50", "3.50"},
		{"comma decimal", "3,50", "3.50"},
		{"whitespace", " 2 ", "2"},
		{"rounds to cents", "1.999", "2.00"},
		{"unparsable", "abc", "0"},
		{"empty", "", "0"},
		{"negative coerces to zero", "-4", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tip.New(money("50.00"))
			c.SelectPercent(10) // custom input must clear this
			c.SetCustomAmount(tt.input)

			assert.Equal(t, enum.TipModeCustom, c.Mode())
			assert.Equal(t, 0, c.Percent())
			assert.True(t, c.Amount().Equal(money(tt.want)), "amount = %s, want %s", c.Amount(), tt.want)
			assert.False(t, c.Amount().IsNegative())
		})
	}
}

func TestClear(t *testing.T) {
	c := tip.New(money("50.00"))
	c.SelectPercent(20)
	c.Clear()

	assert.Equal(t, enum.TipModeNone, c.Mode())
	assert.True(t, c.Amount().IsZero())
	assert.True(t, c.Total().Equal(money("50.00")))
}

func TestSetSubtotalRecomputesPercent(t *testing.T) {
	c := tip.New(money("50.00"))
	c.SelectPercent(10)
	c.SetSubtotal(money("80.00"))

	assert.True(t, c.Amount().Equal(money("8.00")), "amount = %s", c.Amount())
	assert.True(t, c.Total().Equal(money("88.00")))
}

func TestSetSubtotalKeepsCustomAmount(t *testing.T) {
	c := tip.New(money("50.00"))
	c.SetCustomAmount("4.00")
	c.SetSubtotal(money("80.00"))

	assert.True(t, c.Amount().Equal(money("4.00")))
	assert.True(t, c.Total().Equal(money("84.00")))
}
