package client

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var convertRates = map[string]float64{
	"BTC":  60000,
	"ETH":  3000,
	"USDT": 1,
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		from   string
		to     string
		want   string
	}{
		{name: "coin to usd", amount: "0.5", from: "BTC", to: USD, want: "30000"},
		{name: "usd to coin", amount: "1500", from: USD, to: "ETH", want: "0.5"},
		{name: "coin to coin", amount: "1", from: "BTC", to: "ETH", want: "20"},
		{name: "alias prices as base coin", amount: "10", from: "USDT (ERC-20)", to: USD, want: "10"},
		{name: "rounded to six places", amount: "1", from: USD, to: "BTC", want: "0.000017"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Convert(convertRates, decimal.RequireFromString(tt.amount), tt.from, tt.to)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestConvertErrors(t *testing.T) {
	_, err := Convert(convertRates, decimal.NewFromInt(1), "NOPE", USD)
	assert.Error(t, err)

	_, err = Convert(convertRates, decimal.NewFromInt(1), USD, "SOL")
	assert.ErrorContains(t, err, "no rate for SOL")

	_, err = Convert(map[string]float64{}, decimal.NewFromInt(1), "BTC", USD)
	assert.Error(t, err)
}
