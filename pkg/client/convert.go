package client

import (
	"fmt"

	"cryptodesk/pkg/coin"

	"github.com/shopspring/decimal"
)

// USD is accepted by Convert as either side of a conversion.
const USD = "USD"

// ConvertPlaces is the precision of converted amounts.
const ConvertPlaces = 6

// Convert prices amount of from in units of to, going through USD.
// rates is the map returned by FetchExchangeRates.
func Convert(rates map[string]float64, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	fromUSD, err := usdPrice(rates, from)
	if err != nil {
		return decimal.Zero, err
	}
	toUSD, err := usdPrice(rates, to)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(fromUSD).Div(toUSD).Round(ConvertPlaces), nil
}

// usdPrice resolves a symbol's USD price, falling back to any published
// symbol of the same coin (so "USDT (ERC-20)" prices as USDT).
func usdPrice(rates map[string]float64, symbol string) (decimal.Decimal, error) {
	if symbol == USD {
		return decimal.NewFromInt(1), nil
	}
	if v, ok := rates[symbol]; ok && v > 0 {
		return decimal.NewFromFloat(v), nil
	}

	id, err := coin.Lookup(symbol)
	if err != nil {
		return decimal.Zero, err
	}
	for _, c := range coin.Supported() {
		if c.ID != id {
			continue
		}
		if v, ok := rates[string(c.Symbol)]; ok && v > 0 {
			return decimal.NewFromFloat(v), nil
		}
	}
	return decimal.Zero, fmt.Errorf("no rate for %s", symbol)
}
