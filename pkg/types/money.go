package types

import "github.com/shopspring/decimal"

// Money is the net/vat/gross triple rendered on API responses. Amounts are
// already quantized to two decimal places when a Money is built.
type Money struct {
	Currency string          `json:"currency"`
	Net      decimal.Decimal `json:"net"`
	VATRate  decimal.Decimal `json:"vat_rate"`
	VAT      decimal.Decimal `json:"vat"`
	Gross    decimal.Decimal `json:"gross"`
}

// ZeroMoney returns a Money with all amounts at 0.00.
func ZeroMoney(currency string) Money {
	zero := decimal.New(0, -2)
	return Money{
		Currency: currency,
		Net:      zero,
		VATRate:  decimal.Zero,
		VAT:      zero,
		Gross:    zero,
	}
}

// Add returns the component-wise sum of two Money values. The VAT rate of the
// result is zeroed: a sum over mixed-rate lines has no single rate.
func (m Money) Add(other Money) Money {
	return Money{
		Currency: m.Currency,
		Net:      m.Net.Add(other.Net),
		VATRate:  decimal.Zero,
		VAT:      m.VAT.Add(other.VAT),
		Gross:    m.Gross.Add(other.Gross),
	}
}
