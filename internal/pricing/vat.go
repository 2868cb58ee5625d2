package pricing

import (
	"github.com/shopspring/decimal"
)

// VATBreakdown carries all money figures for one order line at a fixed
// VAT rate. Every field is already quantized to cents.
type VATBreakdown struct {
	UnitNet    decimal.Decimal
	UnitVAT    decimal.Decimal
	UnitGross  decimal.Decimal
	TotalNet   decimal.Decimal
	TotalVAT   decimal.Decimal
	TotalGross decimal.Decimal
}

// QuantizeMoney rounds an amount to two decimal places, half away from zero.
func QuantizeMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// ComputeVAT derives unit and line totals from a net unit price and a
// fractional VAT rate. Unit figures are rounded first, then each total is
// rounded independently from the exact unit values, so the gross total can
// legitimately differ by a cent from unit_gross * qty.
func ComputeVAT(unitNet, rate decimal.Decimal, qty int) VATBreakdown {
	unitNetQ := QuantizeMoney(unitNet)
	unitVAT := QuantizeMoney(unitNetQ.Mul(rate))
	unitGross := unitNetQ.Add(unitVAT)

	quantity := decimal.NewFromInt(int64(qty))
	totalNet := QuantizeMoney(unitNetQ.Mul(quantity))
	totalVAT := QuantizeMoney(unitVAT.Mul(quantity))
	totalGross := QuantizeMoney(unitGross.Mul(quantity))

	return VATBreakdown{
		UnitNet:    unitNetQ,
		UnitVAT:    unitVAT,
		UnitGross:  unitGross,
		TotalNet:   totalNet,
		TotalVAT:   totalVAT,
		TotalGross: totalGross,
	}
}
