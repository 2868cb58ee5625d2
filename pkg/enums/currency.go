package enums

// Currency is the ISO 4217 currency code carried on monetary snapshots.
// The storefront trades in EUR only; the column exists so historical orders
// stay self-describing.
type Currency string

const (
	CurrencyEUR Currency = "EUR"
)

// IsValid reports whether the value matches a supported currency.
func (c Currency) IsValid() bool {
	return c == CurrencyEUR
}
