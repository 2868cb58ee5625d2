package enums

import "fmt"

// PaymentProvider identifies the payment integration an intent is opened with.
type PaymentProvider string

const (
	PaymentProviderNeopay       PaymentProvider = "neopay"
	PaymentProviderBankTransfer PaymentProvider = "bank_transfer"
)

var validPaymentProviders = []PaymentProvider{
	PaymentProviderNeopay,
	PaymentProviderBankTransfer,
}

// IsValid reports whether the value matches the canonical payment provider enum.
func (p PaymentProvider) IsValid() bool {
	for _, candidate := range validPaymentProviders {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsRedirect reports whether the provider hands the buyer a redirect link.
func (p PaymentProvider) IsRedirect() bool {
	return p == PaymentProviderNeopay
}

// ParsePaymentProvider converts the raw string to PaymentProvider.
func ParsePaymentProvider(value string) (PaymentProvider, error) {
	for _, candidate := range validPaymentProviders {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment provider %q", value)
}

// PaymentStatus tracks the state of a payment intent.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusRedirected PaymentStatus = "redirected"
	PaymentStatusSucceeded  PaymentStatus = "succeeded"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusCancelled  PaymentStatus = "cancelled"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusRedirected,
	PaymentStatusSucceeded,
	PaymentStatusFailed,
	PaymentStatusCancelled,
}

// IsValid reports whether the value matches the canonical payment status enum.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}
