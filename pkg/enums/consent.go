package enums

import "fmt"

// ConsentKind identifies the legal document a buyer accepted at purchase time.
type ConsentKind string

const (
	ConsentKindTerms   ConsentKind = "terms"
	ConsentKindPrivacy ConsentKind = "privacy"
)

var validConsentKinds = []ConsentKind{
	ConsentKindTerms,
	ConsentKindPrivacy,
}

// RequiredConsentKinds lists the consents every confirmation must carry.
func RequiredConsentKinds() []ConsentKind {
	return []ConsentKind{ConsentKindTerms, ConsentKindPrivacy}
}

// IsValid reports whether the value matches the canonical consent kind enum.
func (c ConsentKind) IsValid() bool {
	for _, candidate := range validConsentKinds {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseConsentKind converts the raw string to ConsentKind.
func ParseConsentKind(value string) (ConsentKind, error) {
	for _, candidate := range validConsentKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid consent kind %q", value)
}
