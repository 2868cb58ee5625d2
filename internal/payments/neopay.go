package payments

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/zaliuojibanga/shop-core/pkg/errors"
)

const (
	neopayServiceType = "pisp"
	neopayLinkTTL     = 30 * time.Minute
	// The widget truncates longer purposes on its side anyway.
	maxPaymentPurposeLen = 140
)

// NeopayConfig carries the merchant credentials for the Neopay PISP widget.
type NeopayConfig struct {
	ProjectID         int
	ProjectKey        string
	WidgetHost        string
	ClientRedirectURL string
}

// NeopayLink is a signed widget URL plus the claims baked into it, kept for
// the payment intent's raw request snapshot.
type NeopayLink struct {
	URL    string
	Claims map[string]interface{}
}

// BuildNeopayLink signs the payment parameters into the widget token. The
// token expires after 30 minutes, matching the gateway reservation TTL.
func BuildNeopayLink(cfg NeopayConfig, amount decimal.Decimal, currency, transactionID, paymentPurpose string, now time.Time) (*NeopayLink, error) {
	if cfg.ProjectID == 0 || strings.TrimSpace(cfg.ProjectKey) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "neopay project credentials are not set")
	}

	purpose := paymentPurpose
	if len(purpose) > maxPaymentPurposeLen {
		purpose = purpose[:maxPaymentPurposeLen]
	}
	amountFloat, _ := amount.Float64()

	claims := jwt.MapClaims{
		"projectId":      cfg.ProjectID,
		"amount":         amountFloat,
		"currency":       currency,
		"transactionId":  transactionID,
		"paymentPurpose": purpose,
		"serviceType":    neopayServiceType,
		"iat":            now.Unix(),
		"exp":            now.Add(neopayLinkTTL).Unix(),
	}
	if redirect := strings.TrimSpace(cfg.ClientRedirectURL); redirect != "" {
		claims["clientRedirectUrl"] = redirect
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.ProjectKey))
	if err != nil {
		return nil, err
	}

	return &NeopayLink{
		URL:    widgetBase(cfg.WidgetHost) + token,
		Claims: claims,
	}, nil
}

// DecodeNeopayToken verifies and decodes a widget token, used by callback
// handling to trust the transaction reference.
func DecodeNeopayToken(cfg NeopayConfig, token string) (map[string]interface{}, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unexpected signing method "+t.Method.Alg())
		}
		return []byte(cfg.ProjectKey), nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid neopay token")
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid neopay token claims")
	}
	return claims, nil
}

func widgetBase(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		host = "https://psd2.neopay.lt/widget.html?"
	}
	switch {
	case strings.HasSuffix(host, "?"), strings.HasSuffix(host, "&"):
		return host
	case strings.Contains(host, "?"):
		return host + "&"
	default:
		return host + "?"
	}
}

// RawClaims marshals the claims for the payment intent snapshot column.
func (l *NeopayLink) RawClaims() json.RawMessage {
	raw, err := json.Marshal(l.Claims)
	if err != nil {
		return json.RawMessage("{}")
	}
	return raw
}
