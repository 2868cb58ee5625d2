package payments

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zaliuojibanga/shop-core/pkg/config"
	"github.com/zaliuojibanga/shop-core/pkg/enums"
	pkgerrors "github.com/zaliuojibanga/shop-core/pkg/errors"
)

// LinkRequest carries what a provider needs to open a payment.
type LinkRequest struct {
	OrderID     uuid.UUID
	AmountGross decimal.Decimal
	Currency    string
	Purpose     string
}

// Link is the provider's answer: either a redirect URL (gateway flow) or
// human-readable instructions (bank transfer flow), plus the raw request
// snapshot stored on the payment intent.
type Link struct {
	RedirectURL  *string
	Instructions string
	Raw          json.RawMessage
}

// Provider opens payments for one payment method.
type Provider interface {
	Code() enums.PaymentProvider
	CreateLink(req LinkRequest, now time.Time) (*Link, error)
}

// Registry resolves providers by code.
type Registry struct {
	providers map[enums.PaymentProvider]Provider
}

// NewRegistry wires the configured providers.
func NewRegistry(cfg config.PaymentsConfig) (*Registry, error) {
	neopay, err := newNeopayProvider(cfg)
	if err != nil {
		return nil, err
	}
	registry := &Registry{providers: map[enums.PaymentProvider]Provider{
		enums.PaymentProviderNeopay:       neopay,
		enums.PaymentProviderBankTransfer: &bankTransferProvider{instructions: cfg.BankTransferInstructions},
	}}
	return registry, nil
}

// Resolve returns the provider for a code.
func (r *Registry) Resolve(code enums.PaymentProvider) (Provider, error) {
	provider, ok := r.providers[code]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported payment provider %q", code))
	}
	return provider, nil
}

type neopayProvider struct {
	cfg NeopayConfig
}

func newNeopayProvider(cfg config.PaymentsConfig) (*neopayProvider, error) {
	projectID := 0
	if cfg.NeopayProjectID != "" {
		parsed, err := parseProjectID(cfg.NeopayProjectID)
		if err != nil {
			return nil, err
		}
		projectID = parsed
	}
	return &neopayProvider{cfg: NeopayConfig{
		ProjectID:         projectID,
		ProjectKey:        cfg.NeopayProjectKey,
		WidgetHost:        cfg.NeopayWidgetHost,
		ClientRedirectURL: cfg.NeopayRedirectURL,
	}}, nil
}

func (p *neopayProvider) Code() enums.PaymentProvider {
	return enums.PaymentProviderNeopay
}

func (p *neopayProvider) CreateLink(req LinkRequest, now time.Time) (*Link, error) {
	link, err := BuildNeopayLink(p.cfg, req.AmountGross, req.Currency, req.OrderID.String(), req.Purpose, now)
	if err != nil {
		return nil, err
	}
	url := link.URL
	return &Link{RedirectURL: &url, Raw: link.RawClaims()}, nil
}

type bankTransferProvider struct {
	instructions string
}

func (p *bankTransferProvider) Code() enums.PaymentProvider {
	return enums.PaymentProviderBankTransfer
}

func (p *bankTransferProvider) CreateLink(req LinkRequest, _ time.Time) (*Link, error) {
	raw, err := json.Marshal(map[string]interface{}{
		"orderId":  req.OrderID,
		"amount":   req.AmountGross,
		"currency": req.Currency,
	})
	if err != nil {
		return nil, err
	}
	return &Link{Instructions: p.instructions, Raw: raw}, nil
}

func parseProjectID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeConfiguration, fmt.Sprintf("invalid neopay project id %q", raw))
	}
	return id, nil
}
