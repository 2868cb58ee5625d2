package controllers

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zaliuojibanga/shop-core/api/responses"
	"github.com/zaliuojibanga/shop-core/api/validators"
	cartsvc "github.com/zaliuojibanga/shop-core/internal/cart"
	checkoutsvc "github.com/zaliuojibanga/shop-core/internal/checkout"
	"github.com/zaliuojibanga/shop-core/internal/shipping"
	"github.com/zaliuojibanga/shop-core/pkg/config"
	"github.com/zaliuojibanga/shop-core/pkg/enums"
	pkgerrors "github.com/zaliuojibanga/shop-core/pkg/errors"
	"github.com/zaliuojibanga/shop-core/pkg/logger"
)

type previewRequest struct {
	CountryCode    string `json:"country_code,omitempty" validate:"omitempty,len=2"`
	ShippingMethod string `json:"shipping_method,omitempty" validate:"omitempty,max=50"`
	PaymentMethod  string `json:"payment_method,omitempty" validate:"omitempty,max=20"`
	CouponCode     string `json:"coupon_code,omitempty" validate:"omitempty,max=40"`
}

type moneyDTO struct {
	Net   decimal.Decimal `json:"net"`
	VAT   decimal.Decimal `json:"vat"`
	Gross decimal.Decimal `json:"gross"`
}

type previewLineDTO struct {
	VariantID  uuid.UUID       `json:"variant_id"`
	OfferID    *uuid.UUID      `json:"offer_id,omitempty"`
	SKU        string          `json:"sku"`
	Name       string          `json:"name"`
	Qty        int             `json:"qty"`
	VATRate    decimal.Decimal `json:"vat_rate"`
	UnitNet    decimal.Decimal `json:"unit_net"`
	UnitVAT    decimal.Decimal `json:"unit_vat"`
	UnitGross  decimal.Decimal `json:"unit_gross"`
	Total      moneyDTO        `json:"total"`
	Discounted bool            `json:"discounted"`
}

type previewFeeDTO struct {
	Code  string          `json:"code"`
	Name  string          `json:"name"`
	Net   decimal.Decimal `json:"net"`
	VAT   decimal.Decimal `json:"vat"`
	Gross decimal.Decimal `json:"gross"`
}

type previewDiscountDTO struct {
	Code         string          `json:"code"`
	Net          decimal.Decimal `json:"net"`
	VAT          decimal.Decimal `json:"vat"`
	Gross        decimal.Decimal `json:"gross"`
	FreeShipping bool            `json:"free_shipping"`
}

type previewResponse struct {
	CountryCode    string              `json:"country_code"`
	Currency       string              `json:"currency"`
	ShippingMethod string              `json:"shipping_method"`
	Lines          []previewLineDTO    `json:"lines"`
	Items          moneyDTO            `json:"items"`
	Discount       *previewDiscountDTO `json:"discount,omitempty"`
	Shipping       moneyDTO            `json:"shipping"`
	Fees           []previewFeeDTO     `json:"fees"`
	Total          moneyDTO            `json:"total"`
}

func toMoneyDTO(m checkoutsvc.Money) moneyDTO {
	return moneyDTO{Net: m.Net, VAT: m.VAT, Gross: m.Gross}
}

func newPreviewResponse(preview *checkoutsvc.Preview) previewResponse {
	resp := previewResponse{
		CountryCode:    preview.CountryCode,
		Currency:       preview.Currency,
		ShippingMethod: preview.ShippingMethod,
		Lines:          []previewLineDTO{},
		Items:          toMoneyDTO(preview.Items),
		Shipping:       toMoneyDTO(preview.Shipping),
		Fees:           []previewFeeDTO{},
		Total:          toMoneyDTO(preview.Total),
	}
	for _, line := range preview.Lines {
		resp.Lines = append(resp.Lines, previewLineDTO{
			VariantID:  line.VariantID,
			OfferID:    line.OfferID,
			SKU:        line.SKU,
			Name:       line.Name,
			Qty:        line.Qty,
			VATRate:    line.VATRate,
			UnitNet:    line.UnitNet,
			UnitVAT:    line.UnitVAT,
			UnitGross:  line.UnitGross,
			Total:      toMoneyDTO(line.Total),
			Discounted: line.Discounted,
		})
	}
	for _, fee := range preview.Fees {
		resp.Fees = append(resp.Fees, previewFeeDTO{
			Code:  fee.Code,
			Name:  fee.Name,
			Net:   fee.Net,
			VAT:   fee.VAT,
			Gross: fee.Gross,
		})
	}
	if preview.Discount != nil {
		resp.Discount = &previewDiscountDTO{
			Code:         preview.Discount.Code,
			Net:          preview.Discount.Net,
			VAT:          preview.Discount.VAT,
			Gross:        preview.Discount.Gross,
			FreeShipping: preview.Discount.FreeShipping,
		}
	}
	return resp
}

// CheckoutPreview prices the owner's cart without writing anything.
func CheckoutPreview(svc checkoutsvc.Service, cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := cartOwnerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload previewRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := checkoutsvc.PreviewInput{
			Owner:          owner,
			CountryCode:    strings.ToUpper(strings.TrimSpace(payload.CountryCode)),
			ShippingMethod: strings.TrimSpace(payload.ShippingMethod),
			PaymentMethod:  strings.TrimSpace(payload.PaymentMethod),
			CouponCode:     strings.TrimSpace(payload.CouponCode),
			Channel:        enums.OfferVisibilityNormal,
		}
		if input.CountryCode == "" {
			input.CountryCode = cfg.Checkout.DefaultCountry
		}
		if input.ShippingMethod == "" {
			input.ShippingMethod = cfg.Shipping.DefaultMethod
		}

		preview, err := svc.Preview(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newPreviewResponse(preview))
	}
}

type consentPayload struct {
	Kind            string `json:"kind" validate:"required,oneof=terms privacy"`
	DocumentVersion string `json:"document_version" validate:"required,max=80"`
}

type confirmRequest struct {
	ShippingAddressID string           `json:"shipping_address_id" validate:"required,uuid"`
	ShippingMethod    string           `json:"shipping_method,omitempty" validate:"omitempty,max=50"`
	PickupPointID     string           `json:"pickup_point_id,omitempty" validate:"omitempty,max=80"`
	PickupPointName   string           `json:"pickup_point_name,omitempty" validate:"omitempty,max=200"`
	PaymentMethod     string           `json:"payment_method" validate:"required,max=20"`
	CouponCode        string           `json:"coupon_code,omitempty" validate:"omitempty,max=40"`
	Consents          []consentPayload `json:"consents" validate:"required,min=1,dive"`
}

type confirmResponse struct {
	OrderID             uuid.UUID `json:"order_id"`
	Provider            string    `json:"provider"`
	Status              string    `json:"status"`
	RedirectURL         *string   `json:"redirect_url,omitempty"`
	PaymentInstructions string    `json:"payment_instructions,omitempty"`
	Replayed            bool      `json:"replayed"`
}

// CheckoutConfirm places the order. Requires a signed-in buyer.
func CheckoutConfirm(svc checkoutsvc.Service, cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload confirmRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		addressID, err := uuid.Parse(payload.ShippingAddressID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping address id"))
			return
		}

		input := checkoutsvc.ConfirmInput{
			UserID:            userID,
			CartOwner:         cartsvc.Owner{UserID: &userID},
			ShippingAddressID: addressID,
			ShippingMethod:    strings.TrimSpace(payload.ShippingMethod),
			PickupPointID:     strings.TrimSpace(payload.PickupPointID),
			PickupPointName:   strings.TrimSpace(payload.PickupPointName),
			PaymentMethod:     strings.TrimSpace(payload.PaymentMethod),
			CouponCode:        strings.TrimSpace(payload.CouponCode),
			UserAgent:         r.UserAgent(),
		}
		if input.ShippingMethod == "" {
			input.ShippingMethod = cfg.Shipping.DefaultMethod
		}
		if key := strings.TrimSpace(r.Header.Get("Idempotency-Key")); key != "" {
			input.IdempotencyKey = &key
		}
		if ip := requestIP(r); ip != "" {
			input.IPAddress = &ip
		}
		for _, consent := range payload.Consents {
			input.Consents = append(input.Consents, checkoutsvc.ConsentInput{
				Kind:            enums.ConsentKind(consent.Kind),
				DocumentVersion: consent.DocumentVersion,
			})
		}

		result, err := svc.Confirm(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.Replayed {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, confirmResponse{
			OrderID:             result.OrderID,
			Provider:            string(result.Provider),
			Status:              string(result.Status),
			RedirectURL:         result.RedirectURL,
			PaymentInstructions: result.PaymentInstructions,
			Replayed:            result.Replayed,
		})
	}
}

type consentDocDTO struct {
	Kind            string `json:"kind"`
	DocumentVersion string `json:"document_version"`
	URL             string `json:"url"`
}

// CheckoutConsents lists the document versions a buyer must accept.
func CheckoutConsents(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, []consentDocDTO{
			{Kind: string(enums.ConsentKindTerms), DocumentVersion: cfg.Checkout.TermsVersion, URL: cfg.Checkout.TermsURL},
			{Kind: string(enums.ConsentKindPrivacy), DocumentVersion: cfg.Checkout.PrivacyVersion, URL: cfg.Checkout.PrivacyURL},
		})
	}
}

type shippingMethodDTO struct {
	Code                string           `json:"code"`
	Name                string           `json:"name"`
	CarrierCode         string           `json:"carrier_code,omitempty"`
	RequiresPickupPoint bool             `json:"requires_pickup_point"`
	NetPrice            *decimal.Decimal `json:"net_price,omitempty"`
	DeliveryEstimate    *deliveryWindow  `json:"delivery_estimate,omitempty"`
}

type deliveryWindow struct {
	EarliestDate string `json:"earliest_date"`
	LatestDate   string `json:"latest_date"`
}

// CheckoutShippingMethods lists active methods with the destination rate and
// a business-day delivery estimate.
func CheckoutShippingMethods(repo shipping.Repository, estimator *shipping.Estimator, cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		country := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("country")))
		if country == "" {
			country = cfg.Checkout.DefaultCountry
		}

		methods, err := repo.ListMethods(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var estimate *deliveryWindow
		if estimator != nil {
			window, err := estimator.DeliveryWindow(r.Context(), country, time.Now())
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			estimate = &deliveryWindow{
				EarliestDate: window.Min.Format("2006-01-02"),
				LatestDate:   window.Max.Format("2006-01-02"),
			}
		}

		out := make([]shippingMethodDTO, 0, len(methods))
		for _, method := range methods {
			dto := shippingMethodDTO{
				Code:                method.Code,
				Name:                method.Name,
				CarrierCode:         method.CarrierCode,
				RequiresPickupPoint: method.RequiresPickupPoint,
				DeliveryEstimate:    estimate,
			}
			if rate, err := repo.RateFor(r.Context(), method.ID, country); err == nil {
				dto.NetPrice = &rate
			}
			out = append(out, dto)
		}

		responses.WriteSuccess(w, out)
	}
}

type paymentMethodDTO struct {
	Code     string `json:"code"`
	Redirect bool   `json:"redirect"`
}

// CheckoutPaymentMethods lists the configured payment providers.
func CheckoutPaymentMethods(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out := []paymentMethodDTO{}
		if cfg.Payments.NeopayProjectID != "" && cfg.Payments.NeopayProjectKey != "" {
			out = append(out, paymentMethodDTO{
				Code:     string(enums.PaymentProviderNeopay),
				Redirect: enums.PaymentProviderNeopay.IsRedirect(),
			})
		}
		out = append(out, paymentMethodDTO{
			Code:     string(enums.PaymentProviderBankTransfer),
			Redirect: enums.PaymentProviderBankTransfer.IsRedirect(),
		})
		responses.WriteSuccess(w, out)
	}
}

func requestIP(r *http.Request) string {
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
