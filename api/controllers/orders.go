package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zaliuojibanga/shop-core/api/responses"
	"github.com/zaliuojibanga/shop-core/api/validators"
	internalorders "github.com/zaliuojibanga/shop-core/internal/orders"
	"github.com/zaliuojibanga/shop-core/pkg/db/models"
	pkgerrors "github.com/zaliuojibanga/shop-core/pkg/errors"
	"github.com/zaliuojibanga/shop-core/pkg/logger"
)

type orderSummaryDTO struct {
	ID             uuid.UUID       `json:"id"`
	Status         string          `json:"status"`
	Currency       string          `json:"currency"`
	ShippingMethod string          `json:"shipping_method"`
	TotalNet       decimal.Decimal `json:"total_net"`
	TotalVAT       decimal.Decimal `json:"total_vat"`
	TotalGross     decimal.Decimal `json:"total_gross"`
	CouponCode     *string         `json:"coupon_code,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
}

type orderPageResponse struct {
	Orders []orderSummaryDTO `json:"orders"`
	Total  int64             `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

type orderLineDTO struct {
	SKU        string          `json:"sku"`
	Name       string          `json:"name"`
	Qty        int             `json:"qty"`
	UnitNet    decimal.Decimal `json:"unit_net"`
	VATRate    decimal.Decimal `json:"vat_rate"`
	UnitVAT    decimal.Decimal `json:"unit_vat"`
	UnitGross  decimal.Decimal `json:"unit_gross"`
	TotalNet   decimal.Decimal `json:"total_net"`
	TotalVAT   decimal.Decimal `json:"total_vat"`
	TotalGross decimal.Decimal `json:"total_gross"`
	Discounted bool            `json:"discounted"`
}

type orderFeeDTO struct {
	Code  string          `json:"code"`
	Name  string          `json:"name"`
	Net   decimal.Decimal `json:"net"`
	VAT   decimal.Decimal `json:"vat"`
	Gross decimal.Decimal `json:"gross"`
}

type orderDiscountDTO struct {
	Kind         string          `json:"kind"`
	Code         *string         `json:"code,omitempty"`
	Net          decimal.Decimal `json:"net"`
	VAT          decimal.Decimal `json:"vat"`
	Gross        decimal.Decimal `json:"gross"`
	FreeShipping bool            `json:"free_shipping"`
}

type paymentStateDTO struct {
	Provider    string  `json:"provider"`
	Status      string  `json:"status"`
	RedirectURL *string `json:"redirect_url,omitempty"`
}

type orderAddressDTO struct {
	FullName   string `json:"full_name"`
	Company    string `json:"company,omitempty"`
	Line1      string `json:"line1"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country_code"`
	Phone      string `json:"phone,omitempty"`
}

type orderDetailResponse struct {
	orderSummaryDTO

	CountryCode string          `json:"country_code"`
	Address     orderAddressDTO `json:"shipping_address"`

	PickupPointID   string `json:"pickup_point_id,omitempty"`
	PickupPointName string `json:"pickup_point_name,omitempty"`

	ItemsNet      decimal.Decimal `json:"items_net"`
	ItemsVAT      decimal.Decimal `json:"items_vat"`
	ItemsGross    decimal.Decimal `json:"items_gross"`
	ShippingNet   decimal.Decimal `json:"shipping_net"`
	ShippingVAT   decimal.Decimal `json:"shipping_vat"`
	ShippingGross decimal.Decimal `json:"shipping_gross"`
	DiscountNet   decimal.Decimal `json:"discount_net"`
	DiscountVAT   decimal.Decimal `json:"discount_vat"`
	DiscountGross decimal.Decimal `json:"discount_gross"`

	Lines     []orderLineDTO     `json:"lines"`
	Fees      []orderFeeDTO      `json:"fees"`
	Discounts []orderDiscountDTO `json:"discounts"`
	Payment   *paymentStateDTO   `json:"payment,omitempty"`
}

func newOrderSummary(order models.Order) orderSummaryDTO {
	return orderSummaryDTO{
		ID:             order.ID,
		Status:         string(order.Status),
		Currency:       order.Currency,
		ShippingMethod: order.ShippingMethod,
		TotalNet:       order.TotalNet,
		TotalVAT:       order.TotalVAT,
		TotalGross:     order.TotalGross,
		CouponCode:     order.CouponCode,
		CreatedAt:      order.CreatedAt,
		PaidAt:         order.PaidAt,
	}
}

func newOrderDetail(detail *internalorders.Detail) orderDetailResponse {
	order := detail.Order
	resp := orderDetailResponse{
		orderSummaryDTO: newOrderSummary(order),
		CountryCode:     order.CountryCode,
		Address: orderAddressDTO{
			FullName:   order.ShippingFullName,
			Company:    order.ShippingCompany,
			Line1:      order.ShippingLine1,
			City:       order.ShippingCity,
			PostalCode: order.ShippingPostalCode,
			Country:    order.ShippingCountry,
			Phone:      order.ShippingPhone,
		},
		PickupPointID:   order.PickupPointID,
		PickupPointName: order.PickupPointName,
		ItemsNet:        order.ItemsNet,
		ItemsVAT:        order.ItemsVAT,
		ItemsGross:      order.ItemsGross,
		ShippingNet:     order.ShippingNet,
		ShippingVAT:     order.ShippingVAT,
		ShippingGross:   order.ShippingGross,
		DiscountNet:     order.DiscountNet,
		DiscountVAT:     order.DiscountVAT,
		DiscountGross:   order.DiscountGross,
		Lines:           []orderLineDTO{},
		Fees:            []orderFeeDTO{},
		Discounts:       []orderDiscountDTO{},
	}
	for _, line := range detail.Lines {
		resp.Lines = append(resp.Lines, orderLineDTO{
			SKU:        line.SKU,
			Name:       line.Name,
			Qty:        line.Qty,
			UnitNet:    line.UnitNet,
			VATRate:    line.VATRate,
			UnitVAT:    line.UnitVAT,
			UnitGross:  line.UnitGross,
			TotalNet:   line.TotalNet,
			TotalVAT:   line.TotalVAT,
			TotalGross: line.TotalGross,
			Discounted: line.Discounted,
		})
	}
	for _, fee := range detail.Fees {
		resp.Fees = append(resp.Fees, orderFeeDTO{
			Code:  fee.Code,
			Name:  fee.Name,
			Net:   fee.Net,
			VAT:   fee.VAT,
			Gross: fee.Gross,
		})
	}
	for _, discount := range detail.Discounts {
		resp.Discounts = append(resp.Discounts, orderDiscountDTO{
			Kind:         string(discount.Kind),
			Code:         discount.Code,
			Net:          discount.Net,
			VAT:          discount.VAT,
			Gross:        discount.Gross,
			FreeShipping: discount.FreeShipping,
		})
	}
	if detail.Intent != nil {
		resp.Payment = &paymentStateDTO{
			Provider:    string(detail.Intent.Provider),
			Status:      string(detail.Intent.Status),
			RedirectURL: detail.Intent.RedirectURL,
		}
	}
	return resp
}

// OrdersList pages the signed-in buyer's orders, newest first.
func OrdersList(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 50)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1_000_000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), userID, limit, offset)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := orderPageResponse{
			Orders: []orderSummaryDTO{},
			Total:  page.Total,
			Limit:  page.Limit,
			Offset: page.Offset,
		}
		for _, order := range page.Orders {
			resp.Orders = append(resp.Orders, newOrderSummary(order))
		}

		responses.WriteSuccess(w, resp)
	}
}

// OrdersDetail returns one of the buyer's orders with its full snapshot.
func OrdersDetail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		detail, err := svc.Get(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderDetail(detail))
	}
}
