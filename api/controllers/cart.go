package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/zaliuojibanga/shop-core/api/responses"
	"github.com/zaliuojibanga/shop-core/api/validators"
	cartsvc "github.com/zaliuojibanga/shop-core/internal/cart"
	"github.com/zaliuojibanga/shop-core/pkg/db/models"
	"github.com/zaliuojibanga/shop-core/pkg/enums"
	pkgerrors "github.com/zaliuojibanga/shop-core/pkg/errors"
	"github.com/zaliuojibanga/shop-core/pkg/logger"
)

type cartItemResponse struct {
	ID        uuid.UUID  `json:"id"`
	VariantID uuid.UUID  `json:"variant_id"`
	OfferID   *uuid.UUID `json:"offer_id,omitempty"`
	Qty       int        `json:"qty"`
}

type cartResponse struct {
	CartID    uuid.UUID          `json:"cart_id"`
	Items     []cartItemResponse `json:"items"`
	UpdatedAt time.Time          `json:"updated_at"`
}

type addItemRequest struct {
	VariantID string  `json:"variant_id" validate:"required,uuid"`
	OfferID   *string `json:"offer_id,omitempty" validate:"omitempty,uuid"`
	Qty       int     `json:"qty" validate:"required,min=1"`
	Channel   string  `json:"channel,omitempty" validate:"omitempty,oneof=normal outlet"`
}

type updateItemRequest struct {
	Qty int `json:"qty" validate:"required,min=0"`
}

func newCartResponse(cart *models.Cart, items []models.CartItem) cartResponse {
	resp := cartResponse{Items: []cartItemResponse{}}
	if cart != nil {
		resp.CartID = cart.ID
		resp.UpdatedAt = cart.UpdatedAt
	}
	for _, item := range items {
		resp.Items = append(resp.Items, cartItemResponse{
			ID:        item.ID,
			VariantID: item.VariantID,
			OfferID:   item.OfferID,
			Qty:       item.Qty,
		})
	}
	return resp
}

// CartFetch returns the owner's cart, empty when none exists yet.
func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := cartOwnerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, items, err := svc.Get(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartResponse(cart, items))
	}
}

// CartAddItem adds a variant, or a pinned stock lot, to the owner's cart.
func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := cartOwnerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		variantID, err := uuid.Parse(payload.VariantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid variant id"))
			return
		}

		input := cartsvc.AddItemInput{
			VariantID: variantID,
			Qty:       payload.Qty,
			Channel:   enums.OfferVisibilityNormal,
		}
		if payload.OfferID != nil {
			offerID, err := uuid.Parse(*payload.OfferID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid offer id"))
				return
			}
			input.OfferID = &offerID
		}
		if payload.Channel != "" {
			input.Channel = enums.OfferVisibility(payload.Channel)
		}

		if _, err := svc.AddItem(r.Context(), owner, input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, items, err := svc.Get(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCartResponse(cart, items))
	}
}

// CartUpdateItem sets the quantity of one cart line. Zero removes the line.
func CartUpdateItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := cartOwnerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item id"))
			return
		}

		var payload updateItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if _, err := svc.UpdateItemQty(r.Context(), owner, itemID, payload.Qty); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, items, err := svc.Get(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartResponse(cart, items))
	}
}

// CartMerge folds a guest cart into the signed-in buyer's cart. Called by
// clients right after login, with the guest token still in X-Cart-Session.
func CartMerge(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session := r.Header.Get("X-Cart-Session")
		if _, err := uuid.Parse(session); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "cart session token must be a uuid"))
			return
		}

		if err := svc.MergeGuestCart(r.Context(), session, userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, items, err := svc.Get(r.Context(), cartsvc.Owner{UserID: &userID})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartResponse(cart, items))
	}
}

// CartRemoveItem deletes one cart line.
func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := cartOwnerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item id"))
			return
		}

		if _, err := svc.RemoveItem(r.Context(), owner, itemID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, items, err := svc.Get(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartResponse(cart, items))
	}
}
