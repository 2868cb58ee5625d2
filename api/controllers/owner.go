package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/zaliuojibanga/shop-core/api/middleware"
	cartsvc "github.com/zaliuojibanga/shop-core/internal/cart"
	pkgerrors "github.com/zaliuojibanga/shop-core/pkg/errors"
)

// cartOwnerFromContext resolves the cart owner seeded by the auth or cart
// session middleware. Signed-in buyers own their cart by user id, guests by
// session token.
func cartOwnerFromContext(r *http.Request) (cartsvc.Owner, error) {
	if userID := middleware.UserIDFromContext(r.Context()); userID != "" {
		parsed, err := uuid.Parse(userID)
		if err != nil {
			return cartsvc.Owner{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
		}
		return cartsvc.Owner{UserID: &parsed}, nil
	}
	if session := middleware.CartSessionFromContext(r.Context()); session != "" {
		return cartsvc.Owner{SessionToken: &session}, nil
	}
	return cartsvc.Owner{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
}

// userIDFromContext resolves the signed-in buyer for auth-only routes.
func userIDFromContext(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return parsed, nil
}
