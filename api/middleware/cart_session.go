package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/zaliuojibanga/shop-core/api/responses"
	pkgAuth "github.com/zaliuojibanga/shop-core/pkg/auth"
	"github.com/zaliuojibanga/shop-core/pkg/config"
	pkgerrors "github.com/zaliuojibanga/shop-core/pkg/errors"
	"github.com/zaliuojibanga/shop-core/pkg/logger"
)

const cartSessionHeader = "X-Cart-Session"

// CartSession resolves the cart owner for routes open to both guests and
// signed-in buyers. A valid bearer token wins; otherwise the guest session
// token from X-Cart-Session is used, minting a fresh one when absent. The
// token in effect is always echoed back so clients can persist it.
func CartSession(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if raw := strings.TrimSpace(r.Header.Get("Authorization")); raw != "" {
				token := raw
				if strings.HasPrefix(strings.ToLower(token), "bearer ") {
					token = strings.TrimSpace(token[7:])
				}
				claims, err := pkgAuth.ParseAccessToken(cfg, token)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
					return
				}
				ctx = WithUserID(ctx, claims.UserID.String())
				if logg != nil {
					ctx = logg.WithUserID(ctx, claims.UserID.String())
				}
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			session := strings.TrimSpace(r.Header.Get(cartSessionHeader))
			if session != "" {
				if _, err := uuid.Parse(session); err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "cart session token must be a uuid"))
					return
				}
			} else {
				session = uuid.NewString()
			}

			w.Header().Set(cartSessionHeader, session)
			ctx = WithCartSession(ctx, session)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
