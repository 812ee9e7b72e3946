package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mdnaeem95/hbbtool-sub002/api/responses"
	pkgauth "github.com/mdnaeem95/hbbtool-sub002/pkg/auth"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/config"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/enums"
	pkgerrors "github.com/mdnaeem95/hbbtool-sub002/pkg/errors"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the claims.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := context.WithValue(r.Context(), ctxRole, string(claims.Role))
			fields := map[string]any{"actor_role": string(claims.Role)}
			if claims.MerchantID != nil {
				ctx = context.WithValue(ctx, ctxMerchantID, *claims.MerchantID)
				fields["merchant_id"] = claims.MerchantID.String()
			}
			if claims.CustomerID != nil {
				ctx = context.WithValue(ctx, ctxCustomerID, *claims.CustomerID)
				fields["customer_id"] = claims.CustomerID.String()
			}

			if logg != nil {
				ctx = logg.WithFields(ctx, fields)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireMerchant gates a route to authenticated merchant actors.
func RequireMerchant(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if RoleFromContext(r.Context()) != enums.ActorRoleMerchant.String() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "merchant access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
