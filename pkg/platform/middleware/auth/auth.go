// Package auth turns a bearer token into the request actor. Authentication
// itself happens upstream; this layer only verifies the token and reads the
// subject, client account and roles it carries.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	id "immo/pkg/domain"
	dErrors "immo/pkg/domain-errors"
	"immo/pkg/platform/httputil"
	"immo/pkg/requestcontext"
)

// JWTValidator defines the interface for validating JWT tokens
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator
type JWTClaims struct {
	UserID   string
	ClientID string
	Roles    []string
}

// Actor converts raw claims into a domain actor. Unknown roles are rejected so
// a typo in the issuer never silently downgrades to an anonymous caller.
func (c *JWTClaims) Actor() (id.Actor, error) {
	userID, err := id.ParseUserID(c.UserID)
	if err != nil {
		return id.Actor{}, err
	}
	actor := id.Actor{UserID: userID}
	if c.ClientID != "" {
		clientID, err := id.ParseClientID(c.ClientID)
		if err != nil {
			return id.Actor{}, err
		}
		actor.ClientID = clientID
	}
	for _, raw := range c.Roles {
		role, err := id.ParseRole(raw)
		if err != nil {
			return id.Actor{}, err
		}
		actor.Roles = append(actor.Roles, role)
	}
	return actor, nil
}

func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Missing or invalid Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Invalid or expired token"))
				return
			}

			actor, err := claims.Actor()
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - malformed claims",
					"error", err,
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Invalid token claims"))
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithActor(ctx, actor)))
		})
	}
}
