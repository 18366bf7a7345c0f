package middleware

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/x0ba/habithing/internal/database"
	"github.com/x0ba/habithing/internal/models"
	"github.com/x0ba/habithing/internal/request"
	"github.com/x0ba/habithing/internal/services/oidc"
)

// AuthOptions carries the defaults applied to users created on first login.
type AuthOptions struct {
	Provider            string
	DefaultTimeZone     string
	DefaultGraceMinutes int
}

// Auth creates authentication middleware that validates bearer JWT tokens
// against the configured OIDC provider. Unknown subjects get a user record
// created on the fly; the zoneinfo claim seeds the user's time zone when
// the provider supplies a valid one.
func Auth(users database.UserRepositoryInterface, oidcProvider *oidc.Provider, jwksManager *oidc.JWKSManager, opts AuthOptions, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondAuthError(w, http.StatusUnauthorized, "Missing Authorization header", logger)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondAuthError(w, http.StatusUnauthorized, "Invalid Authorization header format", logger)
				return
			}

			tokenString := parts[1]

			ctx := r.Context()
			oidcConfig, err := oidcProvider.GetConfig(ctx, opts.Provider)
			if err != nil {
				logger.Error("oidc_config_lookup_failed", zap.Error(err), zap.String("provider", opts.Provider))
				respondAuthError(w, http.StatusInternalServerError, "Failed to get OIDC configuration", logger)
				return
			}

			if oidcConfig.JWKSUrl == nil {
				respondAuthError(w, http.StatusInternalServerError, "JWKS URL not configured", logger)
				return
			}

			verifier := oidc.NewVerifier(jwksManager, oidcConfig.Issuer)
			claims, err := verifier.Verify(ctx, tokenString, *oidcConfig.JWKSUrl)
			if err != nil {
				logger.Warn("token_verification_failed",
					zap.Error(err),
					zap.String("issuer", oidcConfig.Issuer),
				)
				respondAuthError(w, http.StatusUnauthorized, "Invalid or expired token", logger)
				return
			}

			user, err := users.GetByProviderID(ctx, claims.Sub)
			if err != nil {
				// The repository wraps sql.ErrNoRows, so errors.Is unwraps and checks.
				if errors.Is(err, sql.ErrNoRows) {
					user = &models.User{
						ID:            uuid.New(),
						Email:         claims.Email,
						ProviderID:    &claims.Sub,
						EmailVerified: true,
						TimeZone:      resolveTimeZone(claims.ZoneInfo, opts.DefaultTimeZone),
						GraceMinutes:  opts.DefaultGraceMinutes,
					}
					if claims.Name != "" {
						name := claims.Name
						user.Name = &name
					}
					if err := users.Create(ctx, user); err != nil {
						logger.Error("user_creation_failed", zap.Error(err))
						respondAuthError(w, http.StatusInternalServerError, "Failed to create user", logger)
						return
					}
					logger.Info("user_created",
						zap.String("user_id", user.ID.String()),
						zap.String("time_zone", user.TimeZone),
					)
				} else {
					logger.Error("user_lookup_failed", zap.Error(err))
					respondAuthError(w, http.StatusInternalServerError, "Database error", logger)
					return
				}
			} else {
				// Keep profile fields in sync with the provider.
				updateNeeded := false
				if user.Email != claims.Email {
					user.Email = claims.Email
					updateNeeded = true
				}
				if (user.Name == nil && claims.Name != "") || (user.Name != nil && *user.Name != claims.Name) {
					name := claims.Name
					user.Name = &name
					updateNeeded = true
				}
				if updateNeeded {
					if err := users.Update(ctx, user); err != nil {
						logger.Warn("user_profile_sync_failed", zap.Error(err))
					}
				}
			}

			next.ServeHTTP(w, r.WithContext(request.WithUser(ctx, user)))
		})
	}
}

// resolveTimeZone prefers the provider's zoneinfo claim when it names a real
// IANA zone, otherwise falls back to the configured default.
func resolveTimeZone(zoneInfo, fallback string) string {
	if zoneInfo != "" {
		if _, err := time.LoadLocation(zoneInfo); err == nil {
			return zoneInfo
		}
	}
	if fallback == "" {
		return "UTC"
	}
	return fallback
}
