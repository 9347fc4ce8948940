// Package middleware provides HTTP middleware for the API
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/usherlabs/custody/internal/auth"
)

// ContextKey type for context values
type ContextKey string

const (
	// DIDKey is the context key for the authenticated DID
	DIDKey ContextKey = "did"

	// ClaimsKey is the context key for the validated token claims
	ClaimsKey ContextKey = "claims"
)

// Metrics counts DID token checks by outcome.
type Metrics struct {
	TokenChecks *prometheus.CounterVec
}

// NewMetrics registers the middleware metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		TokenChecks: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "usher",
			Name:      "did_token_checks_total",
			Help:      "DID bearer token checks by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) observe(result string) {
	if m != nil {
		m.TokenChecks.WithLabelValues(result).Inc()
	}
}

// DIDAuth creates middleware that validates DID bearer tokens.
// metrics may be nil.
func DIDAuth(tokenConfig *auth.TokenConfig, metrics *Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				metrics.observe("missing")
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				metrics.observe("malformed")
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header format")
			}

			claims, err := auth.ValidateToken(parts[1], tokenConfig)
			if err != nil {
				if errors.Is(err, auth.ErrExpiredToken) {
					metrics.observe("expired")
					return echo.NewHTTPError(http.StatusUnauthorized, "token expired")
				}
				metrics.observe("invalid")
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			metrics.observe("ok")
			c.Set(string(DIDKey), claims.DID())
			c.Set(string(ClaimsKey), claims)
			c.SetRequest(c.Request().WithContext(auth.WithDID(c.Request().Context(), claims.DID())))

			return next(c)
		}
	}
}

// GetDID retrieves the authenticated DID from context
func GetDID(c echo.Context) string {
	if id, ok := c.Get(string(DIDKey)).(string); ok {
		return id
	}
	return ""
}

// GetClaims retrieves the validated token claims from context
func GetClaims(c echo.Context) *auth.Claims {
	claims, _ := c.Get(string(ClaimsKey)).(*auth.Claims)
	return claims
}
