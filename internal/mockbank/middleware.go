/**
 * @description
 * Bearer-token middleware for the mock bank-service. Unlike the production
 * gateway, which validates RS256 tokens against a JWKS endpoint, the mock
 * signs and verifies HS256 tokens with a single configured key; the shape of
 * the middleware is otherwise the same.
 */

package mockbank

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// customerIDContextKey is a custom type for the context key to avoid collisions.
type customerIDContextKey string

const customerIDKey customerIDContextKey = "customerID"

func (s *Server) mintToken(c *Customer) (string, error) {
	claims := jwt.MapClaims{
		"sub":  c.ID,
		"name": c.FullName,
		"iat":  s.now().Unix(),
		"exp":  s.now().Add(12 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.signingKey)
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			writeError(w, http.StatusUnauthorized, "Invalid Authorization header format")
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.signingKey, nil
		})
		if err != nil || !token.Valid {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Invalid token claims")
			return
		}
		customerID, ok := claims["sub"].(string)
		if !ok || customerID == "" {
			writeError(w, http.StatusUnauthorized, "Customer ID not found in token")
			return
		}

		ctx := context.WithValue(r.Context(), customerIDKey, customerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// customerIDFromContext returns the authenticated customer id set by the
// middleware, or "" for unauthenticated contexts.
func customerIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(customerIDKey).(string)
	return id
}
