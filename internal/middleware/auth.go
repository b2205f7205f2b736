package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dan9191/loan-assessment/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const reviewerIDKey contextKey = "reviewerID"

// WithReviewerID stores the authenticated reviewer id in ctx
func WithReviewerID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, reviewerIDKey, id)
}

// ReviewerID returns the authenticated reviewer id from ctx
func ReviewerID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(reviewerIDKey).(int64)
	return id, ok
}

// AuthMiddleware validates the bearer JWT and puts the reviewer id into the request context
func AuthMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenString == "" {
				http.Error(w, "Missing or malformed authorization header", http.StatusUnauthorized)
				return
			}

			claims := &jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
				return []byte(cfg.JWTSecret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
			if err != nil || !token.Valid {
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			id, err := strconv.ParseInt(claims.Subject, 10, 64)
			if err != nil {
				http.Error(w, "Invalid token subject", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithReviewerID(r.Context(), id)))
		})
	}
}
