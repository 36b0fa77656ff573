package rest

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// authenticator validates bearer tokens and resolves the bidder
type authenticator struct {
	secret []byte
}

func newAuthenticator(secret string) *authenticator {
	return &authenticator{secret: []byte(secret)}
}

// Middleware requires a valid bearer token and puts the caller's ID
// and role on the context
func (a *authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeUnauthorized(w, "authorization required")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			writeUnauthorized(w, "invalid authorization format")
			return
		}

		bidderID, role, err := a.parseToken(parts[1])
		if err != nil {
			writeUnauthorized(w, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyBidderID, bidderID)
		ctx = context.WithValue(ctx, contextKeyRole, role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// parseToken validates signature and expiry and extracts the subject
func (a *authenticator) parseToken(raw string) (uuid.UUID, string, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return uuid.Nil, "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return uuid.Nil, "", fmt.Errorf("invalid claims")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return uuid.Nil, "", fmt.Errorf("missing subject")
	}

	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("subject is not a UUID: %w", err)
	}

	role, _ := claims["role"].(string)
	return id, role, nil
}

// IssueToken mints a token for a bidder, used by tests and tooling
func (a *authenticator) IssueToken(bidderID uuid.UUID, role string, claims jwt.MapClaims) (string, error) {
	if claims == nil {
		claims = jwt.MapClaims{}
	}
	claims["sub"] = bidderID.String()
	if role != "" {
		claims["role"] = role
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func bidderFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(contextKeyBidderID).(uuid.UUID)
	return id, ok
}

func roleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(contextKeyRole).(string)
	return role
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusUnauthorized, ErrorResponse{
		Error: ErrorBody{Code: "UNAUTHORIZED", Message: message},
	})
}
