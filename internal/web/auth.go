package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/elys-network/lgevault/internal/types"
	"github.com/golang-jwt/jwt/v4"
)

type contextKey int

const senderKey contextKey = iota

// ErrUnauthenticated is returned for a missing, malformed or expired bearer token.
var ErrUnauthenticated = errors.New("unauthenticated")

// IssueToken signs an HS256 token naming addr as the caller for ttl.
func IssueToken(secret []byte, addr types.Address, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   addr.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken verifies raw and returns the caller address carried in its subject.
func ParseToken(secret []byte, raw string) (types.Address, error) {
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return "", ErrUnauthenticated
	}
	addr, err := types.ParseAddress(claims.Subject)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return addr, nil
}

// requireCaller rejects requests without a valid bearer token and stores the caller address.
func (ws *WebServer) requireCaller(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			ws.writeErrorResponse(w, http.StatusUnauthorized, "Unauthenticated", "bearer token required")
			return
		}
		addr, err := ParseToken(ws.secret, raw)
		if err != nil {
			ws.log.Debug().Err(err).Str("remote_addr", r.RemoteAddr).Msg("Rejected bearer token")
			ws.writeErrorResponse(w, http.StatusUnauthorized, "Unauthenticated", "invalid bearer token")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), senderKey, addr)))
	}
}

func senderFrom(ctx context.Context) types.Address {
	addr, _ := ctx.Value(senderKey).(types.Address)
	return addr
}
