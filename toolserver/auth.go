// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package toolserver

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// authMiddleware validates HS256 bearer tokens signed with a shared
// secret. The orchestrator and the operator CLI mint their own tokens;
// agent platforms receive one in their tool configuration.
type authMiddleware struct {
	secret []byte
}

func newAuthMiddleware(secret []byte) *authMiddleware {
	return &authMiddleware{secret: secret}
}

// authenticate validates the Authorization header and returns the caller
// identity from the token's client_id claim (falling back to sub).
func (a *authMiddleware) authenticate(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("missing Authorization header")
	}
	raw := strings.TrimPrefix(header, "Bearer ")
	if raw == header {
		return "", fmt.Errorf("Authorization header must use Bearer scheme")
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}
	if clientID, ok := claims["client_id"].(string); ok && clientID != "" {
		return clientID, nil
	}
	if sub, _ := claims.GetSubject(); sub != "" {
		return sub, nil
	}
	return "", fmt.Errorf("token carries no client identity")
}

// MintToken issues an HS256 token for a client. Used by the operator CLI
// and by tests.
func MintToken(secret []byte, clientID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"client_id": clientID,
	})
	return token.SignedString(secret)
}
