// Copyright (C) 2025 ente-x
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package envelope

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ente-x/cryptocore/internal/errs"
)

// SessionCacheClaims is what IssueSessionCacheToken signs: enough to let a
// later CLI invocation skip re-deriving the KEK and re-running SRP for the
// same identity within a short window, without ever carrying the master or
// secret key across the boundary.
type SessionCacheClaims struct {
	jwt.RegisteredClaims
	SRPUserID string `json:"srp_user_id"`
}

// IssueSessionCacheToken signs a short-lived local session-cache token for
// identity, valid for ttl. signingKey is never sent anywhere; it is a
// locally-held secret (e.g. random bytes persisted next to the cache file),
// not account key material.
func IssueSessionCacheToken(identity string, ttl time.Duration, signingKey []byte) (string, error) {
	now := time.Now()
	claims := SessionCacheClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		SRPUserID: identity,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(signingKey)
	if err != nil {
		return "", fmt.Errorf("envelope: %w: sign session cache token: %v", errs.ErrBadParams, err)
	}
	return signed, nil
}

// ParseSessionCacheToken verifies tokenString against signingKey and returns
// its claims. An expired token surfaces as errs.ErrSessionExpired; any other
// verification failure surfaces as errs.ErrAuthFailed.
func ParseSessionCacheToken(tokenString string, signingKey []byte) (*SessionCacheClaims, error) {
	claims := &SessionCacheClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}
		return signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("envelope: %w", errs.ErrSessionExpired)
		}
		return nil, fmt.Errorf("envelope: %w: %v", errs.ErrAuthFailed, err)
	}
	return claims, nil
}
