// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth derives the user identity from the bearer token issued by
// the platform's login flow.
//
// The token is verified by the chat server. The client only reads its
// claims to learn the user id and when the token expires.
package auth

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoSubject is returned for tokens that name no user.
var ErrNoSubject = errors.New("token has no subject")

// Claims are the token claims the client reads.
type Claims struct {
	UserID string `json:"userId,omitempty"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the signed-in user, or the zero value when signed out.
type Identity struct {
	UserID    string
	Name      string
	Email     string
	ExpiresAt time.Time
	Token     string
}

// FromToken reads the identity from a JWT without verifying its signature.
func FromToken(token string) (Identity, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Identity{}, fmt.Errorf("failed to parse token: %w", err)
	}

	userID := claims.Subject
	if userID == "" {
		userID = claims.UserID
	}
	if userID == "" {
		return Identity{}, ErrNoSubject
	}

	id := Identity{
		UserID: userID,
		Name:   claims.Name,
		Email:  claims.Email,
		Token:  token,
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}

// Load reads the identity from token, or from tokenFile when token is empty.
// No token at all yields a signed-out identity and no error.
func Load(token, tokenFile string) (Identity, error) {
	if token == "" && tokenFile != "" {
		data, err := os.ReadFile(tokenFile)
		if err != nil && !os.IsNotExist(err) {
			return Identity{}, fmt.Errorf("failed to read token file: %w", err)
		}
		token = strings.TrimSpace(string(data))
	}
	if token == "" {
		return Identity{}, nil
	}
	return FromToken(token)
}

// Authenticated reports whether the identity names a user with an unexpired
// token.
func (i Identity) Authenticated(now time.Time) bool {
	if i.UserID == "" {
		return false
	}
	return i.ExpiresAt.IsZero() || now.Before(i.ExpiresAt)
}

// DisplayName returns the best available name for the user.
func (i Identity) DisplayName() string {
	switch {
	case i.Name != "":
		return i.Name
	case i.Email != "":
		return i.Email
	default:
		return i.UserID
	}
}

// LoginURL returns the login page with a redirect back to returnTo.
func LoginURL(base, returnTo string) string {
	u, err := url.Parse(base)
	if err != nil || base == "" {
		return base
	}
	if returnTo != "" {
		q := u.Query()
		q.Set("redirect", returnTo)
		u.RawQuery = q.Encode()
	}
	return u.String()
}
