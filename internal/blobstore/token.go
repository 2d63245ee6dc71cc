// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package blobstore

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Blob operations a token can grant.
const (
	OpUpload   = "upload"
	OpDownload = "download"
)

// ErrInvalidToken is returned for a bad, expired, or mis-scoped blob token.
var ErrInvalidToken = errors.New("invalid blob token")

// blobClaims scopes a token to one key and one operation.
type blobClaims struct {
	Key         string `json:"key"`
	Op          string `json:"op"`
	ContentType string `json:"ct,omitempty"`
	jwt.RegisteredClaims
}

// TokenSigner issues and checks HS256 tokens for locally served blob URLs.
type TokenSigner struct {
	secret []byte
	now    func() time.Time
}

// NewTokenSigner creates a signer. The secret must be at least 32 bytes.
func NewTokenSigner(secret string) (*TokenSigner, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("blob token secret must be at least 32 characters")
	}
	return &TokenSigner{secret: []byte(secret), now: time.Now}, nil
}

// Sign returns a token granting op on key until now+ttl.
func (s *TokenSigner) Sign(key, op, contentType string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := &blobClaims{
		Key:         key,
		Op:          op,
		ContentType: contentType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign blob token: %w", err)
	}
	return signed, nil
}

// Verify checks that token grants op on key. For uploads it returns the
// content type the token was issued for.
func (s *TokenSigner) Verify(token, key, op string) (string, error) {
	claims := &blobClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Key != key || claims.Op != op {
		return "", ErrInvalidToken
	}
	return claims.ContentType, nil
}
