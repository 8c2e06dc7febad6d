package feedback

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidLink is returned for links that are malformed, forged or expired.
var ErrInvalidLink = errors.New("invalid or expired feedback link")

// LinkSigner turns participant feedback tokens into signed, expiring link
// tokens and back.
//
// With an empty secret, links are the raw feedback tokens and never expire.
type LinkSigner struct {
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
}

// linkClaims carries the participant feedback token inside the JWT.
type linkClaims struct {
	Token string `json:"tok"`
	jwt.RegisteredClaims
}

// NewLinkSigner creates a LinkSigner. A ttl of 0 issues links without expiry.
func NewLinkSigner(secretKey string, ttl time.Duration) *LinkSigner {
	return &LinkSigner{
		secretKey: []byte(secretKey),
		ttl:       ttl,
		now:       time.Now,
	}
}

// Sign returns the link token for a participant feedback token.
func (s *LinkSigner) Sign(token string) (string, error) {
	if len(s.secretKey) == 0 {
		return token, nil
	}

	now := s.now()
	claims := &linkClaims{
		Token: token,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign feedback link: %w", err)
	}
	return signed, nil
}

// Verify checks a link token and returns the participant feedback token.
func (s *LinkSigner) Verify(link string) (string, error) {
	if link == "" {
		return "", ErrInvalidLink
	}
	if len(s.secretKey) == 0 {
		return link, nil
	}

	token, err := jwt.ParseWithClaims(
		link,
		&linkClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secretKey, nil
		},
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidLink, err)
	}

	claims, ok := token.Claims.(*linkClaims)
	if !ok || !token.Valid || claims.Token == "" {
		return "", ErrInvalidLink
	}

	return claims.Token, nil
}
