// Package token signs and verifies the bearer tokens handed out at login.
package token

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultIssuer = "panel"

var (
	// ErrInvalidSignature covers malformed, tampered and wrongly-signed tokens.
	ErrInvalidSignature = errors.New("token: invalid signature")
	// ErrExpired indicates the token's exp claim is in the past.
	ErrExpired = errors.New("token: expired")
)

// Claims is the identity payload carried by an access token.
type Claims struct {
	AccountID       int64    `json:"uid"`
	PasswordVersion int64    `json:"pv"`
	Roles           []string `json:"roles"`
	jwt.RegisteredClaims
}

// Codec signs tokens with a private key and verifies them with the matching public key.
type Codec struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	issuer     string
	expiry     time.Duration
	now        func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithIssuer overrides the iss claim.
func WithIssuer(issuer string) Option {
	return func(c *Codec) {
		if issuer = strings.TrimSpace(issuer); issuer != "" {
			c.issuer = issuer
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(c *Codec) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewCodec constructs a Codec. A nil private key yields a verify-only codec.
func NewCodec(privateKey *rsa.PrivateKey, publicKey *rsa.PublicKey, expiry time.Duration, opts ...Option) (*Codec, error) {
	if publicKey == nil {
		return nil, errors.New("token: public key is required")
	}
	if expiry <= 0 {
		return nil, errors.New("token: expiry must be greater than zero")
	}
	c := &Codec{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     defaultIssuer,
		expiry:     expiry,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewCodecFromPEM parses PEM key material and constructs a Codec.
func NewCodecFromPEM(privatePEM, publicPEM string, expiry time.Duration, opts ...Option) (*Codec, error) {
	priv, err := ParsePrivateKey(privatePEM)
	if err != nil {
		return nil, err
	}
	pub, err := ParsePublicKey(publicPEM)
	if err != nil {
		return nil, err
	}
	return NewCodec(priv, pub, expiry, opts...)
}

// Expiry returns the configured token lifetime.
func (c *Codec) Expiry() time.Duration {
	return c.expiry
}

// Sign issues a token for the claims. Timestamps, jti and issuer are always set by the codec.
func (c *Codec) Sign(claims Claims) (string, error) {
	if c.privateKey == nil {
		return "", errors.New("token: codec has no private key")
	}
	if claims.AccountID <= 0 {
		return "", errors.New("token: account id is required")
	}
	now := c.now().UTC()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    c.issuer,
		Subject:   strconv.FormatInt(claims.AccountID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.expiry)),
		ID:        uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(c.privateKey)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of raw and returns its claims.
func (c *Codec) Verify(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidSignature
	}
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		return c.publicKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalidSignature
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.AccountID <= 0 {
		return nil, ErrInvalidSignature
	}
	return claims, nil
}

// RemainingTTL returns the time left until expiresAt on the codec clock, or zero when
// expiresAt is unset or already past.
func (c *Codec) RemainingTTL(expiresAt time.Time) time.Duration {
	if expiresAt.IsZero() {
		return 0
	}
	left := expiresAt.Sub(c.now())
	if left < 0 {
		return 0
	}
	return left
}
