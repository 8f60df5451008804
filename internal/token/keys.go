package token

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ParsePrivateKey decodes a PEM private key (PKCS1 or PKCS8). Literal "\n" sequences, as
// commonly found in single-line environment values, are expanded first.
func ParsePrivateKey(pemData string) (*rsa.PrivateKey, error) {
	pemData = normalizePEM(pemData)
	if pemData == "" {
		return nil, errors.New("token: private key is empty")
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(pemData))
	if err != nil {
		return nil, fmt.Errorf("token: parse private key: %w", err)
	}
	return key, nil
}

// ParsePublicKey decodes a PEM public key (PKIX, PKCS1 or certificate).
func ParsePublicKey(pemData string) (*rsa.PublicKey, error) {
	pemData = normalizePEM(pemData)
	if pemData == "" {
		return nil, errors.New("token: public key is empty")
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pemData))
	if err != nil {
		return nil, fmt.Errorf("token: parse public key: %w", err)
	}
	return key, nil
}

func normalizePEM(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, `\n`, "\n"))
}

// DefaultKeyBits is the RSA modulus size used by GenerateKeyPair.
const DefaultKeyBits = 2048

// GenerateKeyPair creates a new RSA signing key pair.
func GenerateKeyPair(bits int) (*rsa.PrivateKey, error) {
	if bits < DefaultKeyBits {
		bits = DefaultKeyBits
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("token: generate key: %w", err)
	}
	return key, nil
}

// EncodeKeyPair PEM-encodes key as PKCS8 private and PKIX public blocks.
func EncodeKeyPair(key *rsa.PrivateKey) (privatePEM, publicPEM string, err error) {
	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return "", "", fmt.Errorf("token: marshal private key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return "", "", fmt.Errorf("token: marshal public key: %w", err)
	}
	privatePEM = string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER}))
	publicPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}))
	return privatePEM, publicPEM, nil
}
