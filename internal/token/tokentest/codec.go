// Package tokentest builds throwaway codecs for tests.
package tokentest

import (
	"crypto/rand"
	"crypto/rsa"
	"sync"
	"testing"
	"time"

	"github.com/panelkit/panel/internal/token"
)

var (
	keyOnce sync.Once
	key     *rsa.PrivateKey
	keyErr  error
)

// Key returns a process-wide RSA key so tests do not pay key generation repeatedly.
func Key(t testing.TB) *rsa.PrivateKey {
	t.Helper()
	keyOnce.Do(func() {
		key, keyErr = rsa.GenerateKey(rand.Reader, 2048)
	})
	if keyErr != nil {
		t.Fatalf("generate rsa key: %v", keyErr)
	}
	return key
}

// NewCodec returns a codec signing with the shared test key.
func NewCodec(t testing.TB, expiry time.Duration, opts ...token.Option) *token.Codec {
	t.Helper()
	k := Key(t)
	codec, err := token.NewCodec(k, &k.PublicKey, expiry, opts...)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	return codec
}

// PEM returns the shared test key pair PEM-encoded (PKCS8 private, PKIX public).
func PEM(t testing.TB) (privatePEM, publicPEM string) {
	t.Helper()
	privatePEM, publicPEM, err := token.EncodeKeyPair(Key(t))
	if err != nil {
		t.Fatalf("encode key pair: %v", err)
	}
	return privatePEM, publicPEM
}
