// Package keypair generates and inspects the ed25519 asset keypairs that
// back each mint. Secret keys use the 64-byte seed || public key layout that
// Solana wallets expect.
package keypair

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha512"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

var ErrMalformed = errors.New("malformed keypair")

// Generate returns a fresh 64-byte secret key.
func Generate() ([]byte, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("keypair generation failed: %w", err)
	}
	return []byte(priv), nil
}

// PublicKey derives the public key from the seed half of secret and checks
// it against the embedded public half.
func PublicKey(secret []byte) ([]byte, error) {
	if len(secret) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrMalformed, len(secret), ed25519.PrivateKeySize)
	}

	h := sha512.Sum512(secret[:ed25519.SeedSize])
	s, err := edwards25519.NewScalar().SetBytesWithClamping(h[:32])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	pub := new(edwards25519.Point).ScalarBaseMult(s).Bytes()

	if !bytes.Equal(pub, secret[ed25519.SeedSize:]) {
		return nil, fmt.Errorf("%w: public half does not match seed", ErrMalformed)
	}
	return pub, nil
}

// Address returns the base58 public address for secret.
func Address(secret []byte) (string, error) {
	pub, err := PublicKey(secret)
	if err != nil {
		return "", err
	}
	return base58.Encode(pub), nil
}
