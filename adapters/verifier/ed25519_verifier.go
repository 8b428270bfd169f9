// Package verifier checks wallet signatures produced by Solana wallets.
package verifier

import (
	"encoding/base64"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/memocracy/gatekeeper/core"
)

// Ed25519Verifier verifies base64 signatures over raw UTF-8 messages
// against base58 public keys
type Ed25519Verifier struct{}

// NewEd25519Verifier creates a new verifier
func NewEd25519Verifier() *Ed25519Verifier {
	return &Ed25519Verifier{}
}

// Verify checks the signature over the exact message bytes. The message is
// not hashed or prefixed.
func (v *Ed25519Verifier) Verify(publicKey string, message []byte, signature string) error {
	pubkey, err := solana.PublicKeyFromBase58(publicKey)
	if err != nil {
		return fmt.Errorf("malformed public key: %w", core.ErrInvalidSignature)
	}

	raw, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("malformed signature encoding: %w", core.ErrInvalidSignature)
	}
	if len(raw) != solana.SignatureLength {
		return fmt.Errorf("signature must be %d bytes: %w", solana.SignatureLength, core.ErrInvalidSignature)
	}

	if !solana.SignatureFromBytes(raw).Verify(pubkey, message) {
		return core.ErrInvalidSignature
	}

	return nil
}
