package ports

// SignatureVerifier checks a wallet signature over a raw message.
// Verify returns core.ErrInvalidSignature on any mismatch or malformed input.
type SignatureVerifier interface {
	Verify(publicKey string, message []byte, signature string) error
}
