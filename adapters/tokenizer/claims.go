package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims are the claims of a session token. Subject is the wallet
// address and ID is the session id.
type SessionClaims struct {
	jwt.RegisteredClaims
}
