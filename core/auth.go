package core

import "time"

// Nonce represents a single-use challenge issued to a wallet
type Nonce struct {
	ID         string     // Unique identifier for the nonce record
	Identity   string     // Wallet address the nonce was issued to
	Value      string     // Random value embedded in the signed message
	IssuedAt   time.Time  // When the nonce was issued
	ConsumedAt *time.Time // When the nonce was consumed, nil while still usable
}

// Consumed reports whether the nonce has already been used
func (n *Nonce) Consumed() bool {
	return n.ConsumedAt != nil
}

// Session represents an authenticated wallet session
type Session struct {
	ID        string    // Unique session identifier
	Address   string    // Wallet address of the user
	IssuedAt  time.Time // When the session was created
	ExpiresAt time.Time // When the session expires
}

// Expired reports whether the session is past its expiry at the given time
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
