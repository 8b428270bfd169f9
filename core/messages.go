package core

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	LoginMessagePrefix       = "SOLANA_VOTE_LOGIN:"
	LeaderboardMessagePrefix = "MEMOCRACY_LEADERBOARD:"
)

// VoteDirection is the direction of a coin up/down vote
type VoteDirection string

const (
	VoteUp   VoteDirection = "UP"
	VoteDown VoteDirection = "DOWN"
)

// ParseVoteDirection validates a vote direction. Matching is exact: the
// direction is embedded verbatim in the signed message.
func ParseVoteDirection(s string) (VoteDirection, error) {
	switch VoteDirection(s) {
	case VoteUp, VoteDown:
		return VoteDirection(s), nil
	default:
		return "", fmt.Errorf("vote direction must be UP or DOWN: %w", ErrValidation)
	}
}

// MessageBuilder builds the exact message a wallet must sign for a nonce
type MessageBuilder func(nonce string) string

// LoginMessage returns the session login message for a nonce
func LoginMessage(nonce string) string {
	return LoginMessagePrefix + nonce
}

// LeaderboardMessage returns the message signed when submitting a leaderboard score.
// The username is trimmed and percent-encoded before embedding.
func LeaderboardMessage(score int64, nonce, username string) string {
	return LeaderboardMessagePrefix + strconv.FormatInt(score, 10) + ":" + nonce + ":" + EncodeURIComponent(strings.TrimSpace(username))
}

// CoinVoteMessage returns the message signed when voting on a coin
func CoinVoteMessage(direction VoteDirection, mint, nonce string) string {
	return "Vote " + string(direction) + " for coin " + mint + "\nNonce: " + nonce
}

// LoginMessageBuilder adapts LoginMessage to a MessageBuilder
func LoginMessageBuilder() MessageBuilder {
	return LoginMessage
}

// LeaderboardMessageBuilder binds the claimed score and username
func LeaderboardMessageBuilder(score int64, username string) MessageBuilder {
	return func(nonce string) string {
		return LeaderboardMessage(score, nonce, username)
	}
}

// CoinVoteMessageBuilder binds the claimed direction and mint
func CoinVoteMessageBuilder(direction VoteDirection, mint string) MessageBuilder {
	return func(nonce string) string {
		return CoinVoteMessage(direction, mint, nonce)
	}
}

// EncodeURIComponent percent-encodes s the way browser wallets do before
// signing: every byte except A-Z a-z 0-9 - _ . ! ~ * ' ( ) is escaped.
func EncodeURIComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isURIUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isURIUnreserved(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
