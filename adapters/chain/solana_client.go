// Package chain queries the Solana ledger over JSON-RPC.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/memocracy/gatekeeper/core"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config configures the Solana client
type Config struct {
	Endpoint          string
	Timeout           time.Duration // per request, 0 disables
	RequestsPerSecond float64       // 0 disables client side rate limiting
	Burst             int
	Commitment        rpc.CommitmentType
}

// SolanaClient implements ports.ChainQuerier against a Solana JSON-RPC endpoint
type SolanaClient struct {
	rpc        *rpc.Client
	limiter    *rate.Limiter
	timeout    time.Duration
	commitment rpc.CommitmentType
	metrics    *rpcMetrics
	logger     *zap.Logger
}

// NewSolanaClient creates a new client. Metrics are registered on reg when it is not nil.
func NewSolanaClient(cfg Config, reg prometheus.Registerer, logger *zap.Logger) *SolanaClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	limit := rate.Inf
	burst := cfg.Burst
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
	}

	commitment := cfg.Commitment
	if commitment == "" {
		commitment = rpc.CommitmentConfirmed
	}

	return &SolanaClient{
		rpc:        rpc.New(cfg.Endpoint),
		limiter:    rate.NewLimiter(limit, burst),
		timeout:    cfg.Timeout,
		commitment: commitment,
		metrics:    newRPCMetrics(reg),
		logger:     logger.Named("solana"),
	}
}

// Close releases idle connections
func (c *SolanaClient) Close() error {
	return c.rpc.Close()
}

// call waits for the rate limiter, applies the request timeout and records metrics
func (c *SolanaClient) call(ctx context.Context, method string, fn func(ctx context.Context) error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		c.metrics.requests.WithLabelValues(method, "throttled").Inc()
		return fmt.Errorf("%w: %s: %v", core.ErrChainQuery, method, err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.metrics.inFlight.Inc()
	defer c.metrics.inFlight.Dec()

	start := time.Now()
	err := fn(ctx)
	c.metrics.duration.WithLabelValues(method).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		c.metrics.requests.WithLabelValues(method, "ok").Inc()
		return nil
	case isNotFound(err):
		c.metrics.requests.WithLabelValues(method, "not_found").Inc()
		return core.ErrNotFound
	default:
		c.metrics.requests.WithLabelValues(method, "error").Inc()
		c.logger.Debug("rpc call failed", zap.String("method", method), zap.Error(err))
		return fmt.Errorf("%w: %s: %v", core.ErrChainQuery, method, err)
	}
}

func isNotFound(err error) bool {
	if errors.Is(err, rpc.ErrNotFound) {
		return true
	}
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		return strings.Contains(rpcErr.Message, "could not find account")
	}
	return false
}

// GetTokenAccountBalance reads the balance of a token account
func (c *SolanaClient) GetTokenAccountBalance(ctx context.Context, account string) (*core.TokenAmount, error) {
	pubkey, err := solana.PublicKeyFromBase58(account)
	if err != nil {
		return nil, fmt.Errorf("%w: token account: %v", core.ErrValidation, err)
	}

	var out *rpc.GetTokenAccountBalanceResult
	err = c.call(ctx, "getTokenAccountBalance", func(ctx context.Context) error {
		var err error
		out, err = c.rpc.GetTokenAccountBalance(ctx, pubkey, c.commitment)
		return err
	})
	if err != nil {
		return nil, err
	}
	if out == nil || out.Value == nil {
		return nil, core.ErrNotFound
	}

	amount, err := strconv.ParseUint(out.Value.Amount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed amount %q", core.ErrChainQuery, out.Value.Amount)
	}

	return &core.TokenAmount{Amount: amount, Decimals: out.Value.Decimals}, nil
}

// GetSignaturesForAddress lists up to limit signatures involving address, most recent first
func (c *SolanaClient) GetSignaturesForAddress(ctx context.Context, address string, limit int) ([]core.SignatureInfo, error) {
	pubkey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, fmt.Errorf("%w: address: %v", core.ErrValidation, err)
	}

	opts := &rpc.GetSignaturesForAddressOpts{Commitment: c.commitment}
	if limit > 0 {
		opts.Limit = &limit
	}

	var out []*rpc.TransactionSignature
	err = c.call(ctx, "getSignaturesForAddress", func(ctx context.Context) error {
		var err error
		out, err = c.rpc.GetSignaturesForAddressWithOpts(ctx, pubkey, opts)
		return err
	})
	if err != nil {
		return nil, err
	}

	sigs := make([]core.SignatureInfo, 0, len(out))
	for _, s := range out {
		if s == nil {
			continue
		}
		info := core.SignatureInfo{
			Signature: s.Signature.String(),
			Slot:      s.Slot,
			Failed:    s.Err != nil,
		}
		if s.BlockTime != nil {
			t := s.BlockTime.Time()
			info.BlockTime = &t
		}
		sigs = append(sigs, info)
	}

	return sigs, nil
}

// GetParsedTransaction fetches a transaction in jsonParsed encoding
func (c *SolanaClient) GetParsedTransaction(ctx context.Context, signature string) (*core.ParsedTransaction, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, fmt.Errorf("%w: signature: %v", core.ErrValidation, err)
	}

	maxVersion := uint64(0)
	opts := &rpc.GetParsedTransactionOpts{
		Commitment:                     c.commitment,
		MaxSupportedTransactionVersion: &maxVersion,
	}

	var out *rpc.GetParsedTransactionResult
	err = c.call(ctx, "getTransaction", func(ctx context.Context) error {
		var err error
		out, err = c.rpc.GetParsedTransaction(ctx, sig, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	if out == nil || out.Transaction == nil {
		return nil, core.ErrNotFound
	}

	tx := &core.ParsedTransaction{
		Signature: signature,
		Slot:      out.Slot,
	}
	if out.BlockTime != nil {
		t := out.BlockTime.Time()
		tx.BlockTime = &t
	}
	for _, in := range out.Transaction.Message.Instructions {
		if in != nil {
			tx.Instructions = append(tx.Instructions, convertInstruction(in))
		}
	}
	if out.Meta != nil {
		tx.Failed = out.Meta.Err != nil
		for _, inner := range out.Meta.InnerInstructions {
			for _, in := range inner.Instructions {
				if in != nil {
					tx.InnerInstructions = append(tx.InnerInstructions, convertInstruction(in))
				}
			}
		}
	}

	return tx, nil
}

// convertInstruction flattens the parsed envelope into program, type and info.
// Instructions the node could not parse keep an empty Type.
func convertInstruction(in *rpc.ParsedInstruction) core.ParsedInstruction {
	out := core.ParsedInstruction{
		Program:   in.Program,
		ProgramID: in.ProgramId.String(),
	}
	if in.Parsed == nil {
		return out
	}

	raw, err := json.Marshal(in.Parsed)
	if err != nil {
		return out
	}

	var parsed struct {
		Type string         `json:"type"`
		Info map[string]any `json:"info"`
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&parsed); err != nil {
		// base58 data instead of a parsed object
		return out
	}

	out.Type = parsed.Type
	out.Info = parsed.Info
	return out
}
