package service

import (
	"context"
	"fmt"
	"time"

	"github.com/memocracy/gatekeeper/core"
	"github.com/memocracy/gatekeeper/ports"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Default contribution scan parameters
const (
	DefaultSignatureLimit = 200
	DefaultBatchSize      = 10
	DefaultBatchPause     = 250 * time.Millisecond
)

// DefaultUSDDivisor converts raw amounts to USD assuming six decimals
var DefaultUSDDivisor = decimal.NewFromInt(1_000_000)

// ContributionConfig bounds the transaction history scan
type ContributionConfig struct {
	SignatureLimit  int             // most recent signatures inspected
	BatchSize       int             // transactions fetched concurrently
	BatchPause      time.Duration   // pause between batches
	USDDivisor      decimal.Decimal // raw amount / USDDivisor = USD
	StablecoinMints []string
}

func (c ContributionConfig) withDefaults() ContributionConfig {
	if c.SignatureLimit <= 0 {
		c.SignatureLimit = DefaultSignatureLimit
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.BatchPause < 0 {
		c.BatchPause = 0
	}
	if !c.USDDivisor.IsPositive() {
		c.USDDivisor = DefaultUSDDivisor
	}
	return c
}

// ContributionService sums what a wallet sent to another wallet over its
// recent transaction history. Only the most recent SignatureLimit
// transactions of the source are inspected.
type ContributionService struct {
	chain       ports.ChainQuerier
	cfg         ContributionConfig
	stablecoins map[string]struct{}
	logger      *zap.Logger
}

// NewContributionService creates a new contribution service
func NewContributionService(chain ports.ChainQuerier, cfg ContributionConfig, logger *zap.Logger) *ContributionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()

	stablecoins := make(map[string]struct{}, len(cfg.StablecoinMints))
	for _, mint := range cfg.StablecoinMints {
		stablecoins[mint] = struct{}{}
	}

	return &ContributionService{
		chain:       chain,
		cfg:         cfg,
		stablecoins: stablecoins,
		logger:      logger.Named("contribution"),
	}
}

// Transfers returns the transfers from source to dest that match filter,
// most recent first. Transactions that fail to load are skipped; failing to
// list signatures or a cancelled context is an error.
func (s *ContributionService) Transfers(ctx context.Context, source, dest string, filter core.AssetFilter) ([]core.TransferEvent, error) {
	sigs, err := s.chain.GetSignaturesForAddress(ctx, source, s.cfg.SignatureLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list signatures: %w", err)
	}

	pending := make([]string, 0, len(sigs))
	for _, sig := range sigs {
		if !sig.Failed {
			pending = append(pending, sig.Signature)
		}
	}

	perTx := make([][]core.TransferEvent, len(pending))

	for start := 0; start < len(pending); start += s.cfg.BatchSize {
		if start > 0 && s.cfg.BatchPause > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.cfg.BatchPause):
			}
		}

		end := min(start+s.cfg.BatchSize, len(pending))

		var g errgroup.Group
		g.SetLimit(s.cfg.BatchSize)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				perTx[i] = s.transfersIn(ctx, pending[i], source, dest, filter)
				return nil
			})
		}
		_ = g.Wait()

		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	var events []core.TransferEvent
	for _, txEvents := range perTx {
		events = append(events, txEvents...)
	}
	return events, nil
}

func (s *ContributionService) transfersIn(ctx context.Context, signature, source, dest string, filter core.AssetFilter) []core.TransferEvent {
	tx, err := s.chain.GetParsedTransaction(ctx, signature)
	if err != nil {
		s.logger.Warn("skipping transaction", zap.String("signature", signature), zap.Error(err))
		return nil
	}
	if tx.Failed {
		return nil
	}

	var out []core.TransferEvent
	for _, event := range ExtractTransfers(tx, source, dest) {
		if s.matches(event, filter) {
			out = append(out, event)
		}
	}
	return out
}

func (s *ContributionService) matches(event core.TransferEvent, filter core.AssetFilter) bool {
	switch filter {
	case core.AssetFilterSOL:
		return event.AssetKind == core.AssetNative
	case core.AssetFilterStablecoin:
		// a transfer that does not name its mint cannot be shown to be a stablecoin
		if event.AssetKind != core.AssetFungibleToken || event.Mint == "" {
			return false
		}
		_, ok := s.stablecoins[event.Mint]
		return ok
	default:
		return true
	}
}

// SumTransfersTo returns the raw amount source transferred to dest. Any
// failure to scan the history yields zero.
func (s *ContributionService) SumTransfersTo(ctx context.Context, source, dest string, filter core.AssetFilter) uint64 {
	events, err := s.Transfers(ctx, source, dest, filter)
	if err != nil {
		s.logger.Warn("contribution scan failed, treating as zero",
			zap.String("source", source),
			zap.String("dest", dest),
			zap.Error(err),
		)
		return 0
	}

	var total uint64
	for _, e := range events {
		total = addSaturating(total, e.AmountRaw)
	}
	return total
}

// ContributionUSD converts the raw sum with the fixed USD divisor. No price
// lookup is involved.
func (s *ContributionService) ContributionUSD(ctx context.Context, source, dest string, filter core.AssetFilter) decimal.Decimal {
	raw := s.SumTransfersTo(ctx, source, dest, filter)
	return UIAmount(raw, 0).Div(s.cfg.USDDivisor)
}

// HasSufficientContribution reports whether source sent at least minUSD to dest
func (s *ContributionService) HasSufficientContribution(ctx context.Context, source, dest string, filter core.AssetFilter, minUSD decimal.Decimal) bool {
	if !minUSD.IsPositive() {
		return true
	}
	return s.ContributionUSD(ctx, source, dest, filter).GreaterThanOrEqual(minUSD)
}
