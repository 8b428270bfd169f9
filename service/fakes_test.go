package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/memocracy/gatekeeper/core"
)

// fakeChain is an in-memory ChainQuerier that records peak concurrency
type fakeChain struct {
	balances   map[string]*core.TokenAmount
	balanceErr error

	sigs      []core.SignatureInfo
	sigErr    error
	sigLimits []int

	txs   map[string]*core.ParsedTransaction
	txErr map[string]error
	delay time.Duration

	mu           sync.Mutex
	balanceCalls int
	txCalls      atomic.Int32
	inFlight     atomic.Int32
	peak         atomic.Int32
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		balances: make(map[string]*core.TokenAmount),
		txs:      make(map[string]*core.ParsedTransaction),
		txErr:    make(map[string]error),
	}
}

func (f *fakeChain) GetTokenAccountBalance(ctx context.Context, account string) (*core.TokenAmount, error) {
	f.mu.Lock()
	f.balanceCalls++
	f.mu.Unlock()

	if f.balanceErr != nil {
		return nil, f.balanceErr
	}
	amount, ok := f.balances[account]
	if !ok {
		return nil, core.ErrNotFound
	}
	return amount, nil
}

func (f *fakeChain) GetSignaturesForAddress(ctx context.Context, address string, limit int) ([]core.SignatureInfo, error) {
	f.mu.Lock()
	f.sigLimits = append(f.sigLimits, limit)
	f.mu.Unlock()

	if f.sigErr != nil {
		return nil, f.sigErr
	}
	if limit < len(f.sigs) {
		return f.sigs[:limit], nil
	}
	return f.sigs, nil
}

func (f *fakeChain) GetParsedTransaction(ctx context.Context, signature string) (*core.ParsedTransaction, error) {
	f.txCalls.Add(1)
	current := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.peak.Load()
		if current <= peak || f.peak.CompareAndSwap(peak, current) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}

	if err := f.txErr[signature]; err != nil {
		return nil, err
	}
	tx, ok := f.txs[signature]
	if !ok {
		return nil, core.ErrNotFound
	}
	return tx, nil
}

func (f *fakeChain) addTx(tx *core.ParsedTransaction) {
	f.sigs = append(f.sigs, core.SignatureInfo{Signature: tx.Signature, Slot: tx.Slot})
	f.txs[tx.Signature] = tx
}

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu      sync.Mutex
	logins  []*core.Session
	logouts []string
	scores  []core.ScoreUpdate
	err     error
}

func (p *recordingPublisher) PublishWalletAuthenticated(ctx context.Context, session *core.Session) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logins = append(p.logins, session)
	return p.err
}

func (p *recordingPublisher) PublishLogout(ctx context.Context, address string, tokenID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logouts = append(p.logouts, tokenID)
	return p.err
}

func (p *recordingPublisher) PublishScoreUpdated(ctx context.Context, update core.ScoreUpdate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scores = append(p.scores, update)
	return p.err
}

func systemTransfer(source, dest string, lamports any) core.ParsedInstruction {
	return core.ParsedInstruction{
		Program: "system",
		Type:    "transfer",
		Info:    map[string]any{"source": source, "destination": dest, "lamports": lamports},
	}
}

func tokenTransferChecked(authority, mint, amount string) core.ParsedInstruction {
	return core.ParsedInstruction{
		Program: "spl-token",
		Type:    "transferChecked",
		Info: map[string]any{
			"authority":   authority,
			"destination": "destTokenAccount",
			"mint":        mint,
			"tokenAmount": map[string]any{"amount": amount, "decimals": 6},
		},
	}
}
