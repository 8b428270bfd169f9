package service

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/memocracy/gatekeeper/core"
)

var (
	systemProgramID    = solana.SystemProgramID.String()
	tokenProgramID     = solana.TokenProgramID.String()
	token2022ProgramID = solana.Token2022ProgramID.String()
)

// ExtractTransfers returns the transfers from source to dest found in the
// top-level and inner instructions of tx.
//
// Native transfers must name source and dest exactly. Token transfers only
// need source as the signing authority: the destination token account is not
// resolved to its owner, so a token transfer by source to anyone counts.
func ExtractTransfers(tx *core.ParsedTransaction, source, dest string) []core.TransferEvent {
	var events []core.TransferEvent

	collect := func(instructions []core.ParsedInstruction) {
		for _, in := range instructions {
			var (
				event core.TransferEvent
				ok    bool
			)
			switch {
			case isSystemProgram(in):
				event, ok = nativeTransfer(in, source, dest)
			case isTokenProgram(in):
				event, ok = tokenTransfer(in, source)
			}
			if !ok {
				continue
			}
			event.Signature = tx.Signature
			event.Slot = tx.Slot
			event.BlockTime = tx.BlockTime
			events = append(events, event)
		}
	}

	collect(tx.Instructions)
	collect(tx.InnerInstructions)

	return events
}

func isSystemProgram(in core.ParsedInstruction) bool {
	return in.Program == "system" || in.ProgramID == systemProgramID
}

func isTokenProgram(in core.ParsedInstruction) bool {
	return in.Program == "spl-token" || in.ProgramID == tokenProgramID || in.ProgramID == token2022ProgramID
}

func nativeTransfer(in core.ParsedInstruction, source, dest string) (core.TransferEvent, bool) {
	if in.Type != "transfer" && in.Type != "transferWithSeed" {
		return core.TransferEvent{}, false
	}
	from, _ := in.Info["source"].(string)
	to, _ := in.Info["destination"].(string)
	if from != source || to != dest {
		return core.TransferEvent{}, false
	}
	lamports, ok := toUint64(in.Info["lamports"])
	if !ok {
		return core.TransferEvent{}, false
	}
	return core.TransferEvent{
		SourceWallet: from,
		DestWallet:   to,
		AssetKind:    core.AssetNative,
		AmountRaw:    lamports,
	}, true
}

func tokenTransfer(in core.ParsedInstruction, source string) (core.TransferEvent, bool) {
	if in.Type != "transfer" && in.Type != "transferChecked" {
		return core.TransferEvent{}, false
	}

	authority, _ := in.Info["authority"].(string)
	if authority == "" {
		authority, _ = in.Info["multisigAuthority"].(string)
	}
	if authority != source {
		return core.TransferEvent{}, false
	}

	raw, present := in.Info["amount"]
	if !present {
		if tokenAmount, ok := in.Info["tokenAmount"].(map[string]any); ok {
			raw = tokenAmount["amount"]
		}
	}
	amount, ok := toUint64(raw)
	if !ok {
		return core.TransferEvent{}, false
	}

	// destination is a token account, not a wallet
	to, _ := in.Info["destination"].(string)
	mint, _ := in.Info["mint"].(string)

	return core.TransferEvent{
		SourceWallet: authority,
		DestWallet:   to,
		AssetKind:    core.AssetFungibleToken,
		Mint:         mint,
		AmountRaw:    amount,
	}, true
}

// toUint64 accepts the numeric shapes found in parsed instruction info
func toUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case string:
		u, err := strconv.ParseUint(n, 10, 64)
		return u, err == nil
	case json.Number:
		if u, err := strconv.ParseUint(n.String(), 10, 64); err == nil {
			return u, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatToUint64(f)
	case float64:
		return floatToUint64(n)
	case int:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case int64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case uint64:
		return n, true
	default:
		return 0, false
	}
}

func floatToUint64(f float64) (uint64, bool) {
	if f < 0 || f != math.Trunc(f) || f >= math.MaxUint64 {
		return 0, false
	}
	return uint64(f), true
}

// addSaturating adds without wrapping around
func addSaturating(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}
