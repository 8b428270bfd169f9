package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/memocracy/gatekeeper/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTransfers(t *testing.T) {
	blockTime := time.Unix(1_700_000_000, 0)

	tx := &core.ParsedTransaction{
		Signature: "sig",
		Slot:      42,
		BlockTime: &blockTime,
		Instructions: []core.ParsedInstruction{
			systemTransfer(donor, treasury, json.Number("5000")),
			{
				ProgramID: solana.SystemProgramID.String(),
				Type:      "transferWithSeed",
				Info:      map[string]any{"source": donor, "destination": treasury, "lamports": float64(7)},
			},
			{
				Program: "system",
				Type:    "createAccount",
				Info:    map[string]any{"source": donor, "newAccount": treasury, "lamports": "999"},
			},
			{
				ProgramID: solana.Token2022ProgramID.String(),
				Type:      "transfer",
				Info:      map[string]any{"multisigAuthority": donor, "destination": "tokenAcct", "amount": "12"},
			},
			{
				Program: "spl-token",
				Type:    "transfer",
				Info:    map[string]any{"authority": "someoneElse", "destination": "tokenAcct", "amount": "1000"},
			},
			{
				Program: "spl-memo",
				Type:    "",
			},
		},
		InnerInstructions: []core.ParsedInstruction{
			tokenTransferChecked(donor, usdc, "300"),
		},
	}

	events := ExtractTransfers(tx, donor, treasury)
	require.Len(t, events, 4)

	assert.Equal(t, core.TransferEvent{
		Signature:    "sig",
		Slot:         42,
		BlockTime:    &blockTime,
		SourceWallet: donor,
		DestWallet:   treasury,
		AssetKind:    core.AssetNative,
		AmountRaw:    5000,
	}, events[0])
	assert.Equal(t, uint64(7), events[1].AmountRaw)

	assert.Equal(t, core.AssetFungibleToken, events[2].AssetKind)
	assert.Equal(t, uint64(12), events[2].AmountRaw)
	assert.Equal(t, "tokenAcct", events[2].DestWallet)
	assert.Empty(t, events[2].Mint)

	assert.Equal(t, usdc, events[3].Mint)
	assert.Equal(t, uint64(300), events[3].AmountRaw)
}

func TestToUint64(t *testing.T) {
	tests := []struct {
		in   any
		want uint64
		ok   bool
	}{
		{"18446744073709551615", 18446744073709551615, true},
		{"-1", 0, false},
		{"1.5", 0, false},
		{json.Number("250"), 250, true},
		{json.Number("1e3"), 1000, true},
		{json.Number("2.5"), 0, false},
		{float64(3), 3, true},
		{float64(-3), 0, false},
		{int(9), 9, true},
		{int64(-9), 0, false},
		{uint64(11), 11, true},
		{nil, 0, false},
		{true, 0, false},
	}

	for _, tt := range tests {
		got, ok := toUint64(tt.in)
		assert.Equal(t, tt.ok, ok, "%v", tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}
}
