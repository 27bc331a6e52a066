package commitment

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enclave-sdk/internal/models"
)

func amt(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic(s)
	}
	return v
}

func ownerBSC() models.UniversalAddress {
	var ua models.UniversalAddress
	ua.SLIP44ChainID = 714
	copy(ua.Data[12:], common.HexToAddress("0x6f3995e2e40ca58adcbd47a2edad192e43d98638").Bytes())
	return ua
}

func baseParams() Params {
	return Params{
		Leaves: []Leaf{
			{Seq: 0, Amount: amt("187500000000000000")},
			{Seq: 1, Amount: amt("1044400000000000000")},
			{Seq: 2, Amount: amt("728100000000000000")},
		},
		DepositID: 18323484,
		ChainID:   714,
		TokenKey:  "USDT",
		Owner:     ownerBSC(),
	}
}

// Vector taken from a commitment produced by the proof service for a BSC USDT deposit.
func TestCompute_KnownVector(t *testing.T) {
	got, err := Compute(baseParams())
	require.NoError(t, err)
	assert.Equal(t, "0xafdbc96635f3aabf06c62b21b4fe1c5cf0337a78275108456cc8d95d505a9d71", got.Hex())
}

func TestCompute_LeafOrderDoesNotMatter(t *testing.T) {
	p := baseParams()
	want, err := Compute(p)
	require.NoError(t, err)

	p.Leaves = []Leaf{p.Leaves[2], p.Leaves[0], p.Leaves[1]}
	got, err := Compute(p)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCompute_Deterministic(t *testing.T) {
	a, err := Compute(baseParams())
	require.NoError(t, err)
	b, err := Compute(baseParams())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCompute_PerturbedInputsChangeOutput(t *testing.T) {
	base, err := Compute(baseParams())
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(p *Params)
	}{
		{"deposit id", func(p *Params) { p.DepositID++ }},
		{"chain id", func(p *Params) { p.ChainID = 60 }},
		{"token key", func(p *Params) { p.TokenKey = "USDC" }},
		{"owner chain", func(p *Params) { p.Owner.SLIP44ChainID = 60 }},
		{"owner byte", func(p *Params) { p.Owner.Data[31] ^= 0x01 }},
		{"amount", func(p *Params) { p.Leaves[1].Amount = amt("1044400000000000001") }},
		{"seq", func(p *Params) { p.Leaves[2].Seq = 3 }},
		{"drop leaf", func(p *Params) { p.Leaves = p.Leaves[:2] }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := baseParams()
			tt.mutate(&p)
			got, err := Compute(p)
			require.NoError(t, err)
			assert.NotEqual(t, base, got)
		})
	}
}

func TestCompute_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Params)
	}{
		{"no leaves", func(p *Params) { p.Leaves = nil }},
		{"no token", func(p *Params) { p.TokenKey = "" }},
		{"duplicate seq", func(p *Params) { p.Leaves[1].Seq = 0 }},
		{"nil amount", func(p *Params) { p.Leaves[0].Amount = nil }},
		{"negative amount", func(p *Params) { p.Leaves[0].Amount = big.NewInt(-1) }},
		{"too wide", func(p *Params) { p.Leaves[0].Amount = new(big.Int).Lsh(big.NewInt(1), 256) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := baseParams()
			tt.mutate(&p)
			_, err := Compute(p)
			assert.Error(t, err)
		})
	}
}

func TestNullifier_KnownVector(t *testing.T) {
	c, err := ParseHash("0xa8c67f5fd8466da0f75415c42ad9fa15bb2daf0d4a9923da4042954f979ed366")
	require.NoError(t, err)

	got, err := Nullifier(c, 1, amt("339300000000000000"))
	require.NoError(t, err)
	assert.Equal(t, "0x4b8c0d497db9f6b0b9cedbcd7499c49c46bcfe49b4469aa34e90b24df230753e", got.Hex())

	other, err := Nullifier(c, 2, amt("339300000000000000"))
	require.NoError(t, err)
	assert.NotEqual(t, got, other)
}

func TestTokenKeyHash(t *testing.T) {
	assert.Equal(t, "0x8b1a1d9c2b109e527c9134b25b1a1833b16b6594f92daa9f6d9b7a6024bce9d0", TokenKeyHash("USDT").Hex())
}

func TestEqual(t *testing.T) {
	a := "0xAFDBC96635F3AABF06C62B21B4FE1C5CF0337A78275108456CC8D95D505A9D71"
	b := "afdbc96635f3aabf06c62b21b4fe1c5cf0337a78275108456cc8d95d505a9d71"
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, ""))
	assert.False(t, Equal("0x1234", "0x1234"))
}
