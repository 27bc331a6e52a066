package message

import (
	"math/big"
	"math/rand"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enclave-sdk/internal/models"
	"enclave-sdk/internal/sdkerr"
)

func amt(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic(s)
	}
	return v
}

func evmAddr(chain uint32, hexAddr string) models.UniversalAddress {
	ua := models.UniversalAddress{SLIP44ChainID: chain, DisplayAddress: hexAddr}
	copy(ua.Data[12:], common.HexToAddress(hexAddr).Bytes())
	return ua
}

func commitmentInput() CommitmentInput {
	return CommitmentInput{
		Allocations: []CommitmentAllocation{
			{Seq: 0, Amount: amt("187500000000000000")},
			{Seq: 1, Amount: amt("1044400000000000000")},
			{Seq: 2, Amount: amt("728100000000000000")},
		},
		DepositID:     18323484,
		TokenKey:      "USDT",
		TokenDecimals: 18,
		ChainID:       714,
		Owner:         evmAddr(714, "0x6f3995e2e40ca58adcbd47a2edad192e43d98638"),
		Language:      LanguageEnglish,
	}
}

func TestPrepareCommitmentMessage_English(t *testing.T) {
	out, err := PrepareCommitmentMessage(commitmentInput())
	require.NoError(t, err)

	want := strings.Join([]string{
		"Enclave Commitment",
		"Source Token: USDT (BSC)",
		"Allocations:",
		"Deposit 18323484 #0: 0.1875 USDT",
		"Deposit 18323484 #1: 1.0444 USDT",
		"Deposit 18323484 #2: 0.7281 USDT",
		"Total: 1.96 USDT",
		"Owner: 0x0000000000000000000000006f3995e2e40ca58adcbd47a2edad192e43d98638",
		"I confirm splitting this deposit into the allocations above.",
	}, "\n")
	assert.Equal(t, want, out.Message)
	assert.Equal(t, "0x1bf08d4538e409b3d275150f9a5a0bb5277dd21c13704238dfbc7300afb8a84f", out.MessageHash)
	assert.Equal(t, "1960000000000000000", out.TotalAmount.String())
	assert.Equal(t, "0xafdbc96635f3aabf06c62b21b4fe1c5cf0337a78275108456cc8d95d505a9d71", out.Commitment)
}

func TestPrepareCommitmentMessage_LocalDepositIDOnlyAffectsDisplay(t *testing.T) {
	in := commitmentInput()
	base, err := PrepareCommitmentMessage(in)
	require.NoError(t, err)

	local := uint64(42)
	in.LocalDepositID = &local
	out, err := PrepareCommitmentMessage(in)
	require.NoError(t, err)

	assert.Contains(t, out.Message, "Deposit 42 #1: 1.0444 USDT")
	assert.NotEqual(t, base.MessageHash, out.MessageHash)
	assert.Equal(t, base.Commitment, out.Commitment)
}

func TestPrepareCommitmentMessage_Deterministic(t *testing.T) {
	a, err := PrepareCommitmentMessage(commitmentInput())
	require.NoError(t, err)
	in := commitmentInput()
	in.Allocations = []CommitmentAllocation{in.Allocations[2], in.Allocations[0], in.Allocations[1]}
	b, err := PrepareCommitmentMessage(in)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestPrepareCommitmentMessage_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *CommitmentInput)
	}{
		{"no allocations", func(in *CommitmentInput) { in.Allocations = nil }},
		{"missing token", func(in *CommitmentInput) { in.TokenKey = " " }},
		{"unknown chain", func(in *CommitmentInput) { in.ChainID = 12345 }},
		{"zero owner", func(in *CommitmentInput) { in.Owner = models.UniversalAddress{} }},
		{"bad language", func(in *CommitmentInput) { in.Language = 42 }},
		{"duplicate seq", func(in *CommitmentInput) { in.Allocations[1].Seq = 0 }},
		{"zero amount", func(in *CommitmentInput) { in.Allocations[0].Amount = big.NewInt(0) }},
		{"nil amount", func(in *CommitmentInput) { in.Allocations[0].Amount = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := commitmentInput()
			tt.mutate(&in)
			out, err := PrepareCommitmentMessage(in)
			require.Error(t, err)
			assert.Nil(t, out)
			assert.Equal(t, sdkerr.KindValidation, sdkerr.KindOf(err))
		})
	}
}

func TestPrepareCommitmentMessage_ChainNameOverride(t *testing.T) {
	in := commitmentInput()
	in.ChainID = 12345
	in.ChainName = "Devnet"
	out, err := PrepareCommitmentMessage(in)
	require.NoError(t, err)
	assert.Contains(t, out.Message, "Source Token: USDT (Devnet)")
}

func TestPrepareCommitmentMessage_AllLanguages(t *testing.T) {
	seen := map[string]Language{}
	for _, lang := range Languages {
		in := commitmentInput()
		in.Language = lang
		out, err := PrepareCommitmentMessage(in)
		require.NoError(t, err, lang.Code())

		lb := labelTable[lang]
		assert.True(t, strings.HasPrefix(out.Message, lb.commitmentTitle+"\n"), lang.Code())
		assert.Contains(t, out.Message, lb.deposit+" 18323484 #2: 0.7281 USDT")
		assert.True(t, strings.HasSuffix(out.Message, lb.confirmCommit))
		assert.False(t, strings.HasSuffix(out.Message, "\n"))

		prev, dup := seen[out.MessageHash]
		assert.False(t, dup, "%s renders the same message as %s", lang.Code(), prev.Code())
		seen[out.MessageHash] = lang
	}
	assert.Len(t, seen, 10)
}

const (
	testCommitmentA = "0xa8c67f5fd8466da0f75415c42ad9fa15bb2daf0d4a9923da4042954f979ed366"
	testCommitmentB = "0x1111111111111111111111111111111111111111111111111111111111111111"
)

func crossDepositInput() WithdrawalInput {
	return WithdrawalInput{
		Allocations: []WithdrawalAllocation{
			{ID: "a1", Seq: 0, Amount: amt("400000000000000000"), Commitment: testCommitmentA},
			{ID: "a2", Seq: 1, Amount: amt("300000000000000000"), Commitment: testCommitmentB},
		},
		Intent: models.RawTokenIntent{
			Beneficiary: evmAddr(60, "0xF39FD6E51AAD88F6F4CE6AB8827279CFFFB92266"),
			TokenSymbol: "USDT",
		},
		TokenSymbol:   "USDT",
		TokenDecimals: 18,
		Language:      LanguageEnglish,
		DepositInfo: map[string]DepositInfo{
			"a1": {LocalDepositID: 7, SLIP44ChainID: 714},
			"a2": {LocalDepositID: 9, SLIP44ChainID: 714},
		},
	}
}

func TestPrepareWithdrawalMessage_CrossDeposit(t *testing.T) {
	out, err := PrepareWithdrawalMessage(crossDepositInput())
	require.NoError(t, err)

	want := strings.Join([]string{
		"Enclave Withdrawal",
		"Source Token: USDT (BSC)",
		"Allocations:",
		"Deposit 7 #0: 0.4 USDT",
		"Deposit 9 #1: 0.3 USDT",
		"Total: 0.7 USDT",
		"Target Token: USDT",
		"Target Chain: Ethereum",
		"Beneficiary: 0x000000000000000000000000f39fd6e51aad88f6f4ce6ab8827279cfffb92266",
		"Minimum Output: 0 USDT",
		"I confirm withdrawing the allocations above to the beneficiary.",
	}, "\n")
	assert.Equal(t, want, out.Message)
	assert.Equal(t, "700000000000000000", out.TotalAmount.String())
	assert.Equal(t, []string{"a1", "a2"}, out.AllocationIDs)
	assert.Equal(t, Hash(want), out.MessageHash)
}

func TestPrepareWithdrawalMessage_NullifierFromFirstAllocationByID(t *testing.T) {
	in := crossDepositInput()
	// "a0" is first by id but second by seq.
	in.Allocations = append(in.Allocations, WithdrawalAllocation{
		ID: "a0", Seq: 5, Amount: amt("339300000000000000"), Commitment: testCommitmentA,
	})
	in.Allocations[2].Seq = 1
	in.Allocations[1].Seq = 2
	in.DepositInfo["a0"] = DepositInfo{LocalDepositID: 7, SLIP44ChainID: 714}

	out, err := PrepareWithdrawalMessage(in)
	require.NoError(t, err)
	assert.Equal(t, "0x4b8c0d497db9f6b0b9cedbcd7499c49c46bcfe49b4469aa34e90b24df230753e", out.Nullifier)
	assert.Equal(t, []string{"a0", "a1", "a2"}, out.AllocationIDs)

	lines := strings.Split(out.Message, "\n")
	assert.Equal(t, "Deposit 7 #0: 0.4 USDT", lines[3])
	assert.Equal(t, "Deposit 7 #1: 0.3393 USDT", lines[4])
	assert.Equal(t, "Deposit 9 #2: 0.3 USDT", lines[5])
}

func TestPrepareWithdrawalMessage_ShuffleInvariant(t *testing.T) {
	base, err := PrepareWithdrawalMessage(crossDepositInput())
	require.NoError(t, err)

	r := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		in := crossDepositInput()
		r.Shuffle(len(in.Allocations), func(a, b int) {
			in.Allocations[a], in.Allocations[b] = in.Allocations[b], in.Allocations[a]
		})
		out, err := PrepareWithdrawalMessage(in)
		require.NoError(t, err)
		assert.Equal(t, base, out)
	}
}

func TestPrepareWithdrawalMessage_AssetIntent(t *testing.T) {
	in := crossDepositInput()
	var assetID [32]byte
	assetID[2], assetID[3] = 0x02, 0xca // chain 714
	assetID[7] = 0x01                   // adapter 1
	assetID[9] = 0x01                   // token 1
	decimals := uint8(6)
	in.Intent = models.AssetTokenIntent{
		Beneficiary:      evmAddr(714, "0x6f3995e2e40ca58adcbd47a2edad192e43d98638"),
		AssetID:          assetID,
		AssetTokenSymbol: "aUSDT",
	}
	in.TargetDecimals = &decimals
	in.MinOutput = amt("1234567")

	out, err := PrepareWithdrawalMessage(in)
	require.NoError(t, err)
	assert.Contains(t, out.Message, "\nTarget Token: aUSDT\nAsset ID: 0x000002ca00000001")
	assert.Contains(t, out.Message, "\nTarget Chain: BSC\n")
	assert.Contains(t, out.Message, "\nMinimum Output: 1.234567 aUSDT\n")
}

func TestPrepareWithdrawalMessage_SourceChainsJoined(t *testing.T) {
	in := crossDepositInput()
	in.DepositInfo["a2"] = DepositInfo{LocalDepositID: 9, SLIP44ChainID: 60}
	out, err := PrepareWithdrawalMessage(in)
	require.NoError(t, err)
	assert.Contains(t, out.Message, "Source Token: USDT (BSC, Ethereum)")
}

func TestPrepareWithdrawalMessage_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(in *WithdrawalInput)
		wantIDs []string
	}{
		{name: "missing deposit info", mutate: func(in *WithdrawalInput) { delete(in.DepositInfo, "a2") }, wantIDs: []string{"a2"}},
		{name: "first allocation without commitment", mutate: func(in *WithdrawalInput) { in.Allocations[0].Commitment = "" }, wantIDs: []string{"a1"}},
		{name: "malformed commitment", mutate: func(in *WithdrawalInput) { in.Allocations[0].Commitment = "0x1234" }, wantIDs: []string{"a1"}},
		{name: "no allocations", mutate: func(in *WithdrawalInput) { in.Allocations = nil }},
		{name: "duplicate id", mutate: func(in *WithdrawalInput) { in.Allocations[1].ID = "a1" }},
		{name: "missing token", mutate: func(in *WithdrawalInput) { in.TokenSymbol = "" }},
		{name: "nil intent", mutate: func(in *WithdrawalInput) { in.Intent = nil }},
		{name: "zero beneficiary", mutate: func(in *WithdrawalInput) {
			in.Intent = models.RawTokenIntent{TokenSymbol: "USDT"}
		}},
		{name: "asset intent without asset id", mutate: func(in *WithdrawalInput) {
			in.Intent = models.AssetTokenIntent{Beneficiary: evmAddr(60, "0x01"), AssetTokenSymbol: "aUSDT"}
		}},
		{name: "unknown beneficiary chain", mutate: func(in *WithdrawalInput) {
			in.Intent = models.RawTokenIntent{Beneficiary: evmAddr(9999, "0x01"), TokenSymbol: "USDT"}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := crossDepositInput()
			tt.mutate(&in)
			out, err := PrepareWithdrawalMessage(in)
			require.Error(t, err)
			assert.Nil(t, out)

			var se *sdkerr.Error
			require.ErrorAs(t, err, &se)
			assert.Equal(t, sdkerr.KindValidation, se.Kind)
			if tt.wantIDs != nil {
				assert.Equal(t, tt.wantIDs, se.IDs)
			}
		})
	}
}

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		tag  string
		want Language
	}{
		{"en", LanguageEnglish},
		{"en-US", LanguageEnglish},
		{"zh", LanguageChineseSimplified},
		{"zh-CN", LanguageChineseSimplified},
		{"zh_TW", LanguageChineseTraditional},
		{"zh-Hant", LanguageChineseTraditional},
		{"ja", LanguageJapanese},
		{"ko-KR", LanguageKorean},
		{"es", LanguageSpanish},
		{"fr-CA", LanguageFrench},
		{"de", LanguageGerman},
		{"ru", LanguageRussian},
		{"pt-BR", LanguagePortuguese},
	}
	for _, tt := range tests {
		got, err := ParseLanguage(tt.tag)
		require.NoError(t, err, tt.tag)
		assert.Equal(t, tt.want, got, tt.tag)
	}

	_, err := ParseLanguage("tlh")
	assert.Error(t, err)
}

func TestHash(t *testing.T) {
	assert.Equal(t, "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470", Hash(""))
}
