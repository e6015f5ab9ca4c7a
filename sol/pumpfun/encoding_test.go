package pumpfun

import (
	"encoding/binary"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/meme-bots/pump-trader/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSwapParams(direction types.Direction) *SwapParams {
	mint := solana.NewWallet().PublicKey()
	user := solana.NewWallet().PublicKey()
	ata, _, _ := solana.FindAssociatedTokenAddress(user, mint)
	curve := FindBondingCurve(mint)
	associated, _ := FindAssociatedBondingCurve(mint)
	return &SwapParams{
		Direction:              direction,
		Amount:                 34612903225806,
		Bound:                  1_150_000_000,
		Mint:                   mint,
		BondingCurve:           curve,
		AssociatedBondingCurve: associated,
		AssociatedUser:         ata,
		User:                   user,
	}
}

func TestDiscriminators(t *testing.T) {
	assert.Equal(t, bin.Sighash(bin.SIGHASH_GLOBAL_NAMESPACE, "buy"), Instruction_Buy.Bytes())
	assert.Equal(t, bin.Sighash(bin.SIGHASH_GLOBAL_NAMESPACE, "sell"), Instruction_Sell.Bytes())
	assert.Equal(t, bin.Sighash(bin.SIGHASH_GLOBAL_NAMESPACE, "create"), Instruction_Create.Bytes())
	assert.Equal(t, bin.Sighash("event", "TradeEvent"), Event_Trade.Bytes())

	assert.Equal(t, Instruction_Buy.Bytes(), append([]byte{rawBuyOpcode}, rawBuyTail...))
	assert.Equal(t, Instruction_Sell.Bytes(), append([]byte{rawSellOpcode}, rawSellTail...))
}

func TestEncodersAreInterchangeable(t *testing.T) {
	for _, direction := range []types.Direction{types.DirectionBuy, types.DirectionSell} {
		params := testSwapParams(direction)

		raw, err := RawEncoder{}.Encode(params)
		require.NoError(t, err)
		typed, err := ProgramEncoder{}.Encode(params)
		require.NoError(t, err)

		rawData, err := raw.Data()
		require.NoError(t, err)
		typedData, err := typed.Data()
		require.NoError(t, err)

		assert.Equal(t, rawData, typedData, direction.String())
		assert.Equal(t, raw.ProgramID(), typed.ProgramID())
		assert.Equal(t, raw.Accounts(), typed.Accounts(), direction.String())
	}
}

func TestRawEncoderLayout(t *testing.T) {
	params := testSwapParams(types.DirectionBuy)

	inst, err := RawEncoder{}.Encode(params)
	require.NoError(t, err)
	data, err := inst.Data()
	require.NoError(t, err)

	require.Len(t, data, 24)
	assert.Equal(t, byte(0x66), data[0])
	assert.Equal(t, params.Amount, binary.LittleEndian.Uint64(data[8:16]))
	assert.Equal(t, params.Bound, binary.LittleEndian.Uint64(data[16:24]))

	accounts := inst.Accounts()
	require.Len(t, accounts, 12)
	assert.Equal(t, GlobalPubKey, accounts[0].PublicKey)
	assert.True(t, accounts[1].IsWritable)
	assert.True(t, accounts[6].IsSigner)
	assert.True(t, accounts[6].IsWritable)
	assert.Equal(t, params.User, accounts[6].PublicKey)
	assert.Equal(t, solana.SysVarRentPubkey, accounts[9].PublicKey)
	assert.Equal(t, ProgramID, accounts[11].PublicKey)
}

func TestSellAccountOrder(t *testing.T) {
	params := testSwapParams(types.DirectionSell)
	want := []solana.PublicKey{
		GlobalPubKey,
		GlobalFeeRecipient,
		params.Mint,
		params.BondingCurve,
		params.AssociatedBondingCurve,
		params.AssociatedUser,
		params.User,
		solana.SystemProgramID,
		solana.SPLAssociatedTokenAccountProgramID,
		solana.TokenProgramID,
		EventAuthority,
		ProgramID,
	}

	for _, enc := range []SwapEncoder{RawEncoder{}, ProgramEncoder{}} {
		inst, err := enc.Encode(params)
		require.NoError(t, err)

		var got []solana.PublicKey
		for _, meta := range inst.Accounts() {
			got = append(got, meta.PublicKey)
		}
		assert.Equal(t, want, got, enc.Name())
		// sells take the associated token program where buys take rent
		assert.NotContains(t, got, solana.SysVarRentPubkey, enc.Name())
	}
}

func TestDecodeSwapFromRawEncoder(t *testing.T) {
	params := testSwapParams(types.DirectionSell)
	raw, err := RawEncoder{}.Encode(params)
	require.NoError(t, err)

	swap, err := DecodeSwap(raw)
	require.NoError(t, err)
	assert.Equal(t, Instruction_Sell, swap.TypeID)
	sell := swap.Impl.(Sell)
	assert.Equal(t, params.Amount, *sell.Amount)
	assert.Equal(t, params.Bound, *sell.MinSolOutput)

	tree := swap.String()
	assert.Contains(t, tree, "Sell")
	assert.Contains(t, tree, "MinSolOutput")
	assert.Contains(t, tree, "associatedTokenProgram")

	_, err = DecodeSwap(solana.NewInstruction(solana.SystemProgramID, nil, nil))
	assert.ErrorIs(t, err, types.ErrLayoutMismatch)
}

func TestNewSwapEncoder(t *testing.T) {
	enc, err := NewSwapEncoder("")
	require.NoError(t, err)
	assert.Equal(t, EncodingRaw, enc.Name())

	enc, err = NewSwapEncoder(EncodingProgram)
	require.NoError(t, err)
	assert.Equal(t, EncodingProgram, enc.Name())

	_, err = NewSwapEncoder("anchor")
	assert.Error(t, err)
}

func TestProgramBuilderValidate(t *testing.T) {
	_, err := NewBuyInstructionBuilder().SetAmount(1).ValidateAndBuild()
	assert.Error(t, err)

	params := testSwapParams(types.DirectionBuy)
	inst, err := ProgramEncoder{}.Encode(params)
	require.NoError(t, err)
	assert.Contains(t, inst.(*Instruction).String(), "MaxSolCost")
}
