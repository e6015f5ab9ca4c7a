package pumpfun

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/meme-bots/pump-trader/types"
)

var (
	ProgramID          = solana.MPK("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")
	GlobalPubKey       = solana.MPK("4wTV1YmiEkRvAtNtsSGPtUrqRYQMe5SKy2uB4Jjaxnjf")
	GlobalFeeRecipient = solana.MPK("CebN5WGQ4jvEPvsVU4EoHEpgzq1VV7AbicfhtW4xC9iM")
	EventAuthority     = solana.MPK("Ce6TQqeHC9p8KetsN6JsjHK7UTZk7nasjjnr7XxXp9F1")
)

var (
	Instruction_Buy    = bin.TypeID([8]byte{102, 6, 61, 18, 1, 218, 235, 234})
	Instruction_Sell   = bin.TypeID([8]byte{51, 230, 133, 164, 1, 127, 131, 173})
	Instruction_Create = bin.TypeID([8]byte{24, 30, 200, 40, 5, 28, 7, 119})

	Event_Trade = bin.TypeID([8]byte{189, 219, 127, 211, 78, 230, 97, 238})
)

const (
	TotalSupplyWithDecimals = 1000000000000000
	TotalSupply             = 1000000000

	BONDING_CURVE_SEED = "bonding-curve"
)

func FindBondingCurve(mint solana.PublicKey) solana.PublicKey {
	bondingCurve, _, _ := solana.FindProgramAddress(
		[][]byte{
			[]byte(BONDING_CURVE_SEED),
			mint.Bytes(),
		},
		ProgramID,
	)
	return bondingCurve
}

func FindAssociatedBondingCurve(mint solana.PublicKey) (solana.PublicKey, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(FindBondingCurve(mint), mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %v", types.ErrAccountDerivationFailed, err)
	}
	return ata, nil
}

// ResolveAssociatedAccount derives owner's token account for mint and the
// idempotent create instruction paid by payer.
func ResolveAssociatedAccount(owner, mint, payer solana.PublicKey) (solana.PublicKey, solana.Instruction, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, nil, fmt.Errorf("%w: %v", types.ErrAccountDerivationFailed, err)
	}

	//create idempotent
	inst := solana.NewInstruction(
		solana.SPLAssociatedTokenAccountProgramID,
		solana.AccountMetaSlice{
			solana.Meta(payer).WRITE().SIGNER(),
			solana.Meta(ata).WRITE(),
			solana.Meta(owner),
			solana.Meta(mint),
			solana.Meta(solana.SystemProgramID),
			solana.Meta(solana.TokenProgramID),
		},
		[]byte{1},
	)
	return ata, inst, nil
}

// CurveAccounts fills in the bonding curve addresses of intent when the
// caller did not supply them.
func CurveAccounts(intent *types.TradeIntent) (solana.PublicKey, solana.PublicKey, error) {
	curve := intent.BondingCurve
	if curve.IsZero() {
		curve = FindBondingCurve(intent.Mint)
	}

	associated := intent.AssociatedBondingCurve
	if associated.IsZero() {
		var err error
		associated, _, err = solana.FindAssociatedTokenAddress(curve, intent.Mint)
		if err != nil {
			return solana.PublicKey{}, solana.PublicKey{}, fmt.Errorf("%w: %v", types.ErrAccountDerivationFailed, err)
		}
	}
	return curve, associated, nil
}
