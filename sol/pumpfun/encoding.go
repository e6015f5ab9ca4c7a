package pumpfun

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/meme-bots/pump-trader/types"
)

const (
	EncodingRaw     = "raw"
	EncodingProgram = "program"
)

const (
	rawBuyOpcode  byte = 0x66
	rawSellOpcode byte = 0x33
)

var (
	rawBuyTail  = []byte{0x06, 0x3d, 0x12, 0x01, 0xda, 0xeb, 0xea}
	rawSellTail = []byte{0xe6, 0x85, 0xa4, 0x01, 0x7f, 0x83, 0xad}
)

// SwapParams are the inputs of one swap instruction. Bound is the maximum
// SOL cost of a buy or the minimum SOL output of a sell.
type SwapParams struct {
	Direction              types.Direction
	Amount                 uint64
	Bound                  uint64
	Mint                   solana.PublicKey
	BondingCurve           solana.PublicKey
	AssociatedBondingCurve solana.PublicKey
	AssociatedUser         solana.PublicKey
	User                   solana.PublicKey
}

type SwapEncoder interface {
	Name() string
	Encode(p *SwapParams) (solana.Instruction, error)
}

func NewSwapEncoder(name string) (SwapEncoder, error) {
	switch name {
	case "", EncodingRaw:
		return RawEncoder{}, nil
	case EncodingProgram:
		return ProgramEncoder{}, nil
	default:
		return nil, fmt.Errorf("unknown swap encoding %q", name)
	}
}

// RawEncoder writes the instruction data byte by byte.
type RawEncoder struct{}

func (RawEncoder) Name() string { return EncodingRaw }

func (RawEncoder) Encode(p *SwapParams) (solana.Instruction, error) {
	data := make([]byte, 0, 24)
	var accounts solana.AccountMetaSlice

	if p.Direction == types.DirectionSell {
		data = append(data, rawSellOpcode)
		data = append(data, rawSellTail...)
		accounts = solana.AccountMetaSlice{
			solana.Meta(GlobalPubKey),
			solana.Meta(GlobalFeeRecipient).WRITE(),
			solana.Meta(p.Mint),
			solana.Meta(p.BondingCurve).WRITE(),
			solana.Meta(p.AssociatedBondingCurve).WRITE(),
			solana.Meta(p.AssociatedUser).WRITE(),
			solana.Meta(p.User).WRITE().SIGNER(),
			solana.Meta(solana.SystemProgramID),
			solana.Meta(solana.SPLAssociatedTokenAccountProgramID),
			solana.Meta(solana.TokenProgramID),
			solana.Meta(EventAuthority),
			solana.Meta(ProgramID),
		}
	} else {
		data = append(data, rawBuyOpcode)
		data = append(data, rawBuyTail...)
		accounts = solana.AccountMetaSlice{
			solana.Meta(GlobalPubKey),
			solana.Meta(GlobalFeeRecipient).WRITE(),
			solana.Meta(p.Mint),
			solana.Meta(p.BondingCurve).WRITE(),
			solana.Meta(p.AssociatedBondingCurve).WRITE(),
			solana.Meta(p.AssociatedUser).WRITE(),
			solana.Meta(p.User).WRITE().SIGNER(),
			solana.Meta(solana.SystemProgramID),
			solana.Meta(solana.TokenProgramID),
			solana.Meta(solana.SysVarRentPubkey),
			solana.Meta(EventAuthority),
			solana.Meta(ProgramID),
		}
	}
	data = binary.LittleEndian.AppendUint64(data, p.Amount)
	data = binary.LittleEndian.AppendUint64(data, p.Bound)

	return solana.NewInstruction(ProgramID, accounts, data), nil
}

// ProgramEncoder goes through the typed Buy/Sell builders.
type ProgramEncoder struct{}

func (ProgramEncoder) Name() string { return EncodingProgram }

func (ProgramEncoder) Encode(p *SwapParams) (solana.Instruction, error) {
	var (
		inst *Instruction
		err  error
	)
	if p.Direction == types.DirectionSell {
		inst, err = NewSellInstruction(
			p.Amount,
			p.Bound,
			GlobalPubKey,
			GlobalFeeRecipient,
			p.Mint,
			p.BondingCurve,
			p.AssociatedBondingCurve,
			p.AssociatedUser,
			p.User,
			solana.SystemProgramID,
			solana.SPLAssociatedTokenAccountProgramID,
			solana.TokenProgramID,
			EventAuthority,
			ProgramID,
		).ValidateAndBuild()
	} else {
		inst, err = NewBuyInstruction(
			p.Amount,
			p.Bound,
			GlobalPubKey,
			GlobalFeeRecipient,
			p.Mint,
			p.BondingCurve,
			p.AssociatedBondingCurve,
			p.AssociatedUser,
			p.User,
			solana.SystemProgramID,
			solana.TokenProgramID,
			solana.SysVarRentPubkey,
			EventAuthority,
			ProgramID,
		).ValidateAndBuild()
	}
	if err != nil {
		return nil, err
	}
	return inst, nil
}
