package pumpfun

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/davecgh/go-spew/spew"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/text"
	"github.com/gagliardetto/solana-go/text/format"
	"github.com/gagliardetto/treeout"
	"github.com/meme-bots/pump-trader/types"
)

const ProgramName = "Pump"

// Buy tokens from the bonding curve
type Buy struct {
	Amount     *uint64
	MaxSolCost *uint64

	// [0] = [] global
	// [1] = [WRITE] feeRecipient
	// [2] = [] mint
	// [3] = [WRITE] bondingCurve
	// [4] = [WRITE] associatedBondingCurve
	// [5] = [WRITE] associatedUser
	// [6] = [WRITE, SIGNER] user
	// [7] = [] systemProgram
	// [8] = [] tokenProgram
	// [9] = [] rent
	// [10] = [] eventAuthority
	// [11] = [] program
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

func NewBuyInstructionBuilder() *Buy {
	return &Buy{
		AccountMetaSlice: make(solana.AccountMetaSlice, 12),
	}
}

func (inst *Buy) SetAmount(amount uint64) *Buy {
	inst.Amount = &amount
	return inst
}

func (inst *Buy) SetMaxSolCost(maxSolCost uint64) *Buy {
	inst.MaxSolCost = &maxSolCost
	return inst
}

func (inst *Buy) SetAccounts(
	global, feeRecipient, mint, bondingCurve, associatedBondingCurve, associatedUser, user,
	systemProgram, tokenProgram, rent, eventAuthority, program solana.PublicKey,
) *Buy {
	inst.AccountMetaSlice[0] = solana.Meta(global)
	inst.AccountMetaSlice[1] = solana.Meta(feeRecipient).WRITE()
	inst.AccountMetaSlice[2] = solana.Meta(mint)
	inst.AccountMetaSlice[3] = solana.Meta(bondingCurve).WRITE()
	inst.AccountMetaSlice[4] = solana.Meta(associatedBondingCurve).WRITE()
	inst.AccountMetaSlice[5] = solana.Meta(associatedUser).WRITE()
	inst.AccountMetaSlice[6] = solana.Meta(user).WRITE().SIGNER()
	inst.AccountMetaSlice[7] = solana.Meta(systemProgram)
	inst.AccountMetaSlice[8] = solana.Meta(tokenProgram)
	inst.AccountMetaSlice[9] = solana.Meta(rent)
	inst.AccountMetaSlice[10] = solana.Meta(eventAuthority)
	inst.AccountMetaSlice[11] = solana.Meta(program)
	return inst
}

func (inst Buy) Build() *Instruction {
	return &Instruction{BaseVariant: bin.BaseVariant{
		Impl:   inst,
		TypeID: Instruction_Buy,
	}}
}

func (inst Buy) ValidateAndBuild() (*Instruction, error) {
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	return inst.Build(), nil
}

func (inst *Buy) Validate() error {
	if inst.Amount == nil {
		return errors.New("Amount parameter is not set")
	}
	if inst.MaxSolCost == nil {
		return errors.New("MaxSolCost parameter is not set")
	}
	for accIndex, acc := range inst.AccountMetaSlice {
		if acc == nil {
			return fmt.Errorf("ins.AccountMetaSlice[%v] is not set", accIndex)
		}
	}
	return nil
}

func (inst Buy) EncodeToTree(parent treeout.Branches) {
	parent.Child(format.Program(ProgramName, ProgramID)).
		ParentFunc(func(programBranch treeout.Branches) {
			programBranch.Child(format.Instruction("Buy")).
				ParentFunc(func(instructionBranch treeout.Branches) {
					instructionBranch.Child("Params").ParentFunc(func(paramsBranch treeout.Branches) {
						paramsBranch.Child(format.Param("    Amount", *inst.Amount))
						paramsBranch.Child(format.Param("MaxSolCost", *inst.MaxSolCost))
					})
					instructionBranch.Child("Accounts").ParentFunc(func(accountsBranch treeout.Branches) {
						encodeSwapAccounts(accountsBranch, buyAccountNames, inst.AccountMetaSlice)
					})
				})
		})
}

func (inst Buy) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.Encode(*inst.Amount); err != nil {
		return err
	}
	return encoder.Encode(*inst.MaxSolCost)
}

func (inst *Buy) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	if err := decoder.Decode(&inst.Amount); err != nil {
		return err
	}
	return decoder.Decode(&inst.MaxSolCost)
}

// NewBuyInstruction declares a new Buy instruction with the provided parameters and accounts.
func NewBuyInstruction(
	// Parameters:
	amount uint64,
	maxSolCost uint64,
	// Accounts:
	global solana.PublicKey,
	feeRecipient solana.PublicKey,
	mint solana.PublicKey,
	bondingCurve solana.PublicKey,
	associatedBondingCurve solana.PublicKey,
	associatedUser solana.PublicKey,
	user solana.PublicKey,
	systemProgram solana.PublicKey,
	tokenProgram solana.PublicKey,
	rent solana.PublicKey,
	eventAuthority solana.PublicKey,
	program solana.PublicKey) *Buy {
	return NewBuyInstructionBuilder().
		SetAmount(amount).
		SetMaxSolCost(maxSolCost).
		SetAccounts(global, feeRecipient, mint, bondingCurve, associatedBondingCurve, associatedUser, user,
			systemProgram, tokenProgram, rent, eventAuthority, program)
}

// Sell tokens into the bonding curve
type Sell struct {
	Amount       *uint64
	MinSolOutput *uint64

	// [0] = [] global
	// [1] = [WRITE] feeRecipient
	// [2] = [] mint
	// [3] = [WRITE] bondingCurve
	// [4] = [WRITE] associatedBondingCurve
	// [5] = [WRITE] associatedUser
	// [6] = [WRITE, SIGNER] user
	// [7] = [] systemProgram
	// [8] = [] associatedTokenProgram
	// [9] = [] tokenProgram
	// [10] = [] eventAuthority
	// [11] = [] program
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

func NewSellInstructionBuilder() *Sell {
	return &Sell{
		AccountMetaSlice: make(solana.AccountMetaSlice, 12),
	}
}

func (inst *Sell) SetAmount(amount uint64) *Sell {
	inst.Amount = &amount
	return inst
}

func (inst *Sell) SetMinSolOutput(minSolOutput uint64) *Sell {
	inst.MinSolOutput = &minSolOutput
	return inst
}

func (inst *Sell) SetAccounts(
	global, feeRecipient, mint, bondingCurve, associatedBondingCurve, associatedUser, user,
	systemProgram, associatedTokenProgram, tokenProgram, eventAuthority, program solana.PublicKey,
) *Sell {
	inst.AccountMetaSlice[0] = solana.Meta(global)
	inst.AccountMetaSlice[1] = solana.Meta(feeRecipient).WRITE()
	inst.AccountMetaSlice[2] = solana.Meta(mint)
	inst.AccountMetaSlice[3] = solana.Meta(bondingCurve).WRITE()
	inst.AccountMetaSlice[4] = solana.Meta(associatedBondingCurve).WRITE()
	inst.AccountMetaSlice[5] = solana.Meta(associatedUser).WRITE()
	inst.AccountMetaSlice[6] = solana.Meta(user).WRITE().SIGNER()
	inst.AccountMetaSlice[7] = solana.Meta(systemProgram)
	inst.AccountMetaSlice[8] = solana.Meta(associatedTokenProgram)
	inst.AccountMetaSlice[9] = solana.Meta(tokenProgram)
	inst.AccountMetaSlice[10] = solana.Meta(eventAuthority)
	inst.AccountMetaSlice[11] = solana.Meta(program)
	return inst
}

func (inst Sell) Build() *Instruction {
	return &Instruction{BaseVariant: bin.BaseVariant{
		Impl:   inst,
		TypeID: Instruction_Sell,
	}}
}

func (inst Sell) ValidateAndBuild() (*Instruction, error) {
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	return inst.Build(), nil
}

func (inst *Sell) Validate() error {
	if inst.Amount == nil {
		return errors.New("Amount parameter is not set")
	}
	if inst.MinSolOutput == nil {
		return errors.New("MinSolOutput parameter is not set")
	}
	for accIndex, acc := range inst.AccountMetaSlice {
		if acc == nil {
			return fmt.Errorf("ins.AccountMetaSlice[%v] is not set", accIndex)
		}
	}
	return nil
}

func (inst Sell) EncodeToTree(parent treeout.Branches) {
	parent.Child(format.Program(ProgramName, ProgramID)).
		ParentFunc(func(programBranch treeout.Branches) {
			programBranch.Child(format.Instruction("Sell")).
				ParentFunc(func(instructionBranch treeout.Branches) {
					instructionBranch.Child("Params").ParentFunc(func(paramsBranch treeout.Branches) {
						paramsBranch.Child(format.Param("      Amount", *inst.Amount))
						paramsBranch.Child(format.Param("MinSolOutput", *inst.MinSolOutput))
					})
					instructionBranch.Child("Accounts").ParentFunc(func(accountsBranch treeout.Branches) {
						encodeSwapAccounts(accountsBranch, sellAccountNames, inst.AccountMetaSlice)
					})
				})
		})
}

func (inst Sell) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.Encode(*inst.Amount); err != nil {
		return err
	}
	return encoder.Encode(*inst.MinSolOutput)
}

func (inst *Sell) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	if err := decoder.Decode(&inst.Amount); err != nil {
		return err
	}
	return decoder.Decode(&inst.MinSolOutput)
}

// NewSellInstruction declares a new Sell instruction with the provided parameters and accounts.
func NewSellInstruction(
	// Parameters:
	amount uint64,
	minSolOutput uint64,
	// Accounts:
	global solana.PublicKey,
	feeRecipient solana.PublicKey,
	mint solana.PublicKey,
	bondingCurve solana.PublicKey,
	associatedBondingCurve solana.PublicKey,
	associatedUser solana.PublicKey,
	user solana.PublicKey,
	systemProgram solana.PublicKey,
	associatedTokenProgram solana.PublicKey,
	tokenProgram solana.PublicKey,
	eventAuthority solana.PublicKey,
	program solana.PublicKey) *Sell {
	return NewSellInstructionBuilder().
		SetAmount(amount).
		SetMinSolOutput(minSolOutput).
		SetAccounts(global, feeRecipient, mint, bondingCurve, associatedBondingCurve, associatedUser, user,
			systemProgram, associatedTokenProgram, tokenProgram, eventAuthority, program)
}

var (
	buyAccountNames = []string{
		"global", "feeRecipient", "mint", "bondingCurve", "associatedBondingCurve", "associatedUser",
		"user", "systemProgram", "tokenProgram", "rent", "eventAuthority", "program",
	}
	sellAccountNames = []string{
		"global", "feeRecipient", "mint", "bondingCurve", "associatedBondingCurve", "associatedUser",
		"user", "systemProgram", "associatedTokenProgram", "tokenProgram", "eventAuthority", "program",
	}
)

func encodeSwapAccounts(branch treeout.Branches, names []string, metas solana.AccountMetaSlice) {
	for i, name := range names {
		branch.Child(format.Meta(name, metas[i]))
	}
}

// Instruction is an anchor-encoded pump program instruction: 8-byte
// discriminator followed by the borsh arguments.
type Instruction struct {
	bin.BaseVariant
}

func (inst *Instruction) EncodeToTree(parent treeout.Branches) {
	if enToTree, ok := inst.Impl.(text.EncodableToTree); ok {
		enToTree.EncodeToTree(parent)
	} else {
		parent.Child(spew.Sdump(inst))
	}
}

func (inst *Instruction) ProgramID() solana.PublicKey {
	return ProgramID
}

func (inst *Instruction) Accounts() (out []*solana.AccountMeta) {
	return inst.Impl.(solana.AccountsGettable).GetAccounts()
}

func (inst *Instruction) Data() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := inst.MarshalWithEncoder(bin.NewBorshEncoder(buf)); err != nil {
		return nil, fmt.Errorf("unable to encode instruction: %w", err)
	}
	return buf.Bytes(), nil
}

func (inst *Instruction) TextEncode(encoder *text.Encoder, option *text.Option) error {
	return encoder.Encode(inst.Impl, option)
}

func (inst Instruction) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteBytes(inst.TypeID.Bytes(), false); err != nil {
		return fmt.Errorf("unable to write variant type: %w", err)
	}
	if m, ok := inst.Impl.(bin.BinaryMarshaler); ok {
		return m.MarshalWithEncoder(encoder)
	}
	return encoder.Encode(inst.Impl)
}

func (inst *Instruction) String() string {
	tree := treeout.New("")
	inst.EncodeToTree(tree)
	return tree.String()
}

// DecodeSwap reads a buy or sell instruction from either encoder back into
// its typed form.
func DecodeSwap(inst solana.Instruction) (*Instruction, error) {
	if typed, ok := inst.(*Instruction); ok {
		return typed, nil
	}
	if inst == nil || !inst.ProgramID().Equals(ProgramID) {
		return nil, fmt.Errorf("%w: not a pump instruction", types.ErrLayoutMismatch)
	}
	data, err := inst.Data()
	if err != nil {
		return nil, err
	}
	accounts := inst.Accounts()
	if len(data) < 24 || len(accounts) != 12 {
		return nil, fmt.Errorf("%w: swap instruction", types.ErrLayoutMismatch)
	}

	decoder := bin.NewBorshDecoder(data[8:])
	switch bin.TypeIDFromBytes(data[:8]) {
	case Instruction_Buy:
		buy := NewBuyInstructionBuilder()
		if err := buy.UnmarshalWithDecoder(decoder); err != nil {
			return nil, err
		}
		copy(buy.AccountMetaSlice, accounts)
		return buy.Build(), nil
	case Instruction_Sell:
		sell := NewSellInstructionBuilder()
		if err := sell.UnmarshalWithDecoder(decoder); err != nil {
			return nil, err
		}
		copy(sell.AccountMetaSlice, accounts)
		return sell.Build(), nil
	}
	return nil, fmt.Errorf("%w: unknown swap discriminator", types.ErrLayoutMismatch)
}
