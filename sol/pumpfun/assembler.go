package pumpfun

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/meme-bots/pump-trader/sol/common"
	"github.com/meme-bots/pump-trader/types"
	"github.com/samber/lo"
)

type Slot int

const (
	SlotComputeUnitPrice Slot = iota + 1
	SlotComputeUnitLimit
	SlotCreateAccount
	SlotSwap
	SlotMemo
	SlotTip
)

var ErrPlanConsumed = errors.New("instruction plan already signed")

type (
	AssemblerConfig struct {
		ComputeUnitPrice uint64
		ComputeUnitLimit uint32
		TipLamports      uint64
		MemoProgram      solana.PublicKey
		Memo             string

		// DefaultRelay is used for intents that name no relay.
		DefaultRelay types.RelayKind
		TipAccounts  map[types.RelayKind][]solana.PublicKey
	}

	PlannedInstruction struct {
		Slot        Slot
		Instruction solana.Instruction
	}

	// InstructionPlan is the ordered instruction list of one transaction. It
	// can be signed once.
	InstructionPlan struct {
		Direction    types.Direction
		FeePayer     solana.PublicKey
		TipPayer     solana.PublicKey
		Amount       uint64
		Bound        uint64
		Instructions []PlannedInstruction

		mu       sync.Mutex
		consumed bool
	}

	SignedTransaction struct {
		Raw       []byte
		Signature solana.Signature
		Signers   []solana.PublicKey
		Tx        *solana.Transaction
	}

	Assembler struct {
		cfg     AssemblerConfig
		encoder SwapEncoder
	}
)

// AssemblerConfigFor maps every relay to its tip destinations. The relay of
// each intent picks among them.
func AssemblerConfigFor(cfg *types.Config) AssemblerConfig {
	return AssemblerConfig{
		ComputeUnitPrice: cfg.ComputeUnitPrice,
		ComputeUnitLimit: cfg.ComputeUnitLimit,
		TipLamports:      cfg.TipLamports,
		DefaultRelay:     lo.Ternary(cfg.Relay == "", types.RelayBundle, cfg.Relay),
		TipAccounts: map[types.RelayKind][]solana.PublicKey{
			types.RelayBundle:   common.JitoTipPaymentAccounts,
			types.RelayPriority: {common.BloxrouteTipWallet},
		},
		MemoProgram: common.BloxrouteMemoProgram,
		Memo:        common.BloxrouteMemo,
	}
}

func NewAssembler(cfg AssemblerConfig, encoder SwapEncoder) *Assembler {
	if encoder == nil {
		encoder = RawEncoder{}
	}
	return &Assembler{cfg: cfg, encoder: encoder}
}

// TipAccounts returns the tip destinations of the relay named by intent.
func (a *Assembler) TipAccounts(intent *types.TradeIntent) []solana.PublicKey {
	kind := intent.Relay
	if kind == "" {
		kind = a.cfg.DefaultRelay
	}
	return a.cfg.TipAccounts[kind]
}

// Plan lays out the transaction for intent. A buy spends intent.Amount
// lamports for the quoted tokens, a sell spends intent.Amount tokens for at
// least the slippage-adjusted quoted lamports.
func (a *Assembler) Plan(intent *types.TradeIntent, quote QuoteResult, owner, tipPayer solana.PublicKey) (*InstructionPlan, error) {
	if quote.OutputAmount == 0 {
		return nil, types.ErrQuoteInvalid
	}

	curve, associatedCurve, err := CurveAccounts(intent)
	if err != nil {
		return nil, err
	}
	ata, createInst, err := ResolveAssociatedAccount(owner, intent.Mint, owner)
	if err != nil {
		return nil, err
	}

	params := &SwapParams{
		Direction:              intent.Direction,
		Mint:                   intent.Mint,
		BondingCurve:           curve,
		AssociatedBondingCurve: associatedCurve,
		AssociatedUser:         ata,
		User:                   owner,
	}
	if intent.Direction == types.DirectionSell {
		params.Amount = intent.Amount
		params.Bound = MinSolOutput(quote.OutputAmount, intent.SlippageBps)
	} else {
		params.Amount = quote.OutputAmount
		params.Bound = MaxSolCost(intent.Amount, intent.SlippageBps)
	}

	swapInst, err := a.encoder.Encode(params)
	if err != nil {
		return nil, err
	}

	if tipPayer.IsZero() {
		tipPayer = owner
	}

	plan := &InstructionPlan{
		Direction: intent.Direction,
		FeePayer:  owner,
		TipPayer:  tipPayer,
		Amount:    params.Amount,
		Bound:     params.Bound,
	}
	plan.add(SlotComputeUnitPrice, computebudget.NewSetComputeUnitPriceInstruction(a.cfg.ComputeUnitPrice).Build())
	plan.add(SlotComputeUnitLimit, computebudget.NewSetComputeUnitLimitInstruction(a.cfg.ComputeUnitLimit).Build())
	plan.add(SlotCreateAccount, createInst)
	plan.add(SlotSwap, swapInst)

	if intent.Direction == types.DirectionBuy && a.cfg.Memo != "" && !a.cfg.MemoProgram.IsZero() {
		memoInst := solana.NewInstruction(
			a.cfg.MemoProgram,
			solana.AccountMetaSlice{solana.Meta(owner).WRITE().SIGNER()},
			[]byte(a.cfg.Memo),
		)
		plan.add(SlotMemo, memoInst)
	}

	//tip
	if tipAccounts := a.TipAccounts(intent); a.cfg.TipLamports != 0 && len(tipAccounts) > 0 {
		idx := rand.Intn(len(tipAccounts))
		tipInst := system.NewTransferInstruction(a.cfg.TipLamports, tipPayer, tipAccounts[idx]).Build()
		plan.add(SlotTip, tipInst)
	}

	return plan, nil
}

func (p *InstructionPlan) add(slot Slot, inst solana.Instruction) {
	p.Instructions = append(p.Instructions, PlannedInstruction{Slot: slot, Instruction: inst})
}

func (p *InstructionPlan) Slots() []Slot {
	return lo.Map(p.Instructions, func(item PlannedInstruction, _ int) Slot {
		return item.Slot
	})
}

func (p *InstructionPlan) Swap() solana.Instruction {
	item, ok := lo.Find(p.Instructions, func(item PlannedInstruction) bool {
		return item.Slot == SlotSwap
	})
	if !ok {
		return nil
	}
	return item.Instruction
}

// Sign compiles plan into a v0 transaction and signs it with the trade key
// and, when it pays the tip, the tip key.
func (a *Assembler) Sign(plan *InstructionPlan, blockhash solana.Hash, signer, tipSigner solana.PrivateKey) (*SignedTransaction, error) {
	plan.mu.Lock()
	defer plan.mu.Unlock()
	if plan.consumed {
		return nil, ErrPlanConsumed
	}
	if blockhash.IsZero() {
		return nil, types.ErrStaleBlockhash
	}
	if !signer.PublicKey().Equals(plan.FeePayer) {
		return nil, fmt.Errorf("signer %s is not the fee payer %s", signer.PublicKey(), plan.FeePayer)
	}

	instructions := lo.Map(plan.Instructions, func(item PlannedInstruction, _ int) solana.Instruction {
		return item.Instruction
	})

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(plan.FeePayer))
	if err != nil {
		return nil, err
	}
	tx.Message.SetVersion(solana.MessageVersionV0)

	keys := map[solana.PublicKey]solana.PrivateKey{
		signer.PublicKey(): signer,
	}
	if len(tipSigner) != 0 {
		keys[tipSigner.PublicKey()] = tipSigner
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if k, ok := keys[key]; ok {
			return &k
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, err
	}

	plan.consumed = true
	return &SignedTransaction{
		Raw:       raw,
		Signature: tx.Signatures[0],
		Signers:   tx.Message.Signers(),
		Tx:        tx,
	}, nil
}
