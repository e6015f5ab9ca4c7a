package sol

import (
	"context"
	"errors"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/meme-bots/pump-trader/sol/pumpfun"
	"github.com/meme-bots/pump-trader/types"
	"github.com/meme-bots/pump-trader/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type (
	TokenAccountLister interface {
		GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, conf *rpc.GetTokenAccountsConfig, opts *rpc.GetTokenAccountsOpts) (*rpc.GetTokenAccountsResult, error)
	}

	Holding struct {
		Mint    solana.PublicKey
		Account solana.PublicKey
		Amount  uint64
	}
)

// Holdings lists the non-empty token accounts of owner, optionally for one mint.
func Holdings(ctx context.Context, client TokenAccountLister, owner solana.PublicKey, mint *solana.PublicKey) ([]Holding, error) {
	conf := &rpc.GetTokenAccountsConfig{ProgramId: solana.TokenProgramID.ToPointer()}
	if mint != nil {
		conf = &rpc.GetTokenAccountsConfig{Mint: mint}
	}
	ret, err := client.GetTokenAccountsByOwner(ctx, owner, conf, &rpc.GetTokenAccountsOpts{
		Commitment: rpc.CommitmentConfirmed,
		Encoding:   solana.EncodingBase64,
	})
	if err != nil {
		return nil, err
	}

	var holdings []Holding
	for _, v := range ret.Value {
		if v == nil || v.Account.Data == nil {
			continue
		}
		var account token.Account
		if err := account.UnmarshalWithDecoder(bin.NewBorshDecoder(v.Account.Data.GetBinary())); err != nil {
			continue
		}
		if account.Amount == 0 {
			continue
		}
		holdings = append(holdings, Holding{Mint: account.Mint, Account: v.Pubkey, Amount: account.Amount})
	}
	return holdings, nil
}

// PositionPnL values a holding at its sell quote against cost lamports.
func PositionPnL(h Holding, curve *pumpfun.CurveState, cost uint64) types.PositionPnL {
	sellQuote := pumpfun.SellQuote(h.Amount, curve)
	pnl := utils.LamportsToSol(sellQuote).Sub(utils.LamportsToSol(cost))
	pct := decimal.Zero
	if cost > 0 {
		pct = pnl.Div(utils.LamportsToSol(cost)).Mul(decimal.NewFromInt(100))
	}
	return types.PositionPnL{
		Mint:      h.Mint.String(),
		Tokens:    h.Amount,
		SellQuote: sellQuote,
		Cost:      cost,
		PnL:       pnl,
		PnLPct:    pct,
	}
}

// computePnL values every holding that still trades on a bonding curve. Cost
// comes from the position book when the buy happened in this process and
// from defaultCost otherwise.
func computePnL(ctx context.Context, holdings []Holding, curves CurveSource, book *PositionBook, defaultCost uint64, log *logrus.Logger) []types.PositionPnL {
	var out []types.PositionPnL
	for _, h := range holdings {
		curve, err := curves.Decode(ctx, pumpfun.FindBondingCurve(h.Mint))
		if err != nil {
			if !errors.Is(err, types.ErrAccountNotFound) {
				log.WithError(err).WithField("mint", h.Mint.String()).Debug("skipping holding")
			}
			continue
		}
		if curve.Complete {
			continue
		}

		cost := defaultCost
		if p, ok := book.Get(h.Mint); ok {
			cost = p.Cost
		}
		out = append(out, PositionPnL(h, curve, cost))
	}
	return out
}
