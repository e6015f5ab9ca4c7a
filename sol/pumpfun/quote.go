package pumpfun

import (
	"math/big"

	"github.com/meme-bots/pump-trader/types"
	"github.com/meme-bots/pump-trader/utils"
	"github.com/shopspring/decimal"
)

const BpsDenominator = 10000

type (
	QuoteRequest struct {
		Direction types.Direction
		Amount    uint64
		Curve     *CurveState
	}

	QuoteResult struct {
		OutputAmount uint64
	}
)

func Quote(req *QuoteRequest) QuoteResult {
	if req.Direction == types.DirectionSell {
		return QuoteResult{OutputAmount: SellQuote(req.Amount, req.Curve)}
	}
	return QuoteResult{OutputAmount: BuyQuote(req.Amount, req.Curve)}
}

// BuyQuote returns the tokens received for solIn lamports, never more than
// the real token reserves.
func BuyQuote(solIn uint64, curve *CurveState) uint64 {
	if solIn == 0 || curve == nil {
		return 0
	}

	k := new(big.Int).Mul(new(big.Int).SetUint64(curve.VirtualSolReserves), new(big.Int).SetUint64(curve.VirtualTokenReserves))
	i := new(big.Int).Add(new(big.Int).SetUint64(curve.VirtualSolReserves), new(big.Int).SetUint64(solIn))
	r := new(big.Int).Add(new(big.Int).Div(k, i), big.NewInt(1))
	s := new(big.Int).Sub(new(big.Int).SetUint64(curve.VirtualTokenReserves), r)
	if s.Sign() <= 0 {
		return 0
	}

	max := new(big.Int).SetUint64(curve.RealTokenReserves)
	if s.Cmp(max) < 0 {
		return s.Uint64()
	} else {
		return max.Uint64()
	}
}

// SellQuote returns the lamports received for tokensIn. Real SOL reserves are
// not consulted.
func SellQuote(tokensIn uint64, curve *CurveState) uint64 {
	if tokensIn == 0 || curve == nil {
		return 0
	}

	k := new(big.Int).Mul(new(big.Int).SetUint64(curve.VirtualSolReserves), new(big.Int).SetUint64(curve.VirtualTokenReserves))
	i := new(big.Int).Add(new(big.Int).SetUint64(curve.VirtualTokenReserves), new(big.Int).SetUint64(tokensIn))
	r := new(big.Int).Div(k, i)
	s := new(big.Int).Sub(new(big.Int).SetUint64(curve.VirtualSolReserves), r)
	if s.Sign() <= 0 {
		return 0
	}
	return s.Uint64()
}

func MaxSolCost(solIn, slippageBps uint64) uint64 {
	v := new(big.Int).Mul(new(big.Int).SetUint64(solIn), new(big.Int).SetUint64(slippageBps))
	v.Div(v, big.NewInt(BpsDenominator))
	v.Add(v, new(big.Int).SetUint64(solIn))
	if !v.IsUint64() {
		return ^uint64(0)
	}
	return v.Uint64()
}

// MinSolOutput applies the sell slippage. 10000 bps or more accepts any output.
func MinSolOutput(solOut, slippageBps uint64) uint64 {
	if slippageBps >= BpsDenominator {
		return 0
	}
	v := new(big.Int).Mul(new(big.Int).SetUint64(solOut), new(big.Int).SetUint64(BpsDenominator-slippageBps))
	v.Div(v, big.NewInt(BpsDenominator))
	return v.Uint64()
}

func PriceImpact(curve *CurveState, solIn uint64) decimal.Decimal {
	return utils.CalculatePriceImpact(
		new(big.Int).SetUint64(curve.VirtualTokenReserves),
		new(big.Int).SetUint64(curve.VirtualSolReserves),
		new(big.Int).SetUint64(solIn),
	)
}
