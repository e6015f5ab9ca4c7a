package utils

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// CalculatePriceImpact returns the percentage move of the quote/base price
// caused by adding solIncrement to the quote reserve.
func CalculatePriceImpact(baseReserve, quoteReserve, solIncrement *big.Int) decimal.Decimal {
	if baseReserve.Sign() == 0 || quoteReserve.Sign() == 0 {
		return decimal.Zero
	}
	K := new(big.Int).Mul(baseReserve, quoteReserve)
	newQuoteReserve := new(big.Int).Add(quoteReserve, solIncrement)
	newBaseReserve := new(big.Int).Div(K, newQuoteReserve)
	oldPrice := decimal.NewFromBigInt(quoteReserve, 0).Div(decimal.NewFromBigInt(baseReserve, 0))
	newPrice := decimal.NewFromBigInt(newQuoteReserve, 0).Div(decimal.NewFromBigInt(newBaseReserve, 0))
	return newPrice.Sub(oldPrice).Mul(decimal.NewFromInt(100)).Div(oldPrice)
}

func LamportsToSol(lamports uint64) decimal.Decimal {
	return decimal.NewFromUint64(lamports).Div(decimal.New(1, 9))
}

func RawToTokens(raw uint64, decimals int32) decimal.Decimal {
	return decimal.NewFromUint64(raw).Div(decimal.New(1, decimals))
}
