package types

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

type (
	MetadataFetcher interface {
		FetchMetadata(ctx context.Context, intent *TradeIntent) (*TokenMetadata, error)
	}

	HolderFetcher interface {
		FetchHolders(ctx context.Context, mint, associatedCurve, creator solana.PublicKey) ([]Holder, error)
	}

	BalanceFetcher interface {
		FetchBalance(ctx context.Context, address solana.PublicKey) (uint64, error)
	}

	WalletAgeFetcher interface {
		FetchWalletAge(ctx context.Context, address solana.PublicKey) (int, error)
	}

	// TradeFilter returns ErrFiltered (wrapped) to skip a trade.
	TradeFilter interface {
		Accept(intent *TradeIntent, report *ContextReport) error
	}

	Narrator interface {
		Narrate(ctx context.Context, lines ...string) error
	}

	PositionPnL struct {
		Mint      string
		Tokens    uint64
		SellQuote uint64
		Cost      uint64
		PnL       decimal.Decimal
		PnLPct    decimal.Decimal
	}

	TraderInterface interface {
		Start() error
		Close() error
		Execute(ctx context.Context, intent *TradeIntent) (*TradeResult, error)
		Buy(ctx context.Context, mint solana.PublicKey, lamports uint64) (*TradeResult, error)
		Sell(ctx context.Context, mint solana.PublicKey, tokens uint64) (*TradeResult, error)
		RunAutonomous(ctx context.Context) error
		PnL(ctx context.Context) ([]PositionPnL, error)
		GetNativeTokenPrice() decimal.Decimal
	}
)
