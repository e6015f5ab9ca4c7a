package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gagliardetto/solana-go"
	pumptrader "github.com/meme-bots/pump-trader"
	"github.com/meme-bots/pump-trader/config"
	"github.com/meme-bots/pump-trader/sol/common"
	"github.com/meme-bots/pump-trader/types"
	"github.com/meme-bots/pump-trader/utils"
	"github.com/sirupsen/logrus"
)

func main() {
	mode := flag.String("mode", "afk", "afk | buy | sell | pnl")
	mintFlag := flag.String("mint", "", "token mint for buy and sell")
	amount := flag.Uint64("amount", 0, "lamports to spend on a buy, raw tokens to sell (0 = configured buy amount / whole balance)")
	envFile := flag.String("env", ".env", "dotenv file to load")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Println("invalid configuration:", err)
		os.Exit(2)
	}
	log := utils.NewLogger(cfg.LogLevel, cfg.LogJSON)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	trader, err := pumptrader.NewTrader(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to init trader")
	}
	if err = trader.Start(); err != nil {
		log.WithError(err).Fatal("failed to start trader")
	}
	defer trader.Close()

	if err = run(ctx, trader, *mode, *mintFlag, *amount, log); err != nil {
		log.WithError(err).Error(*mode + " failed")
		trader.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, trader types.TraderInterface, mode, mintFlag string, amount uint64, log *logrus.Logger) error {
	switch mode {
	case "afk":
		return trader.RunAutonomous(ctx)
	case "buy", "sell":
		mint, err := solana.PublicKeyFromBase58(mintFlag)
		if err != nil {
			return fmt.Errorf("-mint: %w", err)
		}
		var result *types.TradeResult
		if mode == "buy" {
			result, err = trader.Buy(ctx, mint, amount)
		} else {
			result, err = trader.Sell(ctx, mint, amount)
		}
		if result != nil && result.Receipt != nil {
			log.WithFields(logrus.Fields{
				"state":    result.State.String(),
				"attempts": result.Attempts,
				"relay":    result.Receipt.Relay,
				"id":       result.Receipt.SubmissionID,
			}).Info(mode + " finished")
		}
		return err
	case "pnl":
		positions, err := trader.PnL(ctx)
		if err != nil {
			return err
		}
		price := trader.GetNativeTokenPrice()
		for _, p := range positions {
			tokens, _ := utils.RawToTokens(p.Tokens, common.TokenDecimals).Float64()
			fmt.Printf("%s  %8s tokens  value %s SOL  pnl %s SOL (%s%%)  $%s\n",
				p.Mint,
				utils.PrettyFloat(tokens),
				utils.AbbreviateDecimal(utils.LamportsToSol(p.SellQuote)),
				p.PnL.StringFixed(4),
				p.PnLPct.StringFixed(2),
				p.PnL.Mul(price).StringFixed(2),
			)
		}
		return nil
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}
