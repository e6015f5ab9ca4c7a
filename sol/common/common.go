package common

import "github.com/gagliardetto/solana-go"

const (
	LamportsPerSol = 1_000_000_000
	TokenDecimals  = 6

	RentBase  = 128
	RentPrice = 6960
	RentATA   = uint64((RentBase + 165) * RentPrice)
)

var (
	JitoRpc = "https://mainnet.block-engine.jito.wtf/api/v1/bundles"

	BloxrouteRpc = "https://ny.solana.dex.blxrbdn.com"

	PumpPortalWs = "wss://pumpportal.fun/api/data"

	HeliusApi = "https://api.helius.xyz"

	// tip account used for bundle submissions
	JitoTipAccount = solana.MPK("96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5")

	JitoTipPaymentAccounts = []solana.PublicKey{
		JitoTipAccount,
		solana.MPK("HFqU5x63VTqvQss8hp11i4wVV8bD44PvwucfZ2bU7gRe"),
		solana.MPK("Cw8CFyM9FkoMi7K7Crf6HNQqf4uEMzpKw6QNghXLvLkY"),
		solana.MPK("ADaUMid9yfUytqMBgopwjb2DTLSokTSzL1zt6iGPaS49"),
		solana.MPK("DfXygSm4jCyNCybVYYK6DwvWqjKee8pbDmJGcLWNDXjh"),
		solana.MPK("ADuUkR4vqLUMWXxW9gh6D6L8pMSawimctcNZ5pGwDcEt"),
		solana.MPK("DttWaMuVvTiduZRnguLF7jNxTgiMBZ1hyAumKUiL2KRL"),
		solana.MPK("3AVi9Tg9Uo68tJfuvoKvqKNWKkC5wPdSSdeBnizKZ6jT"),
	}

	BloxrouteTipWallet = solana.MPK("HWEoBxYs7ssKuudEjzjmpfJVX7Dvi7wescFsVx2L5yoY")

	BloxrouteMemoProgram = solana.MPK("HQ2UUt18uJqKaQFJhgV9zaTdQxUZjNrsKFgoEDquBkcx")
)

const BloxrouteMemo = "Powered by bloXroute Trader Api"
