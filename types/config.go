package types

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

type (
	Config struct {
		RPC            string
		WSRPC          string
		WatchBlockHash bool

		PrivateKey    solana.PrivateKey
		TipPrivateKey solana.PrivateKey // optional, defaults to PrivateKey

		BuyAmount        uint64 // lamports
		SlippageBps      uint64
		SellSlippageBps  uint64 // 10000 => minimum output of zero
		ComputeUnitPrice uint64 // micro-lamports per unit
		ComputeUnitLimit uint32
		TipLamports      uint64

		Relay         RelayKind
		JitoURL       string
		BloxrouteURL  string
		BloxrouteAuth string
		Encoding      string // raw | program

		DetectionDeadline time.Duration
		SellMaxAttempts   int
		SellMaxElapsed    time.Duration
		SellRetryBackoff  time.Duration
		StatusPollDelay   time.Duration

		HeliusAPIKey        string
		HeliusURL           string
		RedisAddr           string
		PumpPortalURL       string
		TrackDev            bool
		RequirePumpSuffix   bool
		MinDevWalletAgeDays int
		MinBondingCurvePct  uint64
		MaxCreatorPct       uint64
		ProviderRateLimit   float64 // requests per second for third-party APIs
		HTTPTimeout         time.Duration
		MetricsAddr         string
		LogLevel            string
		LogJSON             bool
	}
)

func (c *Config) TipSigner() solana.PrivateKey {
	if len(c.TipPrivateKey) == 0 {
		return c.PrivateKey
	}
	return c.TipPrivateKey
}
