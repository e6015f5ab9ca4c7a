package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/meme-bots/pump-trader/types"
	"github.com/meme-bots/pump-trader/utils"
)

const (
	DefaultRPC   = "https://api.mainnet-beta.solana.com"
	DefaultWSRPC = "wss://api.mainnet-beta.solana.com"
)

// Load reads the process configuration from the environment. envFile, when
// set and present, is loaded first; variables already in the environment win.
func Load(envFile string) (*types.Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := &types.Config{
		// RPC
		RPC:            getEnv("SOLANA_RPC_URL", DefaultRPC),
		WSRPC:          getEnv("SOLANA_WS_URL", DefaultWSRPC),
		WatchBlockHash: getBoolEnv("WATCH_BLOCKHASH", true),

		// Trading
		BuyAmount:        getUint64Env("BUY_AMOUNT_LAMPORTS", 100_000_000),
		SlippageBps:      getUint64Env("SLIPPAGE_BPS", 1_500),
		SellSlippageBps:  getUint64Env("SELL_SLIPPAGE_BPS", 10_000),
		ComputeUnitPrice: getUint64Env("COMPUTE_UNIT_PRICE", 100_000),
		ComputeUnitLimit: uint32(getUint64Env("COMPUTE_UNIT_LIMIT", 140_000)),
		TipLamports:      getUint64Env("TIP_LAMPORTS", 100_000),
		Encoding:         getEnv("ENCODING", "raw"),

		// Relay
		Relay:         types.RelayKind(strings.ToLower(getEnv("RELAY", string(types.RelayBundle)))),
		JitoURL:       getEnv("JITO_URL", ""),
		BloxrouteURL:  getEnv("BLOXROUTE_URL", ""),
		BloxrouteAuth: getEnv("BLOXROUTE_AUTH", ""),

		// Orchestration
		DetectionDeadline: getDurationEnv("DETECTION_DEADLINE", 10*time.Second),
		SellMaxAttempts:   getIntEnv("SELL_MAX_ATTEMPTS", 0),
		SellMaxElapsed:    getDurationEnv("SELL_MAX_ELAPSED", 0),
		SellRetryBackoff:  getDurationEnv("SELL_RETRY_BACKOFF", 0),
		StatusPollDelay:   getDurationEnv("STATUS_POLL_DELAY", 2*time.Second),

		// Launch context
		HeliusAPIKey:        getEnv("HELIUS_API_KEY", ""),
		HeliusURL:           getEnv("HELIUS_URL", ""),
		RedisAddr:           getEnv("REDIS_ADDR", ""),
		PumpPortalURL:       getEnv("PUMPPORTAL_URL", ""),
		TrackDev:            getBoolEnv("TRACK_DEV", false),
		RequirePumpSuffix:   getBoolEnv("REQUIRE_PUMP_SUFFIX", true),
		MinDevWalletAgeDays: getIntEnv("MIN_DEV_WALLET_AGE_DAYS", 0),
		MinBondingCurvePct:  getUint64Env("MIN_BONDING_CURVE_PCT", 80),
		MaxCreatorPct:       getUint64Env("MAX_CREATOR_PCT", 20),
		ProviderRateLimit:   getFloatEnv("PROVIDER_RATE_LIMIT", 5),
		HTTPTimeout:         getDurationEnv("HTTP_TIMEOUT", 10*time.Second),

		// Observability
		MetricsAddr: getEnv("METRICS_ADDR", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogJSON:     getBoolEnv("LOG_JSON", false),
	}

	key, err := utils.ParsePrivateKey(os.Getenv("PRIVATE_KEY"))
	if err != nil {
		return nil, fmt.Errorf("PRIVATE_KEY: %w", err)
	}
	cfg.PrivateKey = key

	if tip := os.Getenv("TIP_PRIVATE_KEY"); tip != "" {
		if cfg.TipPrivateKey, err = utils.ParsePrivateKey(tip); err != nil {
			return nil, fmt.Errorf("TIP_PRIVATE_KEY: %w", err)
		}
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Validate(cfg *types.Config) error {
	switch cfg.Relay {
	case types.RelayBundle:
	case types.RelayPriority:
		if cfg.BloxrouteAuth == "" {
			return errors.New("RELAY=bloxroute needs BLOXROUTE_AUTH")
		}
	default:
		return fmt.Errorf("RELAY: unknown relay %q", cfg.Relay)
	}
	if cfg.Encoding != "raw" && cfg.Encoding != "program" {
		return fmt.Errorf("ENCODING: unknown encoding %q", cfg.Encoding)
	}
	if cfg.SlippageBps > 10_000 || cfg.SellSlippageBps > 10_000 {
		return errors.New("slippage cannot exceed 10000 bps")
	}
	if cfg.MaxCreatorPct > 100 || cfg.MinBondingCurvePct > 100 {
		return errors.New("holder thresholds are percentages")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getUint64Env(key string, defaultVal uint64) uint64 {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.ParseUint(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

func getFloatEnv(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
