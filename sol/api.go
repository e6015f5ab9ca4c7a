package sol

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/meme-bots/pump-trader/sol/common"
	"github.com/meme-bots/pump-trader/types"
	"github.com/meme-bots/pump-trader/utils"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type (
	ProviderClient interface {
		GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error)
		GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error)
		GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, conf *rpc.GetTokenAccountsConfig, opts *rpc.GetTokenAccountsOpts) (*rpc.GetTokenAccountsResult, error)
		GetTokenLargestAccounts(ctx context.Context, mint solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenLargestAccountsResult, error)
		GetTokenSupply(ctx context.Context, mint solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenSupplyResult, error)
	}

	ProviderConfig struct {
		HeliusURL    string
		HeliusAPIKey string
		RateLimit    float64 // requests per second, <= 0 disables limiting
		HTTPTimeout  time.Duration
	}

	// Providers gathers the launch context used by the trade filter. Every
	// lookup is cached and every third-party HTTP call is rate limited.
	Providers struct {
		client    ProviderClient
		http      *http.Client
		limiter   *rate.Limiter
		cache     *utils.Cache
		heliusURL string
		heliusKey string
		now       func() time.Time
		log       *logrus.Logger
	}

	heliusTransaction struct {
		Signature string `json:"signature"`
		Timestamp int64  `json:"timestamp"`
	}
)

const (
	MaxHolders = 10

	MetadataTTL  = 5 * time.Minute
	HoldersTTL   = 30 * time.Second
	BalanceTTL   = 30 * time.Second
	WalletAgeTTL = time.Hour
)

func NewProviders(client ProviderClient, cache *utils.Cache, cfg ProviderConfig, log *logrus.Logger) *Providers {
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	timeout := cfg.HTTPTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	heliusURL := cfg.HeliusURL
	if heliusURL == "" {
		heliusURL = common.HeliusApi
	}
	return &Providers{
		client:    client,
		http:      &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(limit, 1),
		cache:     cache,
		heliusURL: heliusURL,
		heliusKey: cfg.HeliusAPIKey,
		now:       time.Now,
		log:       log,
	}
}

func withCache[T any](ctx context.Context, c *utils.Cache, key string, ttl time.Duration, fetch func() (T, error)) (T, error) {
	var v T
	if c.GetJSON(ctx, key, &v) {
		return v, nil
	}
	v, err := fetch()
	if err != nil {
		return v, err
	}
	_ = c.SetJSON(ctx, key, v, ttl)
	return v, nil
}

func (p *Providers) getJSON(ctx context.Context, url string, out interface{}) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("GET %s: status %d", req.URL.Host+req.URL.Path, resp.StatusCode)
	}
	return json.Unmarshal(body, out)
}

// FetchMetadata reads name, symbol and uri from the create instruction when
// the launch detector captured it, or from the Metaplex metadata account,
// then fetches the JSON document at the uri.
func (p *Providers) FetchMetadata(ctx context.Context, intent *types.TradeIntent) (*types.TokenMetadata, error) {
	return withCache(ctx, p.cache, "metadata:"+intent.Mint.String(), MetadataTTL, func() (*types.TokenMetadata, error) {
		var name, symbol, uri string
		if len(intent.CreateData) > 0 {
			args, err := common.CreateArgsDeserialize(intent.CreateData)
			if err != nil {
				return nil, fmt.Errorf("decode create args: %w", err)
			}
			name, symbol, uri = args.Name, args.Symbol, args.Uri
		} else {
			metaAddress, _, err := solana.FindTokenMetadataAddress(intent.Mint)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", types.ErrAccountDerivationFailed, err)
			}
			account, err := p.client.GetAccountInfoWithOpts(ctx, metaAddress, &rpc.GetAccountInfoOpts{Commitment: rpc.CommitmentConfirmed})
			if err != nil || account == nil || account.Value == nil {
				return nil, fmt.Errorf("%w: metadata %s", types.ErrAccountNotFound, metaAddress)
			}
			meta, err := common.MetadataDeserialize(account.Value.Data.GetBinary())
			if err != nil {
				return nil, err
			}
			name = utils.TrimSpace(meta.Data.Name)
			symbol = utils.TrimSpace(meta.Data.Symbol)
			uri = utils.TrimSpace(meta.Data.Uri)
		}

		metadata := &types.TokenMetadata{}
		if uri != "" {
			if err := p.getJSON(ctx, uri, metadata); err != nil {
				return nil, fmt.Errorf("fetch metadata uri: %w", err)
			}
		}
		if metadata.Name == "" {
			metadata.Name = name
		}
		if metadata.Symbol == "" {
			metadata.Symbol = symbol
		}
		metadata.URI = uri
		return metadata, nil
	})
}

// FetchHolders returns up to MaxHolders of the largest token accounts of
// mint, labelled against the bonding curve and the creator's token account.
func (p *Providers) FetchHolders(ctx context.Context, mint, associatedCurve, creator solana.PublicKey) ([]types.Holder, error) {
	return withCache(ctx, p.cache, "holders:"+mint.String(), HoldersTTL, func() ([]types.Holder, error) {
		devAccounts, err := p.client.GetTokenAccountsByOwner(ctx, creator, &rpc.GetTokenAccountsConfig{Mint: &mint}, &rpc.GetTokenAccountsOpts{Commitment: rpc.CommitmentConfirmed, Encoding: solana.EncodingBase64})
		if err != nil {
			return nil, err
		}
		var devATA solana.PublicKey
		if len(devAccounts.Value) > 0 {
			devATA = devAccounts.Value[0].Pubkey
		}

		largest, err := p.client.GetTokenLargestAccounts(ctx, mint, rpc.CommitmentConfirmed)
		if err != nil {
			return nil, err
		}
		supplyResult, err := p.client.GetTokenSupply(ctx, mint, rpc.CommitmentConfirmed)
		if err != nil {
			return nil, err
		}
		if supplyResult.Value == nil {
			return nil, types.ErrNotFound
		}
		supply, err := strconv.ParseUint(supplyResult.Value.Amount, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("token supply %q: %w", supplyResult.Value.Amount, err)
		}

		holders := make([]types.Holder, 0, MaxHolders)
		for _, account := range lo.Slice(largest.Value, 0, MaxHolders) {
			if account == nil {
				continue
			}
			amount, err := strconv.ParseUint(account.Amount, 10, 64)
			if err != nil {
				continue
			}
			label := types.HolderLabelHolder
			if account.Address.Equals(associatedCurve) {
				label = types.HolderLabelBondingCurve
			} else if !devATA.IsZero() && account.Address.Equals(devATA) {
				label = types.HolderLabelCreator
			}
			holders = append(holders, types.Holder{
				Label:   label,
				Address: account.Address.String(),
				Amount:  amount,
				Pct:     holderPct(amount, supply),
			})
		}
		return holders, nil
	})
}

// holderPct is floor(amount*10000/supply)/100 in integer math.
func holderPct(amount, supply uint64) uint64 {
	if supply == 0 {
		return 0
	}
	v := new(big.Int).Mul(new(big.Int).SetUint64(amount), big.NewInt(10000))
	v.Div(v, new(big.Int).SetUint64(supply))
	v.Div(v, big.NewInt(100))
	return v.Uint64()
}

func (p *Providers) FetchBalance(ctx context.Context, address solana.PublicKey) (uint64, error) {
	return withCache(ctx, p.cache, "balance:"+address.String(), BalanceTTL, func() (uint64, error) {
		balance, err := p.client.GetBalance(ctx, address, rpc.CommitmentConfirmed)
		if err != nil {
			return 0, err
		}
		return balance.Value, nil
	})
}

// FetchWalletAge returns the age in whole days, rounded up, of the oldest
// transaction Helius returns for address. A wallet without history is 0 days old.
func (p *Providers) FetchWalletAge(ctx context.Context, address solana.PublicKey) (int, error) {
	return withCache(ctx, p.cache, "age:"+address.String(), WalletAgeTTL, func() (int, error) {
		url := fmt.Sprintf("%s/v0/addresses/%s/transactions?api-key=%s", p.heliusURL, address, p.heliusKey)
		var txs []heliusTransaction
		if err := p.getJSON(ctx, url, &txs); err != nil {
			return 0, err
		}
		if len(txs) == 0 {
			return 0, nil
		}
		return walletAgeDays(p.now(), txs[len(txs)-1].Timestamp), nil
	})
}

func walletAgeDays(now time.Time, timestamp int64) int {
	diff := math.Abs(float64(now.UnixMilli() - timestamp*1000))
	return int(math.Ceil(diff / float64(24*time.Hour/time.Millisecond)))
}
