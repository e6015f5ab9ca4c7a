package sol

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/meme-bots/pump-trader/metrics"
	"github.com/meme-bots/pump-trader/sol/common"
	"github.com/meme-bots/pump-trader/sol/pumpfun"
	"github.com/meme-bots/pump-trader/sol/relay"
	"github.com/meme-bots/pump-trader/types"
	"github.com/meme-bots/pump-trader/utils"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Client is the subset of *rpc.Client the engine reads through.
type Client interface {
	WatcherClient
	ProviderClient
	TransactionFetcher
}

type Engine struct {
	cfg      *types.Config
	client   Client
	watcher  *Watcher
	cache    *utils.Cache
	curves   *pumpfun.CurveDecoder
	pipeline *Pipeline
	book     *PositionBook
	tracker  *DevTracker
	redis    *redis.Client
	metrics  *http.Server
	log      *logrus.Logger

	ctx          context.Context
	cancel       context.CancelFunc
	subprocesses utils.Subprocesses
	exiting      sync.Map
}

var _ types.TraderInterface = (*Engine)(nil)

func NewSubmitter(cfg *types.Config, log *logrus.Logger) (relay.Submitter, error) {
	switch cfg.Relay {
	case types.RelayPriority:
		if cfg.BloxrouteAuth == "" {
			return nil, errors.New("bloxroute relay needs an authorization header")
		}
		return relay.NewBloxrouteRelay(cfg.BloxrouteURL, cfg.BloxrouteAuth, cfg.HTTPTimeout, log), nil
	case types.RelayBundle, "":
		return relay.NewJitoRelay(cfg.JitoURL, log), nil
	default:
		return nil, fmt.Errorf("unknown relay %q", cfg.Relay)
	}
}

// NewSubmitters builds every relay cfg has credentials for, keyed by kind.
// Intents pick among them by their Relay field.
func NewSubmitters(cfg *types.Config, log *logrus.Logger) map[types.RelayKind]relay.Submitter {
	relays := map[types.RelayKind]relay.Submitter{
		types.RelayBundle: relay.NewJitoRelay(cfg.JitoURL, log),
	}
	if cfg.BloxrouteAuth != "" {
		relays[types.RelayPriority] = relay.NewBloxrouteRelay(cfg.BloxrouteURL, cfg.BloxrouteAuth, cfg.HTTPTimeout, log)
	}
	return relays
}

func NewEngine(cfg *types.Config, log *logrus.Logger) (*Engine, error) {
	submitter, err := NewSubmitter(cfg, log)
	if err != nil {
		return nil, err
	}
	return NewEngineWithClient(cfg, rpc.New(cfg.RPC), submitter, log)
}

// NewEngineWithClient wires the engine around an existing RPC client and relay.
func NewEngineWithClient(cfg *types.Config, client Client, submitter relay.Submitter, log *logrus.Logger) (*Engine, error) {
	if len(cfg.PrivateKey) == 0 {
		return nil, errors.New("missing private key")
	}
	if log == nil {
		log = utils.NopLogger()
	}

	cache, err := utils.NewCache()
	if err != nil {
		return nil, err
	}

	encoder, err := pumpfun.NewSwapEncoder(cfg.Encoding)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		cfg:     cfg,
		client:  client,
		watcher: NewWatcher(client, cfg.WatchBlockHash, log),
		cache:   cache,
		curves:  pumpfun.NewCurveDecoder(client, cache, log),
		book:    NewPositionBook(),
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}

	providers := NewProviders(client, cache, ProviderConfig{
		HeliusURL:    cfg.HeliusURL,
		HeliusAPIKey: cfg.HeliusAPIKey,
		RateLimit:    cfg.ProviderRateLimit,
		HTTPTimeout:  cfg.HTTPTimeout,
	}, log)

	var narrator types.Narrator = NewLogNarrator(log)
	if cfg.RedisAddr != "" {
		e.redis = NewRedisClient(cfg.RedisAddr)
		if narrator, err = NewRedisNarrator(e.redis, log); err != nil {
			return nil, err
		}
	}

	deps := PipelineDeps{
		Curves:    e.curves,
		Blockhash: e.watcher,
		Assembler: pumpfun.NewAssembler(pumpfun.AssemblerConfigFor(cfg), encoder),
		Submitter: submitter,
		Relays:    NewSubmitters(cfg, log),
		Signer:    cfg.PrivateKey,
		TipSigner: cfg.TipSigner(),
		Metadata:  providers,
		Holders:   providers,
		Balances:  providers,
		Filter:    NewThresholdFilter(cfg),
		Narrator:  narrator,
		Log:       log,
	}
	if cfg.HeliusAPIKey != "" {
		deps.Ages = providers
	}
	e.pipeline = NewPipeline(deps, PipelineConfig{
		DetectionDeadline: cfg.DetectionDeadline,
		SellPolicy:        relay.PolicyFromConfig(cfg),
		PollDelay:         cfg.StatusPollDelay,
	})

	if cfg.TrackDev {
		url := cfg.PumpPortalURL
		if url == "" {
			url = common.PumpPortalWs
		}
		e.tracker = NewDevTracker(url, e.onCreatorSell, log)
	}
	return e, nil
}

func (e *Engine) Start() error {
	if err := e.watcher.Start(); err != nil {
		return err
	}
	if e.cfg.MetricsAddr != "" {
		e.metrics = metrics.Serve(e.cfg.MetricsAddr)
	}
	if e.tracker != nil {
		e.subprocesses.Go(func() {
			_ = e.tracker.Run(e.ctx)
		})
	}
	e.log.WithFields(logrus.Fields{
		"wallet": e.pipeline.Owner().String(),
		"relay":  e.cfg.Relay,
		"policy": relay.PolicyFromConfig(e.cfg).String(),
	}).Info("engine started")
	return nil
}

func (e *Engine) Close() error {
	e.cancel()
	e.subprocesses.Wait()

	err := e.watcher.Close()
	if e.metrics != nil {
		_ = e.metrics.Close()
	}
	if e.redis != nil {
		_ = e.redis.Close()
	}
	e.cache.Close()
	return err
}

func (e *Engine) GetNativeTokenPrice() decimal.Decimal {
	return e.watcher.GetSolPrice()
}

func (e *Engine) Positions() *PositionBook {
	return e.book
}

// Execute runs intent and keeps the position book in line with the outcome.
func (e *Engine) Execute(ctx context.Context, intent *types.TradeIntent) (*types.TradeResult, error) {
	if intent.SlippageBps == 0 {
		if intent.Direction == types.DirectionSell {
			intent.SlippageBps = e.cfg.SellSlippageBps
		} else {
			intent.SlippageBps = e.cfg.SlippageBps
		}
	}
	if intent.Relay == "" {
		intent.Relay = e.cfg.Relay
	}

	result, err := e.pipeline.Execute(ctx, intent)
	if err != nil || result.State != types.StateSuccess {
		return result, err
	}

	if intent.Direction == types.DirectionBuy {
		e.book.Open(Position{
			Mint:                   intent.Mint,
			BondingCurve:           intent.BondingCurve,
			AssociatedBondingCurve: intent.AssociatedBondingCurve,
			Creator:                intent.Creator,
			Tokens:                 result.OutputAmount,
			Cost:                   intent.Amount,
		})
		if e.tracker != nil && !intent.Creator.IsZero() {
			if err := e.tracker.Track(intent.Creator); err != nil {
				e.log.WithError(err).Warn("creator tracking failed")
			}
		}
	} else {
		e.book.Reduce(intent.Mint, intent.Amount)
	}
	return result, nil
}

func (e *Engine) Buy(ctx context.Context, mint solana.PublicKey, lamports uint64) (*types.TradeResult, error) {
	if lamports == 0 {
		lamports = e.cfg.BuyAmount
	}
	return e.Execute(ctx, &types.TradeIntent{
		Mint:      mint,
		Direction: types.DirectionBuy,
		Amount:    lamports,
		Trigger:   types.TriggerManual,
	})
}

// Sell sells tokens of mint, or the whole wallet balance when tokens is zero.
func (e *Engine) Sell(ctx context.Context, mint solana.PublicKey, tokens uint64) (*types.TradeResult, error) {
	if tokens == 0 {
		holdings, err := Holdings(ctx, e.client, e.pipeline.Owner(), &mint)
		if err != nil {
			return nil, err
		}
		for _, h := range holdings {
			tokens += h.Amount
		}
		if tokens == 0 {
			return nil, fmt.Errorf("%w: %s", types.ErrNoPosition, mint)
		}
	}

	intent := &types.TradeIntent{
		Mint:      mint,
		Direction: types.DirectionSell,
		Amount:    tokens,
		Trigger:   types.TriggerManual,
	}
	if p, ok := e.book.Get(mint); ok {
		intent.BondingCurve = p.BondingCurve
		intent.AssociatedBondingCurve = p.AssociatedBondingCurve
		intent.Creator = p.Creator
	}
	return e.Execute(ctx, intent)
}

// onCreatorSell exits every position opened on mint when its creator sells.
func (e *Engine) onCreatorSell(creator, mint solana.PublicKey) {
	p, ok := e.book.Get(mint)
	if !ok || !p.Creator.Equals(creator) {
		return
	}
	if _, busy := e.exiting.LoadOrStore(mint, struct{}{}); busy {
		return
	}
	e.subprocesses.Go(func() {
		defer e.exiting.Delete(mint)
		_, _ = e.Execute(e.ctx, &types.TradeIntent{
			Mint:                   p.Mint,
			BondingCurve:           p.BondingCurve,
			AssociatedBondingCurve: p.AssociatedBondingCurve,
			Creator:                p.Creator,
			Direction:              types.DirectionSell,
			Amount:                 p.Tokens,
			Trigger:                types.TriggerAutonomous,
		})
	})
}

// RunAutonomous buys every launch the detector reports until ctx is done.
func (e *Engine) RunAutonomous(ctx context.Context) error {
	detector := NewDetector(e.client, DetectorConfig{
		BuyAmount:         e.cfg.BuyAmount,
		SlippageBps:       e.cfg.SlippageBps,
		Relay:             e.cfg.Relay,
		RequirePumpSuffix: e.cfg.RequirePumpSuffix,
	}, e.log)

	err := detector.Run(ctx, e.cfg.WSRPC, func(intent *types.TradeIntent) {
		e.subprocesses.Go(func() {
			_, _ = e.Execute(ctx, intent)
		})
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (e *Engine) PnL(ctx context.Context) ([]types.PositionPnL, error) {
	holdings, err := Holdings(ctx, e.client, e.pipeline.Owner(), nil)
	if err != nil {
		return nil, err
	}
	return computePnL(ctx, holdings, e.curves, e.book, e.cfg.BuyAmount, e.log), nil
}
