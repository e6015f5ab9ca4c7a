package sol

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/gagliardetto/solana-go"
	"github.com/meme-bots/pump-trader/metrics"
	"github.com/meme-bots/pump-trader/sol/pumpfun"
	"github.com/meme-bots/pump-trader/sol/relay"
	"github.com/meme-bots/pump-trader/types"
	"github.com/meme-bots/pump-trader/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const DefaultDetectionDeadline = 10 * time.Second

type (
	CurveSource interface {
		Decode(ctx context.Context, curve solana.PublicKey) (*pumpfun.CurveState, error)
		Invalidate(ctx context.Context, curve solana.PublicKey)
	}

	BlockhashSource interface {
		BlockHash(ctx context.Context) (solana.Hash, error)
	}

	PipelineDeps struct {
		Curves    CurveSource
		Blockhash BlockhashSource
		Assembler *pumpfun.Assembler
		// Submitter serves intents that name no relay or its own kind.
		Submitter relay.Submitter
		Relays    map[types.RelayKind]relay.Submitter
		Signer    solana.PrivateKey
		TipSigner solana.PrivateKey

		// launch context, all optional
		Metadata types.MetadataFetcher
		Holders  types.HolderFetcher
		Balances types.BalanceFetcher
		Ages     types.WalletAgeFetcher
		Filter   types.TradeFilter
		Narrator types.Narrator

		Log *logrus.Logger
	}

	PipelineConfig struct {
		DetectionDeadline time.Duration
		SellPolicy        relay.RetryPolicy
		PollDelay         time.Duration

		Now   func() time.Time
		Sleep func(ctx context.Context, d time.Duration) error
	}

	// Pipeline drives trade intents through quote, assembly, signing and
	// submission. It is safe for concurrent use; each Execute is one run.
	Pipeline struct {
		PipelineDeps
		cfg PipelineConfig
	}

	snapshot struct {
		curve     *pumpfun.CurveState
		blockhash solana.Hash
		report    *types.ContextReport
	}

	run struct {
		p         *Pipeline
		intent    *types.TradeIntent
		submitter relay.Submitter
		curve     solana.PublicKey
		state   types.State
		entered time.Time
		attempt int
		log     *logrus.Entry
	}
)

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func NewPipeline(deps PipelineDeps, cfg PipelineConfig) *Pipeline {
	if cfg.DetectionDeadline == 0 {
		cfg.DetectionDeadline = DefaultDetectionDeadline
	}
	if cfg.SellPolicy == nil {
		cfg.SellPolicy = relay.Unbounded()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	if deps.Log == nil {
		deps.Log = utils.NopLogger()
	}
	if len(deps.TipSigner) == 0 {
		deps.TipSigner = deps.Signer
	}
	return &Pipeline{PipelineDeps: deps, cfg: cfg}
}

func (p *Pipeline) Owner() solana.PublicKey {
	return p.Signer.PublicKey()
}

// submitter picks the relay named by the intent.
func (p *Pipeline) submitter(kind types.RelayKind) (relay.Submitter, error) {
	if p.Submitter != nil && (kind == "" || p.Submitter.Kind() == kind) {
		return p.Submitter, nil
	}
	if s, ok := p.Relays[kind]; ok && s != nil {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %q", types.ErrRelayUnavailable, kind)
}

// Execute runs intent to a terminal state. The result is always returned; the
// error is a *types.TradeError when the run ends Failed or Skipped.
func (p *Pipeline) Execute(ctx context.Context, intent *types.TradeIntent) (*types.TradeResult, error) {
	r := &run{
		p:       p,
		intent:  intent,
		state:   types.StateIdle,
		entered: p.cfg.Now(),
		log: p.Log.WithFields(logrus.Fields{
			"mint":      intent.Mint.String(),
			"direction": intent.Direction.String(),
			"trigger":   intent.Trigger.String(),
			"relay":     intent.Relay,
		}),
	}

	var result *types.TradeResult
	curve, _, err := pumpfun.CurveAccounts(intent)
	if err == nil {
		r.submitter, err = p.submitter(intent.Relay)
	}
	if err != nil {
		result = r.finish(types.StateFailed, nil, 0, err)
	} else {
		r.curve = curve
		r.transition(types.StateDetecting)
		if intent.Direction == types.DirectionSell {
			result = r.sell(ctx)
		} else {
			result = r.buy(ctx)
		}
	}

	metrics.TradesTotal.WithLabelValues(intent.Direction.String(), result.State.String()).Inc()
	if result.Err != nil {
		return result, result.Err
	}
	return result, nil
}

func (r *run) transition(next types.State) {
	now := r.p.cfg.Now()
	if r.state != types.StateIdle {
		metrics.StageSeconds.WithLabelValues(r.state.String()).Observe(now.Sub(r.entered).Seconds())
	}
	r.state = next
	r.entered = now
	metrics.TransitionsTotal.WithLabelValues(next.String()).Inc()
	r.log.WithFields(logrus.Fields{"state": next.String(), "attempt": r.attempt}).Debug("transition")
}

// finish moves to a terminal state. Skipped and Failed runs carry a TradeError
// naming the stage that was active when err happened.
func (r *run) finish(terminal types.State, receipt *types.RelayReceipt, output uint64, err error) *types.TradeResult {
	stage := r.state
	result := &types.TradeResult{
		Intent:       r.intent,
		Attempts:     r.attempt,
		Receipt:      receipt,
		OutputAmount: output,
	}
	if err != nil {
		result.Err = &types.TradeError{Intent: r.intent, Stage: stage, Err: err}
	}
	r.transition(terminal)
	result.State = terminal

	entry := r.log.WithFields(logrus.Fields{"state": terminal.String(), "attempt": r.attempt})
	switch terminal {
	case types.StateSuccess:
		entry.WithField("output", output).Info("trade done")
	case types.StateSkipped:
		entry.WithError(err).Info("trade skipped")
	default:
		entry.WithError(result.Err).Error("trade failed")
	}
	return result
}

func skippable(err error) bool {
	return errors.Is(err, types.ErrDeadlineExceeded) || errors.Is(err, types.ErrFiltered)
}

func (r *run) buy(ctx context.Context) *types.TradeResult {
	r.attempt = 1
	receipt, output, err := r.once(ctx)
	if err == nil {
		return r.finish(types.StateSuccess, receipt, output, nil)
	}
	if skippable(err) {
		return r.finish(types.StateSkipped, nil, 0, err)
	}
	return r.finish(types.StateFailed, nil, 0, err)
}

// sell repeats the whole pipeline until one attempt succeeds or the retry
// policy gives up. Every retry starts from a fresh curve read.
func (r *run) sell(ctx context.Context) *types.TradeResult {
	start := r.p.cfg.Now()
	for {
		r.attempt++
		receipt, output, err := r.once(ctx)
		if err == nil {
			return r.finish(types.StateSuccess, receipt, output, nil)
		}
		if skippable(err) {
			return r.finish(types.StateSkipped, nil, 0, err)
		}

		r.log.WithError(err).WithFields(logrus.Fields{"state": r.state.String(), "attempt": r.attempt}).Warn("sell attempt failed")
		r.p.Curves.Invalidate(ctx, r.curve)

		wait, ok := r.p.cfg.SellPolicy.Next(r.attempt, r.p.cfg.Now().Sub(start))
		if !ok {
			return r.finish(types.StateFailed, nil, 0, fmt.Errorf("%w after %d attempts: %w", types.ErrRetryExhausted, r.attempt, err))
		}
		if err := r.p.cfg.Sleep(ctx, wait); err != nil {
			return r.finish(types.StateFailed, nil, 0, err)
		}
		r.transition(types.StateFetchingContext)
	}
}

// launch reports whether intent is a detected launch, which is bound by the
// detection deadline and goes through the context providers and the filter.
func (r *run) launch() bool {
	return r.intent.Trigger == types.TriggerAutonomous && r.intent.Direction == types.DirectionBuy
}

func (r *run) checkDeadline() error {
	if !r.launch() || r.intent.DetectedAt.IsZero() {
		return nil
	}
	elapsed := r.p.cfg.Now().Sub(r.intent.DetectedAt)
	if elapsed > r.p.cfg.DetectionDeadline {
		return fmt.Errorf("%w: %s since detection", types.ErrDeadlineExceeded, elapsed.Round(time.Millisecond))
	}
	return nil
}

// once is a single pass from FetchingContext to a submitted, and for polling
// relays confirmed, transaction.
func (r *run) once(ctx context.Context) (*types.RelayReceipt, uint64, error) {
	if err := r.checkDeadline(); err != nil {
		return nil, 0, err
	}

	if r.state != types.StateFetchingContext {
		r.transition(types.StateFetchingContext)
	}
	snap, err := r.fetch(ctx)
	if err != nil {
		return nil, 0, err
	}
	if err = r.checkDeadline(); err != nil {
		return nil, 0, err
	}

	if r.launch() {
		if err = r.accept(ctx, snap.report); err != nil {
			return nil, 0, err
		}
	}

	r.transition(types.StateQuoting)
	if snap.curve.Complete {
		return nil, 0, types.ErrPoolCompleted
	}
	quote := pumpfun.Quote(&pumpfun.QuoteRequest{
		Direction: r.intent.Direction,
		Amount:    r.intent.Amount,
		Curve:     snap.curve,
	})
	if quote.OutputAmount == 0 {
		return nil, 0, fmt.Errorf("%w: zero output for %d", types.ErrQuoteInvalid, r.intent.Amount)
	}
	r.log.WithFields(logrus.Fields{
		"amount": r.intent.Amount,
		"quote":  quote.OutputAmount,
		"price":  snap.curve.PriceInSol().String(),
	}).Debug("quoted")

	r.transition(types.StateAssembling)
	plan, err := r.p.Assembler.Plan(r.intent, quote, r.p.Signer.PublicKey(), r.p.TipSigner.PublicKey())
	if err != nil {
		return nil, 0, err
	}
	if r.log.Logger.IsLevelEnabled(logrus.TraceLevel) {
		if swap, err := pumpfun.DecodeSwap(plan.Swap()); err == nil {
			r.log.Trace(swap.String())
		}
	}

	r.transition(types.StateSigning)
	signed, err := r.p.Assembler.Sign(plan, snap.blockhash, r.p.Signer, r.p.TipSigner)
	if err != nil {
		return nil, 0, err
	}

	r.transition(types.StateSubmitting)
	// a submitted transaction cannot be recalled, so neither is the request
	submitCtx := context.WithoutCancel(ctx)
	receipt, err := r.submitter.Submit(submitCtx, signed)
	if err != nil {
		return nil, 0, err
	}
	r.log.WithFields(logrus.Fields{"relay": receipt.Relay, "id": receipt.SubmissionID}).Info("submitted")

	if r.intent.Direction == types.DirectionSell {
		if poller, ok := r.submitter.(relay.StatusPoller); ok {
			r.transition(types.StatePolling)
			if err = r.p.cfg.Sleep(submitCtx, r.p.cfg.PollDelay); err != nil {
				return receipt, 0, err
			}
			status, err := poller.PollStatus(submitCtx, receipt.SubmissionID)
			if err != nil {
				return receipt, 0, err
			}
			if status != types.TxStatusSuccess {
				return receipt, 0, fmt.Errorf("%w: status %s", types.ErrTransactionFailed, status)
			}
		}
	}
	return receipt, quote.OutputAmount, nil
}

// fetch joins the curve read, the blockhash and, for launches, the context
// providers.
func (r *run) fetch(ctx context.Context) (*snapshot, error) {
	snap := &snapshot{}
	_, associatedCurve, err := pumpfun.CurveAccounts(r.intent)
	if err != nil {
		return nil, err
	}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		curve, err := r.p.Curves.Decode(gctx, r.curve)
		if err != nil {
			return fmt.Errorf("decode curve %s: %w", r.curve, err)
		}
		snap.curve = curve
		return nil
	})
	g.Go(func() error {
		hash, err := r.p.Blockhash.BlockHash(gctx)
		if err != nil {
			return fmt.Errorf("blockhash: %w", err)
		}
		if hash.IsZero() {
			return types.ErrStaleBlockhash
		}
		snap.blockhash = hash
		return nil
	})

	if r.launch() {
		report := &types.ContextReport{}
		snap.report = report

		if r.p.Metadata != nil {
			g.Go(func() error {
				metadata, err := r.p.Metadata.FetchMetadata(gctx, r.intent)
				if err != nil {
					return fmt.Errorf("metadata: %w", err)
				}
				report.Metadata = metadata
				return nil
			})
		}
		if r.p.Holders != nil {
			g.Go(func() error {
				holders, err := r.p.Holders.FetchHolders(gctx, r.intent.Mint, associatedCurve, r.intent.Creator)
				if err != nil {
					return fmt.Errorf("holders: %w", err)
				}
				report.Holders = holders
				return nil
			})
		}
		if r.p.Balances != nil {
			g.Go(func() error {
				balance, err := r.p.Balances.FetchBalance(gctx, r.intent.Creator)
				if err != nil {
					return fmt.Errorf("creator balance: %w", err)
				}
				report.DevBalance = balance
				return nil
			})
		}
		if r.p.Ages != nil {
			g.Go(func() error {
				age, err := r.p.Ages.FetchWalletAge(gctx, r.intent.Creator)
				if err != nil {
					return fmt.Errorf("creator wallet age: %w", err)
				}
				report.DevWalletAge = age
				return nil
			})
		}
	}

	if err = g.Wait(); err != nil {
		return nil, err
	}

	if snap.report != nil {
		snap.report.FetchedAt = r.p.cfg.Now()
		snap.report.DetectionDelay = snap.report.FetchedAt.Sub(r.intent.DetectedAt)
		if r.log.Logger.IsLevelEnabled(logrus.TraceLevel) {
			r.log.Trace(spew.Sdump(snap.report))
		}
	}
	return snap, nil
}

// accept runs the filter and narrates the decision.
func (r *run) accept(ctx context.Context, report *types.ContextReport) error {
	var err error
	if r.p.Filter != nil {
		err = r.p.Filter.Accept(r.intent, report)
	}

	if r.p.Narrator != nil {
		symbol := r.intent.Mint.String()
		if report.Metadata != nil && report.Metadata.Symbol != "" {
			symbol = "$" + report.Metadata.Symbol
		}
		decision := fmt.Sprintf("buying %s SOL of it", utils.LamportsToSol(r.intent.Amount))
		if err != nil {
			decision = "skipping: " + err.Error()
		}
		line := fmt.Sprintf("new launch %s, curve holds %d%%, creator holds %d%%, creator wallet %d days old",
			symbol,
			report.HolderPct(types.HolderLabelBondingCurve),
			report.HolderPct(types.HolderLabelCreator),
			report.DevWalletAge,
		)
		if nerr := r.p.Narrator.Narrate(ctx, line, decision); nerr != nil {
			r.log.WithError(nerr).Warn("narration failed")
		}
	}
	return err
}
