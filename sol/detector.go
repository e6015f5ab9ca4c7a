package sol

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/meme-bots/pump-trader/metrics"
	"github.com/meme-bots/pump-trader/sol/pumpfun"
	"github.com/meme-bots/pump-trader/types"
	"github.com/meme-bots/pump-trader/utils"
	"github.com/sirupsen/logrus"
)

const (
	launchLogMarker = "InitializeMint2"
	pumpMintSuffix  = "pump"
)

type (
	TransactionFetcher interface {
		GetTransaction(ctx context.Context, sig solana.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error)
	}

	DetectorConfig struct {
		BuyAmount         uint64
		SlippageBps       uint64
		Relay             types.RelayKind
		RequirePumpSuffix bool
	}

	// Detector watches the program logs for token launches and turns each into
	// an autonomous buy intent.
	Detector struct {
		client       TransactionFetcher
		cfg          DetectorConfig
		now          func() time.Time
		log          *logrus.Logger
		subprocesses utils.Subprocesses
	}

	logsNotification struct {
		Method string `json:"method"`
		Params *struct {
			Result struct {
				Context struct {
					Slot uint64 `json:"slot"`
				} `json:"context"`
				Value struct {
					Signature string          `json:"signature"`
					Err       json.RawMessage `json:"err"`
					Logs      []string        `json:"logs"`
				} `json:"value"`
			} `json:"result"`
		} `json:"params"`
	}
)

var errNotLaunch = errors.New("not a launch")

func NewDetector(client TransactionFetcher, cfg DetectorConfig, log *logrus.Logger) *Detector {
	return &Detector{client: client, cfg: cfg, now: time.Now, log: log}
}

func logsSubscribeRequest(program solana.PublicKey) map[string]interface{} {
	return map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "logsSubscribe",
		"params": []interface{}{
			map[string]interface{}{"mentions": []string{program.String()}},
			map[string]string{"commitment": string(rpc.CommitmentConfirmed)},
		},
	}
}

// Run subscribes to the program logs over wsURL and calls onLaunch for every
// detected launch until ctx is done. onLaunch must not block. Run returns
// once every inspection it started has finished.
func (d *Detector) Run(ctx context.Context, wsURL string, onLaunch func(*types.TradeIntent)) error {
	stream := NewStream(wsURL, nil, func(message []byte) {
		d.handleMessage(ctx, message, onLaunch)
	}, d.log)
	if err := stream.Subscribe(logsSubscribeRequest(pumpfun.ProgramID)); err != nil {
		return err
	}
	d.log.WithField("program", pumpfun.ProgramID.String()).Info("watching for launches")
	err := stream.Run(ctx)
	d.Wait()
	return err
}

// Wait blocks until the launch inspections in flight are done.
func (d *Detector) Wait() {
	d.subprocesses.Wait()
}

func (d *Detector) handleMessage(ctx context.Context, message []byte, onLaunch func(*types.TradeIntent)) {
	detectedAt := d.now()

	var notification logsNotification
	if err := json.Unmarshal(message, &notification); err != nil || notification.Params == nil {
		return
	}
	value := notification.Params.Result.Value
	if len(value.Err) > 0 && !bytes.Equal(value.Err, []byte("null")) {
		return
	}
	if !containsLog(value.Logs, launchLogMarker) {
		return
	}

	sig, err := solana.SignatureFromBase58(value.Signature)
	if err != nil {
		return
	}

	// the log handler must not stall the stream
	d.subprocesses.Go(func() {
		intent, err := d.Inspect(ctx, sig, detectedAt)
		if err != nil {
			if !errors.Is(err, errNotLaunch) {
				d.log.WithError(err).WithField("signature", value.Signature).Warn("launch inspection failed")
			}
			return
		}
		metrics.DetectionsTotal.Inc()
		d.log.WithFields(logrus.Fields{
			"mint":    intent.Mint.String(),
			"creator": intent.Creator.String(),
			"dev_buy": intent.DevBuySol,
			"slot":    notification.Params.Result.Context.Slot,
		}).Info("launch detected")
		onLaunch(intent)
	})
}

func containsLog(logs []string, marker string) bool {
	for _, line := range logs {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

// Inspect fetches a launch transaction and builds the buy intent for it.
func (d *Detector) Inspect(ctx context.Context, sig solana.Signature, detectedAt time.Time) (*types.TradeIntent, error) {
	version := uint64(0)
	result, err := d.client.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &version,
	})
	if err != nil {
		return nil, fmt.Errorf("get transaction %s: %w", sig, err)
	}
	if result == nil || result.Transaction == nil {
		return nil, fmt.Errorf("%w: transaction %s", types.ErrNotFound, sig)
	}
	tx, err := result.Transaction.GetTransaction()
	if err != nil {
		return nil, err
	}

	var logs []string
	if result.Meta != nil {
		logs = result.Meta.LogMessages
	}
	return d.LaunchFromTransaction(tx, logs, detectedAt)
}

// LaunchFromTransaction finds the create instruction in tx. Its accounts are
// mint (0), bonding curve (2), associated bonding curve (3) and creator (7).
func (d *Detector) LaunchFromTransaction(tx *solana.Transaction, logs []string, detectedAt time.Time) (*types.TradeIntent, error) {
	for _, inst := range tx.Message.Instructions {
		programID, err := tx.Message.Account(inst.ProgramIDIndex)
		if err != nil || !programID.Equals(pumpfun.ProgramID) {
			continue
		}
		if len(inst.Data) < 8 || !bytes.Equal(inst.Data[:8], pumpfun.Instruction_Create.Bytes()) {
			continue
		}
		if len(inst.Accounts) < 8 {
			continue
		}

		keys := make([]solana.PublicKey, 8)
		for i := range keys {
			keys[i], err = tx.Message.Account(inst.Accounts[i])
			if err != nil {
				return nil, fmt.Errorf("create account %d: %w", i, err)
			}
		}
		mint, curve, associatedCurve, creator := keys[0], keys[2], keys[3], keys[7]

		if d.cfg.RequirePumpSuffix && !strings.HasSuffix(strings.ToLower(mint.String()), pumpMintSuffix) {
			return nil, fmt.Errorf("%w: mint %s", errNotLaunch, mint)
		}

		intent := &types.TradeIntent{
			Mint:                   mint,
			BondingCurve:           curve,
			AssociatedBondingCurve: associatedCurve,
			Creator:                creator,
			Direction:              types.DirectionBuy,
			Amount:                 d.cfg.BuyAmount,
			SlippageBps:            d.cfg.SlippageBps,
			Relay:                  d.cfg.Relay,
			Trigger:                types.TriggerAutonomous,
			DetectedAt:             detectedAt,
			CreateData:             append([]byte(nil), inst.Data...),
		}
		if event, ok := pumpfun.FirstBuyBy(logs, creator); ok {
			intent.DevBuySol = event.SolAmount
			intent.DevBuyTokens = event.TokenAmount
		}
		return intent, nil
	}
	return nil, errNotLaunch
}
