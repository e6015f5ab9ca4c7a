package relay

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/meme-bots/pump-trader/metrics"
	"github.com/meme-bots/pump-trader/sol/common"
	"github.com/meme-bots/pump-trader/sol/pumpfun"
	"github.com/meme-bots/pump-trader/types"
	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"
)

// JitoRelay submits single-transaction bundles to a block engine. Bundles
// cannot be polled; an accepted bundle is the final answer.
type JitoRelay struct {
	client *rpc.Client
	log    *logrus.Logger
}

func NewJitoRelay(url string, log *logrus.Logger) *JitoRelay {
	if url == "" {
		url = common.JitoRpc
	}
	return &JitoRelay{client: rpc.New(url), log: log}
}

func (r *JitoRelay) Kind() types.RelayKind {
	return types.RelayBundle
}

func (r *JitoRelay) Submit(ctx context.Context, tx *pumpfun.SignedTransaction) (*types.RelayReceipt, error) {
	encoded := base58.Encode(tx.Raw)

	var bundleID string
	err := r.client.RPCCallForInto(ctx, &bundleID, "sendBundle", []interface{}{[]string{encoded}})
	if err != nil {
		metrics.RelaySubmissionsTotal.WithLabelValues(string(types.RelayBundle), "error").Inc()
		return nil, mapError(types.RelayBundle, err)
	}
	metrics.RelaySubmissionsTotal.WithLabelValues(string(types.RelayBundle), "accepted").Inc()

	r.log.WithFields(logrus.Fields{
		"bundle":    bundleID,
		"signature": tx.Signature.String(),
	}).Info("bundle accepted")

	return &types.RelayReceipt{
		Relay:         types.RelayBundle,
		SubmissionID:  bundleID,
		SubmittedAtMs: time.Now().UnixMilli(),
	}, nil
}
