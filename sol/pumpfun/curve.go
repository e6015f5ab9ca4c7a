package pumpfun

import (
	"context"
	"errors"
	"fmt"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/meme-bots/pump-trader/metrics"
	"github.com/meme-bots/pump-trader/types"
	"github.com/meme-bots/pump-trader/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	CurveDiscriminatorSize = 8
	CurveLayoutSize        = CurveDiscriminatorSize + 5*8

	CurveStateTTL = 60 * time.Second
)

// CurveState is a decoded bonding curve snapshot. It is never mutated after decode.
type CurveState struct {
	VirtualTokenReserves uint64 `json:"virtualTokenReserves"`
	VirtualSolReserves   uint64 `json:"virtualSolReserves"`
	RealTokenReserves    uint64 `json:"realTokenReserves"`
	RealSolReserves      uint64 `json:"realSolReserves"`
	TokenTotalSupply     uint64 `json:"tokenTotalSupply"`
	Complete             bool   `json:"complete"`

	// display only
	VirtualTokenPrice float64 `json:"virtualTokenPrice"`
}

func DecodeCurveState(data []byte) (*CurveState, error) {
	if len(data) < CurveLayoutSize {
		return nil, fmt.Errorf("%w: need %d bytes, got %d", types.ErrLayoutMismatch, CurveLayoutSize, len(data))
	}

	decoder := bin.NewBinDecoder(data[CurveDiscriminatorSize:])
	fields := make([]uint64, 5)
	for i := range fields {
		v, err := decoder.ReadUint64(bin.LE)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrLayoutMismatch, err)
		}
		fields[i] = v
	}

	state := &CurveState{
		VirtualTokenReserves: fields[0],
		VirtualSolReserves:   fields[1],
		RealTokenReserves:    fields[2],
		RealSolReserves:      fields[3],
		TokenTotalSupply:     fields[4],
	}
	if decoder.Remaining() > 0 {
		state.Complete, _ = decoder.ReadBool()
	}
	state.VirtualTokenPrice = state.PriceInSol().InexactFloat64()
	return state, nil
}

// PriceInSol is the SOL price of one whole token at the virtual reserves.
func (c *CurveState) PriceInSol() decimal.Decimal {
	if c.VirtualTokenReserves == 0 {
		return decimal.Zero
	}
	solAmount := decimal.NewFromUint64(c.VirtualSolReserves).Div(decimal.NewFromInt(1e9))
	tokenAmount := decimal.NewFromUint64(c.VirtualTokenReserves).Div(decimal.NewFromInt(1e6))
	return solAmount.Div(tokenAmount)
}

type AccountFetcher interface {
	GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error)
}

// CurveDecoder reads bonding curve accounts through a short-lived cache.
type CurveDecoder struct {
	client AccountFetcher
	cache  *utils.Cache
	ttl    time.Duration
	log    *logrus.Logger
}

func NewCurveDecoder(client AccountFetcher, cache *utils.Cache, log *logrus.Logger) *CurveDecoder {
	return &CurveDecoder{
		client: client,
		cache:  cache,
		ttl:    CurveStateTTL,
		log:    log,
	}
}

func curveKey(curve solana.PublicKey) string {
	return "curve:" + curve.String()
}

func (d *CurveDecoder) Decode(ctx context.Context, curve solana.PublicKey) (*CurveState, error) {
	key := curveKey(curve)

	var cached CurveState
	if d.cache.GetJSON(ctx, key, &cached) {
		metrics.CurveCacheTotal.WithLabelValues("hit").Inc()
		return &cached, nil
	}
	metrics.CurveCacheTotal.WithLabelValues("miss").Inc()

	account, err := d.client.GetAccountInfoWithOpts(ctx, curve, &rpc.GetAccountInfoOpts{Commitment: rpc.CommitmentConfirmed})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", types.ErrAccountNotFound, curve)
		}
		return nil, err
	}
	if account == nil || account.Value == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrAccountNotFound, curve)
	}

	state, err := DecodeCurveState(account.Value.Data.GetBinary())
	if err != nil {
		return nil, err
	}

	if err = d.cache.SetJSON(ctx, key, state, d.ttl); err != nil {
		d.log.WithError(err).WithField("curve", curve.String()).Debug("curve cache set failed")
	}
	return state, nil
}

func (d *CurveDecoder) Invalidate(ctx context.Context, curve solana.PublicKey) {
	d.cache.Invalidate(ctx, curveKey(curve))
}
