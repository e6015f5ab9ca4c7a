package sol

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

const tradeTypeSell = "sell"

type (
	// DevTracker follows creator wallets on the pumpportal trade feed and
	// reports when one of them sells.
	DevTracker struct {
		stream *Stream
		onSell func(creator, mint solana.PublicKey)
		log    *logrus.Logger

		mu       sync.Mutex
		tracking map[solana.PublicKey]struct{}
	}

	accountTradeRequest struct {
		Method string   `json:"method"`
		Keys   []string `json:"keys"`
	}

	accountTrade struct {
		Signature       string  `json:"signature"`
		Mint            string  `json:"mint"`
		TraderPublicKey string  `json:"traderPublicKey"`
		TxType          string  `json:"txType"`
		TokenAmount     float64 `json:"tokenAmount"`
	}
)

func NewDevTracker(url string, onSell func(creator, mint solana.PublicKey), log *logrus.Logger) *DevTracker {
	t := &DevTracker{
		onSell:   onSell,
		log:      log,
		tracking: make(map[solana.PublicKey]struct{}),
	}
	t.stream = NewStream(url, nil, t.handleMessage, log)
	return t
}

func (t *DevTracker) Run(ctx context.Context) error {
	return t.stream.Run(ctx)
}

// Track subscribes to the trades of creator. Tracking the same wallet twice is a no-op.
func (t *DevTracker) Track(creator solana.PublicKey) error {
	t.mu.Lock()
	if _, ok := t.tracking[creator]; ok {
		t.mu.Unlock()
		return nil
	}
	t.tracking[creator] = struct{}{}
	t.mu.Unlock()

	t.log.WithField("creator", creator.String()).Info("tracking creator")
	return t.stream.Subscribe(accountTradeRequest{
		Method: "subscribeAccountTrade",
		Keys:   []string{creator.String()},
	})
}

func (t *DevTracker) Tracking(creator solana.PublicKey) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.tracking[creator]
	return ok
}

// handleMessage ignores subscription acknowledgements, which carry no txType.
func (t *DevTracker) handleMessage(message []byte) {
	var trade accountTrade
	if err := json.Unmarshal(message, &trade); err != nil || trade.TxType == "" {
		return
	}
	if trade.TxType != tradeTypeSell {
		return
	}

	creator, err := solana.PublicKeyFromBase58(trade.TraderPublicKey)
	if err != nil || !t.Tracking(creator) {
		return
	}
	mint, err := solana.PublicKeyFromBase58(trade.Mint)
	if err != nil {
		return
	}

	t.log.WithFields(logrus.Fields{
		"creator":   creator.String(),
		"mint":      mint.String(),
		"signature": trade.Signature,
	}).Warn("creator sold")
	t.onSell(creator, mint)
}
