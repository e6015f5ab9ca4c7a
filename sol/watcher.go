package sol

import (
	"context"
	"errors"
	"sync"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/meme-bots/pump-trader/sol/common"
	"github.com/meme-bots/pump-trader/types"
	"github.com/meme-bots/pump-trader/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type (
	watcherState uint8

	WatcherClient interface {
		GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
		GetMultipleAccountsWithOpts(ctx context.Context, accounts []solana.PublicKey, opts *rpc.GetMultipleAccountsOpts) (*rpc.GetMultipleAccountsResult, error)
	}

	// Watcher keeps the SOL price and a recent blockhash warm in the background.
	Watcher struct {
		client        WatcherClient
		log           *logrus.Logger
		price         decimal.Decimal
		priceLock     sync.RWMutex
		hash          solana.Hash
		hashUpdatedAt time.Time
		hashLock      sync.RWMutex
		withBlockHash bool
		maxHashAge    time.Duration

		ctx          context.Context
		cancel       context.CancelFunc
		subprocesses utils.Subprocesses

		stateMu sync.Mutex
		state   watcherState
	}
)

const (
	_ watcherState = iota
	watcherStatePending
	watcherStateOpen
	watcherStateClosed
)

const DefaultMaxHashAge = 3 * time.Second

var (
	solVaultAddress  = solana.MPK("876Z9waBygfzUrwwKFfnRcc7cfY4EQf6Kz1w7GRgbVYW")
	usdtVaultAddress = solana.MPK("CB86HtaqpXbNWbq67L18y5x2RhqoJ6smb7xHUcyWdQAQ")
)

func NewWatcher(client WatcherClient, withBlockHash bool, log *logrus.Logger) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		client:        client,
		log:           log,
		price:         decimal.Zero,
		hash:          solana.Hash{},
		withBlockHash: withBlockHash,
		maxHashAge:    DefaultMaxHashAge,
		ctx:           ctx,
		cancel:        cancel,
		subprocesses:  utils.Subprocesses{},
		stateMu:       sync.Mutex{},
		state:         watcherStatePending,
	}
}

func (w *Watcher) Start() error {
	succeed := false
	defer func() {
		if !succeed {
			w.Close()
		}
	}()

	w.stateMu.Lock()
	defer w.stateMu.Unlock()

	if w.state != watcherStatePending {
		return errors.New("cannot Start() watcher that has already been started")
	}

	w.state = watcherStateOpen

	w.subprocesses.Go(func() {
		w.WatchSolPrice(time.Minute)
	})

	if w.withBlockHash {
		w.subprocesses.Go(func() {
			w.WatchBlockHash(time.Second)
		})
	}

	succeed = true
	return nil
}

func (w *Watcher) Close() error {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()

	if w.state != watcherStateOpen {
		return errors.New("cannot Close() watcher that isn't open")
	}

	w.state = watcherStateClosed
	w.cancel()
	w.subprocesses.Wait()
	return nil
}

func (w *Watcher) QuerySolPrice(ctx context.Context) (decimal.Decimal, error) {
	accounts, err := w.client.GetMultipleAccountsWithOpts(
		ctx,
		[]solana.PublicKey{solVaultAddress, usdtVaultAddress},
		&rpc.GetMultipleAccountsOpts{Commitment: rpc.CommitmentConfirmed},
	)
	if err != nil {
		return decimal.Zero, err
	}
	if len(accounts.Value) != 2 || accounts.Value[0] == nil || accounts.Value[1] == nil {
		return decimal.Zero, types.ErrAccountNotFound
	}

	var wsolVault, usdtVault token.Account
	err = wsolVault.UnmarshalWithDecoder(bin.NewBorshDecoder(accounts.Value[0].Data.GetBinary()))
	if err != nil {
		return decimal.Zero, err
	}

	err = usdtVault.UnmarshalWithDecoder(bin.NewBorshDecoder(accounts.Value[1].Data.GetBinary()))
	if err != nil {
		return decimal.Zero, err
	}
	if wsolVault.Amount == 0 {
		return decimal.Zero, nil
	}

	wsolAmount := decimal.NewFromUint64(wsolVault.Amount).Div(decimal.NewFromInt(common.LamportsPerSol))
	usdtAmount := decimal.NewFromUint64(usdtVault.Amount).Div(decimal.NewFromInt(1e6))
	return usdtAmount.Div(wsolAmount), nil
}

func (w *Watcher) QueryBlockHash(ctx context.Context) (solana.Hash, error) {
	recentBlock, err := w.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, err
	}
	if recentBlock == nil || recentBlock.Value == nil {
		return solana.Hash{}, types.ErrStaleBlockhash
	}
	return recentBlock.Value.Blockhash, nil
}

func (w *Watcher) WatchSolPrice(interval time.Duration) {
	for {
		price, err := w.QuerySolPrice(w.ctx)
		if err == nil {
			w.priceLock.Lock()
			w.price = price
			w.priceLock.Unlock()
		} else {
			w.log.WithError(err).Debug("sol price refresh failed")
		}

		select {
		case <-time.After(interval):
		case <-w.ctx.Done():
			return
		}
	}
}

func (w *Watcher) WatchBlockHash(interval time.Duration) {
	for {
		hash, err := w.QueryBlockHash(w.ctx)
		if err == nil {
			w.setBlockHash(hash)
		} else {
			w.log.WithError(err).Debug("blockhash refresh failed")
		}

		select {
		case <-time.After(interval):
		case <-w.ctx.Done():
			return
		}
	}
}

func (w *Watcher) setBlockHash(hash solana.Hash) {
	w.hashLock.Lock()
	w.hash = hash
	w.hashUpdatedAt = time.Now()
	w.hashLock.Unlock()
}

func (w *Watcher) GetSolPrice() decimal.Decimal {
	var price decimal.Decimal
	w.priceLock.RLock()
	price = w.price
	w.priceLock.RUnlock()
	return price
}

// GetRecentBlockHash returns the background hash unless it is older than
// maxHashAge.
func (w *Watcher) GetRecentBlockHash() (solana.Hash, bool) {
	if !w.withBlockHash {
		return solana.Hash{}, false
	}

	w.hashLock.RLock()
	defer w.hashLock.RUnlock()
	if w.hash.IsZero() || time.Since(w.hashUpdatedAt) > w.maxHashAge {
		return solana.Hash{}, false
	}
	return solana.HashFromBytes(w.hash[:]), true
}

// BlockHash prefers the background hash and falls back to the RPC.
func (w *Watcher) BlockHash(ctx context.Context) (solana.Hash, error) {
	if hash, ok := w.GetRecentBlockHash(); ok {
		return hash, nil
	}
	hash, err := w.QueryBlockHash(ctx)
	if err != nil {
		return solana.Hash{}, err
	}
	if w.withBlockHash {
		w.setBlockHash(hash)
	}
	return hash, nil
}
