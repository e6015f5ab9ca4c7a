package sol

import (
	"math/big"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/samber/lo"
)

type Position struct {
	Mint                   solana.PublicKey
	BondingCurve           solana.PublicKey
	AssociatedBondingCurve solana.PublicKey
	Creator                solana.PublicKey
	Tokens                 uint64
	Cost                   uint64 // lamports
	OpenedAt               time.Time
}

// PositionBook tracks what the bot bought in this process.
type PositionBook struct {
	mu        sync.RWMutex
	positions map[solana.PublicKey]*Position
}

func NewPositionBook() *PositionBook {
	return &PositionBook{positions: make(map[solana.PublicKey]*Position)}
}

// Open records a buy, adding to an existing position of the same mint.
func (b *PositionBook) Open(p Position) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if existing, ok := b.positions[p.Mint]; ok {
		existing.Tokens += p.Tokens
		existing.Cost += p.Cost
		return
	}
	if p.OpenedAt.IsZero() {
		p.OpenedAt = time.Now()
	}
	b.positions[p.Mint] = &p
}

// Reduce removes tokens from a position and closes it when nothing is left.
func (b *PositionBook) Reduce(mint solana.PublicKey, tokens uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.positions[mint]
	if !ok {
		return
	}
	if tokens >= p.Tokens {
		delete(b.positions, mint)
		return
	}
	removed := new(big.Int).Mul(new(big.Int).SetUint64(p.Cost), new(big.Int).SetUint64(tokens))
	removed.Div(removed, new(big.Int).SetUint64(p.Tokens))
	p.Cost -= removed.Uint64()
	p.Tokens -= tokens
}

func (b *PositionBook) Get(mint solana.PublicKey) (Position, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	p, ok := b.positions[mint]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

func (b *PositionBook) ByCreator(creator solana.PublicKey) []Position {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return lo.FilterMap(lo.Values(b.positions), func(p *Position, _ int) (Position, bool) {
		return *p, p.Creator.Equals(creator)
	})
}

func (b *PositionBook) All() []Position {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return lo.Map(lo.Values(b.positions), func(p *Position, _ int) Position {
		return *p
	})
}
