package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/meme-bots/pump-trader/sol/pumpfun"
	"github.com/meme-bots/pump-trader/types"
)

type (
	Submitter interface {
		Kind() types.RelayKind
		Submit(ctx context.Context, tx *pumpfun.SignedTransaction) (*types.RelayReceipt, error)
	}

	// StatusPoller is implemented by relays that can report the outcome of a
	// submission.
	StatusPoller interface {
		PollStatus(ctx context.Context, submissionID string) (types.TxStatus, error)
	}
)

// RetryPolicy decides whether a failed sell attempt is followed by another.
type RetryPolicy interface {
	// Next is called after attempt (1-based) failed, elapsed since the first
	// attempt started. It returns the wait before the next attempt.
	Next(attempt int, elapsed time.Duration) (time.Duration, bool)
}

type Policy struct {
	MaxAttempts int
	MaxElapsed  time.Duration
	Backoff     time.Duration
}

func (p Policy) Next(attempt int, elapsed time.Duration) (time.Duration, bool) {
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		return 0, false
	}
	if p.MaxElapsed > 0 && elapsed+p.Backoff >= p.MaxElapsed {
		return 0, false
	}
	return p.Backoff, true
}

func (p Policy) String() string {
	var parts []string
	if p.MaxAttempts > 0 {
		parts = append(parts, fmt.Sprintf("attempts<=%d", p.MaxAttempts))
	}
	if p.MaxElapsed > 0 {
		parts = append(parts, fmt.Sprintf("elapsed<%s", p.MaxElapsed))
	}
	if len(parts) == 0 {
		parts = append(parts, "unbounded")
	}
	if p.Backoff > 0 {
		parts = append(parts, fmt.Sprintf("backoff=%s", p.Backoff))
	}
	return strings.Join(parts, ",")
}

// Unbounded retries until the position is closed.
func Unbounded() Policy {
	return Policy{}
}

func MaxAttempts(n int) Policy {
	return Policy{MaxAttempts: n}
}

func MaxElapsed(d time.Duration) Policy {
	return Policy{MaxElapsed: d}
}

func (p Policy) WithBackoff(d time.Duration) Policy {
	p.Backoff = d
	return p
}

func PolicyFromConfig(cfg *types.Config) Policy {
	return Policy{
		MaxAttempts: cfg.SellMaxAttempts,
		MaxElapsed:  cfg.SellMaxElapsed,
		Backoff:     cfg.SellRetryBackoff,
	}
}

func isStaleBlockhash(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "blockhash not found") ||
		strings.Contains(msg, "block hash not found") ||
		strings.Contains(msg, "blockhash expired") ||
		strings.Contains(msg, "expired blockhash")
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// mapError turns transport and relay failures into the package sentinels.
func mapError(relay types.RelayKind, err error) error {
	if err == nil {
		return nil
	}
	if isTimeout(err) {
		return fmt.Errorf("%w: %s: %v", types.ErrRelayTimeout, relay, err)
	}

	msg := err.Error()
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		msg = rpcErr.Message
	}
	if isStaleBlockhash(msg) {
		return fmt.Errorf("%w: %s: %s", types.ErrStaleBlockhash, relay, msg)
	}
	return fmt.Errorf("%w: %s: %s", types.ErrRelayRejected, relay, msg)
}
