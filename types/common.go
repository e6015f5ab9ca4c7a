package types

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

type (
	Direction int

	Trigger int

	RelayKind string

	TxStatus string

	State int
)

const (
	DirectionBuy Direction = iota
	DirectionSell
)

const (
	TriggerManual Trigger = iota
	TriggerAutonomous
)

const (
	RelayBundle   RelayKind = "jito"
	RelayPriority RelayKind = "bloxroute"
)

const (
	TxStatusPending TxStatus = "pending"
	TxStatusSuccess TxStatus = "success"
	TxStatusFailed  TxStatus = "failed"
)

const (
	StateIdle State = iota
	StateDetecting
	StateFetchingContext
	StateQuoting
	StateAssembling
	StateSigning
	StateSubmitting
	StatePolling
	StateSuccess
	StateFailed
	StateSkipped
)

var stateNames = map[State]string{
	StateIdle:            "idle",
	StateDetecting:       "detecting",
	StateFetchingContext: "fetching_context",
	StateQuoting:         "quoting",
	StateAssembling:      "assembling",
	StateSigning:         "signing",
	StateSubmitting:      "submitting",
	StatePolling:         "polling",
	StateSuccess:         "success",
	StateFailed:          "failed",
	StateSkipped:         "skipped",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s State) Terminal() bool {
	return s == StateSuccess || s == StateFailed || s == StateSkipped
}

func (d Direction) String() string {
	if d == DirectionSell {
		return "sell"
	}
	return "buy"
}

func (t Trigger) String() string {
	if t == TriggerAutonomous {
		return "autonomous"
	}
	return "manual"
}

type (
	// TradeIntent is what the orchestrator executes. Amount is lamports for a buy
	// and raw token units for a sell. A zero SlippageBps or an empty Relay is
	// filled from the configured default by the engine, so a zero-slippage
	// trade cannot be requested through it.
	TradeIntent struct {
		Mint                   solana.PublicKey
		BondingCurve           solana.PublicKey
		AssociatedBondingCurve solana.PublicKey
		Creator                solana.PublicKey
		Direction              Direction
		Amount                 uint64
		SlippageBps            uint64
		Relay                  RelayKind
		Trigger                Trigger
		DetectedAt             time.Time

		// set by the launch detector
		CreateData   []byte
		DevBuySol    uint64
		DevBuyTokens uint64
	}

	RelayReceipt struct {
		Relay         RelayKind
		SubmissionID  string
		SubmittedAtMs int64
	}

	TradeResult struct {
		Intent       *TradeIntent
		State        State
		Attempts     int
		Receipt      *RelayReceipt
		OutputAmount uint64
		Err          error
	}

	TokenMetadata struct {
		Name        string `json:"name"`
		Symbol      string `json:"symbol"`
		Description string `json:"description"`
		Image       string `json:"image"`
		ShowName    bool   `json:"showName"`
		CreatedOn   string `json:"createdOn"`
		Twitter     string `json:"twitter,omitempty"`
		Telegram    string `json:"telegram,omitempty"`
		Website     string `json:"website,omitempty"`
		URI         string `json:"uri,omitempty"`
	}

	Holder struct {
		Label   string `json:"label"`
		Address string `json:"address"`
		Amount  uint64 `json:"amount"`
		Pct     uint64 `json:"pct"`
	}

	// ContextReport is the joined output of the context providers.
	ContextReport struct {
		Metadata       *TokenMetadata
		Holders        []Holder
		DevBalance     uint64
		DevWalletAge   int
		FetchedAt      time.Time
		DetectionDelay time.Duration
	}
)

const (
	HolderLabelBondingCurve = "Bonding Curve"
	HolderLabelCreator      = "Creator"
	HolderLabelHolder       = "Holder"
)

func (r *ContextReport) HolderPct(label string) uint64 {
	for _, h := range r.Holders {
		if h.Label == label {
			return h.Pct
		}
	}
	return 0
}
