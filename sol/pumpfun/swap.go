package pumpfun

import (
	"bytes"
	"encoding/base64"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const programDataPrefix = "Program data: "

// TradeEvent is emitted by the program on every buy and sell.
type TradeEvent struct {
	Mint                 solana.PublicKey `json:"mint"`
	SolAmount            uint64           `json:"solAmount"`
	TokenAmount          uint64           `json:"tokenAmount"`
	IsBuy                bool             `json:"isBuy"`
	User                 solana.PublicKey `json:"user"`
	Timestamp            int64            `json:"timestamp"`
	VirtualSolReserves   uint64           `json:"virtualSolReserves"`
	VirtualTokenReserves uint64           `json:"virtualTokenReserves"`
}

func DecodeTradeEvent(data []byte) (*TradeEvent, bool) {
	if len(data) < 8 || !bytes.Equal(data[:8], Event_Trade.Bytes()) {
		return nil, false
	}
	var event TradeEvent
	if err := bin.NewBorshDecoder(data[8:]).Decode(&event); err != nil {
		return nil, false
	}
	return &event, true
}

// ParseTradeEvents collects the trade events found in a transaction's log
// messages. Lines that do not decode are skipped.
func ParseTradeEvents(logs []string) []*TradeEvent {
	var events []*TradeEvent
	for _, line := range logs {
		if !strings.HasPrefix(line, programDataPrefix) {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(line, programDataPrefix))
		if err != nil {
			continue
		}
		if event, ok := DecodeTradeEvent(data); ok {
			events = append(events, event)
		}
	}
	return events
}

// FirstBuyBy returns the first buy of user in logs, typically the creator's
// initial buy in a create transaction.
func FirstBuyBy(logs []string, user solana.PublicKey) (*TradeEvent, bool) {
	for _, event := range ParseTradeEvents(logs) {
		if event.IsBuy && event.User.Equals(user) {
			return event, true
		}
	}
	return nil, false
}
