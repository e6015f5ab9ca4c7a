package pumptrader

import (
	"github.com/meme-bots/pump-trader/sol"
	"github.com/meme-bots/pump-trader/types"
	"github.com/sirupsen/logrus"
)

// NewTrader builds the pump.fun trading engine described by cfg. The engine
// is not started.
func NewTrader(cfg *types.Config, log *logrus.Logger) (types.TraderInterface, error) {
	return sol.NewEngine(cfg, log)
}
