package sol

import (
	"fmt"
	"strings"

	"github.com/meme-bots/pump-trader/types"
)

const (
	DefaultMinBondingCurvePct = 80
	DefaultMaxCreatorPct      = 20
)

// ThresholdFilter accepts a launch when the bonding curve still holds most of
// the supply, the creator holds little of it, and the creator wallet is old
// enough.
type ThresholdFilter struct {
	MinBondingCurvePct uint64
	MaxCreatorPct      uint64
	MinWalletAgeDays   int
}

func NewThresholdFilter(cfg *types.Config) *ThresholdFilter {
	f := &ThresholdFilter{
		MinBondingCurvePct: cfg.MinBondingCurvePct,
		MaxCreatorPct:      cfg.MaxCreatorPct,
		MinWalletAgeDays:   cfg.MinDevWalletAgeDays,
	}
	if f.MinBondingCurvePct == 0 {
		f.MinBondingCurvePct = DefaultMinBondingCurvePct
	}
	if f.MaxCreatorPct == 0 {
		f.MaxCreatorPct = DefaultMaxCreatorPct
	}
	return f
}

func (f *ThresholdFilter) Accept(_ *types.TradeIntent, report *types.ContextReport) error {
	var reasons []string

	if pct := report.HolderPct(types.HolderLabelBondingCurve); pct < f.MinBondingCurvePct {
		reasons = append(reasons, fmt.Sprintf("bonding curve holds %d%%", pct))
	}
	if pct := report.HolderPct(types.HolderLabelCreator); pct >= f.MaxCreatorPct {
		reasons = append(reasons, fmt.Sprintf("creator holds %d%%", pct))
	}
	// zero means the age is unknown
	if f.MinWalletAgeDays > 0 && report.DevWalletAge > 0 && report.DevWalletAge < f.MinWalletAgeDays {
		reasons = append(reasons, fmt.Sprintf("creator wallet is %d days old", report.DevWalletAge))
	}

	if len(reasons) > 0 {
		return fmt.Errorf("%w: %s", types.ErrFiltered, strings.Join(reasons, ", "))
	}
	return nil
}
