package risk

import (
	"github.com/shopspring/decimal"
)

// ----- config -----

type Config struct {
	// MaxDrawdownPct is the portfolio drawdown (fraction of peak) above which
	// trading halts for the cycle.
	MaxDrawdownPct decimal.Decimal
	// RiskPerTrade is the fixed fraction of account value allocated per trade.
	RiskPerTrade decimal.Decimal
}

// DefaultConfig reasonable defaults, tweak per deployment.
func DefaultConfig() Config {
	return Config{
		MaxDrawdownPct: decimal.NewFromFloat(0.15),
		RiskPerTrade:   decimal.NewFromFloat(0.02),
	}
}

// ----- public API -----

// Manager is a stateless risk policy: pure functions over explicit inputs,
// so the policy stays independently testable from execution mechanics.
type Manager struct {
	cfg Config
}

func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg}
}

// CheckDrawdownLimit returns true iff the current drawdown is within the
// configured limit. The boundary is inclusive: at exactly the limit, trading
// is still permitted.
func (m *Manager) CheckDrawdownLimit(currentDrawdown decimal.Decimal) bool {
	return currentDrawdown.LessThanOrEqual(m.cfg.MaxDrawdownPct)
}

// PositionSize returns the notional to allocate for one trade using
// fixed-fraction sizing: max(1, accountValue * riskPerTrade).
//
// volatility is accepted so sizing strategies stay swappable; an
// inverse-volatility refinement can use it without changing callers.
// The result is monotonically non-decreasing in accountValue and never
// less than one.
func (m *Manager) PositionSize(accountValue, volatility decimal.Decimal) decimal.Decimal {
	_ = volatility

	size := accountValue.Mul(m.cfg.RiskPerTrade)
	one := decimal.NewFromInt(1)
	if size.LessThan(one) {
		return one
	}
	return size
}
