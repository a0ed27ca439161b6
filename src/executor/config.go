package executor

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Symbols           []string      `envconfig:"SYMBOLS" default:"SPY,QQQ,IWM,AAPL,MSFT,GOOGL"`
	LookbackDays      int           `envconfig:"LOOKBACK_DAYS" default:"20"`
	MomentumThreshold float64       `envconfig:"MOMENTUM_THRESHOLD" default:"0.05"`
	RiskPerTrade      float64       `envconfig:"RISK_PER_TRADE" default:"0.02"`
	MaxDrawdownPct    float64       `envconfig:"MAX_DRAWDOWN_PCT" default:"0.15"`
	AssumedVolatility float64       `envconfig:"ASSUMED_VOLATILITY" default:"0.02"`
	CycleTimeout      time.Duration `envconfig:"CYCLE_TIMEOUT" default:"2m"`
	ScheduleHour      int           `envconfig:"SCHEDULE_HOUR" default:"21"`
	ScheduleMinute    int           `envconfig:"SCHEDULE_MINUTE" default:"0"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

// ValidateUniverse enforces the symbol universe invariants: non-empty and
// free of duplicates. The universe is immutable per cycle, so this runs once
// at startup.
func ValidateUniverse(symbols []string) error {
	if len(symbols) == 0 {
		return fmt.Errorf("symbol universe is empty")
	}

	seen := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		if s == "" {
			return fmt.Errorf("symbol universe contains an empty symbol")
		}
		if _, dup := seen[s]; dup {
			return fmt.Errorf("symbol universe contains duplicate %q", s)
		}
		seen[s] = struct{}{}
	}
	return nil
}
