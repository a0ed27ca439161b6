package backfill

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	StartDt  time.Time `envconfig:"START_DATE" default:"2024-01-01T00:00:00Z"`
	EndDt    time.Time `envconfig:"END_DATE" default:"2030-01-01T00:00:00Z"`
	AutoMode bool      `envconfig:"AUTO_MODE" default:"true"`
	// Symbols are crypto bases quoted against Quote, e.g. "BTC,ETH".
	Symbols []string `envconfig:"BACKFILL_SYMBOLS" default:"BTC,ETH"`
	Quote   string   `envconfig:"BACKFILL_QUOTE" default:"USDT"`
	Limit   int      `envconfig:"BACKFILL_LIMIT" default:"500"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
