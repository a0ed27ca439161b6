package broker

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	APIKey    string `envconfig:"BROKER_API_KEY"`
	APISecret string `envconfig:"BROKER_API_SECRET"`
	// CredentialsEncrypted marks the key/secret as secretbox-sealed strings
	// that must be decrypted with security.DecryptString before use.
	CredentialsEncrypted bool `envconfig:"BROKER_CREDENTIALS_ENCRYPTED" default:"false"`

	PaperMode   bool   `envconfig:"PAPER_MODE" default:"true"`
	BaseURL     string `envconfig:"BROKER_BASE_URL"`
	DataBaseURL string `envconfig:"BROKER_DATA_BASE_URL" default:"https://data.alpaca.markets"`

	Timeout time.Duration `envconfig:"BROKER_TIMEOUT" default:"15s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
