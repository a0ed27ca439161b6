package server

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Port the status server listens on.
	Port string `envconfig:"PORT" default:"8000"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
