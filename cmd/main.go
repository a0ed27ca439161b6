package main

import (
	"context"
	"fmt"
	"os"

	"autotrader/cmd/backfill"
	"autotrader/src/broker"
	"autotrader/src/database"
	"autotrader/src/executor"
	"autotrader/src/repository"
	"autotrader/src/risk"
	"autotrader/src/security"
	"autotrader/src/strategy"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "Autotrader CMD"
	app.Usage = "The autotrader command line interface"

	app.Commands = []cli.Command{
		cycleCMD,
		backfillCMD,
		encryptCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	cycleCMD = cli.Command{
		Name:        "cycle",
		Usage:       "run one execution cycle and exit",
		Action:      cycleAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run a single pass over the symbol universe now, outside the schedule`,
	}
	backfillCMD = cli.Command{
		Name:        "backfill",
		Usage:       "backfill daily OHLCV bars",
		Action:      backfillAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Backfill daily price bars into the daily_bars table`,
	}
	encryptCMD = cli.Command{
		Name:        "encrypt-credential",
		Usage:       "encrypt a broker credential for storage",
		Action:      encryptAction,
		ArgsUsage:   "<plaintext>",
		Flags:       []cli.Flag{},
		Description: `Seal a broker API key or secret with BROKER_CREDENTIALS_KEY`,
	}
)

func cycleAction(_ *cli.Context) error {
	logrus.Info("Starting cycle CMD")

	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Error("Failed to connect to database")
		return err
	}

	brokerConfig := broker.GetConfig()
	if brokerConfig.CredentialsEncrypted {
		key, err := security.DecryptString(brokerConfig.APIKey)
		if err != nil {
			return fmt.Errorf("failed to decrypt broker API key: %w", err)
		}
		secret, err := security.DecryptString(brokerConfig.APISecret)
		if err != nil {
			return fmt.Errorf("failed to decrypt broker API secret: %w", err)
		}
		brokerConfig.APIKey, brokerConfig.APISecret = key, secret
	}
	gateway := broker.NewAlpacaClient(brokerConfig)

	execConfig := executor.GetConfig()
	riskManager := risk.NewManager(risk.Config{
		MaxDrawdownPct: decimal.NewFromFloat(execConfig.MaxDrawdownPct),
		RiskPerTrade:   decimal.NewFromFloat(execConfig.RiskPerTrade),
	})

	signals := strategy.NewMomentum(
		logrus.WithField("component", "momentum"),
		repository.NewBarRepository(),
		gateway,
		execConfig.LookbackDays,
		execConfig.MomentumThreshold,
	)

	coordinator, err := executor.NewCoordinator(
		logrus.WithField("component", "coordinator"),
		gateway,
		signals,
		riskManager,
		repository.NewOrderRepository(),
		repository.NewTradeRepository(),
		execConfig,
	)
	if err != nil {
		return err
	}

	report := coordinator.RunCycle(context.Background())
	logrus.WithFields(logrus.Fields{
		"submitted": report.OrdersSubmitted(),
		"errors":    len(report.Errors()),
		"skipped":   report.Skipped,
	}).Info("cycle done")

	return nil
}

func backfillAction(_ *cli.Context) error {
	logrus.Info("Starting backfill CMD")

	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Error("Failed to connect to database")
		return err
	}

	b := &backfill.Backfill{
		Log: logrus.WithField("cmd", "backfill"),
		DB:  database.MainDB,
	}
	if err := b.Start(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}

func encryptAction(c *cli.Context) error {
	plain := c.Args().First()
	if plain == "" {
		return fmt.Errorf("usage: encrypt-credential <plaintext>")
	}

	enc, err := security.EncryptString(plain)
	if err != nil {
		return err
	}

	fmt.Println(enc)
	return nil
}
