package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"autotrader/src/broker"
	"autotrader/src/database"
	"autotrader/src/executor"
	"autotrader/src/repository"
	"autotrader/src/risk"
	"autotrader/src/scheduler"
	"autotrader/src/security"
	"autotrader/src/server"
	"autotrader/src/strategy"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

var APP_NAME = os.Getenv("APP_NAME")

func SetupLogger() {
	levelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))

	level, err := logger.ParseLevel(levelStr)
	if err != nil {
		level = logger.InfoLevel
	}

	logger.SetLevel(level)
	logger.SetFormatter(&logger.TextFormatter{
		FullTimestamp: true,
	})
}

func main() {
	SetupLogger()
	defer handlePanic()

	dbConfig := database.GetConfig()
	if dbConfig.EnableDB {
		if err := database.InitMainDB(); err != nil {
			logger.WithError(err).Fatal("Failed to connect to database")
		}
	}

	brokerConfig := broker.GetConfig()
	if brokerConfig.CredentialsEncrypted {
		key, err := security.DecryptString(brokerConfig.APIKey)
		if err != nil {
			logger.WithError(err).Fatal("Failed to decrypt broker API key")
		}
		secret, err := security.DecryptString(brokerConfig.APISecret)
		if err != nil {
			logger.WithError(err).Fatal("Failed to decrypt broker API secret")
		}
		brokerConfig.APIKey, brokerConfig.APISecret = key, secret
	}

	gateway := broker.NewAlpacaClient(brokerConfig)

	execConfig := executor.GetConfig()

	riskManager := risk.NewManager(risk.Config{
		MaxDrawdownPct: decimal.NewFromFloat(execConfig.MaxDrawdownPct),
		RiskPerTrade:   decimal.NewFromFloat(execConfig.RiskPerTrade),
	})

	var history strategy.PriceHistory
	var orders executor.OrderCreator = executor.NopOrderCreator{}
	var trades executor.TradeRecorder = executor.NopTradeRecorder{}
	if dbConfig.EnableDB {
		history = repository.NewBarRepository()
		orders = repository.NewOrderRepository()
		trades = repository.NewTradeRepository()
	} else {
		logger.Warn("database disabled, momentum has no price history and will hold everything")
		history = emptyHistory{}
	}

	signals := strategy.NewMomentum(
		logger.WithField("component", "momentum"),
		history,
		gateway,
		execConfig.LookbackDays,
		execConfig.MomentumThreshold,
	)

	coordinator, err := executor.NewCoordinator(
		logger.WithField("component", "coordinator"),
		gateway,
		signals,
		riskManager,
		orders,
		trades,
		execConfig,
	)
	if err != nil {
		logger.WithError(err).Fatal("Failed to build coordinator")
	}

	sched := scheduler.New(logger.WithField("component", "scheduler"))
	err = sched.Register(scheduler.Job{
		ID:   "daily-momentum",
		Spec: scheduler.Daily(execConfig.ScheduleHour, execConfig.ScheduleMinute),
		Run: func() {
			coordinator.RunCycle(context.Background())
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to register trading job")
	}
	if err := sched.Start(); err != nil {
		logger.WithError(err).Fatal("Failed to start scheduler")
	}
	defer sched.Stop()

	if dbConfig.EnableDB {
		go runTradeUpdateStream(brokerConfig)
	}

	serverConfig := server.GetConfig()
	server.StartServer(serverConfig.Port, coordinator)
}

// runTradeUpdateStream keeps the broker trade-updates stream alive and
// reconciles fills into the orders table and the trade log.
func runTradeUpdateStream(cfg broker.Config) {
	stream := broker.NewTradeUpdateStream(cfg)
	reconciler := executor.NewFillReconciler(
		logger.WithField("component", "fill_reconciler"),
		repository.NewOrderRepository(),
		repository.NewTradeRepository(),
	)

	for {
		if err := stream.Run(context.Background(), reconciler.Handle); err != nil {
			logger.WithError(err).Error("trade update stream disconnected, retrying")
		}
		time.Sleep(5 * time.Second)
	}
}

type emptyHistory struct{}

func (emptyHistory) DailyCloses(context.Context, string, int) ([]decimal.Decimal, error) {
	return nil, nil
}

func handlePanic() {
	if r := recover(); r != nil {
		logger.WithError(fmt.Errorf("%+v", r)).Error(fmt.Sprintf("Application %s panic", APP_NAME))
	}
	//nolint
	time.Sleep(time.Second * 5)
}
