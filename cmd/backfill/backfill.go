package backfill

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"autotrader/src/model"
	"autotrader/src/repository"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/nntaoli-project/goex"
	"github.com/nntaoli-project/goex/binance"
)

// Backfill pulls daily OHLCV bars from a crypto venue into the daily_bars
// table so the momentum strategy has real price history for crypto
// universes. Equities history arrives through the broker's data API instead.
type Backfill struct {
	Log      *logger.Entry
	DB       *gorm.DB
	Config   *Config
	exchange goex.API
}

func (b *Backfill) Start() error {
	b.Config = GetConfig()

	b.exchange = b.newBinanceInstance()

	repo := repository.NewBarRepository().WithDB(b.DB)

	for _, symbol := range b.Config.Symbols {
		if err := b.backfillSymbol(symbol, repo); err != nil {
			return err
		}
	}

	return nil
}

func (*Backfill) newBinanceInstance() *binance.Binance {
	apiConfig := &goex.APIConfig{
		HttpClient: http.DefaultClient,
		Endpoint:   binance.GLOBAL_API_BASE_URL,
	}
	return binance.NewWithConfig(apiConfig)
}

func (b *Backfill) backfillSymbol(symbol string, repo *repository.BarRepository) error {
	startDt := b.Config.StartDt
	endDt := b.Config.EndDt

	if b.Config.AutoMode {
		var err error
		startDt, err = b.determineStartPoint(symbol)
		if err != nil {
			return err
		}
		endDt = time.Now()
	}

	series, err := b.fetchDailySeries(symbol, startDt, endDt)
	if err != nil {
		return err
	}

	for i := range series {
		result := series[i]

		bar := &model.DailyBar{
			Datetime: time.Unix(result.Timestamp, 0).UTC(),
			Open:     decimal.NewFromFloat(result.Open),
			High:     decimal.NewFromFloat(result.High),
			Low:      decimal.NewFromFloat(result.Low),
			Close:    decimal.NewFromFloat(result.Close),
			Volume:   decimal.NewFromFloat(result.Vol),
			Symbol:   result.Pair.String(),
		}

		if err := repo.UpsertDailyBar(context.Background(), bar); err != nil {
			b.Log.WithError(err).Error("backfillSymbol, UpsertDailyBar, ")
			return err
		}
	}

	b.Log.WithFields(logger.Fields{
		"Symbol": symbol,
		"Bars":   len(series),
	}).Info("daily bars inserted or updated in database")

	return nil
}

// determineStartPoint resumes from the latest stored bar, or falls back to
// the configured start date on an empty table.
func (b *Backfill) determineStartPoint(symbol string) (time.Time, error) {
	startDt := b.Config.StartDt

	var latestTime *sql.NullTime
	result := b.DB.Model(&model.DailyBar{}).
		Select("MAX(datetime)").
		Where("symbol = ?", symbol+"_"+b.Config.Quote).
		Take(&latestTime)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			b.Log.
				WithError(result.Error).
				WithField("StartDt", startDt.String()).
				Error("no records found, start from the configured StartDt")
			return startDt, nil
		}

		b.Log.
			WithError(result.Error).
			Error("Failed to query latest datetime")
		return startDt, result.Error
	}

	if latestTime != nil && latestTime.Valid {
		// Re-fetch the last stored day so a partial bar gets overwritten.
		startDt = latestTime.Time.Add(-24 * time.Hour)
		b.Log.
			WithField("StartDt", startDt.String()).
			Info("determineStartPoint valid date found")
	}

	return startDt, nil
}

func (b *Backfill) fetchDailySeries(symbol string, startDt, endDt time.Time) ([]goex.Kline, error) {
	targetSymbol := goex.NewCurrencyPair(goex.Currency{Symbol: symbol}, goex.Currency{Symbol: b.Config.Quote})

	const millis = 1000
	klines, err := b.exchange.GetKlineRecords(
		targetSymbol,
		goex.KLINE_PERIOD_1DAY,
		b.Config.Limit,
		goex.OptionalParameter{}.
			Optional("startTime", startDt.Unix()*millis).
			Optional("endTime", endDt.Unix()*millis),
	)
	if err != nil {
		return nil, err
	}

	return klines, nil
}
