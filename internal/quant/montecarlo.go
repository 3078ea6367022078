// Package quant holds the stochastic price-path projection. It is a
// standalone numeric routine over historical closes; nothing in the
// debate engine depends on it.
package quant

import (
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/investlens/lenscore/internal/models"
)

const (
	dailyDrift = 0.0005
	zScore     = 1.96 // 95% confidence band
)

// Point is one projected step with its confidence band.
type Point struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
	Upper float64 `json:"upper"`
	Lower float64 `json:"lower"`
}

// Forecast is a Monte-Carlo price projection. A statistical artifact,
// not financial advice.
type Forecast struct {
	Symbol            string  `json:"symbol"`
	ForecastDays      int     `json:"forecast_days"`
	VolatilityContext float64 `json:"volatility_context"` // daily volatility, percent
	Predictions       []Point `json:"predictions"`
}

// ErrInsufficientData means the history is too short to estimate
// volatility.
var ErrInsufficientData = errors.New("insufficient historical data")

// Predict projects a stochastic price path from the candle history.
// rng may be nil, in which case a time-seeded source is used; tests
// pass a fixed seed.
func Predict(hist *models.History, days int, rng *rand.Rand) (*Forecast, error) {
	if days <= 0 {
		days = 7
	}
	if hist == nil || len(hist.Candles) < 3 {
		return nil, ErrInsufficientData
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	closes := make([]float64, len(hist.Candles))
	for i, c := range hist.Candles {
		f, _ := c.Close.Float64()
		closes[i] = f
	}

	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		returns = append(returns, closes[i]/closes[i-1]-1)
	}
	if len(returns) < 2 {
		return nil, ErrInsufficientData
	}

	volatility := stddev(returns)
	lastPrice := closes[len(closes)-1]
	lastDate, err := time.Parse("2006-01-02", hist.Candles[len(hist.Candles)-1].Date)
	if err != nil {
		lastDate = time.Now()
	}

	forecast := &Forecast{
		Symbol:            hist.Symbol,
		ForecastDays:      days,
		VolatilityContext: round2(volatility * 100),
		Predictions:       make([]Point, 0, days),
	}

	current := lastPrice
	for i := 1; i <= days; i++ {
		shock := rng.NormFloat64() * volatility
		current = current * (1 + dailyDrift + shock)

		uncertainty := lastPrice * volatility * math.Sqrt(float64(i)) * zScore
		trend := lastPrice * (1 + float64(i)*dailyDrift)

		forecast.Predictions = append(forecast.Predictions, Point{
			Date:  lastDate.AddDate(0, 0, i).Format("2006-01-02"),
			Price: round2(current),
			Upper: round2(trend + uncertainty),
			Lower: round2(trend - uncertainty),
		})
	}

	return forecast, nil
}

func stddev(xs []float64) float64 {
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	variance := 0.0
	for _, x := range xs {
		variance += (x - mean) * (x - mean)
	}
	variance /= float64(len(xs) - 1)

	return math.Sqrt(variance)
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
