package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/kmoganti/stock-trading-system-sub001/services/scanner"
)

// minDailyBars is the minimum daily history a strategy needs.
const minDailyBars = 30

// StrategyAnalyzer evaluates one category's strategy over a cached
// dataset. It is a pure function of the data: no network I/O happens
// here, which is what keeps the scanner's fetch-once guarantee intact.
type StrategyAnalyzer struct{}

// NewStrategyAnalyzer creates the built-in analyzer.
func NewStrategyAnalyzer() *StrategyAnalyzer {
	return &StrategyAnalyzer{}
}

// Analyze runs the strategy registered for the category and returns zero
// or one signal for the symbol.
func (a *StrategyAnalyzer) Analyze(ctx context.Context, symbol string, category scanner.Category, data *scanner.CachedSymbolData) ([]scanner.Signal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	daily := data.Series[scanner.PrimaryTimeframe]
	if len(daily) < minDailyBars {
		return nil, fmt.Errorf("%s: insufficient history, %d daily bars", symbol, len(daily))
	}

	var sig *scanner.Signal
	switch category {
	case scanner.CategoryDayTrading:
		sig = evaluateDayTrading(daily)
	case scanner.CategoryShortSelling:
		sig = evaluateShortSelling(daily)
	case scanner.CategorySwingShort:
		sig = evaluateSwingShort(daily)
	case scanner.CategorySwingLong:
		sig = evaluateSwingLong(daily)
	case scanner.CategoryLongTerm:
		sig = evaluateLongTerm(daily)
	default:
		return nil, fmt.Errorf("no strategy registered for category %q", category)
	}

	if sig == nil {
		return nil, nil
	}
	sig.Symbol = symbol
	sig.Category = category
	sig.GeneratedAt = time.Now()
	return []scanner.Signal{*sig}, nil
}

// evaluateDayTrading flags intraday momentum: price above SMA20 on a
// volume spike while RSI still has room.
func evaluateDayTrading(daily []scanner.Candle) *scanner.Signal {
	prices := closes(daily)
	last := prices[len(prices)-1]
	sma20 := sma(prices, 20)
	rsi14 := rsi(prices, 14)
	volRatio := volumeRatio(daily, 20)

	if sma20 == 0 || last <= sma20 || volRatio < 1.5 || rsi14 >= 70 {
		return nil
	}

	strength := clampStrength(50 + int((volRatio-1.5)*20) + int((last/sma20-1)*400))
	return &scanner.Signal{
		Type:        "BUY",
		Price:       last,
		TargetPrice: round2(last * 1.02),
		StopLoss:    round2(last * 0.99),
		Strength:    strength,
		Reason:      fmt.Sprintf("momentum: price %.2f above SMA20 %.2f, volume %.1fx average, RSI %.0f", last, sma20, volRatio, rsi14),
	}
}

// evaluateShortSelling flags breakdowns: price below SMA20 with downward
// momentum and RSI not yet oversold.
func evaluateShortSelling(daily []scanner.Candle) *scanner.Signal {
	prices := closes(daily)
	last := prices[len(prices)-1]
	sma20 := sma(prices, 20)
	rsi14 := rsi(prices, 14)
	ret5 := returnOver(prices, 5)

	if sma20 == 0 || last >= sma20 || rsi14 <= 30 || ret5 >= -0.02 {
		return nil
	}

	strength := clampStrength(50 + int(-ret5*500) + int((1-last/sma20)*400))
	return &scanner.Signal{
		Type:        "SHORT",
		Price:       last,
		TargetPrice: round2(last * 0.97),
		StopLoss:    round2(last * 1.015),
		Strength:    strength,
		Reason:      fmt.Sprintf("breakdown: price %.2f below SMA20 %.2f, %.1f%% down over 5 bars, RSI %.0f", last, sma20, ret5*100, rsi14),
	}
}

// evaluateSwingShort flags a fresh SMA10/SMA30 bullish cross.
func evaluateSwingShort(daily []scanner.Candle) *scanner.Signal {
	prices := closes(daily)
	last := prices[len(prices)-1]
	sma10 := sma(prices, 10)
	sma30 := sma(prices, 30)
	prev10 := sma(prices[:len(prices)-3], 10)
	prev30 := sma(prices[:len(prices)-3], 30)

	crossedUp := sma10 > sma30 && prev10 != 0 && prev30 != 0 && prev10 <= prev30
	if !crossedUp {
		return nil
	}

	strength := clampStrength(55 + int((sma10/sma30-1)*1000))
	return &scanner.Signal{
		Type:        "BUY",
		Price:       last,
		TargetPrice: round2(last * 1.05),
		StopLoss:    round2(last * 0.97),
		Strength:    strength,
		Reason:      fmt.Sprintf("swing: SMA10 %.2f crossed above SMA30 %.2f", sma10, sma30),
	}
}

// evaluateSwingLong flags sustained trends: price above SMA50 and EMA21
// with a meaningful one-month return and RSI in a healthy band.
func evaluateSwingLong(daily []scanner.Candle) *scanner.Signal {
	prices := closes(daily)
	last := prices[len(prices)-1]
	sma50 := sma(prices, 50)
	ema21 := ema(prices, 21)
	rsi14 := rsi(prices, 14)
	ret21 := returnOver(prices, 21)

	if sma50 == 0 || last <= sma50 || ema21 == 0 || last <= ema21 || ret21 < 0.05 || rsi14 < 45 || rsi14 > 65 {
		return nil
	}

	strength := clampStrength(50 + int(ret21*300))
	return &scanner.Signal{
		Type:        "BUY",
		Price:       last,
		TargetPrice: round2(last * 1.10),
		StopLoss:    round2(last * 0.95),
		Strength:    strength,
		Reason:      fmt.Sprintf("trend: %.1f%% over one month, price above SMA50 %.2f, RSI %.0f", ret21*100, sma50, rsi14),
	}
}

// evaluateLongTerm flags a golden cross with price confirming above the
// long average.
func evaluateLongTerm(daily []scanner.Candle) *scanner.Signal {
	prices := closes(daily)
	if len(prices) < 200 {
		return nil
	}
	last := prices[len(prices)-1]
	sma50 := sma(prices, 50)
	sma200 := sma(prices, 200)

	if sma200 == 0 || sma50 <= sma200 || last <= sma200 {
		return nil
	}

	strength := clampStrength(50 + int((sma50/sma200-1)*500))
	return &scanner.Signal{
		Type:        "BUY",
		Price:       last,
		TargetPrice: round2(last * 1.20),
		StopLoss:    round2(last * 0.90),
		Strength:    strength,
		Reason:      fmt.Sprintf("golden cross: SMA50 %.2f above SMA200 %.2f", sma50, sma200),
	}
}

func clampStrength(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
