package analysis

import "github.com/kmoganti/stock-trading-system-sub001/services/scanner"

// closes extracts the close series in chronological order.
func closes(candles []scanner.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// sma returns the simple moving average of the last period values, or 0
// when there is not enough data.
func sma(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return 0
	}
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period)
}

// ema returns the exponential moving average over the whole series,
// seeded with the first value.
func ema(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return 0
	}
	multiplier := 2.0 / float64(period+1)
	avg := values[0]
	for _, v := range values[1:] {
		avg = (v-avg)*multiplier + avg
	}
	return avg
}

// rsi returns the Relative Strength Index over the last period changes.
func rsi(values []float64, period int) float64 {
	if period <= 0 || len(values) < period+1 {
		return 0
	}
	window := values[len(values)-period-1:]
	gains, losses := 0.0, 0.0
	for i := 1; i < len(window); i++ {
		change := window[i] - window[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}
	if losses == 0 {
		return 100
	}
	rs := gains / losses
	return 100 - 100/(1+rs)
}

// volumeRatio compares the latest volume against the average of the
// preceding period.
func volumeRatio(candles []scanner.Candle, period int) float64 {
	if len(candles) < period+1 {
		return 0
	}
	recent := candles[len(candles)-period-1 : len(candles)-1]
	sum := int64(0)
	for _, c := range recent {
		sum += c.Volume
	}
	if sum == 0 {
		return 0
	}
	avg := float64(sum) / float64(period)
	return float64(candles[len(candles)-1].Volume) / avg
}

// returnOver is the fractional price change across the last n bars.
func returnOver(values []float64, n int) float64 {
	if n <= 0 || len(values) < n+1 {
		return 0
	}
	past := values[len(values)-n-1]
	if past == 0 {
		return 0
	}
	return (values[len(values)-1] - past) / past
}
