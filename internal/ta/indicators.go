package ta

import "math"

// Scalar indicators used by the decision pipeline. All of them are total:
// insufficient history resolves to a documented neutral value, never an error.
const (
	RSIPeriod       = 14
	MACDFast        = 12
	MACDSlow        = 26
	MACDSignal      = 9
	BollingerPeriod = 20
	BollingerStdDev = 2.0
	TrendFastPeriod = 20
	TrendSlowPeriod = 50
	VolumeAvgPeriod = 20

	// Annualization factor for simple returns.
	tradingDaysPerYear = 252

	NeutralRSI        = 50.0
	NeutralMACD       = 0.0
	NeutralBollinger  = 0.5
	NeutralVolatility = 0.02
)

// RSI returns the Wilder-smoothed relative strength index of the latest bar,
// or 50 when fewer than period+1 closes exist.
func RSI(closes []float64, period int) float64 {
	series := RSISeries(closes, period)
	if len(series) == 0 {
		return NeutralRSI
	}
	last := series[len(series)-1]
	if math.IsNaN(last) {
		return NeutralRSI
	}
	return last
}

// MACD returns EMA(12) - EMA(26) of the latest bar, or 0 when fewer than 26
// closes exist.
func MACD(closes []float64) float64 {
	if len(closes) < MACDSlow {
		return NeutralMACD
	}
	fast := EMASeries(closes, MACDFast)
	slow := EMASeries(closes, MACDSlow)
	return fast[len(fast)-1] - slow[len(slow)-1]
}

// BollingerPosition returns where the latest close sits inside the 20-period
// SMA +/- 2 sigma bands, 0 at the lower band and 1 at the upper. Degenerate
// bands (zero variance) and short history resolve to 0.5.
func BollingerPosition(closes []float64) float64 {
	if len(closes) < BollingerPeriod {
		return NeutralBollinger
	}
	window := closes[len(closes)-BollingerPeriod:]
	mean, std := MeanStd(window)
	upper := mean + BollingerStdDev*std
	lower := mean - BollingerStdDev*std
	if upper == lower {
		return NeutralBollinger
	}
	return (closes[len(closes)-1] - lower) / (upper - lower)
}

// Volatility returns the annualized standard deviation of simple returns,
// or 0.02 when fewer than 2 closes exist.
func Volatility(closes []float64) float64 {
	rets := SimpleReturns(closes)
	if len(rets) == 0 {
		return NeutralVolatility
	}
	_, std := MeanStd(rets)
	return std * math.Sqrt(tradingDaysPerYear)
}

// Trend classifies the series by comparing the 20-period and 50-period
// moving averages of the latest bar. Fewer than 20 closes default to
// sideways. With 20..49 closes the slow average falls back to the full
// window, matching a rolling mean that has not filled its window yet.
func Trend(closes []float64) string {
	if len(closes) < TrendFastPeriod {
		return "sideways"
	}
	fast := tailMean(closes, TrendFastPeriod)
	slowPeriod := TrendSlowPeriod
	if len(closes) < slowPeriod {
		slowPeriod = len(closes)
	}
	slow := tailMean(closes, slowPeriod)
	switch {
	case fast > slow:
		return "bullish"
	case fast < slow:
		return "bearish"
	default:
		return "sideways"
	}
}

// VolumeProfile classifies the latest volume against its 20-period average:
// above 1.5x is high, below 0.5x is low, else medium. Short history is
// medium.
func VolumeProfile(volumes []float64) string {
	if len(volumes) < VolumeAvgPeriod {
		return "medium"
	}
	avg := tailMean(volumes, VolumeAvgPeriod)
	current := volumes[len(volumes)-1]
	switch {
	case avg > 0 && current > avg*1.5:
		return "high"
	case avg > 0 && current < avg*0.5:
		return "low"
	default:
		return "medium"
	}
}

// SimpleReturns computes bar-over-bar fractional price changes. Bars
// following a zero close are skipped to keep the series finite.
func SimpleReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		out = append(out, closes[i]/closes[i-1]-1)
	}
	return out
}

func tailMean(values []float64, n int) float64 {
	window := values[len(values)-n:]
	var sum float64
	for _, v := range window {
		sum += v
	}
	return sum / float64(n)
}

// MeanStd returns the mean and population standard deviation of values.
func MeanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}

// EMASeries computes an exponential moving average over the whole series.
func EMASeries(values []float64, period int) []float64 {
	if len(values) == 0 {
		return nil
	}
	if period <= 1 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	alpha := 2.0 / float64(period+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// RSISeries computes a Wilder-smoothed RSI series. Entries before the warmup
// window are NaN; a series shorter than period+1 yields nil.
func RSISeries(closes []float64, period int) []float64 {
	if len(closes) <= period {
		return nil
	}
	series := make([]float64, len(closes))
	for i := range series {
		series[i] = math.NaN()
	}

	var gainSum float64
	var lossSum float64
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gainSum += delta
		} else {
			lossSum -= delta
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)
	series[period] = rsiFromAvg(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain := math.Max(delta, 0)
		loss := math.Max(-delta, 0)
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		series[i] = rsiFromAvg(avgGain, avgLoss)
	}
	return series
}

func rsiFromAvg(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// MACDSeries returns the MACD line and its signal line over the whole series.
func MACDSeries(values []float64, fast, slow, signal int) ([]float64, []float64) {
	if len(values) == 0 {
		return nil, nil
	}
	fastEMA := EMASeries(values, fast)
	slowEMA := EMASeries(values, slow)
	macdLine := make([]float64, len(values))
	for i := range values {
		macdLine[i] = fastEMA[i] - slowEMA[i]
	}
	signalLine := EMASeries(macdLine, signal)
	return macdLine, signalLine
}

// BollingerSeries returns middle, upper and lower bands over the whole
// series. Entries before the warmup window are NaN.
func BollingerSeries(values []float64, period int, stdDevs float64) ([]float64, []float64, []float64) {
	if len(values) == 0 {
		return nil, nil, nil
	}
	middle := make([]float64, len(values))
	upper := make([]float64, len(values))
	lower := make([]float64, len(values))
	for i := range values {
		middle[i] = math.NaN()
		upper[i] = math.NaN()
		lower[i] = math.NaN()
	}
	if period <= 0 {
		return middle, upper, lower
	}
	for i := period - 1; i < len(values); i++ {
		window := values[i-period+1 : i+1]
		mean, std := MeanStd(window)
		middle[i] = mean
		upper[i] = mean + stdDevs*std
		lower[i] = mean - stdDevs*std
	}
	return middle, upper, lower
}
