package ml

import (
	"math"

	"cautious-pancake/internal/domain"
	"cautious-pancake/internal/ta"
)

// edgeHorizon is how many bars ahead the label looks: a sample is positive
// when the close is higher edgeHorizon bars later.
const edgeHorizon = 3

// FeatureNames describe the columns of every edge feature vector, in order.
var FeatureNames = []string{
	"rsi",
	"macd",
	"bollinger_position",
	"return_1",
	"return_5",
	"volume_ratio",
}

// FeatureVector computes the edge features at bar i. ok is false inside the
// indicator warmup window or when any value is not finite.
func FeatureVector(candles []*domain.Candle, i int) ([]float64, bool) {
	if i < ta.BollingerPeriod || i >= len(candles) {
		return nil, false
	}
	closes := domain.Closes(candles)
	volumes := domain.Volumes(candles)

	rsi := ta.RSISeries(closes, ta.RSIPeriod)
	macdLine, _ := ta.MACDSeries(closes, ta.MACDFast, ta.MACDSlow, ta.MACDSignal)
	_, upper, lower := ta.BollingerSeries(closes, ta.BollingerPeriod, ta.BollingerStdDev)

	if rsi == nil || i >= len(rsi) {
		return nil, false
	}

	bb := 0.5
	if width := upper[i] - lower[i]; width > 0 {
		bb = (closes[i] - lower[i]) / width
	}

	ret1 := barReturn(closes, i, 1)
	ret5 := barReturn(closes, i, 5)

	volRatio := 1.0
	if avg := windowMean(volumes[:i+1], ta.VolumeAvgPeriod); avg > 0 {
		volRatio = volumes[i] / avg
	}

	vec := []float64{rsi[i], macdLine[i], bb, ret1, ret5, volRatio}
	for _, v := range vec {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, false
		}
	}
	return vec, true
}

// Dataset builds the labeled training matrix from a candle window. Samples
// stop edgeHorizon bars before the end so every label is resolvable.
func Dataset(candles []*domain.Candle) (samples [][]float64, labels []float64) {
	closes := domain.Closes(candles)
	for i := ta.BollingerPeriod; i+edgeHorizon < len(candles); i++ {
		vec, ok := FeatureVector(candles, i)
		if !ok {
			continue
		}
		label := 0.0
		if closes[i+edgeHorizon] > closes[i] {
			label = 1.0
		}
		samples = append(samples, vec)
		labels = append(labels, label)
	}
	return samples, labels
}

func barReturn(closes []float64, i, lag int) float64 {
	if i-lag < 0 || closes[i-lag] == 0 {
		return 0
	}
	return closes[i]/closes[i-lag] - 1
}

func windowMean(values []float64, n int) float64 {
	if len(values) == 0 {
		return 0
	}
	if len(values) > n {
		values = values[len(values)-n:]
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
