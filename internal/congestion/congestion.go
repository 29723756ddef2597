package congestion

import "time"

// hourWeights scale the raw occupancy ratio by typical traffic per hour of
// day. Peak hours (07-08, 18-21) push the estimate up, night hours pull it
// down.
var hourWeights = [24]float64{
	0: 0.5, 1: 0.4, 2: 0.3, 3: 0.3, 4: 0.4, 5: 0.6,
	6: 0.8, 7: 1.1, 8: 1.2, 9: 1.0, 10: 0.8, 11: 0.7,
	12: 0.8, 13: 0.8, 14: 0.7, 15: 0.7, 16: 0.9, 17: 1.1,
	18: 1.4, 19: 1.5, 20: 1.4, 21: 1.2, 22: 0.9, 23: 0.7,
}

// Ratio is the occupancy ratio shown to users: user_count / size clamped to
// [0, 1]. A gym with size 0 reports 0.
func Ratio(currentUsers, maxCapacity int) float64 {
	if maxCapacity <= 0 {
		return 0.0
	}
	return clamp(float64(currentUsers) / float64(maxCapacity))
}

// Forecast weights the raw ratio by the current hour's traffic profile.
func Forecast(currentUsers, maxCapacity int, at time.Time) float64 {
	if maxCapacity <= 0 {
		return 0.0
	}

	baseRatio := float64(currentUsers) / float64(maxCapacity)
	return clamp(baseRatio * hourWeights[at.Hour()])
}

// ApplyEMA smooths successive congestion samples, weighting the newest
// sample at 20%.
func ApplyEMA(prevEMA, newVal float64) float64 {
	const alpha = 0.2
	return (newVal * alpha) + (prevEMA * (1 - alpha))
}

func clamp(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	if v < 0.0 {
		return 0.0
	}
	return v
}
