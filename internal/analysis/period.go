package analysis

import (
	"math"
)

// Autocorrelation returns the normalized autocorrelation of data for lags
// 0..maxLag. Lag 0 is 1 unless data is constant, in which case every entry is
// 0.
func Autocorrelation(data []float64, maxLag int) []float64 {
	n := len(data)
	if maxLag >= n {
		maxLag = n - 1
	}
	if maxLag < 0 {
		return nil
	}

	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(n)

	variance := 0.0
	for _, v := range data {
		variance += (v - mean) * (v - mean)
	}

	acf := make([]float64, maxLag+1)
	if variance == 0 {
		return acf
	}
	for lag := 0; lag <= maxLag; lag++ {
		sum := 0.0
		for i := 0; i+lag < n; i++ {
			sum += (data[i] - mean) * (data[i+lag] - mean)
		}
		acf[lag] = sum / variance
	}
	return acf
}

// DominantPeriod estimates the repeat length of a periodic series as the lag
// of the highest autocorrelation peak after the first zero crossing. It
// returns 0 when fewer than two full periods could be present or no peak is
// found.
func DominantPeriod(data []float64) int {
	acf := Autocorrelation(data, len(data)/2)
	if len(acf) < 3 {
		return 0
	}

	start := 1
	for start < len(acf) && acf[start] > 0 {
		start++
	}

	best, bestLag := math.Inf(-1), 0
	for lag := start + 1; lag < len(acf); lag++ {
		peak := acf[lag] >= acf[lag-1] && (lag == len(acf)-1 || acf[lag] >= acf[lag+1])
		if peak && acf[lag] > best+1e-9 {
			best, bestLag = acf[lag], lag
		}
	}
	if best <= 0 {
		return 0
	}
	return bestLag
}
