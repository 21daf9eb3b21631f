// Package analysis inspects the time series a headless run produces.
//
// [DominantPeriod] recovers the cycle length from a per-tick count series
// using its autocorrelation, which lets a trace confirm that the animation
// repeats with the configured period.
package analysis
