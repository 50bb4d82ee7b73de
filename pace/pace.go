// Package pace computes inter-band delays from ink coverage. Dense bands need
// more head-heating time and risk command loss when sent back to back.
package pace

import "time"

// Pacer maps band coverage to a settle delay: Base + coverage*DarkBonus.
// It is a heuristic, not a thermal model; the constants were chosen
// empirically and should come from configuration, not be assumed optimal
// for a different printer.
type Pacer struct {
	// Base is the minimum pause after every band.
	Base time.Duration

	// DarkBonus is the extra pause applied at full coverage.
	DarkBonus time.Duration
}

// Delay returns the pause to apply after sending a band with the given ink
// coverage. Coverage is clamped to [0, 1]; the result is monotonically
// non-decreasing in coverage and Delay(0) is exactly Base.
func (p Pacer) Delay(coverage float64) time.Duration {
	if coverage < 0 {
		coverage = 0
	}
	if coverage > 1 {
		coverage = 1
	}
	return p.Base + time.Duration(coverage*float64(p.DarkBonus))
}
