package osc

// maskWidth is the resolution of a lamp PWM schedule mask.
const maskWidth = 32

// DutyCycleMask converts a fractional duty cycle in [0,1] into a 32-bit
// PWM schedule mask whose set-bit density approximates the duty cycle.
//
// The encoding is a greedy Bresenham-style accumulation: for each bit
// slot, most significant first, the duty cycle is added to a running
// accumulator, and the bit is set when the accumulator's integer part
// pulls ahead of the bits already set. This spreads "on" pulses evenly
// across the mask instead of clustering them, which matters for flicker
// on lamp matrices. Over any prefix of k slots the set-bit count differs
// from k*d by less than one.
//
// Inputs outside [0,1] are clamped.
func DutyCycleMask(d float64) uint32 {
	if d <= 0 {
		return 0
	}
	if d >= 1 {
		return 1<<maskWidth - 1
	}

	var mask uint32
	var acc float64
	set := 0
	for i := 0; i < maskWidth; i++ {
		mask <<= 1
		acc += d
		if int(acc) > set {
			mask |= 1
			set++
		}
	}
	return mask
}
