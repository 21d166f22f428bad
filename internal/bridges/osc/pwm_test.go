package osc

import (
	"math"
	"math/bits"
	"testing"
)

func TestDutyCycleMask(t *testing.T) {
	tests := []struct {
		name string
		duty float64
		want uint32
	}{
		{name: "zero", duty: 0, want: 0},
		{name: "full", duty: 1, want: 0xFFFFFFFF},
		{name: "half", duty: 0.5, want: 0x55555555},
		{name: "quarter", duty: 0.25, want: 0x11111111},
		{name: "clamp below", duty: -0.5, want: 0},
		{name: "clamp above", duty: 1.5, want: 0xFFFFFFFF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DutyCycleMask(tt.duty); got != tt.want {
				t.Errorf("DutyCycleMask(%v) = %#08x, want %#08x", tt.duty, got, tt.want)
			}
		})
	}
}

// The encoder's defining property: over any prefix of k slots (MSB
// first), the number of set bits tracks k*d to within one.
func TestDutyCycleMask_PrefixDensity(t *testing.T) {
	for d := 0.0; d <= 1.0; d += 0.01 {
		mask := DutyCycleMask(d)
		for k := 1; k <= maskWidth; k++ {
			prefix := mask >> (maskWidth - k)
			count := float64(bits.OnesCount32(prefix))
			if diff := math.Abs(count - float64(k)*d); diff >= 1 {
				t.Fatalf("d=%v k=%d: prefix popcount %v deviates by %v from %v",
					d, k, count, diff, float64(k)*d)
			}
		}
	}
}

func TestDutyCycleMask_Monotone(t *testing.T) {
	prev := 0
	for d := 0.0; d <= 1.0; d += 0.05 {
		count := bits.OnesCount32(DutyCycleMask(d))
		if count < prev {
			t.Fatalf("popcount decreased at d=%v: %d < %d", d, count, prev)
		}
		prev = count
	}
}
