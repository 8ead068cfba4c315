package block

import "math"

// Signal is the value carried by one port: a vector of floats.
// Scalar signals have width 1.
type Signal []float64

// Scalar wraps a single float as a width-1 signal.
func Scalar(v float64) Signal {
	return Signal{v}
}

func (s Signal) Clone() Signal {
	c := make(Signal, len(s))
	copy(c, s)
	return c
}

func (s Signal) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s Signal) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s Signal) Scale(factor float64) Signal {
	result := make(Signal, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}
