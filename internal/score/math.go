package score

import "math"

// LogitClamp bounds logits before exponentiation
const LogitClamp = 50.0

// probEpsilon keeps logit finite at 0 and 1
const probEpsilon = 1e-6

// Sigmoid is the logistic function with the logit clamped to [-50, 50]
func Sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-Clamp(z, -LogitClamp, LogitClamp)))
}

// Logit is the inverse sigmoid with p clamped away from 0 and 1
func Logit(p float64) float64 {
	p = Clamp(p, probEpsilon, 1-probEpsilon)
	return math.Log(p / (1 - p))
}

// ApplyPlatt returns sigmoid(a·logit(p) + b)
func ApplyPlatt(p, a, b float64) float64 {
	return Sigmoid(a*Logit(p) + b)
}

// Clamp limits x to [lo, hi]
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
