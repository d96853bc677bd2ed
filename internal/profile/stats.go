package profile

import (
	"math"
	"sort"
)

// moments holds the sample size, mean and central moment sums of a sample.
type moments struct {
	n          float64
	mean       float64
	m2, m3, m4 float64 // Σ(x-mean)^k
	min, max   float64
	sorted     []float64
}

func newMoments(xs []float64) moments {
	m := moments{n: float64(len(xs))}
	if len(xs) == 0 {
		m.mean, m.min, m.max = math.NaN(), math.NaN(), math.NaN()
		return m
	}

	m.sorted = append([]float64(nil), xs...)
	sort.Float64s(m.sorted)
	m.min = m.sorted[0]
	m.max = m.sorted[len(m.sorted)-1]

	var sum float64
	for _, x := range xs {
		sum += x
	}
	m.mean = sum / m.n

	for _, x := range xs {
		d := x - m.mean
		d2 := d * d
		m.m2 += d2
		m.m3 += d2 * d
		m.m4 += d2 * d2
	}
	return m
}

// std is the sample standard deviation (n-1 denominator); NaN for n < 2.
func (m moments) std() float64 {
	if m.n < 2 {
		return math.NaN()
	}
	return math.Sqrt(m.m2 / (m.n - 1))
}

// skewness is the adjusted Fisher-Pearson coefficient G1; NaN for n < 3 and
// 0 for a constant sample.
func (m moments) skewness() float64 {
	n := m.n
	if n < 3 {
		return math.NaN()
	}
	if m.m2 == 0 {
		return 0
	}
	return n * math.Sqrt(n-1) / (n - 2) * m.m3 / math.Pow(m.m2, 1.5)
}

// kurtosis is the bias-adjusted excess kurtosis G2; NaN for n < 4 and 0 for
// a constant sample.
func (m moments) kurtosis() float64 {
	n := m.n
	if n < 4 {
		return math.NaN()
	}
	if m.m2 == 0 {
		return 0
	}
	num := n * (n + 1) * (n - 1) * m.m4
	den := (n - 2) * (n - 3) * m.m2 * m.m2
	adj := 3 * (n - 1) * (n - 1) / ((n - 2) * (n - 3))
	return num/den - adj
}

// quantile interpolates linearly between the closest ranks at h = (n-1)p.
func (m moments) quantile(p float64) float64 {
	return quantileSorted(m.sorted, p)
}

func quantileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}

// outliers counts values strictly outside [q1-1.5*IQR, q3+1.5*IQR].
func outliers(sorted []float64, q1, q3 float64) int {
	iqr := q3 - q1
	lo, hi := q1-1.5*iqr, q3+1.5*iqr
	n := 0
	for _, x := range sorted {
		if x < lo || x > hi {
			n++
		}
	}
	return n
}
