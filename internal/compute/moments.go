package compute

import (
	"math"
	"sort"
)

// mean returns the arithmetic mean
func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// sampleVariance is the Bessel-corrected variance, 0 for n <= 1
func sampleVariance(xs []float64) float64 {
	n := len(xs)
	if n <= 1 {
		return 0
	}
	m := mean(xs)
	ss := 0.0
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return ss / float64(n-1)
}

// centralMoment returns the k-th moment about the mean
func centralMoment(xs []float64, k int) float64 {
	m := mean(xs)
	sum := 0.0
	for _, x := range xs {
		sum += math.Pow(x-m, float64(k))
	}
	return sum / float64(len(xs))
}

// skewness is the biased sample skewness g1 = m3 / m2^1.5
func skewness(xs []float64) float64 {
	m2 := centralMoment(xs, 2)
	if m2 == 0 {
		return 0
	}
	return centralMoment(xs, 3) / math.Pow(m2, 1.5)
}

// excessKurtosis is the biased excess kurtosis g2 = m4 / m2^2 - 3
func excessKurtosis(xs []float64) float64 {
	m2 := centralMoment(xs, 2)
	if m2 == 0 {
		return 0
	}
	return centralMoment(xs, 4)/(m2*m2) - 3
}

// median returns the middle value, averaging the two central values for
// even lengths
func median(xs []float64) float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func minOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func maxOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

// rankData assigns 1-based ranks to the concatenated sample, averaging
// tied ranks. tieSum accumulates t^3 - t over tie groups for the
// corrections Kruskal-Wallis and Mann-Whitney need.
func rankData(xs []float64) (ranks []float64, tieSum float64) {
	n := len(xs)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return xs[idx[a]] < xs[idx[b]] })

	ranks = make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && xs[idx[j+1]] == xs[idx[i]] {
			j++
		}
		avg := float64(i+j+2) / 2 // ranks are 1-based
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		if t := float64(j - i + 1); t > 1 {
			tieSum += t*t*t - t
		}
		i = j + 1
	}
	return ranks, tieSum
}
