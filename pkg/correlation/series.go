// Package correlation implements the C4 correlation analyzer: Pearson
// correlation with lag detection, z-score normalisation, detrending,
// significance testing and a Bayesian posterior over "the correlation is
// real". It is pure, synchronous, CPU-bound code with no
// adapter calls, so it never needs to be a goroutine-suspension point.
package correlation

import "math"

// NaN is the sentinel gap value the analyzer recognises in aligned series
//.
var NaN = math.NaN()

// Point is one (timestamp, value) sample of a time series.
type Point struct {
	Timestamp int64 // unix seconds; callers convert as needed
	Value     float64
}

// Series is an ordered, timestamp-ascending set of samples.
type Series []Point

// align intersects two series by timestamp and pairwise-drops samples where
// either value is NaN, returning equal-length value slices.
func align(a, b Series) (xs, ys []float64) {
	bIdx := make(map[int64]float64, len(b))
	for _, p := range b {
		bIdx[p.Timestamp] = p.Value
	}
	for _, p := range a {
		bv, ok := bIdx[p.Timestamp]
		if !ok {
			continue
		}
		if math.IsNaN(p.Value) || math.IsNaN(bv) {
			continue
		}
		xs = append(xs, p.Value)
		ys = append(ys, bv)
	}
	return xs, ys
}

// kahanSum computes a Neumaier-compensated sum, used for series long enough
// (>1e5 points) that naive summation would lose precision.
func kahanSum(values []float64) float64 {
	sum := 0.0
	c := 0.0
	for _, v := range values {
		t := sum + v
		if math.Abs(sum) >= math.Abs(v) {
			c += (sum - t) + v
		} else {
			c += (v - t) + sum
		}
		sum = t
	}
	return sum + c
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return kahanSum(values) / float64(len(values))
}

func stddev(values []float64, m float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sq := make([]float64, len(values))
	for i, v := range values {
		d := v - m
		sq[i] = d * d
	}
	return math.Sqrt(kahanSum(sq) / float64(len(values)))
}

// zscoreNormalize returns a new slice with each value replaced by its
// z-score. If the series is constant (std dev 0), returns all-zero values
// and ok=false so callers can detect the degenerate case.
func zscoreNormalize(values []float64) (out []float64, ok bool) {
	m := mean(values)
	sd := stddev(values, m)
	out = make([]float64, len(values))
	if sd == 0 {
		return out, false
	}
	for i, v := range values {
		out[i] = (v - m) / sd
	}
	return out, true
}

// detrend removes the linear least-squares fit from a series indexed by
// position.
func detrend(values []float64) []float64 {
	n := float64(len(values))
	if n < 2 {
		return append([]float64(nil), values...)
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range values {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	out := make([]float64, len(values))
	if denom == 0 {
		copy(out, values)
		return out
	}
	slope := (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / n
	for i, v := range values {
		fit := slope*float64(i) + intercept
		out[i] = v - fit
	}
	return out
}

// pearson computes the Pearson correlation coefficient between two
// equal-length series. Returns (r, ok); ok is false when either series has
// zero variance (degenerate).
func pearson(xs, ys []float64) (float64, bool) {
	n := len(xs)
	if n == 0 || len(ys) != n {
		return 0, false
	}
	mx, my := mean(xs), mean(ys)
	sdx, sdy := stddev(xs, mx), stddev(ys, my)
	if sdx == 0 || sdy == 0 {
		return 0, false
	}
	cov := make([]float64, n)
	for i := range xs {
		cov[i] = (xs[i] - mx) * (ys[i] - my)
	}
	covSum := kahanSum(cov)
	r := covSum / (float64(n) * sdx * sdy)
	if r > 1 {
		r = 1
	}
	if r < -1 {
		r = -1
	}
	return r, true
}

// anomalies flags indices whose |z-score| exceeds 3.
// Operates on an already-normalised (z-scored) series.
func anomalies(zscores []float64) (count int) {
	for _, z := range zscores {
		if math.Abs(z) > 3 {
			count++
		}
	}
	return count
}
