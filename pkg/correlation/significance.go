package correlation

import "math"

// studentTSurvival returns the two-sided survival function (p-value) of the
// Student-t distribution with df degrees of freedom at statistic t, i.e.
// P(|T| > |t|). Implemented via the regularized incomplete beta function,
// the standard closed-form relation used for Student-t tail probabilities
//.
func studentTSurvival(t float64, df float64) float64 {
	if df <= 0 {
		return 1
	}
	x := df / (df + t*t)
	ib := regularizedIncompleteBeta(x, df/2, 0.5)
	if ib < 0 {
		ib = 0
	}
	if ib > 1 {
		ib = 1
	}
	return ib
}

// regularizedIncompleteBeta computes I_x(a, b) via its continued-fraction
// expansion (Numerical Recipes' betacf), a standard, numerically stable
// approach avoiding any external statistics dependency for this one
// function.
func regularizedIncompleteBeta(x, a, b float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}
	lbeta := lgamma(a+b) - lgamma(a) - lgamma(b)
	front := math.Exp(lbeta + a*math.Log(x) + b*math.Log(1-x))
	if x < (a+1)/(a+b+2) {
		return front * betacf(x, a, b) / a
	}
	return 1 - front*betacf(1-x, b, a)/b
}

func lgamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}

// betacf is the continued-fraction evaluation used by
// regularizedIncompleteBeta (Lentz's algorithm).
func betacf(x, a, b float64) float64 {
	const maxIter = 200
	const eps = 3e-14
	const tiny = 1e-300

	qab := a + b
	qap := a + 1
	qam := a - 1
	c := 1.0
	d := 1 - qab*x/qap
	if math.Abs(d) < tiny {
		d = tiny
	}
	d = 1 / d
	h := d

	for m := 1; m <= maxIter; m++ {
		m2 := float64(2 * m)
		aa := float64(m) * (b - float64(m)) * x / ((qam + m2) * (a + m2))
		d = 1 + aa*d
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = 1 + aa/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		h *= d * c

		aa = -(a + float64(m)) * (qab + float64(m)) * x / ((a + m2) * (qap + m2))
		d = 1 + aa*d
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = 1 + aa/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		del := d * c
		h *= del
		if math.Abs(del-1) < eps {
			break
		}
	}
	return h
}

// significanceBandFor classifies a p-value into a significance band.
func significanceBandFor(p float64) string {
	switch {
	case p < 0.01:
		return "VERY_SIGNIFICANT"
	case p < 0.05:
		return "SIGNIFICANT"
	case p < 0.10:
		return "WEAK"
	default:
		return "NOT_SIGNIFICANT"
	}
}

// bayesianPosterior computes the posterior probability that a correlation
// is real given its p-value, combined with a configured prior.
func bayesianPosterior(p float64, prior float64) float64 {
	var likelihoodReal, likelihoodSpurious float64
	if p < 0.05 {
		likelihoodReal = 0.95
		likelihoodSpurious = 0.05
	} else {
		likelihoodReal = 0.40
		likelihoodSpurious = 0.60
	}
	numerator := likelihoodReal * prior
	denominator := numerator + likelihoodSpurious*(1-prior)
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}
