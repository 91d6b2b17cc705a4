package correlation

import (
	"math"

	"github.com/strands-sre/strands/pkg/models"
)

// Options controls optional cleaning steps applied before lag search.
type Options struct {
	Detrend       bool
	ZScoreNormalize bool
}

// Config holds analyzer-wide tunables.
type Config struct {
	MinSampleSize int
	MaxLag        int
	Prior         float64
}

// DefaultConfig returns the baseline tunables: min_sample_size=20, max_lag=5,
// prior=0.3.
func DefaultConfig() Config {
	return Config{MinSampleSize: 20, MaxLag: 5, Prior: 0.3}
}

// Analyzer runs pairwise correlation analysis between numeric series.
type Analyzer struct {
	cfg Config
}

func NewAnalyzer(cfg Config) *Analyzer {
	if cfg.MinSampleSize <= 0 {
		cfg.MinSampleSize = 20
	}
	if cfg.MaxLag <= 0 {
		cfg.MaxLag = 5
	}
	if cfg.Prior <= 0 {
		cfg.Prior = 0.3
	}
	return &Analyzer{cfg: cfg}
}

func degenerate(reason string) models.CorrelationPattern {
	return models.CorrelationPattern{
		Posterior:        0,
		Strength:         models.StrengthVeryWeak,
		DegenerateReason: reason,
	}
}

// isConstant reports whether every value in values is identical, meaning
// the series carries zero variance and any correlation against it is
// undefined regardless of sample size.
func isConstant(values []float64) bool {
	if len(values) == 0 {
		return true
	}
	first := values[0]
	for _, v := range values[1:] {
		if v != first {
			return false
		}
	}
	return true
}

// shift returns b shifted by lag samples against a: for lag>=0, b lags a by
// `lag` samples (b's value at index i+lag is paired with a's value at index
// i); for lag<0, a lags b. Returns equal-length aligned pairs.
func shift(a, b []float64, lag int) (xs, ys []float64) {
	n := len(a)
	if len(b) != n {
		return nil, nil
	}
	if lag >= 0 {
		for i := 0; i+lag < n; i++ {
			xs = append(xs, a[i])
			ys = append(ys, b[i+lag])
		}
	} else {
		l := -lag
		for i := 0; i+l < n; i++ {
			xs = append(xs, a[i+l])
			ys = append(ys, b[i])
		}
	}
	return xs, ys
}

// Analyze runs pairwise correlation analysis between two aligned series,
// searching lags from -opts.MaxLag to +opts.MaxLag for the strongest match.
func (an *Analyzer) Analyze(correlationType models.CorrelationType, seriesAID, seriesBID string, a, b models.Series, opts Options) models.CorrelationPattern {
	xs, ys := align(a, b)
	n := len(xs)
	if isConstant(xs) || isConstant(ys) {
		pat := degenerate("degenerate-series")
		pat.Type = correlationType
		pat.SeriesAID, pat.SeriesBID = seriesAID, seriesBID
		pat.SampleCount = n
		return pat
	}
	if n < an.cfg.MinSampleSize {
		pat := degenerate("insufficient-sample-size")
		pat.Type = correlationType
		pat.SeriesAID, pat.SeriesBID = seriesAID, seriesBID
		pat.SampleCount = n
		return pat
	}

	cleanX, cleanY := xs, ys
	if opts.Detrend {
		cleanX = detrend(cleanX)
		cleanY = detrend(cleanY)
	}
	degenerateX, degenerateY := false, false
	if opts.ZScoreNormalize {
		var okX, okY bool
		cleanX, okX = zscoreNormalize(cleanX)
		cleanY, okY = zscoreNormalize(cleanY)
		degenerateX, degenerateY = !okX, !okY
	}
	if degenerateX || degenerateY {
		pat := degenerate("degenerate-series")
		pat.Type = correlationType
		pat.SeriesAID, pat.SeriesBID = seriesAID, seriesBID
		pat.SampleCount = n
		return pat
	}

	bestLag := 0
	bestR := 0.0
	bestAbsR := -1.0
	found := false
	for lag := -an.cfg.MaxLag; lag <= an.cfg.MaxLag; lag++ {
		sx, sy := shift(cleanX, cleanY, lag)
		if len(sx) < an.cfg.MinSampleSize {
			continue
		}
		r, ok := pearson(sx, sy)
		if !ok {
			continue
		}
		absR := math.Abs(r)
		if absR > bestAbsR ||
			(absR == bestAbsR && absLess(lag, bestLag)) {
			bestAbsR, bestR, bestLag, found = absR, r, lag, true
		}
	}
	if !found {
		pat := degenerate("degenerate-series")
		pat.Type = correlationType
		pat.SeriesAID, pat.SeriesBID = seriesAID, seriesBID
		pat.SampleCount = n
		return pat
	}

	sx, sy := shift(cleanX, cleanY, bestLag)
	sampleN := len(sx)
	df := float64(sampleN - 2)
	var pValue float64 = 1
	if df > 0 && bestAbsR < 1 {
		tStat := bestR * math.Sqrt(df/(1-bestR*bestR))
		pValue = studentTSurvival(tStat, df)
	} else if bestAbsR >= 1 {
		pValue = 0
	}

	posterior := bayesianPosterior(pValue, an.cfg.Prior)
	strength := models.StrengthFromPosterior(posterior)

	zx, okx := zscoreNormalize(sx)
	zy, oky := zscoreNormalize(sy)
	noisy := false
	if okx && oky {
		ax := anomalies(zx)
		ay := anomalies(zy)
		if float64(ax)/float64(len(zx)) > 0.05 || float64(ay)/float64(len(zy)) > 0.05 {
			noisy = true
		}
	}

	return models.CorrelationPattern{
		Type:         correlationType,
		SeriesAID:    seriesAID,
		SeriesBID:    seriesBID,
		PearsonR:     bestR,
		LagOffset:    bestLag,
		SampleCount:  sampleN,
		PValue:       pValue,
		Significance: models.SignificanceBand(significanceBandFor(pValue)),
		Posterior:    posterior,
		Strength:     strength,
		Noisy:        noisy,
	}
}

// absLess implements the lag-search tie-break: smallest |lag|, then
// positive lag over negative.
func absLess(candidate, current int) bool {
	ac, acur := candAbs(candidate), candAbs(current)
	if ac != acur {
		return ac < acur
	}
	// equal magnitude: prefer positive lag over negative
	return candidate > current
}

func candAbs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
