package dft

import (
	"math"

	"github.com/vasiliyffedorov/corridor-proxy/pkg/models"
)

// Means returns the arithmetic means of the time stamps and values in
// samples, used by the use_common_trend rebase step.
func Means(samples []models.Sample) (meanT, meanY float64) {
	n := float64(len(samples))
	if n == 0 {
		return 0, 0
	}
	var sumT, sumY float64
	for _, s := range samples {
		sumT += float64(s.T)
		sumY += s.V
	}
	return sumT / n, sumY / n
}

// bin is one raw DFT output before contribution-based filtering.
type bin struct {
	k         int
	amplitude float64
	phase     float64
}

// transform computes the full real DFT of a detrended, uniformly-spaced
// signal: bins k = 0..floor(N/2).
func transform(residuals []float64) []bin {
	n := len(residuals)
	if n == 0 {
		return nil
	}
	maxK := n / 2

	bins := make([]bin, 0, maxK+1)
	for k := 0; k <= maxK; k++ {
		var re, im float64
		for t, x := range residuals {
			angle := 2 * math.Pi * float64(k) * float64(t) / float64(n)
			re += x * math.Cos(angle)
			im -= x * math.Sin(angle)
		}

		denom := float64(n)
		if k != 0 {
			denom = float64(n) / 2
		}
		amp := math.Sqrt(re*re+im*im) / denom

		phase := 0.0
		if re != 0 || im != 0 {
			phase = math.Atan2(im, re)
		}

		bins = append(bins, bin{k: k, amplitude: amp, phase: phase})
	}
	return bins
}

// contribution scores a bin for selection: for k=0, amp*totalDuration; for
// k>=1, a midpoint Riemann sum approximating
// integral_0^T |amp*cos(2*pi*k*t/T + phase)| dt, sampled on an n-point grid.
func contribution(b bin, totalDuration float64, n int) float64 {
	if b.k == 0 {
		return b.amplitude * totalDuration
	}
	if n <= 0 || totalDuration <= 0 {
		return 0
	}

	dt := totalDuration / float64(n)
	sum := 0.0
	for i := 0; i < n; i++ {
		theta := (float64(i) + 0.5) / float64(n)
		v := b.amplitude * math.Cos(2*math.Pi*float64(b.k)*theta+b.phase)
		sum += math.Abs(v) * dt
	}
	return sum
}

// selectHarmonics runs the full contribution-based selection of spec.md
// §4.3: drop bins below the min_amplitude*totalDuration*2/pi contribution
// floor, keep the DC term plus the maxHarmonics-1 highest-contribution
// non-DC survivors, then drop any harmonic whose amplitude is below 1e-12.
func selectHarmonics(bins []bin, totalDuration float64, n, maxHarmonics int, minAmplitude float64) []models.Harmonic {
	floor := minAmplitude * totalDuration * 2 / math.Pi

	var dc *bin
	var rest []struct {
		b    bin
		cont float64
	}
	for _, b := range bins {
		c := contribution(b, totalDuration, n)
		if c < floor {
			continue
		}
		if b.k == 0 {
			bb := b
			dc = &bb
			continue
		}
		rest = append(rest, struct {
			b    bin
			cont float64
		}{b, c})
	}

	sortByContributionDesc(rest)

	keep := maxHarmonics - 1
	if keep < 0 {
		keep = 0
	}
	if keep > len(rest) {
		keep = len(rest)
	}

	out := make([]models.Harmonic, 0, keep+1)
	if dc != nil && dc.amplitude >= 1e-12 {
		out = append(out, models.Harmonic{K: 0, Amplitude: dc.amplitude, Phase: dc.phase})
	}
	for i := 0; i < keep; i++ {
		b := rest[i].b
		if b.amplitude < 1e-12 {
			continue
		}
		out = append(out, models.Harmonic{K: b.k, Amplitude: b.amplitude, Phase: b.phase})
	}
	return out
}

func sortByContributionDesc(rest []struct {
	b    bin
	cont float64
}) {
	for i := 1; i < len(rest); i++ {
		j := i
		for j > 0 && rest[j-1].cont < rest[j].cont {
			rest[j-1], rest[j] = rest[j], rest[j-1]
			j--
		}
	}
}
