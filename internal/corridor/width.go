package corridor

import (
	"math"
	"sort"

	"github.com/vasiliyffedorov/corridor-proxy/pkg/models"
)

// EnsureWidth guarantees a minimum spread between two restored curves
// (spec.md §4.4). upper and lower must be the same length and share time
// stamps index-for-index.
func EnsureWidth(upper, lower []models.Sample, dcUpper, dcLower, minWidthFactor float64) ([]models.Sample, []models.Sample) {
	n := len(upper)
	if n == 0 {
		return upper, lower
	}

	minWidth := minWidthFactor * math.Abs(dcUpper-dcLower)
	if minWidth <= 0 {
		minWidth = minWidthFactor * maxAbs3(dcUpper, dcLower, 1)
	}

	type breakPoint struct {
		idx    int
		t      int64
		upperV float64
		lowerV float64
	}

	var breaks []breakPoint
	for i := 0; i < n; i++ {
		if upper[i].V-lower[i].V >= minWidth {
			breaks = append(breaks, breakPoint{idx: i, t: upper[i].T, upperV: upper[i].V, lowerV: lower[i].V})
		}
	}

	outUpper := make([]models.Sample, n)
	outLower := make([]models.Sample, n)
	copy(outUpper, upper)
	copy(outLower, lower)

	if len(breaks) == 0 {
		center := (dcUpper + dcLower) / 2
		for i := 0; i < n; i++ {
			outUpper[i] = models.Sample{T: upper[i].T, V: center + minWidth/2}
			outLower[i] = models.Sample{T: lower[i].T, V: center - minWidth/2}
		}
		return outUpper, outLower
	}

	// Ensure break points cover both endpoints; a prepended/appended point
	// is a *copy* of the nearest real break point's values at the
	// endpoint's own time stamp, per spec.md §4.4.
	if breaks[0].idx != 0 {
		first := breaks[0]
		breaks = append([]breakPoint{{idx: 0, t: upper[0].T, upperV: first.upperV, lowerV: first.lowerV}}, breaks...)
	}
	if last := breaks[len(breaks)-1]; last.idx != n-1 {
		breaks = append(breaks, breakPoint{idx: n - 1, t: upper[n-1].T, upperV: last.upperV, lowerV: last.lowerV})
	}
	sort.Slice(breaks, func(i, j int) bool { return breaks[i].t < breaks[j].t })

	bp := 0
	for i := 0; i < n; i++ {
		for bp+1 < len(breaks) && breaks[bp+1].t <= upper[i].T {
			bp++
		}
		if upper[i].V-lower[i].V >= minWidth {
			continue
		}

		left := breaks[bp]
		right := left
		if bp+1 < len(breaks) {
			right = breaks[bp+1]
		}

		if left.t == right.t {
			outUpper[i] = models.Sample{T: upper[i].T, V: left.upperV}
			outLower[i] = models.Sample{T: lower[i].T, V: left.lowerV}
			continue
		}

		frac := float64(upper[i].T-left.t) / float64(right.t-left.t)
		outUpper[i] = models.Sample{T: upper[i].T, V: left.upperV + frac*(right.upperV-left.upperV)}
		outLower[i] = models.Sample{T: lower[i].T, V: left.lowerV + frac*(right.lowerV-left.lowerV)}
	}

	return outUpper, outLower
}

func maxAbs3(a, b, c float64) float64 {
	m := math.Abs(a)
	if v := math.Abs(b); v > m {
		m = v
	}
	if v := math.Abs(c); v > m {
		m = v
	}
	return m
}
