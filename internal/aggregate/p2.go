package aggregate

import (
	"math"
	"sort"
)

// P2Quantile is a streaming estimator for the 0.5 quantile (median) using
// the Jain & Chlamtac P² algorithm (spec §4.4). It holds five markers:
// heights (q), integer positions (n), desired real positions (np), and
// per-observation position increments (dn). Memory is O(1) regardless of
// the number of observations.
type P2Quantile struct {
	p        float64
	q        [5]float64
	n        [5]int
	np       [5]float64
	dn       [5]float64
	count    int
	initBuf  []float64 // holds up to the first 5 observations during bootstrap
}

// NewP2Quantile returns a median (p=0.5) streaming estimator.
func NewP2Quantile() *P2Quantile {
	p := 0.5
	return &P2Quantile{
		p:  p,
		dn: [5]float64{0, p / 2, p, (1 + p) / 2, 1},
	}
}

// Count returns the number of finite observations seen so far.
func (e *P2Quantile) Count() int { return e.count }

// Update feeds one finite observation into the estimator. Callers must
// exclude non-finite values before calling (spec §4.4 numeric hygiene).
func (e *P2Quantile) Update(x float64) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return
	}
	e.count++
	if e.count <= 5 {
		e.initBuf = append(e.initBuf, x)
		if e.count == 5 {
			e.bootstrap()
		}
		return
	}
	e.step(x)
}

func (e *P2Quantile) bootstrap() {
	sorted := append([]float64(nil), e.initBuf...)
	sort.Float64s(sorted)
	for i := 0; i < 5; i++ {
		e.q[i] = sorted[i]
		e.n[i] = i + 1
	}
	for i := 0; i < 5; i++ {
		e.np[i] = 1 + 2*float64(i)*e.p
	}
}

func (e *P2Quantile) step(x float64) {
	// Locate cell k and adjust the extreme markers.
	switch {
	case x < e.q[0]:
		e.q[0] = x
	case x > e.q[4]:
		e.q[4] = x
	}

	k := 0
	switch {
	case x < e.q[1]:
		k = 0
	case x < e.q[2]:
		k = 1
	case x < e.q[3]:
		k = 2
	default:
		k = 3
	}

	for i := k + 1; i < 5; i++ {
		e.n[i]++
	}
	for i := 0; i < 5; i++ {
		e.np[i] += e.dn[i]
	}

	for i := 1; i <= 3; i++ {
		d := e.np[i] - float64(e.n[i])
		if (d >= 1 && e.n[i+1]-e.n[i] > 1) || (d <= -1 && e.n[i-1]-e.n[i] < -1) {
			dsign := 1
			if d < 0 {
				dsign = -1
			}
			qp := e.parabolic(i, dsign)
			if e.q[i-1] < qp && qp < e.q[i+1] {
				e.q[i] = qp
			} else {
				e.q[i] = e.linear(i, dsign)
			}
			e.n[i] += dsign
		}
	}
}

func (e *P2Quantile) parabolic(i, dsign int) float64 {
	d := float64(dsign)
	np1 := float64(e.n[i+1])
	nm1 := float64(e.n[i-1])
	ni := float64(e.n[i])
	term1 := (ni - nm1 + d) * (e.q[i+1] - e.q[i]) / (np1 - ni)
	term2 := (np1 - ni - d) * (e.q[i] - e.q[i-1]) / (ni - nm1)
	v := e.q[i] + d/(np1-nm1)*(term1+term2)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return math.NaN() // forces the linear fallback at the caller
	}
	return v
}

func (e *P2Quantile) linear(i, dsign int) float64 {
	d := float64(dsign)
	return e.q[i] + d*(e.q[i+dsign]-e.q[i])/(float64(e.n[i+dsign]-e.n[i]))
}

// Clone returns an independent copy of the estimator.
func (e *P2Quantile) Clone() *P2Quantile {
	cp := *e
	cp.initBuf = append([]float64(nil), e.initBuf...)
	return &cp
}

// Median returns the current median estimate and the number of
// observations it is based on. Before five observations have arrived it
// falls back to the exact median of the buffered values.
func (e *P2Quantile) Median() (value float64, count int) {
	if e.count == 0 {
		return 0, 0
	}
	if e.count < 5 {
		sorted := append([]float64(nil), e.initBuf...)
		sort.Float64s(sorted)
		mid := len(sorted) / 2
		if len(sorted)%2 == 1 {
			return sorted[mid], e.count
		}
		return (sorted[mid-1] + sorted[mid]) / 2, e.count
	}
	return e.q[2], e.count
}
