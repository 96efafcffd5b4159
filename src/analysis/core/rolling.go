package core

import "math"

// RollingMoments keeps the sample mean and variance of the last Size values.
// Each push is O(1). Sums are taken about a reference value and re-summed
// from the window once per full turn of the ring so rounding error stays
// bounded on long series.
type RollingMoments struct {
	size  int
	buf   []float64
	head  int
	count int

	ref   float64
	sum   float64
	sumSq float64

	evictions int
	last      float64
	run       int
}

// -----------------------------------------------------------------------------

// NewRollingMoments creates a window of the given size. size must be >= 1.
func NewRollingMoments(size int) *RollingMoments {
	return &RollingMoments{
		size: size,
		buf:  make([]float64, size),
	}
}

// -----------------------------------------------------------------------------

// Push appends v, evicting the oldest value once the window is full.
func (w *RollingMoments) Push(v float64) {
	if w.count == 0 && w.evictions == 0 {
		w.ref = v
	}

	w.run = nextRun(w.count, w.run, w.last, v)
	w.last = v

	if w.count == w.size {
		old := w.buf[w.head] - w.ref
		w.sum -= old
		w.sumSq -= old * old
		w.evictions++
	} else {
		w.count++
	}

	w.buf[w.head] = v
	w.head = (w.head + 1) % w.size

	d := v - w.ref
	w.sum += d
	w.sumSq += d * d

	if w.evictions >= w.size {
		w.resum()
	}
}

// resum recomputes the sums about the oldest value in the window.
func (w *RollingMoments) resum() {
	w.evictions = 0
	w.ref = w.buf[w.head]
	w.sum, w.sumSq = 0, 0
	for i := 0; i < w.count; i++ {
		d := w.buf[i] - w.ref
		w.sum += d
		w.sumSq += d * d
	}
}

// -----------------------------------------------------------------------------

// Full reports whether Size values have been pushed.
func (w *RollingMoments) Full() bool {
	return w.count == w.size
}

// Mean of the values in the window.
func (w *RollingMoments) Mean() float64 {
	if w.count == 0 {
		return math.NaN()
	}
	return w.ref + w.sum/float64(w.count)
}

// Variance is the sample variance (n-1 denominator). A window of identical
// values has exactly zero variance.
func (w *RollingMoments) Variance() float64 {
	if w.count < 2 {
		return math.NaN()
	}
	if w.run >= w.count {
		return 0
	}
	n := float64(w.count)
	v := (w.sumSq - w.sum*w.sum/n) / (n - 1)
	if v < 0 {
		return 0
	}
	return v
}

// Std is the sample standard deviation.
func (w *RollingMoments) Std() float64 {
	return math.Sqrt(w.Variance())
}

// -----------------------------------------------------------------------------

// RollingCoMoments keeps the co-moments of two series over the last Size
// pairs, with the same reference and re-sum scheme as RollingMoments.
type RollingCoMoments struct {
	size  int
	bufX  []float64
	bufY  []float64
	head  int
	count int

	refX, refY    float64
	sx, sy        float64
	sxx, syy, sxy float64

	evictions    int
	lastX, lastY float64
	runX, runY   int
}

// -----------------------------------------------------------------------------

// NewRollingCoMoments creates a paired window of the given size.
func NewRollingCoMoments(size int) *RollingCoMoments {
	return &RollingCoMoments{
		size: size,
		bufX: make([]float64, size),
		bufY: make([]float64, size),
	}
}

// -----------------------------------------------------------------------------

// Push appends the pair (vx, vy).
func (w *RollingCoMoments) Push(vx, vy float64) {
	if w.count == 0 && w.evictions == 0 {
		w.refX, w.refY = vx, vy
	}

	w.runX = nextRun(w.count, w.runX, w.lastX, vx)
	w.runY = nextRun(w.count, w.runY, w.lastY, vy)
	w.lastX, w.lastY = vx, vy

	if w.count == w.size {
		ox := w.bufX[w.head] - w.refX
		oy := w.bufY[w.head] - w.refY
		w.sx -= ox
		w.sy -= oy
		w.sxx -= ox * ox
		w.syy -= oy * oy
		w.sxy -= ox * oy
		w.evictions++
	} else {
		w.count++
	}

	w.bufX[w.head] = vx
	w.bufY[w.head] = vy
	w.head = (w.head + 1) % w.size

	dx := vx - w.refX
	dy := vy - w.refY
	w.sx += dx
	w.sy += dy
	w.sxx += dx * dx
	w.syy += dy * dy
	w.sxy += dx * dy

	if w.evictions >= w.size {
		w.resum()
	}
}

func (w *RollingCoMoments) resum() {
	w.evictions = 0
	w.refX = w.bufX[w.head]
	w.refY = w.bufY[w.head]
	w.sx, w.sy, w.sxx, w.syy, w.sxy = 0, 0, 0, 0, 0
	for i := 0; i < w.count; i++ {
		dx := w.bufX[i] - w.refX
		dy := w.bufY[i] - w.refY
		w.sx += dx
		w.sy += dy
		w.sxx += dx * dx
		w.syy += dy * dy
		w.sxy += dx * dy
	}
}

// -----------------------------------------------------------------------------

// Full reports whether Size pairs have been pushed.
func (w *RollingCoMoments) Full() bool {
	return w.count == w.size
}

// Correlation returns the Pearson correlation of the window. ok is false when
// either side has zero variance.
func (w *RollingCoMoments) Correlation() (float64, bool) {
	if w.count < 2 || w.runX >= w.count || w.runY >= w.count {
		return math.NaN(), false
	}

	n := float64(w.count)
	sxx := w.sxx - w.sx*w.sx/n
	syy := w.syy - w.sy*w.sy/n
	if sxx <= 0 || syy <= 0 {
		return math.NaN(), false
	}
	cov := w.sxy - w.sx*w.sy/n
	return clampUnit(cov / math.Sqrt(sxx*syy)), true
}

// -----------------------------------------------------------------------------

// nextRun extends the run of identical trailing values or starts a new one.
func nextRun(count, run int, last, v float64) int {
	if count > 0 && v == last {
		return run + 1
	}
	return 1
}
