package jobs

import "time"

// DefaultItemDuration seeds the estimator before it has observed any completed
// item. Separation dominates item time and typically lands in the low minutes.
const DefaultItemDuration = 3 * time.Minute

// smoothing is the weight of the newest observation in the moving average.
const smoothing = 0.3

// Estimator maintains an exponential moving average of per-item processing
// duration and synthesizes a completion percentage for the item in flight.
// Stage functions expose no sub-step progress, so true progress is
// unobservable; the estimator substitutes a learned-duration heuristic. It is
// owned by a single executor goroutine and is not safe for concurrent use;
// pollers read its snapshot off the job record instead.
type Estimator struct {
	avg       time.Duration
	itemStart time.Time
}

// NewEstimator returns an estimator seeded with the given average duration.
// Each job gets a fresh estimator so one job's timings never leak into the
// next job's mid-flight numbers.
func NewEstimator(seed time.Duration) *Estimator {
	if seed <= 0 {
		seed = DefaultItemDuration
	}
	return &Estimator{avg: seed}
}

// OnItemStart marks the start of the next item.
func (e *Estimator) OnItemStart(now time.Time) {
	e.itemStart = now
}

// OnItemComplete folds the finished item's duration into the average. The
// updated average governs the next item's estimate, not the one that just
// finished.
func (e *Estimator) OnItemComplete(now time.Time) {
	elapsed := now.Sub(e.itemStart)
	e.avg = time.Duration(float64(e.avg)*(1-smoothing) + float64(elapsed)*smoothing)
	e.itemStart = time.Time{}
}

// Average returns the current smoothed per-item duration.
func (e *Estimator) Average() time.Duration {
	return e.avg
}

// Estimate returns the synthetic completion percentage for the item in flight.
func (e *Estimator) Estimate(now time.Time) int {
	return EstimateProgress(e.itemStart, e.avg, now)
}

// EstimateProgress computes the 0-99 completion percentage from an estimator
// snapshot: zero before any item has started, otherwise elapsed time over the
// learned average, capped at 99 so the estimate never claims completion before
// the executor confirms it. The jump to 100 happens only on confirmed
// completion.
func EstimateProgress(itemStart time.Time, avg time.Duration, now time.Time) int {
	if itemStart.IsZero() {
		return 0
	}
	if avg <= 0 {
		avg = DefaultItemDuration
	}
	pct := int(100 * now.Sub(itemStart) / avg)
	if pct < 0 {
		pct = 0
	}
	if pct > 99 {
		pct = 99
	}
	return pct
}
