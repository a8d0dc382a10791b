package merge

import (
	"github.com/shopspring/decimal"

	"github.com/sfdaycarelist/directory/pkg/daycares"
)

// mergeRatings replaces the per-source rating slot and recomputes the
// overall score. A later pass of the same source always refreshes its
// own slot; other sources' slots are untouched.
func (e *Engine) mergeRatings(rec *daycares.Daycare, raw daycares.RawRecord) {
	if raw.Rating == nil || raw.RatingSource == "" {
		return
	}
	if rec.Ratings.BySource == nil {
		rec.Ratings.BySource = map[string]float64{}
	}
	if rec.Ratings.CountBySource == nil {
		rec.Ratings.CountBySource = map[string]int{}
	}
	rec.Ratings.BySource[raw.RatingSource] = *raw.Rating
	rec.Ratings.CountBySource[raw.RatingSource] = raw.ReviewCount
	recomputeOverall(&rec.Ratings)
}

// recomputeOverall sets Overall to the unweighted mean of the per-source
// ratings, rounded half-up to one decimal place, and ReviewCount to the
// total across sources. Overall is a pure function of BySource.
func recomputeOverall(r *daycares.Ratings) {
	r.ReviewCount = 0
	for _, n := range r.CountBySource {
		r.ReviewCount += n
	}
	if len(r.BySource) == 0 {
		r.Overall = 0
		return
	}
	sum := decimal.Zero
	for _, v := range r.BySource {
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	mean := sum.Div(decimal.NewFromInt(int64(len(r.BySource))))
	r.Overall, _ = mean.Round(1).Float64()
}
