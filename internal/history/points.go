package history

import (
	"sort"

	"StockPulse/internal/model"
)

// TrimPoints keeps the most recent keep points, order preserved.
func TrimPoints(h model.History, keep int) model.History {
	if keep < 0 {
		keep = 0
	}
	if len(h) <= keep {
		return h
	}
	out := make(model.History, keep)
	copy(out, h[len(h)-keep:])
	return out
}

// MergePoints adds pts to h, replacing any existing point for the same day,
// and returns a new ascending history.
func MergePoints(h model.History, pts ...model.PricePoint) model.History {
	out := append(model.History(nil), h...)
	for _, p := range pts {
		out = out.WithPoint(p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Day() < out[j].Day() })
	return out
}
