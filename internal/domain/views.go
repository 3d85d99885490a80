package domain

import (
	"encoding/json"
	"time"
)

// WeeklyViews is a rolling per-weekday view counter.
// Buckets are indexed by UTC weekday with Monday = 0 and Sunday = 6.
type WeeklyViews [7]int64

// DayIndex returns the bucket index for t (UTC, Monday = 0).
func DayIndex(t time.Time) int {
	return (int(t.UTC().Weekday()) + 6) % 7
}

// Record increments the bucket for the weekday of at.
func (w *WeeklyViews) Record(at time.Time) {
	w[DayIndex(at)]++
}

// Total sums all buckets.
func (w WeeklyViews) Total() int64 {
	var n int64
	for _, v := range w {
		n += v
	}
	return n
}

// ParseWeeklyViews decodes the stored JSON array. Anything malformed or of
// the wrong length yields zeroed buckets.
func ParseWeeklyViews(raw []byte) WeeklyViews {
	var w WeeklyViews
	if len(raw) == 0 {
		return w
	}
	var vals []int64
	if err := json.Unmarshal(raw, &vals); err != nil || len(vals) != len(w) {
		return w
	}
	copy(w[:], vals)
	return w
}

// JSON encodes the buckets as a 7-element array.
func (w WeeklyViews) JSON() []byte {
	b, _ := json.Marshal(w[:])
	return b
}
