package panchang

import (
	"sort"
	"time"

	"hinducal/internal/model"
)

// SortEvents orders events by civil date then clock time, all-day events
// sorting at 00:00 ahead of timed events starting at midnight.
func SortEvents(events []model.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		ta, tb := a.SortTime(), b.SortTime()
		if !ta.Equal(tb) {
			return ta.Before(tb)
		}
		return a.AllDay && !b.AllDay
	})
}

// Dedup drops events repeating an earlier (summary, civil date) pair.
// Order is preserved.
func Dedup(events []model.Event) []model.Event {
	type key struct{ summary, date string }
	seen := make(map[key]struct{}, len(events))
	out := events[:0:0]
	for _, e := range events {
		k := key{e.Summary, e.DateKey()}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, e)
	}
	return out
}

// CoalesceRahuKaal keeps, for every civil date in viewer, only the
// latest-starting Rahu Kaal window. Two observer days can map onto one
// viewer day when the zones are far apart. Other events pass through; the
// result is re-sorted.
func CoalesceRahuKaal(events []model.Event, viewer *time.Location) []model.Event {
	if viewer == nil {
		return events
	}
	latest := make(map[string]model.Event)
	var order []string
	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		if e.Kind != model.KindRahuKaal || e.AllDay {
			out = append(out, e)
			continue
		}
		day := e.Start.In(viewer).Format("2006-01-02")
		cur, ok := latest[day]
		if !ok {
			order = append(order, day)
			latest[day] = e
			continue
		}
		if !e.Start.Before(cur.Start) {
			latest[day] = e
		}
	}
	for _, day := range order {
		out = append(out, latest[day])
	}
	SortEvents(out)
	return out
}
