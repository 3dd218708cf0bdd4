package ics

import (
	"bytes"
	"errors"
	"sort"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "hinducal/internal/log"
)

// ParsedEvent is a VEVENT read back from a calendar document.
type ParsedEvent struct {
	UID         string
	Summary     string
	Description string

	Start  time.Time
	End    time.Time
	AllDay bool
}

// Calendar is a parsed document with its envelope properties.
type Calendar struct {
	ProductID string
	Name      string
	Timezone  string
	Events    []ParsedEvent
}

// Parse reads a calendar document. Events that cannot be read are logged
// and skipped.
func Parse(body []byte) (Calendar, error) {
	if len(body) == 0 {
		return Calendar{}, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err)
		return Calendar{}, err
	}

	var out Calendar
	for _, p := range cal.CalendarProperties {
		switch strings.ToUpper(p.IANAToken) {
		case string(ical.PropertyProductId):
			out.ProductID = p.Value
		case string(ical.PropertyXWRCalName):
			out.Name = p.Value
		case string(ical.PropertyXWRTimezone):
			out.Timezone = p.Value
		}
	}

	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(comp)
		if perr != nil {
			appLog.Error("ics vevent parse failed", perr)
			continue
		}
		out.Events = append(out.Events, ev)
	}

	appLog.Debug("ics parse completed", "event_count", len(out.Events))
	return out, nil
}

func parseVEvent(ve *ical.VEvent) (ParsedEvent, error) {
	var out ParsedEvent

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return out, errors.New("missing DTSTART")
	}
	if vs, ok := dtStart.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		out.AllDay = true
	}
	if !strings.Contains(dtStart.Value, "T") {
		out.AllDay = true
	}

	var err error
	if out.AllDay {
		if out.Start, err = ve.GetAllDayStartAt(); err != nil {
			return out, err
		}
		out.End, _ = ve.GetAllDayEndAt()
		return out, nil
	}
	if out.Start, err = ve.GetStartAt(); err != nil {
		return out, err
	}
	out.End, _ = ve.GetEndAt()
	return out, nil
}

// SummaryCount is the number of events sharing a summary.
type SummaryCount struct {
	Summary string
	Count   int
}

// CountBySummary tallies events per summary, most frequent first.
func CountBySummary(events []ParsedEvent) []SummaryCount {
	counts := map[string]int{}
	for _, e := range events {
		counts[e.Summary]++
	}
	out := make([]SummaryCount, 0, len(counts))
	for s, n := range counts {
		out = append(out, SummaryCount{Summary: s, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Summary < out[j].Summary
	})
	return out
}

// DuplicateUIDs lists UIDs appearing more than once.
func DuplicateUIDs(events []ParsedEvent) []string {
	seen := map[string]int{}
	for _, e := range events {
		seen[e.UID]++
	}
	var dups []string
	for uid, n := range seen {
		if n > 1 {
			dups = append(dups, uid)
		}
	}
	sort.Strings(dups)
	return dups
}
