package panchang

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	appLog "hinducal/internal/log"
	"hinducal/internal/model"
	"hinducal/internal/tz"
)

// ZoneResolver maps a coordinate to its civil time zone and IANA name.
type ZoneResolver func(lat, lon float64) (*time.Location, string)

// Engine generates observance lists. The zero value is usable.
type Engine struct {
	// Resolve defaults to tz.Location.
	Resolve ZoneResolver
	// Workers bounds concurrent years; zero means one per year.
	Workers int
	// Now defaults to time.Now.
	Now func() time.Time
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Result is a generated, ordered event list plus the zone it was
// reckoned in.
type Result struct {
	Events   []model.Event
	Zone     string
	Location *time.Location
}

func (e *Engine) observer(lat, lon float64) *Observer {
	resolve := e.Resolve
	if resolve == nil {
		resolve = tz.Location
	}
	loc, zone := resolve(lat, lon)
	return NewObserver(lat, lon, loc, zone)
}

// Generate computes every enabled observance for each year of req. Years
// run concurrently and share one Observer so sunrise and moonrise lookups
// are reused. The combined list is sorted, de-duplicated on (summary,
// civil date) and, when req.Viewer is set, Rahu Kaal is coalesced per
// viewer-local date.
func (e *Engine) Generate(ctx context.Context, req Request) (Result, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return Result{}, err
	}

	obs := e.observer(req.Lat, req.Lon)
	started := time.Now()

	perYear := make([][]model.Event, req.Years())
	g, gctx := errgroup.WithContext(ctx)
	if e.Workers > 0 {
		g.SetLimit(e.Workers)
	}
	for i := range perYear {
		year := req.YearFrom + i
		g.Go(func() error {
			evs, err := obs.Year(gctx, year, req.Options)
			if err != nil {
				return fmt.Errorf("year %d: %w", year, err)
			}
			perYear[i] = evs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	var all []model.Event
	for _, evs := range perYear {
		all = append(all, evs...)
	}
	SortEvents(all)
	all = Dedup(all)
	if req.Viewer != nil {
		all = CoalesceRahuKaal(all, req.Viewer)
	}

	appLog.Info("calendar generated",
		"lat", req.Lat, "lon", req.Lon,
		"years", fmt.Sprintf("%d-%d", req.YearFrom, req.YearTo),
		"zone", obs.Zone, "events", len(all),
		"elapsed", time.Since(started).Round(time.Millisecond).String())

	return Result{Events: all, Zone: obs.Zone, Location: obs.Loc}, nil
}

// Year computes one year's observances in the order Ekadashi, Sankashti,
// Amavasya/Purnima, festivals, Rahu Kaal, then sorts and de-duplicates.
func (o *Observer) Year(ctx context.Context, year int, opts Options) ([]model.Event, error) {
	type step struct {
		on  bool
		run func() ([]model.Event, error)
	}
	steps := []step{
		{true, func() ([]model.Event, error) { return o.Ekadashi(year, opts.Tradition), nil }},
		{opts.Sankashti, func() ([]model.Event, error) { return o.Sankashti(year), nil }},
		{opts.AmavasyaPurnima, func() ([]model.Event, error) { return o.AmavasyaPurnima(year), nil }},
		{opts.Festivals, func() ([]model.Event, error) { return o.Festivals(year, opts.FestivalKeys) }},
		{opts.RahuKaal, func() ([]model.Event, error) { return o.RahuKaal(year), nil }},
	}

	var out []model.Event
	for _, s := range steps {
		if !s.on {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		evs, err := s.run()
		if err != nil {
			return nil, err
		}
		out = append(out, evs...)
	}
	SortEvents(out)
	return Dedup(out), nil
}
