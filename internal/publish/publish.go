// Package publish regenerates configured calendars on a cron schedule and
// writes them as static .ics files.
package publish

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"hinducal/internal/config"
	"hinducal/internal/ics"
	appLog "hinducal/internal/log"
	"hinducal/internal/panchang"
	"hinducal/internal/tz"
)

// Generator computes observances. *panchang.Engine implements it.
type Generator interface {
	Generate(ctx context.Context, req panchang.Request) (panchang.Result, error)
}

// Publisher owns the schedule and the calendar list.
type Publisher struct {
	cfg      config.PublishConfig
	gen      Generator
	schedule cron.Schedule

	now func() time.Time
}

// New validates the schedule. An empty schedule yields a Publisher whose
// Start only runs once.
func New(cfg config.PublishConfig, gen Generator) (*Publisher, error) {
	p := &Publisher{cfg: cfg, gen: gen, now: time.Now}
	if cfg.Schedule != "" {
		sched, err := cron.ParseStandard(cfg.Schedule)
		if err != nil {
			return nil, fmt.Errorf("publish.schedule %q: %w", cfg.Schedule, err)
		}
		p.schedule = sched
	}
	return p, nil
}

// Path is where calendar id is written.
func (p *Publisher) Path(id string) string {
	return filepath.Join(p.cfg.OutputDir, id+".ics")
}

// RunOnce regenerates every calendar for the current year through
// years_ahead. A failing calendar is logged and does not stop the others;
// the joined errors are returned.
func (p *Publisher) RunOnce(ctx context.Context) error {
	year := p.now().Year()
	var errs []error
	for _, cal := range p.cfg.Calendars {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.publish(ctx, cal, year, year+p.cfg.YearsAhead); err != nil {
			appLog.Error("calendar publish failed", err, "id", cal.ID)
			errs = append(errs, fmt.Errorf("%s: %w", cal.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (p *Publisher) publish(ctx context.Context, cal config.CalendarConfig, from, to int) error {
	opts, err := cal.Options()
	if err != nil {
		return err
	}
	req := panchang.Request{
		Lat:      cal.Lat,
		Lon:      cal.Lon,
		YearFrom: from,
		YearTo:   to,
		Options:  opts,
		Viewer:   tz.Load(cal.ViewerTZ),
	}

	started := time.Now()
	res, err := p.gen.Generate(ctx, req)
	if err != nil {
		return err
	}

	viewerZone := ""
	if req.Viewer != nil {
		viewerZone = req.Viewer.String()
	}
	payload := ics.Build(res.Events, ics.BuildOptions{
		CalName:    cal.Name,
		ViewerZone: viewerZone,
		UIDs:       ics.UIDStable,
		Now:        p.now(),
	})

	path := p.Path(cal.ID)
	if err := ics.WriteFile(path, payload); err != nil {
		return err
	}
	appLog.Info("calendar published",
		"id", cal.ID, "path", path, "events", len(res.Events),
		"years", fmt.Sprintf("%d-%d", from, to),
		"elapsed", time.Since(started).Round(time.Millisecond).String())
	return nil
}

// Start publishes once immediately, then on every schedule tick, until
// ctx is canceled. It returns after in-flight runs finish.
func (p *Publisher) Start(ctx context.Context) {
	if len(p.cfg.Calendars) == 0 {
		appLog.Info("no calendars configured for publishing")
		return
	}

	_ = p.RunOnce(ctx)
	if p.schedule == nil {
		return
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(p.schedule, cron.FuncJob(func() {
		_ = p.RunOnce(ctx)
	}))
	c.Start()
	appLog.Info("publisher scheduled", "schedule", p.cfg.Schedule, "calendars", len(p.cfg.Calendars))

	<-ctx.Done()
	<-c.Stop().Done()
	appLog.Info("publisher stopped")
}
