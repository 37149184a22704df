package simulation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/OCAP2/tactical/internal/channel"
	"github.com/OCAP2/tactical/internal/clock"
	"github.com/OCAP2/tactical/pkg/core"
)

// Reasons a run ended.
const (
	ReasonDuration = "duration"
	ReasonCanceled = "canceled"
	ReasonDecided  = "decided"
)

// Batch is the output of one tick.
type Batch struct {
	Tick   uint64
	Time   time.Time
	Events []core.Event
}

// Driver calls World.Step once per tick and publishes the resulting events.
type Driver struct {
	world  *World
	hub    *channel.Hub[Batch]
	logger *slog.Logger
	tracer trace.Tracer

	// StopWhenDecided ends the run as soon as at most one side has live entities.
	StopWhenDecided bool
}

// NewDriver creates a driver publishing to hub. A nil logger discards output.
func NewDriver(w *World, hub *channel.Hub[Batch], logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Driver{world: w, hub: hub, logger: logger, tracer: tracer()}
}

// Run ticks until ctx is done or the simulated time passed since start
// reaches limit. A zero limit runs until ctx is done. The returned string
// says why the run ended.
func (d *Driver) Run(ctx context.Context, start time.Time, limit time.Duration) (string, error) {
	settings := d.world.Settings()
	rate := settings.TickRate
	if rate <= 0 {
		rate = DefaultSettings().TickRate
	}
	d.logger.Info("simulation started",
		"mode", settings.Mode.String(),
		"tickRate", rate,
		"entities", len(d.world.order))

	var reason string
	switch settings.Mode {
	case clock.Accelerated:
		reason = d.runAccelerated(ctx, clock.NewManual(start), rate, limit)
	default:
		reason = d.runRealTime(ctx, clock.System{}, start, rate, limit)
	}

	st := d.world.Status()
	d.logger.Info("simulation stopped",
		"reason", reason,
		"ticks", st.Tick,
		"events", st.Events,
		"kills", st.Kills)
	return reason, nil
}

func (d *Driver) runAccelerated(ctx context.Context, c *clock.Manual, rate, limit time.Duration) string {
	start := c.Now()
	for {
		select {
		case <-ctx.Done():
			return ReasonCanceled
		default:
		}
		now := c.Advance(rate)
		if done := d.step(ctx, now); done {
			return ReasonDecided
		}
		if limit > 0 && now.Sub(start) >= limit {
			return ReasonDuration
		}
	}
}

func (d *Driver) runRealTime(ctx context.Context, c clock.Clock, start time.Time, rate, limit time.Duration) string {
	ticker := time.NewTicker(rate)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ReasonCanceled
		case <-ticker.C:
			now := c.Now()
			if done := d.step(ctx, now); done {
				return ReasonDecided
			}
			if limit > 0 && now.Sub(start) >= limit {
				return ReasonDuration
			}
		}
	}
}

// step runs one tick and reports whether the battle is decided.
func (d *Driver) step(ctx context.Context, now time.Time) bool {
	_, span := d.tracer.Start(ctx, "simulation.step")
	defer span.End()

	events := d.world.Step(now)
	span.SetAttributes(
		attribute.Int64("tick", int64(d.world.Tick())),
		attribute.Int("events", len(events)),
	)
	if len(events) > 0 && d.hub != nil {
		d.hub.Publish(Batch{Tick: d.world.Tick(), Time: now, Events: events})
	}
	if !d.StopWhenDecided {
		return false
	}
	st := d.world.Status()
	sides := 0
	for _, n := range st.Alive {
		if n > 0 {
			sides++
		}
	}
	return st.Entities > 0 && sides <= 1
}
