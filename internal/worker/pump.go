package worker

import (
	"context"

	"github.com/OCAP2/tactical/internal/channel"
	"github.com/OCAP2/tactical/internal/influx"
	"github.com/OCAP2/tactical/internal/simulation"
	"github.com/OCAP2/tactical/internal/storage"
	"github.com/OCAP2/tactical/pkg/core"
)

// Pump drains rx until it is closed or ctx is done. Every batch is recorded
// in the backend, deaths are reflected in the entity cache and combat events
// go to influx when configured.
func (m *Manager) Pump(ctx context.Context, rx channel.Receiver[simulation.Batch]) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-rx.Receive():
			if !ok {
				return
			}
			m.HandleBatch(batch)
		}
	}
}

// HandleBatch processes the events of one tick.
func (m *Manager) HandleBatch(batch simulation.Batch) {
	if m.deps.BattleContext != nil {
		m.deps.BattleContext.SetTick(batch.Tick)
	}
	for _, ev := range batch.Events {
		switch e := ev.(type) {
		case *core.Die:
			m.deps.EntityCache.MarkDead(e.VictimID)
			m.writeEventPoint(e)
		case *core.Fire:
			m.writeEventPoint(e)
		case *core.Spawned:
			// spawns from a scenario file never pass through the intake
			if m.deps.EntityCache.Add(*e) {
				m.deps.NameCache.Set(e.Name, e.EntityID)
			}
		}
	}

	if !m.hasBackend() {
		return
	}
	if err := storage.RecordAll(m.backend, batch.Events); err != nil {
		m.deps.Logger.Error("Error recording events", "tick", batch.Tick, "error", err)
	}
}

func (m *Manager) writeEventPoint(e core.Event) {
	if m.deps.Influx == nil {
		return
	}
	if err := m.deps.Influx.WritePoint(m.deps.Influx.Bucket(), influx.EventPoint(m.deps.BattleName(), e)); err != nil {
		m.deps.Logger.Error("Error writing event to InfluxDB", "type", e.Type(), "error", err)
	}
}
