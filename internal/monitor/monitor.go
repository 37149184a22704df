package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/OCAP2/tactical/internal/battle"
	"github.com/OCAP2/tactical/internal/influx"
	"github.com/OCAP2/tactical/internal/simulation"
	"github.com/OCAP2/tactical/internal/storage"
	"github.com/OCAP2/tactical/pkg/core"
)

// DefaultInterval is used when Dependencies.Interval is zero.
const DefaultInterval = 10 * time.Second

// StatusSource reports the simulation status. *simulation.World satisfies it.
type StatusSource interface {
	Status() simulation.Status
}

// Dependencies holds all dependencies for the monitor service.
// Everything except Status is optional.
type Dependencies struct {
	Status        StatusSource
	BattleContext *battle.Context
	Logger        *slog.Logger
	Influx        *influx.Manager
	Stats         storage.StatsRecorder
	Collector     *Collector
	Interval      time.Duration
	// StatusPath, when set, is rewritten with the latest status as JSON.
	StatusPath string
}

// Service samples the simulation periodically and fans the sample out.
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Sample converts a status into a loop sample.
func Sample(st simulation.Status) core.StepSample {
	return core.StepSample{
		Time:     st.Time,
		Tick:     st.Tick,
		Step:     st.LastStep,
		Entities: st.Entities,
		Alive:    st.AliveTotal(),
		Pending:  st.Pending,
		Dropped:  st.Dropped,
		Events:   st.Events,
	}
}

// statusFile is the JSON written to StatusPath.
type statusFile struct {
	Battle   string            `json:"battle"`
	Tick     uint64            `json:"tick"`
	Time     time.Time         `json:"time"`
	Entities int               `json:"entities"`
	Alive    map[core.Side]int `json:"alive"`
	Pending  int               `json:"pending"`
	Dropped  uint64            `json:"dropped"`
	StepMs   float64           `json:"stepMs"`
	Events   uint64            `json:"events"`
	Kills    uint64            `json:"kills"`
}

// Collect takes one sample and hands it to every configured sink.
func (s *Service) Collect() core.StepSample {
	st := s.deps.Status.Status()
	sample := Sample(st)
	logger := s.deps.Logger

	battleName := ""
	if s.deps.BattleContext != nil {
		battleName = s.deps.BattleContext.GetBattle().Name
	}

	logger.Debug("Simulation status",
		"tick", st.Tick,
		"entities", st.Entities,
		"alive", sample.Alive,
		"pending", st.Pending,
		"dropped", st.Dropped,
		"lastStep", st.LastStep)

	s.deps.Collector.Observe(st)

	if s.deps.Stats != nil {
		if err := s.deps.Stats.RecordStepSample(sample); err != nil {
			logger.Error("Error recording step sample", "error", err)
		}
	}

	if s.deps.Influx != nil {
		if err := s.deps.Influx.WritePoint(influx.PerformanceBucket, influx.StepPoint(battleName, sample)); err != nil {
			logger.Error("Error writing step sample to InfluxDB", "error", err)
		}
	}

	if s.deps.StatusPath != "" {
		if err := writeStatus(s.deps.StatusPath, battleName, st); err != nil {
			logger.Error("Error writing status file", "error", err)
		}
	}

	return sample
}

func writeStatus(path, battleName string, st simulation.Status) error {
	data, err := json.MarshalIndent(statusFile{
		Battle:   battleName,
		Tick:     st.Tick,
		Time:     st.Time,
		Entities: st.Entities,
		Alive:    st.Alive,
		Pending:  st.Pending,
		Dropped:  st.Dropped,
		StepMs:   float64(st.LastStep.Microseconds()) / 1000,
		Events:   st.Events,
		Kills:    st.Kills,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	if s.deps.Status == nil {
		return fmt.Errorf("monitor: no status source")
	}

	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		s.deps.Logger.Debug("Starting status monitor goroutine", "interval", s.deps.Interval)
		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.Collect()
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for the goroutine to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning || s.stopChan == nil {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	s.stopChan = nil
	done := s.done
	s.mu.Unlock()
	<-done
}
