package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/OCAP2/tactical/internal/storage"
	"github.com/OCAP2/tactical/pkg/core"
	"github.com/OCAP2/tactical/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
}

// Backend streams battle events over WebSocket to a live viewer.
// It implements storage.Backend but not storage.Uploadable.
type Backend struct {
	conn   *connection
	cfg    Config
	active atomic.Bool
}

// New creates a new WebSocket storage backend. A nil logger uses slog.Default.
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(logger),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// Dropped returns how many messages were discarded because the send queue
// was full or the socket was down.
func (b *Backend) Dropped() uint64 {
	return b.conn.dropped.Load()
}

func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(streaming.Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

func (b *Backend) sendEnvelope(msgType string, payload any) error {
	if !b.active.Load() {
		return storage.ErrNoBattle
	}
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// StartBattle sends start_battle and waits for the server ack.
func (b *Backend) StartBattle(battle *core.Battle) error {
	data, err := marshalEnvelope(streaming.TypeStartBattle, streaming.StartBattlePayload{Battle: battle})
	if err != nil {
		return err
	}
	b.conn.setPreamble(data)
	b.active.Store(true)
	return b.conn.sendAndWait(data, streaming.TypeStartBattle, ackTimeout)
}

// EndBattle sends end_battle and waits for the server ack. The reconnect
// preamble is cleared even when the ack never arrives.
func (b *Backend) EndBattle(summary *core.BattleSummary) error {
	if !b.active.Swap(false) {
		return storage.ErrNoBattle
	}
	data, err := marshalEnvelope(streaming.TypeEndBattle, streaming.EndBattlePayload{Summary: summary})
	if err != nil {
		return err
	}
	err = b.conn.sendAndWait(data, streaming.TypeEndBattle, ackTimeout)
	b.conn.setPreamble(nil)
	return err
}

// AddEntity announces a spawned entity. It is also replayed after a reconnect.
func (b *Backend) AddEntity(s *core.Spawned) error {
	if !b.active.Load() {
		return storage.ErrNoBattle
	}
	data, err := marshalEnvelope(streaming.TypeAddEntity, s)
	if err != nil {
		return err
	}
	b.conn.appendPreamble(data)
	b.conn.send(data)
	return nil
}

// RecordEvent streams e without waiting.
func (b *Backend) RecordEvent(e core.Event) error {
	p, err := streaming.NewEventPayload(e)
	if err != nil {
		return err
	}
	return b.sendEnvelope(streaming.TypeEvent, p)
}

// RecordStepSample streams a loop sample so viewers can show progress.
func (b *Backend) RecordStepSample(s core.StepSample) error {
	return b.sendEnvelope(streaming.TypeStepSample, s)
}
