package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/tactical/internal/storage"
	"github.com/OCAP2/tactical/pkg/core"
	"github.com/OCAP2/tactical/pkg/streaming"
)

// Compile-time interface checks.
var (
	_ storage.Backend       = (*Backend)(nil)
	_ storage.StatsRecorder = (*Backend)(nil)
)

// testServer upgrades to WebSocket, records received envelopes and acks
// start_battle/end_battle.
func testServer(t *testing.T) (*httptest.Server, *messageLog) {
	t.Helper()
	ml := &messageLog{}

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ml.setSecret(r.URL.Query().Get("secret"))
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			ml.add(env)

			if env.Type == streaming.TypeStartBattle || env.Type == streaming.TypeEndBattle {
				data, _ := json.Marshal(streaming.AckMessage{Type: "ack", For: env.Type})
				if err := c.WriteMessage(ws.TextMessage, data); err != nil {
					return
				}
			}
		}
	}))

	return srv, ml
}

type messageLog struct {
	mu       sync.Mutex
	secret   string
	messages []streaming.Envelope
}

func (m *messageLog) add(env streaming.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, env)
}

func (m *messageLog) setSecret(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secret = s
}

func (m *messageLog) getSecret() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.secret
}

func (m *messageLog) all() []streaming.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]streaming.Envelope, len(m.messages))
	copy(cp, m.messages)
	return cp
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestStartAndEndBattle(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Secret: "test"}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartBattle(&core.Battle{Name: "Ridge", Tag: "Skirmish"}))
	require.NoError(t, b.EndBattle(&core.BattleSummary{Ticks: 40, Reason: "decided"}))

	msgs := ml.all()
	require.GreaterOrEqual(t, len(msgs), 2)
	assert.Equal(t, streaming.TypeStartBattle, msgs[0].Type)
	assert.Equal(t, streaming.TypeEndBattle, msgs[len(msgs)-1].Type)
	assert.Equal(t, "test", ml.getSecret())

	var end streaming.EndBattlePayload
	require.NoError(t, json.Unmarshal(msgs[len(msgs)-1].Payload, &end))
	assert.Equal(t, uint64(40), end.Summary.Ticks)
}

func TestStreamedEvents(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Secret: "s"}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartBattle(&core.Battle{Name: "M"}))

	spawn := &core.Spawned{EntityID: 1, Name: "Alpha", Kind: core.KindSoldier}
	require.NoError(t, storage.Record(b, spawn))
	fire := &core.Fire{ShooterID: 1, TargetID: 2, WeaponType: "rifle"}
	fire.Stamp(3, time.Now())
	require.NoError(t, b.RecordEvent(fire))
	require.NoError(t, b.RecordStepSample(core.StepSample{Tick: 3, Entities: 1}))

	// end_battle is acked only after everything queued before it was written
	require.NoError(t, b.EndBattle(&core.BattleSummary{}))

	types := make(map[string]int)
	var events []streaming.EventPayload
	for _, m := range ml.all() {
		types[m.Type]++
		if m.Type == streaming.TypeEvent {
			var p streaming.EventPayload
			require.NoError(t, json.Unmarshal(m.Payload, &p))
			events = append(events, p)
		}
	}

	assert.Equal(t, 1, types[streaming.TypeStartBattle])
	assert.Equal(t, 1, types[streaming.TypeAddEntity])
	assert.Equal(t, 2, types[streaming.TypeEvent])
	assert.Equal(t, 1, types[streaming.TypeStepSample])
	assert.Equal(t, 1, types[streaming.TypeEndBattle])

	require.Len(t, events, 2)
	assert.Equal(t, core.EventSpawned, events[0].Type)
	ev, err := events[1].Event()
	require.NoError(t, err)
	got, ok := ev.(*core.Fire)
	require.True(t, ok)
	assert.Equal(t, core.EntityID(2), got.TargetID)
	assert.Equal(t, uint64(3), events[1].Tick)
}

func TestEventsRequireBattle(t *testing.T) {
	srv, _ := testServer(t)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv)}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	assert.ErrorIs(t, b.RecordEvent(&core.Die{ShooterID: 1, VictimID: 2}), storage.ErrNoBattle)
	assert.ErrorIs(t, b.AddEntity(&core.Spawned{EntityID: 1}), storage.ErrNoBattle)
	assert.ErrorIs(t, b.EndBattle(&core.BattleSummary{}), storage.ErrNoBattle)
}

func TestPreambleTracksRoster(t *testing.T) {
	c := newConnection(nil)

	c.appendPreamble([]byte("ignored"))
	assert.Empty(t, c.preamble)

	c.setPreamble([]byte("start"))
	c.appendPreamble([]byte("entity-1"))
	c.appendPreamble([]byte("entity-2"))
	assert.Len(t, c.preamble, 3)
	assert.Equal(t, "start", string(c.preamble[0]))

	c.setPreamble(nil)
	assert.Empty(t, c.preamble)
}

func TestInitFailsWithoutServer(t *testing.T) {
	b := New(Config{URL: "ws://127.0.0.1:1/stream"}, nil)
	err := b.Init()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "websocket dial failed")
}

func TestSendDropsWhenQueueFull(t *testing.T) {
	c := newConnection(slog.New(slog.NewTextHandler(io.Discard, nil)))
	for i := 0; i < sendChSize; i++ {
		c.sendCh <- []byte("x")
	}
	b := &Backend{conn: c}
	b.active.Store(true)

	require.NoError(t, b.RecordEvent(&core.FinishMove{SubjectID: 1, OrderKind: core.OrderWalk}))
	assert.Equal(t, uint64(1), b.Dropped())
}

// flakyServer closes the first connection right after it receives an
// add_entity. Envelopes are logged per connection.
func flakyServer(t *testing.T) (*httptest.Server, func() [][]streaming.Envelope) {
	t.Helper()
	var (
		mu    sync.Mutex
		links [][]streaming.Envelope
	)

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()

		mu.Lock()
		n := len(links)
		links = append(links, nil)
		mu.Unlock()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			mu.Lock()
			links[n] = append(links[n], env)
			mu.Unlock()

			if env.Type == streaming.TypeStartBattle || env.Type == streaming.TypeEndBattle {
				data, _ := json.Marshal(streaming.AckMessage{Type: "ack", For: env.Type})
				if err := c.WriteMessage(ws.TextMessage, data); err != nil {
					return
				}
			}
			if n == 0 && env.Type == streaming.TypeAddEntity {
				return
			}
		}
	}))

	snapshot := func() [][]streaming.Envelope {
		mu.Lock()
		defer mu.Unlock()
		out := make([][]streaming.Envelope, len(links))
		for i, l := range links {
			out[i] = append([]streaming.Envelope(nil), l...)
		}
		return out
	}
	return srv, snapshot
}

func TestReconnectReplaysRoster(t *testing.T) {
	srv, links := flakyServer(t)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv)}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartBattle(&core.Battle{Name: "Ridge"}))
	require.NoError(t, b.AddEntity(&core.Spawned{EntityID: 1, Name: "Miller"}))

	require.Eventually(t, func() bool { return len(links()) == 2 }, 5*time.Second, 20*time.Millisecond)
	require.NoError(t, b.EndBattle(&core.BattleSummary{Reason: "duration"}))

	got := links()
	require.Len(t, got, 2)
	var types []string
	for _, env := range got[1] {
		types = append(types, env.Type)
	}
	assert.Equal(t, []string{streaming.TypeStartBattle, streaming.TypeAddEntity, streaming.TypeEndBattle}, types)
}
