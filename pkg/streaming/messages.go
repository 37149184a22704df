package streaming

import (
	"encoding/json"
	"fmt"

	"github.com/OCAP2/tactical/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartBattle = "start_battle"
	TypeEndBattle   = "end_battle"
	TypeAddEntity   = "add_entity"
	TypeEvent       = "event"
	TypeStepSample  = "step_sample"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartBattlePayload carries the battle being streamed.
type StartBattlePayload struct {
	Battle *core.Battle `json:"battle"`
}

// EndBattlePayload carries the final summary.
type EndBattlePayload struct {
	Summary *core.BattleSummary `json:"summary"`
}

// EventPayload is one simulation event. Data is the event's own JSON.
type EventPayload struct {
	Tick    uint64          `json:"tick"`
	Type    core.EventType  `json:"type"`
	Subject core.EntityID   `json:"subject"`
	Data    json.RawMessage `json:"data"`
}

// NewEventPayload encodes e.
func NewEventPayload(e core.Event) (EventPayload, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return EventPayload{}, fmt.Errorf("marshal %s event: %w", e.Type(), err)
	}
	return EventPayload{
		Tick:    e.Meta().Tick,
		Type:    e.Type(),
		Subject: e.Subject(),
		Data:    data,
	}, nil
}

// Event decodes the payload back into its concrete event.
func (p EventPayload) Event() (core.Event, error) {
	ev, err := core.NewEvent(p.Type)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(p.Data, ev); err != nil {
		return nil, fmt.Errorf("unmarshal %s event: %w", p.Type, err)
	}
	return ev, nil
}
