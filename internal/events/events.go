// Package events provides a channel-based fan-out hub for streaming turn
// progress to websocket observers. Events are advisory: publishing never
// blocks the pipeline, and slow or full clients are dropped rather than
// applying backpressure to a live turn.
package events

import (
	"time"

	"github.com/bytedance/sonic"
)

// Event kinds published over the hub.
const (
	KindStage       = "stage"
	KindTranscript  = "transcript"
	KindReply       = "reply"
	KindDegraded    = "degraded"
	KindTurnDone    = "turn_complete"
	KindTurnFailed  = "turn_failed"
	KindSkillResult = "skill_result"
)

// Event is a single turn-progress notification.
type Event struct {
	Kind      string    `json:"kind"`
	RequestID string    `json:"request_id,omitempty"`
	RoleID    string    `json:"role_id,omitempty"`
	Stage     string    `json:"stage,omitempty"`
	Text      string    `json:"text,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent builds an event stamped with the current time.
func NewEvent(kind string) Event {
	return Event{Kind: kind, Timestamp: time.Now().UTC()}
}

// Publisher is the write side of the hub, consumed by the orchestrator.
type Publisher interface {
	Publish(ev Event)
}

// NopPublisher discards all events. Useful in tests and when the
// websocket surface is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}

// encode serializes an event for the wire.
func encode(ev Event) ([]byte, error) {
	return sonic.Marshal(ev)
}
