// Package events carries expense change notifications over AMQP.
//
// Messages are lightweight: they name the change and the expense id, and
// consumers read the current state from the ledger or the RPC API.
package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind is the type of change.
type Kind string

const (
	KindCreated Kind = "created"
	KindDeleted Kind = "deleted"
)

// Message is one change notification.
type Message struct {
	Kind      Kind      `json:"kind"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a message stamped with now.
func NewMessage(kind Kind, id string, now time.Time) *Message {
	return &Message{Kind: kind, ID: id, Timestamp: now.UTC()}
}

// ToJSON converts the message to JSON bytes
func (m *Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MessageFromJSON decodes and checks a message.
func MessageFromJSON(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Kind {
	case KindCreated, KindDeleted:
	default:
		return nil, fmt.Errorf("unknown event kind %q", msg.Kind)
	}
	if msg.ID == "" {
		return nil, fmt.Errorf("event without expense id")
	}
	return &msg, nil
}
