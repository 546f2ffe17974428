package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"schoolcompare/internal/core"
)

// MessageVersion is bumped when the payload changes incompatibly.
const MessageVersion = 1

// ComparisonEventMessage carries one comparison list change. Session ids are
// opaque and never tied to a person.
type ComparisonEventMessage struct {
	Version int `json:"v"`
	core.ComparisonEvent
}

// NewComparisonEventMessage wraps ev, stamping the time if it is missing.
func NewComparisonEventMessage(ev core.ComparisonEvent) *ComparisonEventMessage {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	return &ComparisonEventMessage{Version: MessageVersion, ComparisonEvent: ev}
}

// ToJSON converts the message to JSON bytes
func (m *ComparisonEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ComparisonEventMessageFromJSON decodes and checks a message.
func ComparisonEventMessageFromJSON(data []byte) (*ComparisonEventMessage, error) {
	var msg ComparisonEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (m *ComparisonEventMessage) validate() error {
	if m.Version != MessageVersion {
		return fmt.Errorf("unsupported message version %d", m.Version)
	}
	switch m.Action {
	case core.ActionAdded, core.ActionRemoved:
		if m.SchoolID == "" {
			return fmt.Errorf("%s event without school id", m.Action)
		}
	case core.ActionCleared:
		for i, id := range m.SchoolIDs {
			if id == "" {
				return fmt.Errorf("cleared event with empty school id at %d", i)
			}
		}
	default:
		return fmt.Errorf("unknown action %q", m.Action)
	}
	return nil
}
