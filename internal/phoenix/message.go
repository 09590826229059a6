package phoenix

import (
	"encoding/json"
	"fmt"
)

// Serializer version spoken on the wire.
const Vsn = "2.0.0"

const (
	EventJoin      = "phx_join"
	EventLeave     = "phx_leave"
	EventReply     = "phx_reply"
	EventError     = "phx_error"
	EventClose     = "phx_close"
	EventHeartbeat = "heartbeat"

	StatusOK    = "ok"
	StatusError = "error"

	heartbeatTopic = "phoenix"
)

// Message is one frame: [join_ref, ref, topic, event, payload].
// Empty refs travel as null.
type Message struct {
	JoinRef string
	Ref     string
	Topic   string
	Event   string
	Payload json.RawMessage
}

func (m Message) MarshalJSON() ([]byte, error) {
	payload := m.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	return json.Marshal([5]any{nullable(m.JoinRef), nullable(m.Ref), m.Topic, m.Event, payload})
}

func (m *Message) UnmarshalJSON(b []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(b, &parts); err != nil {
		return fmt.Errorf("phoenix: frame: %w", err)
	}
	if len(parts) != 5 {
		return fmt.Errorf("phoenix: frame has %d elements, want 5", len(parts))
	}

	var joinRef, ref *string
	if err := json.Unmarshal(parts[0], &joinRef); err != nil {
		return fmt.Errorf("phoenix: join_ref: %w", err)
	}
	if err := json.Unmarshal(parts[1], &ref); err != nil {
		return fmt.Errorf("phoenix: ref: %w", err)
	}

	var out Message
	if err := json.Unmarshal(parts[2], &out.Topic); err != nil {
		return fmt.Errorf("phoenix: topic: %w", err)
	}
	if err := json.Unmarshal(parts[3], &out.Event); err != nil {
		return fmt.Errorf("phoenix: event: %w", err)
	}
	if joinRef != nil {
		out.JoinRef = *joinRef
	}
	if ref != nil {
		out.Ref = *ref
	}
	out.Payload = parts[4]

	*m = out
	return nil
}

// Reply is the payload of a phx_reply frame.
type Reply struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

func (r Reply) OK() bool { return r.Status == StatusOK }

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func mustJSON(v any) json.RawMessage {
	if v == nil {
		return json.RawMessage("{}")
	}
	b, _ := json.Marshal(v)
	return b
}
