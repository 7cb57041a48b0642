package outbox

import (
	"encoding/json"
	"time"
)

// ActorRef identifies who caused the event: a collector, an admin or the
// system itself.
type ActorRef struct {
	Identifier string `json:"identifier,omitempty"`
	Role       string `json:"role,omitempty"`
}

// PayloadEnvelope is the stable shape stored in outbox_events.payload and
// published verbatim as the message body.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
