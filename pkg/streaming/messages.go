// Package streaming defines the wire messages the websocket storage backend
// exchanges with a results server.
package streaming

import (
	"encoding/json"
	"fmt"

	"github.com/OCAP2/combatsim/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartEngagement = "start_engagement"
	TypeEndEngagement   = "end_engagement"
	TypeAddUnit         = "add_unit"
	TypeUnitState       = "unit_state"
	TypeHitEvent        = "hit_event"
	TypeKillEvent       = "kill_event"
)

// Envelope wraps all messages sent over the WebSocket.
// Several engagements may share one connection, so every message names its engagement.
type Envelope struct {
	Type         string          `json:"type"`
	EngagementID uint            `json:"engagementId"`
	Payload      json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type         string `json:"type"` // always "ack"
	For          string `json:"for"`  // the message type being acknowledged
	EngagementID uint   `json:"engagementId"`
}

// Key identifies which pending request an ack answers.
func (a AckMessage) Key() string {
	return AckKey(a.For, a.EngagementID)
}

// AckKey builds the key for an ack of msgType on an engagement.
func AckKey(msgType string, engagementID uint) string {
	return fmt.Sprintf("%s/%d", msgType, engagementID)
}

// StartEngagementPayload carries the engagement header.
type StartEngagementPayload struct {
	Engagement *core.Engagement `json:"engagement"`
}
