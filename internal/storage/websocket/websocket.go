// Package websocket implements a storage backend that streams engagement
// records to a results server over a WebSocket.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/OCAP2/combatsim/pkg/core"
	"github.com/OCAP2/combatsim/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
	Logger *slog.Logger
}

// Backend streams engagement data over WebSocket.
// It implements storage.Backend but not storage.Uploadable.
type Backend struct {
	conn   *connection
	cfg    Config
	nextID atomic.Uint64
}

// New creates a new WebSocket storage backend.
func New(cfg Config) *Backend {
	logger := cfg.Logger
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

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, engagementID uint, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, EngagementID: engagementID, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope marshals the payload into an Envelope and pushes it
// to the write loop (fire-and-forget).
func (b *Backend) sendEnvelope(msgType string, engagementID uint, payload any) error {
	data, err := marshalEnvelope(msgType, engagementID, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// StartEngagement assigns the engagement id, sends the header and waits for server ack.
func (b *Backend) StartEngagement(e *core.Engagement) error {
	e.ID = uint(b.nextID.Add(1))

	data, err := marshalEnvelope(streaming.TypeStartEngagement, e.ID, streaming.StartEngagementPayload{Engagement: e})
	if err != nil {
		return err
	}

	b.conn.mu.Lock()
	b.conn.cachedStart[e.ID] = data
	b.conn.mu.Unlock()

	return b.conn.sendAndWait(data, streaming.AckKey(streaming.TypeStartEngagement, e.ID), ackTimeout)
}

// EndEngagement sends the outcome and waits for server ack.
func (b *Backend) EndEngagement(o *core.Outcome) error {
	data, err := marshalEnvelope(streaming.TypeEndEngagement, o.EngagementID, o)
	if err == nil {
		err = b.conn.sendAndWait(data, streaming.AckKey(streaming.TypeEndEngagement, o.EngagementID), ackTimeout)
	}

	// drop the replay entry regardless of error
	b.conn.mu.Lock()
	delete(b.conn.cachedStart, o.EngagementID)
	b.conn.mu.Unlock()

	return err
}

func (b *Backend) AddUnit(u *core.Unit) error {
	return b.sendEnvelope(streaming.TypeAddUnit, u.EngagementID, u)
}

func (b *Backend) RecordUnitState(s *core.UnitState) error {
	return b.sendEnvelope(streaming.TypeUnitState, s.EngagementID, s)
}

func (b *Backend) RecordHitEvent(e *core.HitEvent) error {
	return b.sendEnvelope(streaming.TypeHitEvent, e.EngagementID, e)
}

func (b *Backend) RecordKillEvent(e *core.KillEvent) error {
	return b.sendEnvelope(streaming.TypeKillEvent, e.EngagementID, e)
}
