// Package worker runs engagements and records them into a storage backend.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/OCAP2/combatsim/internal/cache"
	"github.com/OCAP2/combatsim/internal/logging"
	"github.com/OCAP2/combatsim/internal/storage"
	"github.com/OCAP2/combatsim/pkg/core"
	"github.com/OCAP2/combatsim/pkg/gamedata"
	"github.com/OCAP2/combatsim/pkg/sim"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

// FrameDuration is one game frame at the fastest game speed.
const FrameDuration = 42 * time.Millisecond

var (
	// ErrUnknownScenario is returned when a run event carries neither a scenario nor a path.
	ErrUnknownScenario = errors.New("unknown scenario")
	ErrUnknownWeapon   = errors.New("unknown weapon")
	ErrNoOutcome       = errors.New("no outcome for engagement")
)

// PointWriter is implemented by influx.Manager.
type PointWriter interface {
	WritePoint(bucket string, point *influxdb2_write.Point) error
}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	LogManager *logging.SlogManager
	Catalog    *gamedata.Catalog
	Outcomes   *cache.OutcomeCache
	Running    *cache.SafeCounter

	// Influx and Bucket receive one point per frame when set.
	Influx PointWriter
	Bucket string

	MaxFrames     int
	CooldownRule  sim.CooldownRule
	StateInterval int

	// OnOutcome is called after every finished run, dispatched or direct.
	OnOutcome func(core.Outcome)
	// OnError is called when a dispatched run fails. Buffered handlers have no caller
	// to return the error to.
	OnError func(name string, err error)
}

// Manager runs engagements against one backend.
type Manager struct {
	deps    Dependencies
	backend storage.Backend
	metrics *metrics
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies, backend storage.Backend) *Manager {
	if deps.Catalog == nil {
		deps.Catalog = gamedata.Default()
	}
	if deps.Outcomes == nil {
		deps.Outcomes = cache.NewOutcomeCache()
	}
	if deps.Running == nil {
		deps.Running = &cache.SafeCounter{}
	}
	if deps.MaxFrames <= 0 {
		deps.MaxFrames = 2400
	}
	return &Manager{
		deps:    deps,
		backend: backend,
		metrics: newMetrics(),
	}
}

// Outcomes returns the cache finished runs are stored in.
func (m *Manager) Outcomes() *cache.OutcomeCache { return m.deps.Outcomes }

// Running returns the number of engagements currently ticking.
func (m *Manager) Running() *cache.SafeCounter { return m.deps.Running }

// writeStats is the optional queue interface of batching backends.
type writeStats interface {
	QueueLen() int
	LastWriteDuration() time.Duration
}

// LastWriteDuration returns the duration of the backend's last write cycle.
// Returns 0 if the backend doesn't batch its writes.
func (m *Manager) LastWriteDuration() time.Duration {
	if p, ok := m.backend.(writeStats); ok {
		return p.LastWriteDuration()
	}
	return 0
}

// QueueLen returns the number of records waiting in the backend's write queues.
func (m *Manager) QueueLen() int {
	if p, ok := m.backend.(writeStats); ok {
		return p.QueueLen()
	}
	return 0
}

func (m *Manager) log(ctx context.Context, fn, msg, level string) {
	if m.deps.LogManager != nil {
		m.deps.LogManager.WriteLogContext(ctx, fn, msg, level)
	}
}
