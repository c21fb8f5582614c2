// Package memory records engagements in memory and exports each one to a JSON file
// when it ends.
package memory

import (
	"fmt"
	"sync"

	"github.com/OCAP2/combatsim/internal/config"
	v1 "github.com/OCAP2/combatsim/internal/storage/memory/export/v1"
	"github.com/OCAP2/combatsim/pkg/core"
)

// record holds everything captured for one running engagement
type record struct {
	engagement core.Engagement
	units      map[int]*v1.UnitRecord
	hitEvents  []core.HitEvent
	killEvents []core.KillEvent
}

// exported remembers where a finished engagement was written
type exported struct {
	path string
	meta core.UploadMetadata
}

// Backend stores engagement data in memory and exports to JSON
type Backend struct {
	cfg         config.MemoryConfig
	engagements map[uint]*record
	exports     map[uint]exported

	idCounter uint
	mu        sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:         cfg,
		engagements: make(map[uint]*record),
		exports:     make(map[uint]exported),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close drops engagements that never ended.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.engagements = make(map[uint]*record)
	return nil
}

// StartEngagement begins recording a new engagement and assigns its id.
func (b *Backend) StartEngagement(e *core.Engagement) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	e.ID = b.idCounter

	b.engagements[e.ID] = &record{
		engagement: *e,
		units:      make(map[int]*v1.UnitRecord),
	}
	return nil
}

// EndEngagement exports the engagement and releases its in-memory data.
func (b *Backend) EndEngagement(o *core.Outcome) error {
	b.mu.Lock()
	rec, ok := b.engagements[o.EngagementID]
	if ok {
		delete(b.engagements, o.EngagementID)
	}
	b.mu.Unlock()

	if !ok {
		return fmt.Errorf("engagement %d not started", o.EngagementID)
	}

	path, err := b.exportJSON(&v1.EngagementData{
		Engagement: &rec.engagement,
		Units:      rec.units,
		HitEvents:  rec.hitEvents,
		KillEvents: rec.killEvents,
		Outcome:    o,
	})
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.exports[o.EngagementID] = exported{
		path: path,
		meta: core.UploadMetadata{
			EngagementName: rec.engagement.Name,
			Region:         regionString(rec.engagement.Region),
			Frames:         o.Frames,
			Tag:            rec.engagement.Tag,
		},
	}
	b.mu.Unlock()
	return nil
}

// AddUnit registers a unit with its engagement.
func (b *Backend) AddUnit(u *core.Unit) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.engagements[u.EngagementID]
	if !ok {
		return fmt.Errorf("engagement %d not started", u.EngagementID)
	}
	rec.units[u.ID] = &v1.UnitRecord{
		Unit:   *u,
		States: make([]core.UnitState, 0),
	}
	return nil
}

// GetUnit looks up a registered unit.
func (b *Backend) GetUnit(engagementID uint, unitID int) (*core.Unit, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.engagements[engagementID]
	if !ok {
		return nil, false
	}
	if r, ok := rec.units[unitID]; ok {
		u := r.Unit
		return &u, true
	}
	return nil, false
}

// RecordUnitState appends a state sample to its unit.
func (b *Backend) RecordUnitState(s *core.UnitState) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if rec, ok := b.engagements[s.EngagementID]; ok {
		if r, ok := rec.units[s.UnitID]; ok {
			r.States = append(r.States, *s)
		}
	}
	return nil // silently ignore unknown units
}

// RecordHitEvent records a hit event
func (b *Backend) RecordHitEvent(e *core.HitEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if rec, ok := b.engagements[e.EngagementID]; ok {
		rec.hitEvents = append(rec.hitEvents, *e)
	}
	return nil
}

// RecordKillEvent records a kill event
func (b *Backend) RecordKillEvent(e *core.KillEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if rec, ok := b.engagements[e.EngagementID]; ok {
		rec.killEvents = append(rec.killEvents, *e)
	}
	return nil
}

// ExportedFilePath returns the file a finished engagement was written to.
func (b *Backend) ExportedFilePath(engagementID uint) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.exports[engagementID]
	return e.path, ok
}

// ExportMetadata returns upload metadata for a finished engagement.
func (b *Backend) ExportMetadata(engagementID uint) (core.UploadMetadata, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.exports[engagementID]
	return e.meta, ok
}

func regionString(r core.Region) string {
	return fmt.Sprintf("%d,%d %dx%d", r.X, r.Y, r.Width, r.Height)
}
