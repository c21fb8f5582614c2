// Package storage defines the sink engagement runs are recorded into.
package storage

import "github.com/OCAP2/combatsim/pkg/core"

// Backend is the interface all storage implementations must satisfy.
// Several engagements may be recorded concurrently; every record carries the id
// StartEngagement assigned.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Engagement management (StartEngagement assigns ID to the passed pointer)
	StartEngagement(e *core.Engagement) error
	EndEngagement(o *core.Outcome) error

	// Unit registration
	AddUnit(u *core.Unit) error

	// State recording
	RecordUnitState(s *core.UnitState) error

	// Event recording
	RecordHitEvent(e *core.HitEvent) error
	RecordKillEvent(e *core.KillEvent) error
}

// Uploadable is an optional interface for storage backends that produce
// files suitable for upload to the web frontend.
type Uploadable interface {
	ExportedFilePath(engagementID uint) (string, bool)
	ExportMetadata(engagementID uint) (core.UploadMetadata, bool)
}
