// Package gormstorage implements the storage.Backend interface on GORM with internal
// queues and a background writer goroutine. The postgres and sqlite backends wrap it.
package gormstorage

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OCAP2/combatsim/internal/logging"
	"github.com/OCAP2/combatsim/internal/model"
	"github.com/OCAP2/combatsim/internal/model/convert"
	"github.com/OCAP2/combatsim/internal/queue"
	"github.com/OCAP2/combatsim/pkg/core"

	"gorm.io/gorm"
)

const (
	defaultFlushInterval = 2 * time.Second
	writeBatchSize       = 5000
)

// Dependencies holds all dependencies for the GORM storage backend.
// With a nil DB the backend only queues, which is how the tests drive it.
type Dependencies struct {
	DB            *gorm.DB
	LogManager    *logging.SlogManager
	FlushInterval time.Duration
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	Units      *queue.Queue[model.Unit]
	UnitStates *queue.Queue[model.UnitState]
	HitEvents  *queue.Queue[model.HitEvent]
	KillEvents *queue.Queue[model.KillEvent]
}

func newQueues() *queues {
	return &queues{
		Units:      queue.New[model.Unit](),
		UnitStates: queue.New[model.UnitState](),
		HitEvents:  queue.New[model.HitEvent](),
		KillEvents: queue.New[model.KillEvent](),
	}
}

func (q *queues) len() int {
	return q.Units.Len() + q.UnitStates.Len() + q.HitEvents.Len() + q.KillEvents.Len()
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps     Dependencies
	queues   *queues
	stopChan chan struct{}
	done     chan struct{}

	// serializes flushes so EndEngagement sees every row queued before it
	writeMu   sync.Mutex
	lastWrite atomic.Int64 // nanoseconds
	localIDs  atomic.Uint64
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = defaultFlushInterval
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Backend{deps: deps}
}

// DB returns the underlying connection, nil in queue-only mode.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// SetDB injects the connection. Call before Init.
func (b *Backend) SetDB(db *gorm.DB) {
	b.deps.DB = db
}

// Init creates the internal queues and starts the DB writer goroutine.
func (b *Backend) Init() error {
	b.queues = newQueues()
	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})

	if b.deps.DB == nil {
		close(b.done)
		return nil
	}

	go b.writerLoop()
	return nil
}

// Close stops the writer goroutine and flushes what is still queued.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	select {
	case <-b.stopChan:
		return nil
	default:
	}
	close(b.stopChan)
	<-b.done

	return b.flush()
}

// StartEngagement inserts the engagement synchronously so its id is known before any
// unit or event references it.
func (b *Backend) StartEngagement(e *core.Engagement) error {
	if b.deps.DB == nil {
		e.ID = uint(b.localIDs.Add(1))
		return nil
	}

	m := convert.CoreToEngagement(*e)
	m.ID = 0
	if err := b.deps.DB.Create(&m).Error; err != nil {
		return fmt.Errorf("failed to insert engagement: %w", err)
	}
	e.ID = m.ID
	return nil
}

// EndEngagement flushes the queues and stores the outcome on the engagement row.
func (b *Backend) EndEngagement(o *core.Outcome) error {
	if b.deps.DB == nil {
		return nil
	}
	if err := b.flush(); err != nil {
		return err
	}

	res := b.deps.DB.Model(&model.Engagement{}).
		Where("id = ?", o.EngagementID).
		Updates(convert.OutcomeColumns(*o))
	if res.Error != nil {
		return fmt.Errorf("failed to store outcome: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("engagement %d not found", o.EngagementID)
	}
	return nil
}

// AddUnit converts a core unit to GORM and pushes to the write queue.
func (b *Backend) AddUnit(u *core.Unit) error {
	b.queues.Units.Push(convert.CoreToUnit(*u))
	return nil
}

// RecordUnitState converts and queues a unit state.
func (b *Backend) RecordUnitState(s *core.UnitState) error {
	b.queues.UnitStates.Push(convert.CoreToUnitState(*s))
	return nil
}

// RecordHitEvent converts and queues a hit event.
func (b *Backend) RecordHitEvent(e *core.HitEvent) error {
	b.queues.HitEvents.Push(convert.CoreToHitEvent(*e))
	return nil
}

// RecordKillEvent converts and queues a kill event.
func (b *Backend) RecordKillEvent(e *core.KillEvent) error {
	b.queues.KillEvents.Push(convert.CoreToKillEvent(*e))
	return nil
}

// QueueLen returns the number of records waiting to be written.
func (b *Backend) QueueLen() int {
	if b.queues == nil {
		return 0
	}
	return b.queues.len()
}

// LastWriteDuration returns how long the most recent flush took.
func (b *Backend) LastWriteDuration() time.Duration {
	return time.Duration(b.lastWrite.Load())
}

// writeQueue writes all items from a queue to the database, one transaction per batch.
// A failed batch goes back on the queue for the next cycle.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log func(string, string, string)) error {
	for !q.Empty() {
		items := q.PopN(writeBatchSize)
		tx := db.Begin()
		if err := tx.Create(&items).Error; err != nil {
			log(":DB:WRITER:", fmt.Sprintf("Error creating %s: %v", name, err), "ERROR")
			tx.Rollback()
			q.Push(items...)
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		if err := tx.Commit().Error; err != nil {
			q.Push(items...)
			return fmt.Errorf("failed to commit %s: %w", name, err)
		}
	}
	return nil
}

// flush drains every queue. Units go first so states and events never precede them.
func (b *Backend) flush() error {
	if b.deps.DB == nil {
		return nil
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	log := b.deps.LogManager.WriteLog
	start := time.Now()

	err := errors.Join(
		writeQueue(b.deps.DB, b.queues.Units, "units", log),
		writeQueue(b.deps.DB, b.queues.UnitStates, "unit states", log),
		writeQueue(b.deps.DB, b.queues.HitEvents, "hit events", log),
		writeQueue(b.deps.DB, b.queues.KillEvents, "kill events", log),
	)

	b.lastWrite.Store(int64(time.Since(start)))
	return err
}

// writerLoop periodically drains the queues into the DB until Close.
func (b *Backend) writerLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			// errors are logged per queue and retried next tick
			_ = b.flush()
		}
	}
}
