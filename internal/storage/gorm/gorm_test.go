package gormstorage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/OCAP2/combatsim/internal/database"
	"github.com/OCAP2/combatsim/internal/model"
	"github.com/OCAP2/combatsim/internal/storage"
	"github.com/OCAP2/combatsim/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

// newTestBackend creates a Backend with no DB (queue-only mode for unit testing).
func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	b := New(Dependencies{})
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func newSqliteDB(t *testing.T) *gorm.DB {
	t.Helper()
	m := database.NewManager(zerolog.Nop())
	db, err := m.GetSqliteDB(filepath.Join(t.TempDir(), "sim.db"))
	require.NoError(t, err)
	require.NoError(t, m.Setup(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func intPtr(v int) *int { return &v }

func TestInitClose(t *testing.T) {
	b := New(Dependencies{})

	require.NoError(t, b.Init())
	require.NotNil(t, b.queues)
	require.NotNil(t, b.stopChan)

	require.NoError(t, b.Close())
	// second close is a no-op
	require.NoError(t, b.Close())
}

func TestCloseWithoutInit(t *testing.T) {
	assert.NoError(t, New(Dependencies{}).Close())
}

func TestStartEngagement_AssignsLocalIDsWithoutDB(t *testing.T) {
	b := newTestBackend(t)

	first := &core.Engagement{Name: "a"}
	second := &core.Engagement{Name: "b"}
	require.NoError(t, b.StartEngagement(first))
	require.NoError(t, b.StartEngagement(second))

	assert.Equal(t, uint(1), first.ID)
	assert.Equal(t, uint(2), second.ID)
}

func TestRecords_QueueWithoutDB(t *testing.T) {
	b := newTestBackend(t)

	require.NoError(t, b.AddUnit(&core.Unit{EngagementID: 1, ID: 0, Type: "Marine"}))
	require.NoError(t, b.RecordUnitState(&core.UnitState{EngagementID: 1, UnitID: 0, Frame: 3}))
	require.NoError(t, b.RecordHitEvent(&core.HitEvent{EngagementID: 1, Frame: 3, AttackerID: intPtr(1), VictimID: 0, HPDamage: 6}))
	require.NoError(t, b.RecordKillEvent(&core.KillEvent{EngagementID: 1, Frame: 9, VictimID: 0}))

	assert.Equal(t, 1, b.queues.Units.Len())
	assert.Equal(t, 1, b.queues.UnitStates.Len())
	assert.Equal(t, 1, b.queues.HitEvents.Len())
	assert.Equal(t, 1, b.queues.KillEvents.Len())
	assert.Equal(t, 4, b.QueueLen())

	hit := b.queues.HitEvents.Pop()
	assert.True(t, hit.AttackerObjectID.Valid)
	assert.Equal(t, int32(1), hit.AttackerObjectID.Int32)
}

func TestEndEngagement_NoOpWithoutDB(t *testing.T) {
	b := newTestBackend(t)
	assert.NoError(t, b.EndEngagement(&core.Outcome{EngagementID: 7}))
}

func TestQueueLen_BeforeInit(t *testing.T) {
	assert.Equal(t, 0, New(Dependencies{}).QueueLen())
}

func TestSqlite_EngagementRoundTrip(t *testing.T) {
	db := newSqliteDB(t)
	b := New(Dependencies{DB: db, FlushInterval: time.Hour})
	require.NoError(t, b.Init())

	e := &core.Engagement{
		Name:      "marines vs zerglings",
		StartTime: time.Now(),
		Region:    core.Region{X: 0, Y: 0, Width: 8, Height: 8},
		MaxFrames: 2400,
		Players:   []core.Player{{ID: 0, Name: "terran"}, {ID: 1, Name: "zerg"}},
	}
	require.NoError(t, b.StartEngagement(e))
	require.NotZero(t, e.ID)

	require.NoError(t, b.AddUnit(&core.Unit{EngagementID: e.ID, ID: 0, PlayerID: 0, Type: "Marine", HP: 40, MaxHP: 40}))
	require.NoError(t, b.AddUnit(&core.Unit{EngagementID: e.ID, ID: 1, PlayerID: 1, Type: "Zergling", HP: 35, MaxHP: 35}))
	require.NoError(t, b.RecordHitEvent(&core.HitEvent{EngagementID: e.ID, Frame: 1, AttackerID: intPtr(0), VictimID: 1, Weapon: "Gauss Rifle", HPDamage: 6}))
	require.NoError(t, b.RecordKillEvent(&core.KillEvent{EngagementID: e.ID, Frame: 40, VictimID: 1, KillerID: intPtr(0)}))

	winner := 0
	require.NoError(t, b.EndEngagement(&core.Outcome{
		EngagementID: e.ID,
		Frames:       40,
		Reason:       core.EndAnnihilation,
		Winner:       &winner,
		DamageDealt:  map[int]float64{0: 36},
		Kills:        map[int]int{0: 1},
		Duration:     12 * time.Millisecond,
	}))
	require.NoError(t, b.Close())

	assert.Equal(t, 0, b.QueueLen())

	var stored model.Engagement
	require.NoError(t, db.First(&stored, e.ID).Error)
	assert.Equal(t, "marines vs zerglings", stored.Name)
	assert.Equal(t, 40, stored.EndFrame)
	assert.Equal(t, string(core.EndAnnihilation), stored.EndReason)
	assert.True(t, stored.WinnerID.Valid)
	assert.Equal(t, int32(0), stored.WinnerID.Int32)
	assert.JSONEq(t, `{"0":1}`, string(stored.Kills))

	var units int64
	require.NoError(t, db.Model(&model.Unit{}).Where("engagement_id = ?", e.ID).Count(&units).Error)
	assert.Equal(t, int64(2), units)

	var kill model.KillEvent
	require.NoError(t, db.Where("engagement_id = ?", e.ID).First(&kill).Error)
	assert.Equal(t, 1, kill.VictimObjectID)
	assert.Equal(t, int32(0), kill.KillerObjectID.Int32)
}

func TestSqlite_EndEngagementUnknownID(t *testing.T) {
	b := New(Dependencies{DB: newSqliteDB(t), FlushInterval: time.Hour})
	require.NoError(t, b.Init())
	defer b.Close()

	err := b.EndEngagement(&core.Outcome{EngagementID: 999, Reason: core.EndFrameLimit})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engagement 999 not found")
}

func TestSqlite_WriterLoopFlushes(t *testing.T) {
	db := newSqliteDB(t)
	b := New(Dependencies{DB: db, FlushInterval: 10 * time.Millisecond})
	require.NoError(t, b.Init())
	defer b.Close()

	e := &core.Engagement{Name: "loop", StartTime: time.Now()}
	require.NoError(t, b.StartEngagement(e))
	require.NoError(t, b.RecordUnitState(&core.UnitState{EngagementID: e.ID, UnitID: 0, Frame: 5, Time: time.Now()}))

	assert.Eventually(t, func() bool {
		var n int64
		db.Model(&model.UnitState{}).Where("engagement_id = ?", e.ID).Count(&n)
		return n == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Greater(t, b.LastWriteDuration(), time.Duration(0))
}
