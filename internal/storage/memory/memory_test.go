package memory

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/OCAP2/combatsim/internal/config"
	"github.com/OCAP2/combatsim/internal/storage"
	"github.com/OCAP2/combatsim/pkg/core"
)

// Verify Backend implements storage.Backend interface
var _ storage.Backend = (*Backend)(nil)

// Verify Backend implements storage.Uploadable interface
var _ storage.Uploadable = (*Backend)(nil)

func intPtr(v int) *int { return &v }

func startTestEngagement(t *testing.T, b *Backend, name string) *core.Engagement {
	t.Helper()
	e := &core.Engagement{
		Name:      name,
		StartTime: time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC),
		Region:    core.Region{Width: 16, Height: 16},
		Players:   []core.Player{{ID: 1, Name: "Terran"}, {ID: 2, Name: "Zerg"}},
	}
	if err := b.StartEngagement(e); err != nil {
		t.Fatalf("StartEngagement failed: %v", err)
	}
	return e
}

func TestNew(t *testing.T) {
	cfg := config.MemoryConfig{
		OutputDir:      "/tmp/test",
		CompressOutput: true,
	}
	b := New(cfg)

	if b == nil {
		t.Fatal("New returned nil")
	}
	if b.cfg.OutputDir != "/tmp/test" {
		t.Errorf("expected OutputDir=/tmp/test, got %s", b.cfg.OutputDir)
	}
	if b.engagements == nil {
		t.Error("engagements map not initialized")
	}
	if b.exports == nil {
		t.Error("exports map not initialized")
	}
}

func TestInitAndClose(t *testing.T) {
	b := New(config.MemoryConfig{})

	if err := b.Init(); err != nil {
		t.Errorf("Init failed: %v", err)
	}
	startTestEngagement(t, b, "Dangling")
	if err := b.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if len(b.engagements) != 0 {
		t.Errorf("expected unfinished engagements dropped, got %d", len(b.engagements))
	}
}

func TestStartEngagementAssignsIDs(t *testing.T) {
	b := New(config.MemoryConfig{})

	first := startTestEngagement(t, b, "First")
	second := startTestEngagement(t, b, "Second")

	if first.ID != 1 || second.ID != 2 {
		t.Errorf("expected ids 1 and 2, got %d and %d", first.ID, second.ID)
	}
	if b.engagements[2].engagement.Name != "Second" {
		t.Errorf("expected engagement copy stored, got %+v", b.engagements[2].engagement)
	}
}

func TestAddUnit(t *testing.T) {
	b := New(config.MemoryConfig{})
	e := startTestEngagement(t, b, "Units")

	u := &core.Unit{EngagementID: e.ID, ID: 7, PlayerID: 1, Type: "Terran_Marine", HP: 40, MaxHP: 40}
	if err := b.AddUnit(u); err != nil {
		t.Fatalf("AddUnit failed: %v", err)
	}

	got, ok := b.GetUnit(e.ID, 7)
	if !ok {
		t.Fatal("unit not found")
	}
	if got.Type != "Terran_Marine" {
		t.Errorf("expected Terran_Marine, got %s", got.Type)
	}

	if _, ok := b.GetUnit(e.ID, 8); ok {
		t.Error("unexpected unit 8")
	}
	if _, ok := b.GetUnit(99, 7); ok {
		t.Error("unexpected unit in unknown engagement")
	}
}

func TestAddUnitUnknownEngagement(t *testing.T) {
	b := New(config.MemoryConfig{})

	err := b.AddUnit(&core.Unit{EngagementID: 5, ID: 1})
	if err == nil || !strings.Contains(err.Error(), "not started") {
		t.Errorf("expected not started error, got %v", err)
	}
}

func TestRecordUnitState(t *testing.T) {
	b := New(config.MemoryConfig{})
	e := startTestEngagement(t, b, "States")
	_ = b.AddUnit(&core.Unit{EngagementID: e.ID, ID: 1})

	for frame := 0; frame < 3; frame++ {
		s := &core.UnitState{EngagementID: e.ID, UnitID: 1, Frame: frame, HP: 40 - float64(frame)}
		if err := b.RecordUnitState(s); err != nil {
			t.Fatalf("RecordUnitState failed: %v", err)
		}
	}
	// unknown units are ignored
	if err := b.RecordUnitState(&core.UnitState{EngagementID: e.ID, UnitID: 42}); err != nil {
		t.Errorf("expected unknown unit ignored, got %v", err)
	}

	states := b.engagements[e.ID].units[1].States
	if len(states) != 3 {
		t.Fatalf("expected 3 states, got %d", len(states))
	}
	if states[2].HP != 38 {
		t.Errorf("expected hp 38, got %v", states[2].HP)
	}
}

func TestRecordEvents(t *testing.T) {
	b := New(config.MemoryConfig{})
	e := startTestEngagement(t, b, "Events")

	_ = b.RecordHitEvent(&core.HitEvent{EngagementID: e.ID, Frame: 1, AttackerID: intPtr(1), VictimID: 2, HPDamage: 6})
	_ = b.RecordHitEvent(&core.HitEvent{EngagementID: e.ID, Frame: 2, AttackerID: intPtr(1), VictimID: 2, HPDamage: 6})
	_ = b.RecordKillEvent(&core.KillEvent{EngagementID: e.ID, Frame: 2, VictimID: 2, KillerID: intPtr(1)})
	_ = b.RecordHitEvent(&core.HitEvent{EngagementID: 99, Frame: 1})

	rec := b.engagements[e.ID]
	if len(rec.hitEvents) != 2 {
		t.Errorf("expected 2 hit events, got %d", len(rec.hitEvents))
	}
	if len(rec.killEvents) != 1 {
		t.Errorf("expected 1 kill event, got %d", len(rec.killEvents))
	}
}

func TestEndEngagementExports(t *testing.T) {
	tests := []struct {
		name       string
		cfg        config.MemoryConfig
		wantSuffix string
	}{
		{"plain", config.MemoryConfig{CompressOutput: false}, ".json"},
		{"gzip", config.MemoryConfig{CompressOutput: true, Compression: CompressionGzip}, ".json.gz"},
		{"gzip default", config.MemoryConfig{CompressOutput: true}, ".json.gz"},
		{"zstd", config.MemoryConfig{CompressOutput: true, Compression: CompressionZstd}, ".json.zst"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.OutputDir = filepath.Join(t.TempDir(), "out")
			b := New(tt.cfg)
			e := startTestEngagement(t, b, "Marines vs Lings")

			_ = b.AddUnit(&core.Unit{EngagementID: e.ID, ID: 1, PlayerID: 1, Type: "Terran_Marine"})
			_ = b.AddUnit(&core.Unit{EngagementID: e.ID, ID: 2, PlayerID: 2, Type: "Zerg_Zergling"})
			_ = b.RecordHitEvent(&core.HitEvent{EngagementID: e.ID, Frame: 4, AttackerID: intPtr(1), VictimID: 2, HPDamage: 6})
			_ = b.RecordKillEvent(&core.KillEvent{EngagementID: e.ID, Frame: 30, VictimID: 2, KillerID: intPtr(1)})

			outcome := &core.Outcome{EngagementID: e.ID, Frames: 31, Reason: core.EndAnnihilation, Winner: intPtr(1)}
			if err := b.EndEngagement(outcome); err != nil {
				t.Fatalf("EndEngagement failed: %v", err)
			}

			path, ok := b.ExportedFilePath(e.ID)
			if !ok {
				t.Fatal("export path not recorded")
			}
			if !strings.HasSuffix(path, tt.wantSuffix) {
				t.Errorf("expected suffix %s, got %s", tt.wantSuffix, path)
			}
			if !strings.HasPrefix(filepath.Base(path), "Marines_vs_Lings_1_20260301_123000") {
				t.Errorf("unexpected file name %s", filepath.Base(path))
			}
			if _, err := os.Stat(path); err != nil {
				t.Fatalf("export file missing: %v", err)
			}

			export, err := ReadExport(path)
			if err != nil {
				t.Fatalf("ReadExport failed: %v", err)
			}
			if export.Name != "Marines vs Lings" {
				t.Errorf("expected name round trip, got %q", export.Name)
			}
			if len(export.Units) != 3 {
				t.Errorf("expected 3 unit slots, got %d", len(export.Units))
			}
			if len(export.Events) != 2 {
				t.Errorf("expected 2 events, got %d", len(export.Events))
			}
			if export.EndFrame != 31 {
				t.Errorf("expected end frame 31, got %d", export.EndFrame)
			}
			if export.Outcome == nil || export.Outcome.Winner == nil || *export.Outcome.Winner != 1 {
				t.Errorf("expected winner 1, got %+v", export.Outcome)
			}

			meta, ok := b.ExportMetadata(e.ID)
			if !ok {
				t.Fatal("export metadata not recorded")
			}
			if meta.EngagementName != "Marines vs Lings" || meta.Frames != 31 || meta.Region != "0,0 16x16" {
				t.Errorf("unexpected metadata %+v", meta)
			}

			if _, still := b.engagements[e.ID]; still {
				t.Error("expected engagement released after export")
			}
		})
	}
}

func TestEndEngagementUnknown(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})

	if err := b.EndEngagement(&core.Outcome{EngagementID: 3}); err == nil {
		t.Error("expected error for unknown engagement")
	}
	if _, ok := b.ExportedFilePath(3); ok {
		t.Error("unexpected export path")
	}
}

func TestEndEngagementUnnamed(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})
	e := &core.Engagement{}
	_ = b.StartEngagement(e)

	if err := b.EndEngagement(&core.Outcome{EngagementID: e.ID}); err != nil {
		t.Fatalf("EndEngagement failed: %v", err)
	}
	path, _ := b.ExportedFilePath(e.ID)
	if !strings.HasPrefix(filepath.Base(path), "engagement_1_") {
		t.Errorf("expected fallback name, got %s", filepath.Base(path))
	}
}

func TestConcurrentEngagements(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e := &core.Engagement{Name: "parallel"}
			if err := b.StartEngagement(e); err != nil {
				t.Errorf("StartEngagement failed: %v", err)
				return
			}
			for frame := 0; frame < 20; frame++ {
				_ = b.RecordHitEvent(&core.HitEvent{EngagementID: e.ID, Frame: frame})
			}
			if err := b.EndEngagement(&core.Outcome{EngagementID: e.ID, Frames: 20}); err != nil {
				t.Errorf("EndEngagement failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if len(b.exports) != 10 {
		t.Errorf("expected 10 exports, got %d", len(b.exports))
	}
}

func TestReadExportMissingFile(t *testing.T) {
	if _, err := ReadExport(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
