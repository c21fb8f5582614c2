package monitor

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/OCAP2/combatsim/internal/cache"
	"github.com/OCAP2/combatsim/internal/influx"
	"github.com/OCAP2/combatsim/internal/model"
	"github.com/OCAP2/combatsim/pkg/core"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStorage struct{}

func (fakeStorage) QueueLen() int                    { return 12 }
func (fakeStorage) LastWriteDuration() time.Duration { return 1500 * time.Microsecond }

type fakeInflux struct {
	mu     sync.Mutex
	points []string
}

func (f *fakeInflux) WritePoint(bucket string, p *influxdb2_write.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points = append(f.points, bucket+" "+influxdb2_write.PointToLineProtocol(p, time.Nanosecond))
	return nil
}

func (f *fakeInflux) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.points)
}

func newDeps() Dependencies {
	running := &cache.SafeCounter{}
	running.Set(2)
	outcomes := cache.NewOutcomeCache()
	outcomes.Add(core.Outcome{EngagementID: 1})
	return Dependencies{
		Running:       running,
		Outcomes:      outcomes,
		DispatchQueue: func() int { return 3 },
		Storage:       fakeStorage{},
	}
}

func TestGetProgramStatus(t *testing.T) {
	s := NewService(newDeps())

	out, perf := s.GetProgramStatus()
	require.Len(t, out, 1)
	assert.Contains(t, out[0], `"runningEngagements": 2`)

	assert.Equal(t, 2, perf.RunningEngagements)
	assert.Equal(t, 1, perf.CachedOutcomes)
	assert.Equal(t, 3, perf.DispatchQueue)
	assert.Equal(t, 12, perf.WriteQueue)
	assert.InDelta(t, 1.5, perf.LastWriteDurationMs, 1e-6)
}

func TestGetProgramStatus_NoDependencies(t *testing.T) {
	_, perf := NewService(Dependencies{}).GetProgramStatus()
	assert.Equal(t, model.SimPerformance{Time: perf.Time}, perf)
}

func TestPerformancePoint(t *testing.T) {
	line := influxdb2_write.PointToLineProtocol(PerformancePoint(model.SimPerformance{
		Time:               time.Unix(10, 0),
		RunningEngagements: 4,
		WriteQueue:         7,
	}), time.Nanosecond)

	assert.True(t, strings.HasPrefix(line, influx.MeasurementPerformance+" "))
	assert.Contains(t, line, "running=4i")
	assert.Contains(t, line, "write_queue=7i")
}

func TestStartStop_WritesSinks(t *testing.T) {
	deps := newDeps()
	sink := &fakeInflux{}
	deps.Influx = sink
	deps.Interval = 10 * time.Millisecond
	deps.StatusDir = t.TempDir()

	s := NewService(deps)
	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	// second Start is a no-op
	require.NoError(t, s.Start())

	assert.Eventually(t, func() bool { return sink.count() > 0 }, 2*time.Second, 5*time.Millisecond)
	s.Stop()
	assert.False(t, s.IsRunning())

	data, err := os.ReadFile(filepath.Join(deps.StatusDir, StatusFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"dispatchQueue": 3`)

	sink.mu.Lock()
	assert.True(t, strings.HasPrefix(sink.points[0], influx.PerformanceBucket+" "))
	sink.mu.Unlock()

	// Stop after Stop is a no-op
	s.Stop()
}
