package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/OCAP2/combatsim/internal/cache"
	"github.com/OCAP2/combatsim/internal/influx"
	"github.com/OCAP2/combatsim/internal/logging"
	"github.com/OCAP2/combatsim/internal/model"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"gorm.io/gorm"
)

const StatusFileName = "status.txt"

// WriteStats is implemented by storage backends with a write queue.
type WriteStats interface {
	QueueLen() int
	LastWriteDuration() time.Duration
}

// PointWriter is implemented by influx.Manager.
type PointWriter interface {
	WritePoint(bucket string, point *influxdb2_write.Point) error
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	LogManager    *logging.SlogManager
	Running       *cache.SafeCounter
	Outcomes      *cache.OutcomeCache
	DispatchQueue func() int
	Interval      time.Duration
	StatusDir     string

	// optional sinks
	Storage WriteStats
	DB      *gorm.DB
	Influx  PointWriter
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = 10 * time.Second
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetProgramStatus returns the current status as printable lines and as a model row.
func (s *Service) GetProgramStatus() (output []string, perf model.SimPerformance) {
	perf = model.SimPerformance{Time: time.Now()}
	if s.deps.Running != nil {
		perf.RunningEngagements = s.deps.Running.Value()
	}
	if s.deps.Outcomes != nil {
		perf.CachedOutcomes = s.deps.Outcomes.Len()
	}
	if s.deps.DispatchQueue != nil {
		perf.DispatchQueue = s.deps.DispatchQueue()
	}
	if s.deps.Storage != nil {
		perf.WriteQueue = s.deps.Storage.QueueLen()
		perf.LastWriteDurationMs = float32(s.deps.Storage.LastWriteDuration().Microseconds()) / 1000
	}

	statusStr, err := json.MarshalIndent(perf, "", "  ")
	if err != nil {
		statusStr = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
	}
	output = append(output, string(statusStr))

	return output, perf
}

// PerformancePoint converts a status snapshot to an influx point.
func PerformancePoint(perf model.SimPerformance) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement(influx.MeasurementPerformance).
		AddField("running", perf.RunningEngagements).
		AddField("cached_outcomes", perf.CachedOutcomes).
		AddField("dispatch_queue", perf.DispatchQueue).
		AddField("write_queue", perf.WriteQueue).
		AddField("last_write_ms", perf.LastWriteDurationMs).
		SetTime(perf.Time)
}

// report writes one status snapshot to every configured sink.
func (s *Service) report(statusFile *os.File) {
	logger := s.deps.LogManager.Logger()
	statusStr, perf := s.GetProgramStatus()

	if statusFile != nil {
		_ = statusFile.Truncate(0)
		_, _ = statusFile.Seek(0, 0)
		for _, line := range statusStr {
			_, _ = statusFile.WriteString(line + "\n")
		}
	}

	logger.Debug("Status",
		"running", perf.RunningEngagements,
		"outcomes", perf.CachedOutcomes,
		"dispatchQueue", perf.DispatchQueue,
		"writeQueue", perf.WriteQueue)

	if s.deps.DB != nil {
		if err := s.deps.DB.Create(&perf).Error; err != nil {
			logger.Error("Error writing perf model to DB", "error", err)
		}
	}
	if s.deps.Influx != nil {
		if err := s.deps.Influx.WritePoint(influx.PerformanceBucket, PerformancePoint(perf)); err != nil {
			logger.Error("Error writing perf point to InfluxDB", "error", err)
		}
	}
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	s.mu.Unlock()

	var statusFile *os.File
	if s.deps.StatusDir != "" {
		f, err := os.Create(filepath.Join(s.deps.StatusDir, StatusFileName))
		if err != nil {
			s.deps.LogManager.Logger().Error("Error creating status file", "error", err)
		} else {
			statusFile = f
		}
	}

	go func() {
		defer func() {
			if statusFile != nil {
				statusFile.Close()
			}
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
			close(s.done)
		}()

		s.deps.LogManager.Logger().Debug("Starting status monitor goroutine", "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.report(statusFile)
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for the goroutine to exit
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	select {
	case <-s.stopChan:
	default:
		close(s.stopChan)
	}
	done := s.done
	s.mu.Unlock()
	<-done
}
