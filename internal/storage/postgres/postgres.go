// Package postgres implements the storage.Backend interface on PostgreSQL.
// Queueing and batch writes live in the embedded GORM backend; this package
// owns the connection and the schema migration.
package postgres

import (
	"fmt"
	"time"

	"github.com/OCAP2/combatsim/internal/database"
	"github.com/OCAP2/combatsim/internal/logging"
	gormstorage "github.com/OCAP2/combatsim/internal/storage/gorm"

	"gorm.io/gorm"
)

// Dependencies holds all dependencies for the PostgreSQL storage backend.
type Dependencies struct {
	// DB is optional; when nil Init connects with the db.* settings.
	DB            *gorm.DB
	LogManager    *logging.SlogManager
	FlushInterval time.Duration
}

// Backend implements storage.Backend on PostgreSQL.
type Backend struct {
	*gormstorage.Backend
	dbm     *database.Manager
	dbReady bool
}

// New creates a new PostgreSQL storage backend.
func New(deps Dependencies) *Backend {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{
			DB:            deps.DB,
			LogManager:    deps.LogManager,
			FlushInterval: deps.FlushInterval,
		}),
		dbm: database.NewManager(deps.LogManager.Zerolog()),
	}
}

// Init connects if needed, migrates the schema, and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.DB() == nil {
		db, err := b.dbm.GetPostgresDB()
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		b.SetDB(db)
	}

	if err := b.dbm.Setup(b.DB()); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.dbReady = true

	return b.Backend.Init()
}

// Ready reports whether the schema was migrated.
func (b *Backend) Ready() bool {
	return b.dbReady
}
