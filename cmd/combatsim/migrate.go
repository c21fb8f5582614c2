package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/OCAP2/combatsim/internal/database"
	"github.com/OCAP2/combatsim/internal/model"

	"gorm.io/gorm"
)

// migrateDumps copies every engagement in the given SQLite dumps into Postgres.
func migrateDumps(paths []string) error {
	if len(paths) == 0 {
		return errors.New("migrate needs at least one SQLite dump")
	}
	dbm := database.NewManager(SlogManager.Zerolog())
	postgresDB, err := dbm.GetPostgresDB()
	if err != nil {
		return fmt.Errorf("error getting postgres database: %w", err)
	}
	if err := dbm.Setup(postgresDB); err != nil {
		return err
	}

	migrated, err := migrateFiles(dbm, postgresDB, paths)
	Logger.Info("Migrated dumps, it's recommended to delete these to avoid future data duplication",
		"count", len(migrated),
		"paths", migrated)
	return err
}

// migrateFiles migrates each dump in its own transaction and renames it to
// <path>.migrated on success. It stops at the first failing dump.
func migrateFiles(dbm *database.Manager, dst *gorm.DB, paths []string) ([]string, error) {
	migrated := make([]string, 0, len(paths))
	for _, path := range paths {
		src, err := dbm.GetSqliteDB(path)
		if err != nil {
			return migrated, fmt.Errorf("error getting sqlite database %s: %w", path, err)
		}

		n, err := migrateDump(src, dst)

		// remove the connection before touching the file
		if sqlConnection, cerr := src.DB(); cerr == nil {
			if cerr := sqlConnection.Close(); cerr != nil {
				Logger.Error("Error closing sqlite connection", "error", cerr)
			}
		}
		if err != nil {
			return migrated, fmt.Errorf("error migrating %s: %w", path, err)
		}

		if err := os.Rename(path, path+".migrated"); err != nil {
			Logger.Error("Error renaming sqlite file", "error", err)
		}
		Logger.Info("Migrated dump", "path", path, "engagements", n)
		migrated = append(migrated, path)
	}
	return migrated, nil
}

// migrateDump copies all engagements of src into dst. Engagements get fresh ids in dst
// and their rows are re-keyed to match.
func migrateDump(src, dst *gorm.DB) (int, error) {
	var engagements []model.Engagement
	if err := src.Order("id ASC").Find(&engagements).Error; err != nil {
		return 0, fmt.Errorf("error reading engagements: %w", err)
	}

	err := dst.Transaction(func(tx *gorm.DB) error {
		for _, e := range engagements {
			from := e.ID
			e.ID = 0
			if err := tx.Create(&e).Error; err != nil {
				return fmt.Errorf("error migrating engagement %d: %w", from, err)
			}
			to := e.ID

			if err := copyRows(src, tx, from, "units", func(r *model.Unit) { r.EngagementID = to }); err != nil {
				return err
			}
			if err := copyRows(src, tx, from, "unit_states", func(r *model.UnitState) { r.ID, r.EngagementID = 0, to }); err != nil {
				return err
			}
			if err := copyRows(src, tx, from, "hit_events", func(r *model.HitEvent) { r.ID, r.EngagementID = 0, to }); err != nil {
				return err
			}
			if err := copyRows(src, tx, from, "kill_events", func(r *model.KillEvent) { r.ID, r.EngagementID = 0, to }); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(engagements), nil
}

// helper function for dump migrations
func copyRows[M any](src, dst *gorm.DB, engagementID uint, tableName string, rekey func(*M)) error {
	var rows []M
	if err := src.Where("engagement_id = ?", engagementID).Find(&rows).Error; err != nil {
		return fmt.Errorf("error reading %s: %w", tableName, err)
	}
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		rekey(&rows[i])
	}
	if err := dst.CreateInBatches(&rows, 1000).Error; err != nil {
		return fmt.Errorf("error migrating %s: %w", tableName, err)
	}
	return nil
}
