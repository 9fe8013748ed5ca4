package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oxhq/mapperengine/internal/core"
	"github.com/oxhq/mapperengine/internal/executor"
	"github.com/oxhq/mapperengine/internal/treeutil"
)

// Connect opens (creating if needed) a run-history database at dsn and runs
// migrations. glebarez/sqlite is a pure-Go sqlite driver, so no cgo toolchain
// is required at build time.
func Connect(dsn string, debug bool) (*gorm.DB, error) {
	if dsn != ":memory:" {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating store directory: %w", err)
			}
		}
	}

	config := &gorm.Config{}
	if debug {
		config.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(sqlite.Open(dsn), config)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("migrating store: %w", err)
	}
	return db, nil
}

// Migrate runs the store's schema migrations.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Run{}, &Diagnostic{})
}

// Recorder persists executor results against a mapper document id. A nil
// *Recorder is a valid no-op, so callers (e.g. the CLI without --store) can
// pass it through unconditionally.
type Recorder struct {
	db *gorm.DB
}

// NewRecorder wraps an already-connected *gorm.DB.
func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

// RecordRun persists one executor.Result (and any diagnostics, including
// diagnostics supplied separately from a prior transpile step) against
// mapperID. Safe to call on a nil *Recorder.
func (r *Recorder) RecordRun(mapperID, script, input string, res *executor.Result, extra []core.Diagnostic) error {
	if r == nil || r.db == nil {
		return nil
	}
	run := &Run{
		ID:         string(treeutil.NewNodeID()),
		MapperID:   mapperID,
		Script:     script,
		Input:      input,
		Output:     res.Output,
		Error:      res.Error,
		DurationMs: res.DurationMs,
	}
	for _, d := range res.Logs {
		run.Diagnostics = append(run.Diagnostics, Diagnostic{Severity: d.Severity, Message: d.Message, Code: d.Code, Line: d.Line})
	}
	for _, d := range extra {
		run.Diagnostics = append(run.Diagnostics, Diagnostic{Severity: d.Severity, Message: d.Message, Code: d.Code, Line: d.Line})
	}
	return r.db.Create(run).Error
}

// RunsForMapper returns the most recent runs recorded for a mapper
// document, newest first, capped at limit.
func (r *Recorder) RunsForMapper(mapperID string, limit int) ([]Run, error) {
	if r == nil || r.db == nil {
		return nil, nil
	}
	var runs []Run
	q := r.db.Preload("Diagnostics").Where("mapper_id = ?", mapperID).Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("loading runs: %w", err)
	}
	return runs, nil
}
