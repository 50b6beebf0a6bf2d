// Package migrate applies the goose SQL migrations that ship inside the binary.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"sync"

	"github.com/pressly/goose/v3"
)

// SourceDir is where new migrations are written during development.
const SourceDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// goose keeps its dialect and base FS in package globals.
var gooseMu sync.Mutex

// Embedded returns the migrations compiled into the binary.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Migrator runs goose commands against one database and one migration source.
type Migrator struct {
	db   *sql.DB
	fsys fs.FS
}

// New uses the embedded migrations.
func New(db *sql.DB) (*Migrator, error) {
	return NewFromFS(db, Embedded())
}

// NewFromDir reads migrations from disk, for iterating on unreleased files.
func NewFromDir(db *sql.DB, dir string) (*Migrator, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	return NewFromFS(db, os.DirFS(dir))
}

func NewFromFS(db *sql.DB, fsys fs.FS) (*Migrator, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if fsys == nil {
		return nil, fmt.Errorf("migration source is required")
	}
	return &Migrator{db: db, fsys: fsys}, nil
}

func (m *Migrator) Up(ctx context.Context) error {
	return m.run(func() error { return goose.UpContext(ctx, m.db, ".") }, "up")
}

// Down rolls back the most recent migration only.
func (m *Migrator) Down(ctx context.Context) error {
	return m.run(func() error { return goose.DownContext(ctx, m.db, ".") }, "down")
}

// Status prints the applied/pending table to stdout.
func (m *Migrator) Status(ctx context.Context) error {
	return m.run(func() error { return goose.StatusContext(ctx, m.db, ".") }, "status")
}

// To moves the schema up or down until it sits at version (YYYYMMDDHHMMSS).
func (m *Migrator) To(ctx context.Context, version string) error {
	target, err := strconv.ParseInt(version, 10, 64)
	if err != nil || target < 0 {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", version)
	}
	return m.run(func() error {
		current, err := goose.GetDBVersionContext(ctx, m.db)
		if err != nil {
			return fmt.Errorf("get db version: %w", err)
		}
		switch {
		case current < target:
			return goose.UpToContext(ctx, m.db, ".", target)
		case current > target:
			return goose.DownToContext(ctx, m.db, ".", target)
		}
		return nil
	}, "to "+version)
}

func (m *Migrator) run(op func() error, name string) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(m.fsys)
	defer goose.SetBaseFS(nil)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := op(); err != nil {
		return fmt.Errorf("goose %s: %w", name, err)
	}
	return nil
}
