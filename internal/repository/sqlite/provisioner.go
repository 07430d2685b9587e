// Package sqlite keeps one SQLite file per farm owner and exposes the farm
// tables of a tenant through FarmRepository.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mamadbah2/sheepfold/internal/domain/models"
)

const (
	tenantFilePrefix = "farm_"
	tenantFileSuffix = ".db"
	dsnPragmas       = "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
)

var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Provisioner creates tenant stores on demand and hands out scoped handles to them.
type Provisioner struct {
	dir      string
	defaults models.FarmDefaults
	logger   *zap.Logger
	now      func() time.Time

	mu      sync.Mutex
	handles map[string]*tenantEntry
}

type tenantEntry struct {
	db   *sql.DB
	refs int
}

// Tenant is an acquired handle on one user's store. Close releases it.
type Tenant struct {
	UserID string

	db       *sql.DB
	release  func()
	released sync.Once
}

// NewProvisioner builds a registry of tenant stores rooted at dir.
// defaults is copied so later changes by the caller do not leak into new tenants.
func NewProvisioner(dir string, defaults models.FarmDefaults, logger *zap.Logger) (*Provisioner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir == "" {
		dir = "data"
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}

	return &Provisioner{
		dir:      dir,
		defaults: copyDefaults(defaults),
		logger:   logger,
		now:      time.Now,
		handles:  make(map[string]*tenantEntry),
	}, nil
}

// Provision creates the store of userID if it does not exist yet.
// It reports whether a new store was created. Existing stores are left untouched.
func (p *Provisioner) Provision(ctx context.Context, userID string) (bool, error) {
	if err := validateUserID(userID); err != nil {
		return false, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	path := p.pathFor(userID)
	if exists, err := fileExists(path); err != nil {
		return false, err
	} else if exists {
		return false, nil
	}

	db, err := openDB(path)
	if err != nil {
		return false, err
	}
	defer func() { _ = db.Close() }()

	if err := p.initialize(ctx, db); err != nil {
		_ = db.Close()
		_ = os.Remove(path)
		return false, err
	}

	p.logger.Info("tenant store provisioned", zap.String("user_id", userID), zap.String("path", path))
	return true, nil
}

// Open acquires a handle on an existing store. It never creates one.
func (p *Provisioner) Open(ctx context.Context, userID string) (*Tenant, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.handles[userID]
	if !ok {
		path := p.pathFor(userID)
		exists, err := fileExists(path)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, &models.NotProvisionedError{UserID: userID}
		}

		db, err := openDB(path)
		if err != nil {
			return nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping tenant store %s: %w", userID, err)
		}

		entry = &tenantEntry{db: db}
		p.handles[userID] = entry
	}
	entry.refs++

	return &Tenant{
		UserID:  userID,
		db:      entry.db,
		release: func() { p.release(userID) },
	}, nil
}

// WithTenant opens the store of userID, runs fn and always releases the handle.
func (p *Provisioner) WithTenant(ctx context.Context, userID string, fn func(t *Tenant) error) error {
	tenant, err := p.Open(ctx, userID)
	if err != nil {
		return err
	}
	defer func() { _ = tenant.Close() }()

	return fn(tenant)
}

// ClearAll deletes every farm row of userID and re-seeds the reference data.
// It is irreversible.
func (p *Provisioner) ClearAll(ctx context.Context, userID string) error {
	return p.WithTenant(ctx, userID, func(t *Tenant) (retErr error) {
		tx, err := t.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin clear: %w", err)
		}
		defer func() {
			if retErr != nil {
				_ = tx.Rollback()
			}
		}()

		for _, table := range tenantTables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM sqlite_sequence`); err != nil {
			return fmt.Errorf("reset sequences: %w", err)
		}
		if err := applySchema(ctx, tx); err != nil {
			return err
		}
		if err := seedDefaults(ctx, tx, p.defaults, p.timestamp()); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit clear: %w", err)
		}

		p.logger.Warn("tenant data cleared", zap.String("user_id", userID))
		return nil
	})
}

// List returns the ids of every provisioned tenant, sorted.
func (p *Provisioner) List() ([]string, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, tenantFilePrefix) || !strings.HasSuffix(name, tenantFileSuffix) {
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(name, tenantFilePrefix), tenantFileSuffix)
		if userIDPattern.MatchString(id) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Close closes every pooled connection, even those with live handles.
func (p *Provisioner) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for id, entry := range p.handles {
		if err := entry.db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close tenant %s: %w", id, err)
		}
		delete(p.handles, id)
	}
	return firstErr
}

// DB exposes the connection pool of the tenant.
func (t *Tenant) DB() *sql.DB { return t.db }

// Farm returns the repository over the tenant tables.
func (t *Tenant) Farm() *FarmRepository { return NewFarmRepository(t.db) }

// Close releases the handle. Calling it more than once is a no-op.
func (t *Tenant) Close() error {
	t.released.Do(t.release)
	return nil
}

func (p *Provisioner) release(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.handles[userID]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs > 0 {
		return
	}
	if err := entry.db.Close(); err != nil {
		p.logger.Warn("failed to close tenant store", zap.String("user_id", userID), zap.Error(err))
	}
	delete(p.handles, userID)
}

func (p *Provisioner) initialize(ctx context.Context, db *sql.DB) (retErr error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin provision: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if err := applySchema(ctx, tx); err != nil {
		return err
	}
	if err := seedDefaults(ctx, tx, p.defaults, p.timestamp()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit provision: %w", err)
	}
	return nil
}

func (p *Provisioner) pathFor(userID string) string {
	return filepath.Join(p.dir, tenantFilePrefix+userID+tenantFileSuffix)
}

func (p *Provisioner) timestamp() string {
	return p.now().UTC().Format(time.RFC3339)
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", "file:"+path+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return db, nil
}

func validateUserID(userID string) error {
	if !userIDPattern.MatchString(userID) {
		return &models.ValidationError{Field: "user_id", Message: "must be 1-64 letters, digits, '-' or '_'"}
	}
	return nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", path, err)
}

func copyDefaults(defaults models.FarmDefaults) models.FarmDefaults {
	return models.FarmDefaults{
		FeedSettings: append([]models.FeedSetting(nil), defaults.FeedSettings...),
		FeedTypes:    append([]models.FeedType(nil), defaults.FeedTypes...),
	}
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
