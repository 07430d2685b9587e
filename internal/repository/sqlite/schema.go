package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mamadbah2/sheepfold/internal/domain/models"
)

// tenantSchema is replicated into every tenant file.
const tenantSchema = `
CREATE TABLE IF NOT EXISTS pens (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	capacity INTEGER NOT NULL CHECK (capacity > 0),
	meals_per_day INTEGER NOT NULL DEFAULT 2 CHECK (meals_per_day >= 1),
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sheep (
	id TEXT PRIMARY KEY,
	gender TEXT NOT NULL CHECK (gender IN ('male', 'female')),
	birth_date TEXT,
	stage TEXT,
	derived_stage TEXT,
	status TEXT NOT NULL DEFAULT 'alive' CHECK (status IN ('alive', 'dead', 'sold')),
	pen_id INTEGER REFERENCES pens(id) ON DELETE SET NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sheep_pen ON sheep(pen_id);

CREATE TABLE IF NOT EXISTS weight_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	sheep_id TEXT NOT NULL REFERENCES sheep(id) ON DELETE CASCADE,
	weight_kg REAL NOT NULL,
	recorded_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	sheep_id TEXT REFERENCES sheep(id) ON DELETE CASCADE,
	event_type TEXT NOT NULL,
	event_date TEXT NOT NULL,
	description TEXT,
	cost REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS pregnancies (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	sheep_id TEXT NOT NULL REFERENCES sheep(id) ON DELETE CASCADE,
	mating_date TEXT NOT NULL,
	expected_date TEXT,
	delivered_at TEXT,
	notes TEXT
);
CREATE INDEX IF NOT EXISTS idx_pregnancies_sheep ON pregnancies(sheep_id);

CREATE TABLE IF NOT EXISTS transactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	kind TEXT NOT NULL CHECK (kind IN ('income', 'expense')),
	category TEXT NOT NULL,
	amount REAL NOT NULL,
	transaction_date TEXT NOT NULL,
	description TEXT,
	sheep_id TEXT REFERENCES sheep(id) ON DELETE SET NULL
);

CREATE TABLE IF NOT EXISTS feed_settings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	stage TEXT NOT NULL UNIQUE,
	daily_feed_kg REAL NOT NULL CHECK (daily_feed_kg >= 0),
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS feed_types (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	unit TEXT NOT NULL DEFAULT 'kg'
);

CREATE TABLE IF NOT EXISTS scheduled_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	event_type TEXT NOT NULL,
	due_date TEXT NOT NULL,
	pen_id INTEGER REFERENCES pens(id) ON DELETE CASCADE,
	sheep_id TEXT REFERENCES sheep(id) ON DELETE CASCADE,
	done INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS pen_meal_plans (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	pen_id INTEGER NOT NULL REFERENCES pens(id) ON DELETE CASCADE,
	meal_number INTEGER NOT NULL CHECK (meal_number >= 1),
	UNIQUE (pen_id, meal_number)
);

CREATE TABLE IF NOT EXISTS meal_feed_details (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	meal_plan_id INTEGER NOT NULL REFERENCES pen_meal_plans(id) ON DELETE CASCADE,
	feed_type_id INTEGER NOT NULL REFERENCES feed_types(id),
	percentage REAL NOT NULL CHECK (percentage > 0 AND percentage <= 100),
	position INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_meal_feed_details_plan ON meal_feed_details(meal_plan_id);
`

// tenantTables lists every tenant table, children before parents.
var tenantTables = []string{
	"meal_feed_details",
	"pen_meal_plans",
	"scheduled_events",
	"transactions",
	"pregnancies",
	"events",
	"weight_history",
	"sheep",
	"pens",
	"feed_types",
	"feed_settings",
}

func applySchema(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, tenantSchema); err != nil {
		return fmt.Errorf("apply tenant schema: %w", err)
	}
	return nil
}

func seedDefaults(ctx context.Context, tx *sql.Tx, defaults models.FarmDefaults, updatedAt string) error {
	for _, setting := range defaults.FeedSettings {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO feed_settings(stage, daily_feed_kg, updated_at) VALUES(?, ?, ?)`,
			string(setting.Stage), setting.DailyFeedKg, updatedAt); err != nil {
			return fmt.Errorf("seed feed setting %s: %w", setting.Stage, err)
		}
	}

	for _, feedType := range defaults.FeedTypes {
		unit := feedType.Unit
		if unit == "" {
			unit = models.DefaultFeedUnit
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO feed_types(name, unit) VALUES(?, ?)`,
			feedType.Name, unit); err != nil {
			return fmt.Errorf("seed feed type %s: %w", feedType.Name, err)
		}
	}

	return nil
}
