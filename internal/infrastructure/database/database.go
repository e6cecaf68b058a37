package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"evidence-stamp/internal/config"
)

var Module = fx.Module("database",
	fx.Provide(NewDatabase),
	fx.Invoke(registerHooks),
)

// Database wraps the batch history connection. DB is nil when history is
// disabled in config.
type Database struct {
	DB     *sql.DB
	logger *zap.Logger
}

func NewDatabase(cfg *config.Config, logger *zap.Logger) (*Database, error) {
	if !cfg.Database.Enabled {
		logger.Info("Database disabled, batch history will not be persisted")
		return &Database{logger: logger}, nil
	}

	// Build PostgreSQL connection string
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.DBName,
		cfg.Database.SSLMode,
	)

	db, err := sql.Open(cfg.Database.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connected successfully",
		zap.String("driver", cfg.Database.Driver),
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("dbname", cfg.Database.DBName),
	)

	database := &Database{
		DB:     db,
		logger: logger,
	}

	if err := database.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return database, nil
}

// Enabled reports whether a connection is available.
func (d *Database) Enabled() bool {
	return d != nil && d.DB != nil
}

var migrations = []struct {
	name string
	sql  string
}{
	{"batch_runs table", `
	CREATE TABLE IF NOT EXISTS batch_runs (
		id VARCHAR(36) PRIMARY KEY,
		out_dir TEXT NOT NULL,
		succeeded INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		index_path TEXT DEFAULT '',
		index_error TEXT DEFAULT '',
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL
	);
	`},
	{"batch_jobs table", `
	CREATE TABLE IF NOT EXISTS batch_jobs (
		id SERIAL PRIMARY KEY,
		batch_id VARCHAR(36) NOT NULL REFERENCES batch_runs(id) ON DELETE CASCADE,
		job_index INTEGER NOT NULL,
		source_path TEXT NOT NULL,
		label TEXT DEFAULT '',
		output_path TEXT DEFAULT '',
		status VARCHAR(32) NOT NULL,
		error TEXT DEFAULT ''
	);
	`},
	// PostgreSQL doesn't support IF NOT EXISTS for indexes in the same statement
	{"batch_jobs index", `CREATE INDEX IF NOT EXISTS idx_batch_jobs_batch_id ON batch_jobs(batch_id);`},
	{"batch_runs index", `CREATE INDEX IF NOT EXISTS idx_batch_runs_started_at ON batch_runs(started_at DESC);`},
}

func (d *Database) migrate() error {
	for _, m := range migrations {
		if _, err := d.DB.Exec(m.sql); err != nil {
			return fmt.Errorf("failed to create %s: %w", m.name, err)
		}
	}

	d.logger.Info("Database migrations completed successfully")
	return nil
}

func (d *Database) Close() error {
	if d.DB == nil {
		return nil
	}
	return d.DB.Close()
}

func registerHooks(lc fx.Lifecycle, db *Database) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return db.Close()
		},
	})
}
