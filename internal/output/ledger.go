package output

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/image-ocr-batch/internal/entity"
)

const ledgerTable = "ocr_records"

var ledgerDDL = map[string][]string{
	dialect.SQLite: {
		`CREATE TABLE IF NOT EXISTS ocr_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			processed_at DATETIME NOT NULL,
			source TEXT NOT NULL,
			text TEXT NOT NULL,
			engine TEXT NOT NULL,
			artifact TEXT NOT NULL DEFAULT '',
			UNIQUE (run_id, seq)
		)`,
		`CREATE INDEX IF NOT EXISTS ocr_records_run_id ON ocr_records (run_id)`,
	},
	dialect.Postgres: {
		`CREATE TABLE IF NOT EXISTS ocr_records (
			id BIGSERIAL PRIMARY KEY,
			run_id UUID NOT NULL,
			seq INTEGER NOT NULL,
			processed_at TIMESTAMPTZ NOT NULL,
			source TEXT NOT NULL,
			text TEXT NOT NULL,
			engine TEXT NOT NULL,
			artifact TEXT NOT NULL DEFAULT '',
			UNIQUE (run_id, seq)
		)`,
		`CREATE INDEX IF NOT EXISTS ocr_records_run_id ON ocr_records (run_id)`,
	},
}

type LedgerConfig struct {
	DSN             string
	MaxConns        int32
	MaxConnLifetime time.Duration
	DialTimeout     time.Duration
}

// Ledger is a queryable sink: one row per record in ocr_records, keyed by run id.
// DSNs starting with postgres:// or postgresql:// use pgx, anything else is a
// SQLite path or URI.
type Ledger struct {
	drv     *entsql.Driver
	pool    *pgxpool.Pool
	dialect string
	logger  *slog.Logger
}

// RunCount is the number of records stored for one run.
type RunCount struct {
	RunID string
	Count int
}

// IsPostgresDSN reports whether dsn selects the Postgres backend.
func IsPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// OpenLedger connects and creates the table if needed.
func OpenLedger(ctx context.Context, cfg LedgerConfig, logger *slog.Logger) (*Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}

	l := &Ledger{logger: logger}
	if IsPostgresDSN(cfg.DSN) {
		logger.Info("connecting to ledger", "backend", "postgres")
		pc, err := pgxpool.ParseConfig(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("parse ledger dsn: %w", err)
		}
		if cfg.MaxConns > 0 {
			pc.MaxConns = cfg.MaxConns
		}
		if cfg.MaxConnLifetime > 0 {
			pc.MaxConnLifetime = cfg.MaxConnLifetime
		}
		pc.ConnConfig.RuntimeParams["application_name"] = "image-ocr-batch"

		dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
		pool, err := pgxpool.NewWithConfig(dialCtx, pc)
		if err != nil {
			return nil, fmt.Errorf("connect ledger: %w", err)
		}
		l.pool = pool
		l.dialect = dialect.Postgres
		l.drv = entsql.OpenDB(dialect.Postgres, stdlib.OpenDBFromPool(pool))
	} else {
		logger.Info("opening ledger", "backend", "sqlite", "dsn", cfg.DSN)
		db, err := sql.Open("sqlite", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open ledger: %w", err)
		}
		// one writer; also keeps ":memory:" databases alive across calls
		db.SetMaxOpenConns(1)
		l.dialect = dialect.SQLite
		l.drv = entsql.OpenDB(dialect.SQLite, db)
	}

	if err := l.migrate(ctx); err != nil {
		_ = l.Close()
		return nil, err
	}
	return l, nil
}

func (l *Ledger) migrate(ctx context.Context) error {
	for _, stmt := range ledgerDDL[l.dialect] {
		if err := l.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			return fmt.Errorf("migrate ledger: %w", err)
		}
	}
	return nil
}

// Write inserts one row.
func (l *Ledger) Write(ctx context.Context, rec entity.Record) error {
	query, args := entsql.Dialect(l.dialect).
		Insert(ledgerTable).
		Columns("run_id", "seq", "processed_at", "source", "text", "engine", "artifact").
		Values(rec.RunID.String(), rec.Seq, rec.ProcessedAt.UTC(), rec.Source, rec.Text, rec.Engine, rec.Artifact).
		Query()
	if err := l.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// CountByRun returns how many records were stored for runID.
func (l *Ledger) CountByRun(ctx context.Context, runID uuid.UUID) (int, error) {
	query, args := entsql.Dialect(l.dialect).
		Select(entsql.Count("*")).
		From(entsql.Table(ledgerTable)).
		Where(entsql.EQ("run_id", runID.String())).
		Query()

	rows := &entsql.Rows{}
	if err := l.drv.Query(ctx, query, args, rows); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	defer rows.Close()

	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, fmt.Errorf("scan count: %w", err)
		}
	}
	return n, rows.Err()
}

// Runs lists record counts per run, ordered by run id.
func (l *Ledger) Runs(ctx context.Context) ([]RunCount, error) {
	query, args := entsql.Dialect(l.dialect).
		Select("run_id", entsql.As(entsql.Count("*"), "n")).
		From(entsql.Table(ledgerTable)).
		GroupBy("run_id").
		OrderBy("run_id").
		Query()

	rows := &entsql.Rows{}
	if err := l.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunCount
	for rows.Next() {
		var rc RunCount
		if err := rows.Scan(&rc.RunID, &rc.Count); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

// Ping checks connectivity within timeout.
func (l *Ledger) Ping(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	l.logger.Debug("pinging ledger")
	if l.pool != nil {
		return l.pool.Ping(ctx)
	}
	return l.drv.DB().PingContext(ctx)
}

// Dialect is "sqlite3" or "postgres".
func (l *Ledger) Dialect() string { return l.dialect }

// Close closes the database connections gracefully
func (l *Ledger) Close() error {
	var err error
	if l.drv != nil {
		err = l.drv.Close()
	}
	if l.pool != nil {
		l.pool.Close()
	}
	return err
}
