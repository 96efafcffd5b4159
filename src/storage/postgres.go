package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"pair-analytics/src/logger"
	"pair-analytics/src/models"
)

// -----------------------------------------------------------------------------

type PostgresTickStore struct {
	Config *models.MConfig
	DB     *sqlx.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

// NewPostgresTickStore keeps its tables in a schema named after the
// application.
func NewPostgresTickStore(cfg *models.MConfig, log *logger.Logger) *PostgresTickStore {
	return &PostgresTickStore{
		Config: cfg,
		Schema: schemaName(cfg.Name),
		Logger: log,
	}
}

// NewPostgresTickStoreWithDB wraps an existing connection.
func NewPostgresTickStoreWithDB(cfg *models.MConfig, db *sqlx.DB, log *logger.Logger) *PostgresTickStore {
	d := NewPostgresTickStore(cfg, log)
	d.DB = db
	return d
}

func schemaName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.NewReplacer("-", "_", " ", "_", `"`, "").Replace(name)
	if name == "" {
		return "public"
	}
	return name
}

func (d *PostgresTickStore) table() string {
	return fmt.Sprintf(`"%s"."ticks"`, d.Schema)
}

// -----------------------------------------------------------------------------

func (d *PostgresTickStore) Initialize(ctx context.Context) error {
	if d.DB == nil {
		db, err := sqlx.Open("postgres", d.Config.Storage.DBConnectionString)
		if err != nil {
			return unavailable(err, "open postgres")
		}
		d.DB = db
	}

	if err := d.DB.PingContext(ctx); err != nil {
		return unavailable(err, "ping postgres")
	}

	// Create Schema
	if _, err := d.DB.ExecContext(ctx, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	if err := d.createTables(ctx); err != nil {
		return err
	}

	d.Logger.Info("PostgresTickStore initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresTickStore) createTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			timestamp BIGINT NOT NULL,
			symbol TEXT NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			quantity DOUBLE PRECISION NOT NULL
		);
	`, d.table())
	if _, err := d.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create ticks: %w", err)
	}

	index := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_ticks_symbol_ts ON %s (symbol, timestamp)`, d.table())
	if _, err := d.DB.ExecContext(ctx, index); err != nil {
		return fmt.Errorf("failed to create ticks index: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresTickStore) SaveTicksBulk(ctx context.Context, ticks []models.MTick) error {
	if len(ticks) == 0 {
		return nil
	}

	tx, err := d.DB.BeginTxx(ctx, nil)
	if err != nil {
		return unavailable(err, "begin insert")
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (timestamp, symbol, price, quantity)
		VALUES ($1, $2, $3, $4)
	`, d.table()))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range ticks {
		if _, err := stmt.ExecContext(ctx, t.Timestamp.UnixMilli(), t.Symbol, t.Price, t.Quantity); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

// QueryTicks reads all symbols in one REPEATABLE READ, read-only transaction.
func (d *PostgresTickStore) QueryTicks(ctx context.Context, q models.MTickQuery) (map[string][]models.MTick, error) {
	tx, err := d.DB.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, unavailable(err, "begin snapshot")
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		SELECT id, timestamp, symbol, price, quantity
		FROM %s
		WHERE symbol = $1 AND timestamp >= $2 AND timestamp < $3
		ORDER BY timestamp, id`, d.table())

	out, err := selectTicks(ctx, tx, query, q)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, unavailable(err, "end snapshot")
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresTickStore) CleanupOldData(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention).UnixMilli()

	d.Logger.Info("Cleaning up ticks older than %s (timestamp < %d)...", retention, cutoff)

	res, err := d.DB.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE timestamp < $1`, d.table()), cutoff)
	if err != nil {
		d.Logger.Error("Cleanup ticks error: %v", err)
		return 0, err
	}
	removed, _ := res.RowsAffected()
	return removed, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresTickStore) Ping(ctx context.Context) error {
	if d.DB == nil {
		return unavailable(nil, "postgres store not initialized")
	}
	if err := d.DB.PingContext(ctx); err != nil {
		return unavailable(err, "ping")
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresTickStore) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
