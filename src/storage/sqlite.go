package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"pair-analytics/src/logger"
	"pair-analytics/src/models"
)

const sqliteSelectTicks = `
	SELECT id, timestamp, symbol, price, quantity
	FROM ticks
	WHERE symbol = ? AND timestamp >= ? AND timestamp < ?
	ORDER BY timestamp, id`

// -----------------------------------------------------------------------------

type SQLiteTickStore struct {
	Config *models.MConfig
	DB     *sqlx.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteTickStore(cfg *models.MConfig, log *logger.Logger) *SQLiteTickStore {
	return &SQLiteTickStore{
		Config: cfg,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

// Initialize opens the database in WAL mode and creates the schema if it is
// missing. Ingestion and analytics run as separate processes on the same
// file, so existing tables are never dropped.
func (d *SQLiteTickStore) Initialize(ctx context.Context) error {
	path := d.Config.Storage.DBPath
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return unavailable(err, "create directory %s", dir)
		}
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return unavailable(err, "open %s", path)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return unavailable(err, "ping %s", path)
	}
	d.DB = db

	return d.createTables(ctx)
}

// -----------------------------------------------------------------------------

func (d *SQLiteTickStore) createTables(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS ticks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			symbol TEXT NOT NULL,
			price REAL NOT NULL,
			quantity REAL NOT NULL
		);
	`
	if _, err := d.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create ticks: %w", err)
	}

	index := `CREATE INDEX IF NOT EXISTS idx_ticks_symbol_ts ON ticks (symbol, timestamp)`
	if _, err := d.DB.ExecContext(ctx, index); err != nil {
		return fmt.Errorf("failed to create ticks index: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteTickStore) SaveTicksBulk(ctx context.Context, ticks []models.MTick) error {
	if len(ticks) == 0 {
		return nil
	}

	tx, err := d.DB.BeginTxx(ctx, nil)
	if err != nil {
		return unavailable(err, "begin insert")
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO ticks (timestamp, symbol, price, quantity)
		VALUES (?, ?, ?, ?)
	`)
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

// QueryTicks reads all symbols inside one transaction. In WAL mode a read
// transaction sees the database as of its first read, so trades committed
// by a concurrent ingestor afterwards are invisible to the whole query.
func (d *SQLiteTickStore) QueryTicks(ctx context.Context, q models.MTickQuery) (map[string][]models.MTick, error) {
	tx, err := d.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, unavailable(err, "begin snapshot")
	}
	defer tx.Rollback()

	return selectTicks(ctx, tx, sqliteSelectTicks, q)
}

// -----------------------------------------------------------------------------

func (d *SQLiteTickStore) CleanupOldData(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention).UnixMilli()

	d.Logger.Info("Cleaning up ticks older than %s (timestamp < %d)...", retention, cutoff)

	res, err := d.DB.ExecContext(ctx, "DELETE FROM ticks WHERE timestamp < ?", cutoff)
	if err != nil {
		d.Logger.Error("Cleanup ticks error: %v", err)
		return 0, err
	}
	removed, _ := res.RowsAffected()

	d.Logger.Info("Cleanup completed, %d ticks removed", removed)
	return removed, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteTickStore) Ping(ctx context.Context) error {
	if d.DB == nil {
		return unavailable(nil, "sqlite store not initialized")
	}
	if err := d.DB.PingContext(ctx); err != nil {
		return unavailable(err, "ping")
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteTickStore) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
