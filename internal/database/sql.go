package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"dealercrm/internal/gateway"
	"dealercrm/internal/models"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

var schemas = map[string][]string{
	DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS crm_backups (
			id VARCHAR(64) PRIMARY KEY,
			created_at BIGINT NOT NULL,
			payload LONGTEXT NOT NULL,
			size_bytes BIGINT NOT NULL,
			data_hash VARCHAR(16) NOT NULL,
			metadata TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_crm_backups_created_at ON crm_backups(created_at)`,
	},
	DriverMySQL: {
		`CREATE TABLE IF NOT EXISTS crm_backups (
			id VARCHAR(64) NOT NULL PRIMARY KEY,
			created_at BIGINT NOT NULL,
			payload LONGTEXT NOT NULL,
			size_bytes BIGINT NOT NULL,
			data_hash VARCHAR(16) NOT NULL,
			metadata TEXT NOT NULL,
			KEY idx_crm_backups_created_at (created_at)
		) DEFAULT CHARSET=utf8mb4`,
	},
}

// SQLRepository stores backup records in MySQL or SQLite. Both dialects
// share the same statements.
type SQLRepository struct {
	db     *sqlx.DB
	driver string
}

type txKey struct{}

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// OpenSQL connects to dsn and creates the backup table when missing.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQLRepository, error) {
	if _, ok := schemas[driver]; !ok {
		return nil, fmt.Errorf("unsupported backup driver: %s", driver)
	}
	if driver == DriverSQLite && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := NewSQLRepository(db, driver)
	if err := repo.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	logrus.Infof("Connected to %s backup database", driver)
	return repo, nil
}

func NewSQLRepository(db *sqlx.DB, driver string) *SQLRepository {
	return &SQLRepository{db: db, driver: driver}
}

func (r *SQLRepository) Close() error {
	return r.db.Close()
}

func (r *SQLRepository) Migrate(ctx context.Context) error {
	for _, stmt := range schemas[r.driver] {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create backup table: %w", err)
		}
	}
	return nil
}

type backupRow struct {
	ID        string `db:"id"`
	CreatedAt int64  `db:"created_at"`
	Payload   string `db:"payload"`
	SizeBytes int    `db:"size_bytes"`
	Hash      string `db:"data_hash"`
	Metadata  string `db:"metadata"`
}

func (row backupRow) record() (models.BackupRecord, error) {
	rec := models.BackupRecord{
		ID:        row.ID,
		CreatedAt: time.Unix(0, row.CreatedAt).UTC(),
		Payload:   row.Payload,
		SizeBytes: row.SizeBytes,
		Hash:      row.Hash,
	}
	if row.Metadata != "" {
		if err := json.Unmarshal([]byte(row.Metadata), &rec.Metadata); err != nil {
			return rec, fmt.Errorf("failed to decode metadata of %s: %w", row.ID, err)
		}
	}
	return rec, nil
}

// ext returns the transaction carried by ctx, or the pool.
func (r *SQLRepository) ext(ctx context.Context) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return r.db
}

const summaryColumns = `id, created_at, size_bytes, data_hash, metadata`

func (r *SQLRepository) List(ctx context.Context, limit int) ([]models.BackupRecord, error) {
	var rows []backupRow
	query := `SELECT ` + summaryColumns + ` FROM crm_backups ORDER BY created_at DESC, id DESC LIMIT ?`
	if err := sqlx.SelectContext(ctx, r.ext(ctx), &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to query backups: %w", err)
	}
	records := make([]models.BackupRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r *SQLRepository) Latest(ctx context.Context) (*models.BackupRecord, error) {
	var row backupRow
	query := `SELECT ` + summaryColumns + ` FROM crm_backups ORDER BY created_at DESC, id DESC LIMIT 1`
	err := sqlx.GetContext(ctx, r.ext(ctx), &row, query)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest backup: %w", err)
	}
	rec, err := row.record()
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *SQLRepository) Get(ctx context.Context, id string) (*models.BackupRecord, error) {
	var row backupRow
	query := `SELECT id, created_at, payload, size_bytes, data_hash, metadata FROM crm_backups WHERE id = ?`
	err := sqlx.GetContext(ctx, r.ext(ctx), &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, gateway.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query backup %s: %w", id, err)
	}
	rec, err := row.record()
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *SQLRepository) Insert(ctx context.Context, rec models.BackupRecord) error {
	md, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	row := backupRow{
		ID:        rec.ID,
		CreatedAt: rec.CreatedAt.UnixNano(),
		Payload:   rec.Payload,
		SizeBytes: rec.SizeBytes,
		Hash:      rec.Hash,
		Metadata:  string(md),
	}
	query := `INSERT INTO crm_backups (id, created_at, payload, size_bytes, data_hash, metadata)
		VALUES (:id, :created_at, :payload, :size_bytes, :data_hash, :metadata)`
	if _, err := sqlx.NamedExecContext(ctx, r.ext(ctx), query, row); err != nil {
		return fmt.Errorf("failed to insert backup %s: %w", rec.ID, err)
	}
	return nil
}

// Prune keeps the newest keep rows. The inner select is wrapped in a
// derived table because MySQL rejects LIMIT directly inside IN.
func (r *SQLRepository) Prune(ctx context.Context, keep int) (int64, error) {
	query := `DELETE FROM crm_backups WHERE id NOT IN (
		SELECT id FROM (
			SELECT id FROM crm_backups ORDER BY created_at DESC, id DESC LIMIT ?
		) AS newest
	)`
	res, err := r.ext(ctx).ExecContext(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune backups: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned backups: %w", err)
	}
	return n, nil
}

// RunInTx runs fn inside one transaction, joining the one already carried
// by ctx if there is one.
func (r *SQLRepository) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rErr := tx.Rollback(); rErr != nil {
			return errors.Join(err, rErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
