// Package postgres provides the Postgres-backed record writer.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/jobsift/ncss-crawler/internal/crawler"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const defaultTable = "jobs_info"

// Config controls the Postgres connection pool backing the job store.
type Config struct {
	DSN             string
	Table           string
	MinConns        int32
	MaxConns        int32
	MaxConnLifetime time.Duration
}

// txBeginner is the slice of pgxpool.Pool the store needs; pgxmock
// implements it for tests.
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// JobStore persists job records with an existence check under the natural
// key (job_name, area, company_name) before every insert. There is no row
// lock beyond the transaction, so two writers racing on the same key can
// both observe "not found" and both insert; that window is documented
// behavior, not handled here.
type JobStore struct {
	pool   txBeginner
	table  string
	logger *zap.Logger
}

// NewJobStore connects a pool using the provided config.
func NewJobStore(ctx context.Context, cfg Config, logger *zap.Logger) (*JobStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &JobStore{pool: pool, table: table, logger: logger}, nil
}

// NewJobStoreWithPool constructs a store from an existing pool (primarily
// for testing).
func NewJobStoreWithPool(pool txBeginner, table string, logger *zap.Logger) (*JobStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &JobStore{pool: pool, table: table, logger: logger}, nil
}

// Close releases the underlying pool resources.
func (s *JobStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Persist checks for an existing row under the natural key and inserts the
// record only if absent, all within one transaction. A failure rolls the
// transaction back and is reported to the caller; the record is not
// retried and sibling persistence tasks are unaffected.
func (s *JobStore) Persist(ctx context.Context, record crawler.JobRecord) (crawler.PersistResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return crawler.PersistFailed, fmt.Errorf("begin tx: %w", err)
	}

	exists, err := s.exists(ctx, tx, record)
	if err != nil {
		s.rollback(ctx, tx)
		return crawler.PersistFailed, fmt.Errorf("existence check: %w", err)
	}
	if !exists {
		if err := s.insert(ctx, tx, record); err != nil {
			s.rollback(ctx, tx)
			return crawler.PersistFailed, fmt.Errorf("insert record: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		s.rollback(ctx, tx)
		return crawler.PersistFailed, fmt.Errorf("commit tx: %w", err)
	}

	if exists {
		return crawler.PersistAlreadyExists, nil
	}
	return crawler.PersistInserted, nil
}

func (s *JobStore) exists(ctx context.Context, tx pgx.Tx, record crawler.JobRecord) (bool, error) {
	query := fmt.Sprintf(`
SELECT job_id FROM %s
WHERE job_name = $1 AND area = $2 AND company_name = $3
LIMIT 1`, s.table)

	var jobID string
	err := tx.QueryRow(ctx, query, record.JobName, record.Area, record.CompanyName).Scan(&jobID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("select by natural key: %w", err)
	}
	return true, nil
}

func (s *JobStore) insert(ctx context.Context, tx pgx.Tx, record crawler.JobRecord) error {
	query := fmt.Sprintf(`
INSERT INTO %s (
	job_id, job_name, salary, degree, categories, major, welfare,
	head_count, publish_date, update_date, source, company_name, area,
	company_scale, company_property
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15
)`, s.table)

	_, err := tx.Exec(ctx, query,
		record.JobID,
		record.JobName,
		record.Salary,
		record.Degree,
		record.Category,
		record.Major,
		record.Welfare,
		record.HeadCount,
		record.PublishDate.Format("2006-01-02"),
		record.UpdateDate.Format("2006-01-02"),
		record.Source,
		record.CompanyName,
		record.Area,
		record.CompanyScale,
		record.CompanyProperty,
	)
	if err != nil {
		return fmt.Errorf("exec insert: %w", err)
	}
	return nil
}

func (s *JobStore) rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		s.logger.Warn("transaction rollback failed", zap.Error(err))
	}
}
