// Copyright 2025 VRF Relay Worker Authors
//
// Package pgstore is the durable Postgres-backed store.Store
// implementation: connection pooling, schema migration, and parameterized
// queries over database/sql and github.com/lib/pq.
package pgstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"math/big"
	"sort"
	"time"

	_ "github.com/lib/pq"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vrfrelay/worker/pkg/store"
	"github.com/vrfrelay/worker/pkg/vrftask"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is a Postgres-backed store.Store.
type Store struct {
	db *sql.DB
}

// Open connects to dsn, applies embedded migrations, and verifies
// connectivity.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open postgres store: %v", vrftask.ErrConfig, err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping postgres store: %v", vrftask.ErrConfig, err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	entries, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("glob migrations: %w", err)
	}
	sort.Strings(entries)
	for _, name := range entries {
		sqlBytes, err := migrationsFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, string(sqlBytes)); err != nil {
			return fmt.Errorf("%w: apply migration %s: %v", vrftask.ErrConfig, name, err)
		}
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Upsert(ctx context.Context, nonce uint64, task vrftask.Task, resolvedBlockHeight uint64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vrf_tasks (
			nonce, is_resolved, task_time, caller, task_fee, seed, result,
			client_seed, resolved_block_height, resolved, fork_checked
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, false)
		ON CONFLICT (nonce) DO UPDATE SET
			is_resolved = EXCLUDED.is_resolved,
			task_time = EXCLUDED.task_time,
			caller = EXCLUDED.caller,
			task_fee = EXCLUDED.task_fee,
			seed = EXCLUDED.seed,
			result = EXCLUDED.result,
			client_seed = EXCLUDED.client_seed,
			resolved_block_height = CASE WHEN $9 > 0 THEN $9 ELSE vrf_tasks.resolved_block_height END,
			resolved = CASE WHEN $9 > 0 THEN true ELSE vrf_tasks.resolved END`,
		nonce, task.IsResolved, task.Time, task.Caller.Hex(), task.TaskFee.String(),
		task.Seed[:], task.Result[:], task.ClientSeed, resolvedBlockHeight,
		resolvedBlockHeight > 0,
	)
	if err != nil {
		return fmt.Errorf("%w: upsert nonce %d: %v", vrftask.ErrTransient, nonce, err)
	}
	return nil
}

func (s *Store) LatestNonce(ctx context.Context) (uint64, bool, error) {
	var nonce sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(nonce) FROM vrf_tasks`).Scan(&nonce)
	if err != nil {
		return 0, false, fmt.Errorf("%w: latest_nonce: %v", vrftask.ErrTransient, err)
	}
	if !nonce.Valid {
		return 0, false, nil
	}
	return uint64(nonce.Int64), true, nil
}

const selectColumns = `nonce, is_resolved, task_time, caller, task_fee, seed, result,
	client_seed, resolved_block_height, resolved, fork_checked`

func (s *Store) scanRecord(row interface{ Scan(...interface{}) error }) (store.Record, error) {
	var (
		rec       store.Record
		callerHex string
		feeStr    string
		seed      []byte
		result    []byte
	)
	if err := row.Scan(
		&rec.Nonce, &rec.Task.IsResolved, &rec.Task.Time, &callerHex, &feeStr,
		&seed, &result, &rec.Task.ClientSeed, &rec.ResolvedBlockHeight, &rec.Resolved, &rec.ForkChecked,
	); err != nil {
		return store.Record{}, err
	}
	rec.Task.Nonce = rec.Nonce
	rec.Task.Caller = common.HexToAddress(callerHex)
	fee, ok := new(big.Int).SetString(feeStr, 10)
	if !ok {
		return store.Record{}, fmt.Errorf("decode task_fee %q", feeStr)
	}
	rec.Task.TaskFee = fee
	copy(rec.Task.Seed[:], seed)
	copy(rec.Task.Result[:], result)
	return rec, nil
}

func (s *Store) Unresolved(ctx context.Context, offset, limit int) ([]store.Record, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM vrf_tasks WHERE resolved = false
		ORDER BY nonce ASC OFFSET $1 LIMIT $2`, selectColumns), offset, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: unresolved: %v", vrftask.ErrTransient, err)
	}
	defer rows.Close()

	var out []store.Record
	for rows.Next() {
		rec, err := s.scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan unresolved row: %v", vrftask.ErrTransient, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) Resolve(ctx context.Context, nonce uint64, blockHeight uint64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE vrf_tasks SET resolved = true, resolved_block_height = $2, fork_checked = false
		WHERE nonce = $1`, nonce, blockHeight)
	return wrapUpdateResult(res, err, nonce)
}

func (s *Store) MarkUnresolved(ctx context.Context, nonce uint64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE vrf_tasks SET resolved = false, resolved_block_height = 0, fork_checked = false
		WHERE nonce = $1`, nonce)
	return wrapUpdateResult(res, err, nonce)
}

func (s *Store) MarkForkChecked(ctx context.Context, nonce uint64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE vrf_tasks SET fork_checked = true WHERE nonce = $1`, nonce)
	return wrapUpdateResult(res, err, nonce)
}

func (s *Store) ToForkCheck(ctx context.Context, head, blockDiff uint64, offset, limit int) ([]store.Record, error) {
	if head < blockDiff {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM vrf_tasks
		WHERE resolved = true AND fork_checked = false AND resolved_block_height < $1
		ORDER BY nonce ASC OFFSET $2 LIMIT $3`, selectColumns), head-blockDiff, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: to_fork_check: %v", vrftask.ErrTransient, err)
	}
	defer rows.Close()

	var out []store.Record
	for rows.Next() {
		rec, err := s.scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan fork-check row: %v", vrftask.ErrTransient, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) Delete(ctx context.Context, nonce uint64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM vrf_tasks WHERE nonce = $1`, nonce); err != nil {
		return fmt.Errorf("%w: delete nonce %d: %v", vrftask.ErrTransient, nonce, err)
	}
	return nil
}

func (s *Store) DeleteFrom(ctx context.Context, nonce uint64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM vrf_tasks WHERE nonce >= $1`, nonce); err != nil {
		return fmt.Errorf("%w: delete_from nonce %d: %v", vrftask.ErrTransient, nonce, err)
	}
	return nil
}

func (s *Store) ErrorCount(ctx context.Context) (uint64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT count FROM vrf_worker_counters WHERE name = 'error_count'`).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: error_count: %v", vrftask.ErrTransient, err)
	}
	return uint64(count), nil
}

func (s *Store) SetErrorCount(ctx context.Context, count uint64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vrf_worker_counters (name, count) VALUES ('error_count', $1)
		ON CONFLICT (name) DO UPDATE SET count = EXCLUDED.count`, count)
	if err != nil {
		return fmt.Errorf("%w: set_error_count: %v", vrftask.ErrTransient, err)
	}
	return nil
}

func wrapUpdateResult(res sql.Result, err error, nonce uint64) error {
	if err != nil {
		return fmt.Errorf("%w: update nonce %d: %v", vrftask.ErrTransient, nonce, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected for nonce %d: %v", vrftask.ErrTransient, nonce, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
