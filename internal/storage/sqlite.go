//go:build sqlite
// +build sqlite

package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"insightbot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

const sqliteFile = "insightbot.db"

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	dir := strings.TrimSpace(cfg.Dir)
	if dir == "" {
		return nil, errors.New("state.dir is required for sqlite driver")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, sqliteFile))
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) LoadProcessed(ctx context.Context) ProcessedSet {
	var set ProcessedSet

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, processed_at, background_kind, background_value FROM processed ORDER BY seq ASC`)
	if err != nil {
		s.log.Warn("state read failed, starting empty", logx.String("table", "processed"), logx.Err(err))
		return set
	}
	defer rows.Close()

	for rows.Next() {
		var r ProcessedRecord
		var at int64
		if err := rows.Scan(&r.ID, &at, &r.BackgroundKind, &r.BackgroundValue); err != nil {
			s.log.Warn("state row unreadable, skipped", logx.Err(err))
			continue
		}
		r.ProcessedAt = time.UnixMilli(at).UTC()
		set.ProcessedIDs = append(set.ProcessedIDs, r)
	}
	if err := rows.Err(); err != nil {
		s.log.Warn("state read incomplete", logx.Err(err))
	}

	set.TotalCount = len(set.ProcessedIDs)
	if v, ok := s.metaValue(ctx, "total_count"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > set.TotalCount {
			set.TotalCount = n
		}
	}
	if v, ok := s.metaValue(ctx, "last_updated"); ok {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			set.LastUpdated = time.UnixMilli(ms).UTC()
		}
	}
	return set
}

// SaveProcessed rewrites the whole table inside one transaction.
// The set is capped to a couple hundred rows, so this stays cheap and
// keeps row order identical to the in-memory order.
func (s *sqliteStore) SaveProcessed(ctx context.Context, set ProcessedSet) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM processed`); err != nil {
		return err
	}
	for _, r := range set.ProcessedIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO processed (id, processed_at, background_kind, background_value) VALUES (?, ?, ?, ?)`,
			r.ID, r.ProcessedAt.UnixMilli(), r.BackgroundKind, r.BackgroundValue); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES ('total_count', ?), ('last_updated', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		strconv.Itoa(set.TotalCount), strconv.FormatInt(set.LastUpdated.UnixMilli(), 10)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqliteStore) LoadCheckpoint(ctx context.Context) Checkpoint {
	var cp Checkpoint
	var published, sent int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, published_at, sent_at FROM checkpoint WHERE slot = 0`).
		Scan(&cp.ID, &published, &sent)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return Checkpoint{}
	case err != nil:
		s.log.Warn("state read failed, starting empty", logx.String("table", "checkpoint"), logx.Err(err))
		return Checkpoint{}
	}
	cp.PublishedAt = time.UnixMilli(published).UTC()
	cp.SentAt = time.UnixMilli(sent).UTC()
	return cp
}

func (s *sqliteStore) SaveCheckpoint(ctx context.Context, cp Checkpoint) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO checkpoint (slot, id, published_at, sent_at) VALUES (0, ?, ?, ?)
		 ON CONFLICT(slot) DO UPDATE SET id = excluded.id, published_at = excluded.published_at, sent_at = excluded.sent_at`,
		cp.ID, cp.PublishedAt.UnixMilli(), cp.SentAt.UnixMilli())
	return err
}

func (s *sqliteStore) metaValue(ctx context.Context, key string) (string, bool) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
	if err != nil {
		return "", false
	}
	return v, true
}
