package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"pulsebar/internal/module"
	"pulsebar/internal/state"
	logx "pulsebar/pkg/logx"
)

//go:embed schema.sql
var schemaSQL string

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.ExecContext(context.Background(), schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &sqliteStore{db: db, log: log}, nil
}

func (s *sqliteStore) Load(ctx context.Context) (Snapshot, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx, `SELECT name, is_processing, start_time, data FROM refresh_state`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := Snapshot{}
	for rows.Next() {
		var (
			name       string
			processing int
			start      int64
			raw        string
		)
		if err := rows.Scan(&name, &processing, &start, &raw); err != nil {
			return nil, err
		}
		data := module.Fields{}
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			s.log.Warn("skipping corrupt state row", logx.String("module", name), logx.Err(err))
			continue
		}
		out[name] = state.RefreshState{IsProcessing: processing != 0, StartTime: time.Duration(start), Data: data}
	}
	return out, rows.Err()
}

func (s *sqliteStore) Save(ctx context.Context, snap Snapshot) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO refresh_state(name, is_processing, start_time, data, updated_at)
		 VALUES(?,?,?,?,?)
		 ON CONFLICT(name) DO UPDATE SET
		   is_processing=excluded.is_processing,
		   start_time=excluded.start_time,
		   data=excluded.data,
		   updated_at=excluded.updated_at`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UnixMilli()
	for name, st := range snap {
		data := st.Data
		if data == nil {
			data = module.Fields{}
		}
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, name, boolInt(st.IsProcessing), int64(st.StartTime), string(raw), now); err != nil {
			return fmt.Errorf("upsert %s: %w", name, err)
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
