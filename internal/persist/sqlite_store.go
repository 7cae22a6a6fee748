package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/rootexgo/rootex/internal/store"
)

// SQLiteStore keeps project assets in a single SQLite file. Change
// notifications cover writes made through this store only.
type SQLiteStore struct {
	db       *sql.DB
	timeout  time.Duration
	watchers *watchers
	log      *zap.Logger
}

var (
	_ store.Store   = (*SQLiteStore)(nil)
	_ store.Remover = (*SQLiteStore)(nil)
)

func NewSQLiteStore(db *sql.DB, log *zap.Logger) *SQLiteStore {
	return &SQLiteStore{
		db:       db,
		timeout:  5 * time.Second,
		watchers: newWatchers(),
		log:      log,
	}
}

func (s *SQLiteStore) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *SQLiteStore) Read(p string) ([]byte, error) {
	key := store.Normalize(p)
	ctx, cancel := s.ctx()
	defer cancel()
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM assets WHERE path = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("read asset %s: %w", key, err)
	}
	return data, nil
}

func (s *SQLiteStore) Write(p string, data []byte) error {
	key := store.Normalize(p)
	ctx, cancel := s.ctx()
	defer cancel()
	if data == nil {
		data = []byte{}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO assets (path, data, mod_time) VALUES (?, ?, ?)
		 ON CONFLICT (path) DO UPDATE SET data = excluded.data, mod_time = excluded.mod_time`,
		key, data, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("write asset %s: %w", key, err)
	}
	s.watchers.fire(key)
	return nil
}

func (s *SQLiteStore) Exists(p string) bool {
	ctx, cancel := s.ctx()
	defer cancel()
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM assets WHERE path = ?`, store.Normalize(p)).Scan(&one)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		s.log.Warn("asset exists query", zap.String("path", p), zap.Error(err))
	}
	return err == nil
}

func (s *SQLiteStore) ModTime(p string) (time.Time, error) {
	key := store.Normalize(p)
	ctx, cancel := s.ctx()
	defer cancel()
	var nanos int64
	err := s.db.QueryRowContext(ctx, `SELECT mod_time FROM assets WHERE path = ?`, key).Scan(&nanos)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, fmt.Errorf("%w: %s", store.ErrNotFound, key)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("asset mod time %s: %w", key, err)
	}
	return time.Unix(0, nanos), nil
}

func (s *SQLiteStore) List(dir string) ([]string, error) {
	prefix := store.Normalize(dir) + "/"
	ctx, cancel := s.ctx()
	defer cancel()
	rows, err := s.db.QueryContext(ctx,
		`SELECT path FROM assets WHERE substr(path, 1, ?) = ? ORDER BY path`,
		utf8.RuneCountInString(prefix), prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("list assets %s: %w", dir, err)
	}
	defer rows.Close()
	return scanChildren(rows, prefix)
}

// Remove deletes an asset. Watchers are notified.
func (s *SQLiteStore) Remove(p string) error {
	key := store.Normalize(p)
	ctx, cancel := s.ctx()
	defer cancel()
	res, err := s.db.ExecContext(ctx, `DELETE FROM assets WHERE path = ?`, key)
	if err != nil {
		return fmt.Errorf("remove asset %s: %w", key, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", store.ErrNotFound, key)
	}
	s.watchers.fire(key)
	return nil
}

func (s *SQLiteStore) Watch(p string, onChange func(path string)) (func(), error) {
	return s.watchers.add(store.Normalize(p), onChange), nil
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanChildren keeps the paths directly under prefix.
func scanChildren(rows rowScanner, prefix string) ([]string, error) {
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		if !strings.Contains(strings.TrimPrefix(p, prefix), "/") {
			out = append(out, p)
		}
	}
	return out, rows.Err()
}
