package persist

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/rootexgo/rootex/internal/store"
)

// NotifyChannel is the PostgreSQL channel asset writes are announced on.
const NotifyChannel = "rootex_assets"

// PGStore keeps project assets in PostgreSQL. Every write is announced with
// NOTIFY, so editors sharing the database see each other's changes once
// Listen is running.
type PGStore struct {
	db       *DB
	timeout  time.Duration
	watchers *watchers
	log      *zap.Logger
}

var (
	_ store.Store   = (*PGStore)(nil)
	_ store.Remover = (*PGStore)(nil)
)

func NewPGStore(db *DB, log *zap.Logger) *PGStore {
	return &PGStore{
		db:       db,
		timeout:  5 * time.Second,
		watchers: newWatchers(),
		log:      log,
	}
}

func (s *PGStore) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *PGStore) Read(p string) ([]byte, error) {
	key := store.Normalize(p)
	ctx, cancel := s.ctx()
	defer cancel()
	var data []byte
	err := s.db.Pool.QueryRow(ctx, `SELECT data FROM assets WHERE path = $1`, key).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("read asset %s: %w", key, err)
	}
	return data, nil
}

func (s *PGStore) Write(p string, data []byte) error {
	key := store.Normalize(p)
	ctx, cancel := s.ctx()
	defer cancel()
	if data == nil {
		data = []byte{}
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("write asset begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO assets (path, data, mod_time) VALUES ($1, $2, $3)
		 ON CONFLICT (path) DO UPDATE SET data = EXCLUDED.data, mod_time = EXCLUDED.mod_time`,
		key, data, time.Now().UnixNano(),
	); err != nil {
		return fmt.Errorf("write asset %s: %w", key, err)
	}
	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, NotifyChannel, key); err != nil {
		return fmt.Errorf("notify asset %s: %w", key, err)
	}
	return tx.Commit(ctx)
}

func (s *PGStore) Exists(p string) bool {
	ctx, cancel := s.ctx()
	defer cancel()
	var exists bool
	err := s.db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM assets WHERE path = $1)`, store.Normalize(p),
	).Scan(&exists)
	if err != nil {
		s.log.Warn("asset exists query", zap.String("path", p), zap.Error(err))
		return false
	}
	return exists
}

func (s *PGStore) ModTime(p string) (time.Time, error) {
	key := store.Normalize(p)
	ctx, cancel := s.ctx()
	defer cancel()
	var nanos int64
	err := s.db.Pool.QueryRow(ctx, `SELECT mod_time FROM assets WHERE path = $1`, key).Scan(&nanos)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, fmt.Errorf("%w: %s", store.ErrNotFound, key)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("asset mod time %s: %w", key, err)
	}
	return time.Unix(0, nanos), nil
}

func (s *PGStore) List(dir string) ([]string, error) {
	prefix := store.Normalize(dir) + "/"
	ctx, cancel := s.ctx()
	defer cancel()
	rows, err := s.db.Pool.Query(ctx,
		`SELECT path FROM assets WHERE left(path, $1) = $2 ORDER BY path`,
		utf8.RuneCountInString(prefix), prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("list assets %s: %w", dir, err)
	}
	defer rows.Close()
	return scanChildren(rows, prefix)
}

// Remove deletes an asset and announces the change.
func (s *PGStore) Remove(p string) error {
	key := store.Normalize(p)
	ctx, cancel := s.ctx()
	defer cancel()
	tag, err := s.db.Pool.Exec(ctx,
		`WITH gone AS (DELETE FROM assets WHERE path = $1 RETURNING path)
		 SELECT pg_notify($2, path) FROM gone`,
		key, NotifyChannel,
	)
	if err != nil {
		return fmt.Errorf("remove asset %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", store.ErrNotFound, key)
	}
	return nil
}

func (s *PGStore) Watch(p string, onChange func(path string)) (func(), error) {
	return s.watchers.add(store.Normalize(p), onChange), nil
}

// Listen holds a pool connection subscribed to NotifyChannel and fires
// watch callbacks until ctx is cancelled.
func (s *PGStore) Listen(ctx context.Context) error {
	conn, err := s.db.Pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("listen acquire: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{NotifyChannel}.Sanitize()); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.log.Info("listening for asset changes", zap.String("channel", NotifyChannel))
	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("wait for notification: %w", err)
		}
		s.watchers.fire(n.Payload)
	}
}
