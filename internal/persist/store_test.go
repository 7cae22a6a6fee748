package persist

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/rootexgo/rootex/internal/config"
	"github.com/rootexgo/rootex/internal/store"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	ctx := context.Background()
	db, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "rootex.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	if err := RunSQLiteMigrations(ctx, db); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return NewSQLiteStore(db, zaptest.NewLogger(t))
}

func exerciseStore(t *testing.T, s store.Store) {
	t.Helper()
	if _, err := s.Read("game/a.txt"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Read missing err = %v, want ErrNotFound", err)
	}
	if s.Exists("game/a.txt") {
		t.Fatal("Exists before write")
	}

	var fired atomic.Int32
	stop, err := s.Watch("game/a.txt", func(string) { fired.Add(1) })
	if err != nil {
		t.Fatal(err)
	}
	defer stop()

	for _, p := range []string{"game/a.txt", "game/b.txt", "game/sub/c.txt", "gamex/d.txt"} {
		if err := s.Write(p, []byte("v1 "+p)); err != nil {
			t.Fatalf("Write %s: %v", p, err)
		}
	}
	if err := s.Write("./game/a.txt", []byte("v2")); err != nil {
		t.Fatal(err)
	}
	got, err := s.Read("game/a.txt")
	if err != nil || string(got) != "v2" {
		t.Fatalf("Read = %q, %v", got, err)
	}
	if !s.Exists("game/a.txt") {
		t.Error("Exists after write")
	}
	if mt, err := s.ModTime("game/a.txt"); err != nil || time.Since(mt) > time.Minute {
		t.Errorf("ModTime = %v, %v", mt, err)
	}
	list, err := s.List("game")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0] != "game/a.txt" || list[1] != "game/b.txt" {
		t.Errorf("List = %v", list)
	}

	deadline := time.Now().Add(5 * time.Second)
	for fired.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if fired.Load() < 2 {
		t.Errorf("watch fired %d times, want 2", fired.Load())
	}
}

func TestSQLiteStore(t *testing.T) {
	s := newTestSQLiteStore(t)
	exerciseStore(t, s)

	if err := s.Remove("game/a.txt"); err != nil {
		t.Fatal(err)
	}
	if s.Exists("game/a.txt") {
		t.Error("Exists after Remove")
	}
}

func TestSQLiteMigrationsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "twice.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	for i := 0; i < 2; i++ {
		if err := RunSQLiteMigrations(ctx, db); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
}

func TestPGStore(t *testing.T) {
	dsn := os.Getenv("ROOTEX_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("ROOTEX_TEST_PG_DSN not set")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	log := zaptest.NewLogger(t)
	db, err := NewDB(ctx, config.StoreConfig{DSN: dsn, MaxOpenConns: 4, MaxIdleConns: 1}, log)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if err := RunMigrations(ctx, db.Pool); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Pool.Exec(ctx, `DELETE FROM assets WHERE path LIKE 'game%'`); err != nil {
		t.Fatal(err)
	}

	s := NewPGStore(db, log)
	done := make(chan error, 1)
	go func() { done <- s.Listen(ctx) }()
	time.Sleep(200 * time.Millisecond)

	exerciseStore(t, s)
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Listen error = %v", err)
	}
}
