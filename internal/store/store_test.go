package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/rootexgo/rootex/internal/watcher"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"game/assets/a.rmat", "game/assets/a.rmat"},
		{"./game//assets/../assets/a.rmat", "game/assets/a.rmat"},
		{"cafe\u0301.scene.json", "caf\u00e9.scene.json"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func testStore(t *testing.T, s Store) {
	t.Helper()
	if _, err := s.Read("missing.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read missing error = %v, want ErrNotFound", err)
	}
	if s.Exists("dir/a.txt") {
		t.Error("Exists before write")
	}
	if err := s.Write("dir/a.txt", []byte("hello")); err != nil {
		t.Fatalf("Write error = %v", err)
	}
	if !s.Exists("dir/a.txt") {
		t.Error("Exists after write")
	}
	got, err := s.Read("./dir/a.txt")
	if err != nil || string(got) != "hello" {
		t.Errorf("Read = %q, %v", got, err)
	}
	if _, err := s.ModTime("dir/a.txt"); err != nil {
		t.Errorf("ModTime error = %v", err)
	}
	_ = s.Write("dir/b.txt", []byte("b"))
	_ = s.Write("dir/sub/c.txt", []byte("c"))
	list, err := s.List("dir")
	if err != nil {
		t.Fatalf("List error = %v", err)
	}
	if len(list) != 2 || list[0] != "dir/a.txt" || list[1] != "dir/b.txt" {
		t.Errorf("List = %v", list)
	}

	r := s.(Remover)
	if err := r.Remove("dir/b.txt"); err != nil {
		t.Fatalf("Remove error = %v", err)
	}
	if s.Exists("dir/b.txt") {
		t.Error("Exists after Remove")
	}
	if err := r.Remove("dir/b.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Remove error = %v, want ErrNotFound", err)
	}
}

func TestMem(t *testing.T) {
	testStore(t, NewMem())
}

func TestFS(t *testing.T) {
	testStore(t, NewFS(t.TempDir(), nil))
}

func TestMem_WatchNotifiesOnWrite(t *testing.T) {
	m := NewMem()
	var got []string
	stop, err := m.Watch("a.txt", func(p string) { got = append(got, p) })
	if err != nil {
		t.Fatal(err)
	}
	_ = m.Write("a.txt", []byte("1"))
	_ = m.Write("b.txt", []byte("1"))
	stop()
	_ = m.Write("a.txt", []byte("2"))
	if len(got) != 1 || got[0] != "a.txt" {
		t.Errorf("notifications = %v, want [a.txt]", got)
	}
}

func TestFS_WatchWithWatcher(t *testing.T) {
	w, err := watcher.New(10*time.Millisecond, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	root := t.TempDir()
	s := NewFS(root, w)
	if err := s.Write("scenes/a.scene.json", []byte("{}")); err != nil {
		t.Fatal(err)
	}
	changed := make(chan string, 4)
	stop, err := s.Watch("scenes/a.scene.json", func(p string) { changed <- p })
	if err != nil {
		t.Fatalf("Watch error = %v", err)
	}
	defer stop()

	if err := os.WriteFile(filepath.Join(root, "scenes", "a.scene.json"), []byte(`{"name":"x"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case p := <-changed:
		if p != "scenes/a.scene.json" {
			t.Errorf("callback path = %q", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change")
	}
}
