package data

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultAssetTypeTable(t *testing.T) {
	table := DefaultAssetTypeTable()
	tests := []struct {
		path, want string
	}{
		{"game/assets/scenes/level.scene.json", "scene"},
		{"game/assets/config.json", "text"},
		{"game/assets/materials/wood.rmat", "material"},
		{"game/assets/scripts/Player.LUA", "lua"},
		{"rootex/assets/rootex.png", "image"},
		{"game/assets/blob.bin", BinaryKind},
	}
	for _, tt := range tests {
		if got := table.KindOf(tt.path); got != tt.want {
			t.Errorf("KindOf(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
	if table.Count() == 0 {
		t.Error("Count should be positive")
	}
}

func TestLoadAssetTypeTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "asset_types.yaml")
	content := "- kind: shader\n  extensions: [\".hlsl\"]\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	table, err := LoadAssetTypeTable(path)
	if err != nil {
		t.Fatalf("LoadAssetTypeTable error = %v", err)
	}
	if got := table.KindOf("a.hlsl"); got != "shader" {
		t.Errorf("KindOf = %q, want shader", got)
	}
	if kinds := table.Kinds(); len(kinds) != 1 || kinds[0] != "shader" {
		t.Errorf("Kinds = %v", kinds)
	}

	if _, err := ParseAssetTypeTable([]byte("- extensions: [\".x\"]\n")); err == nil {
		t.Error("entry without kind should fail")
	}
	if _, err := LoadAssetTypeTable(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}
}
