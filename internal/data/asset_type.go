package data

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// BinaryKind is the kind of files no entry matches.
const BinaryKind = "binary"

//go:embed asset_types.yaml
var defaultAssetTypes []byte

// AssetTypeEntry maps file extensions to a resource kind.
type AssetTypeEntry struct {
	Kind       string   `yaml:"kind"`
	Extensions []string `yaml:"extensions"`
}

type extKind struct {
	ext  string
	kind string
}

// AssetTypeTable resolves the resource kind of a path by its extension.
type AssetTypeTable struct {
	byExt []extKind // longest extension first
	kinds []string
}

// LoadAssetTypeTable loads asset_types.yaml. An empty path loads the
// built-in table.
func LoadAssetTypeTable(path string) (*AssetTypeTable, error) {
	raw := defaultAssetTypes
	if path != "" {
		var err error
		raw, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read asset types: %w", err)
		}
	}
	return ParseAssetTypeTable(raw)
}

// DefaultAssetTypeTable returns the built-in table.
func DefaultAssetTypeTable() *AssetTypeTable {
	t, err := ParseAssetTypeTable(defaultAssetTypes)
	if err != nil {
		panic(fmt.Sprintf("built-in asset types: %v", err))
	}
	return t
}

// ParseAssetTypeTable parses a YAML list of AssetTypeEntry.
func ParseAssetTypeTable(raw []byte) (*AssetTypeTable, error) {
	var entries []AssetTypeEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse asset types: %w", err)
	}
	t := &AssetTypeTable{}
	seen := make(map[string]bool, len(entries)*4)
	for _, e := range entries {
		if e.Kind == "" {
			return nil, fmt.Errorf("parse asset types: entry without kind")
		}
		t.kinds = append(t.kinds, e.Kind)
		for _, ext := range e.Extensions {
			ext = strings.ToLower(ext)
			if seen[ext] {
				continue
			}
			seen[ext] = true
			t.byExt = append(t.byExt, extKind{ext: ext, kind: e.Kind})
		}
	}
	sort.SliceStable(t.byExt, func(i, j int) bool {
		return len(t.byExt[i].ext) > len(t.byExt[j].ext)
	})
	return t, nil
}

// KindOf returns the kind for path, or BinaryKind.
func (t *AssetTypeTable) KindOf(path string) string {
	lower := strings.ToLower(path)
	for _, e := range t.byExt {
		if strings.HasSuffix(lower, e.ext) {
			return e.kind
		}
	}
	return BinaryKind
}

// Kinds returns the declared kinds in file order.
func (t *AssetTypeTable) Kinds() []string {
	return append([]string(nil), t.kinds...)
}

// Count returns the number of registered extensions.
func (t *AssetTypeTable) Count() int {
	return len(t.byExt)
}
