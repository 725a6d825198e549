package organs

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed organs.yaml
var defaultCatalog []byte

// Entry maps one anatomical synonym to a reference image file name.
type Entry struct {
	Synonym string
	File    string
}

// Catalog is an ordered, case-insensitive synonym table. The order of entries is the order
// substring resolution walks, so it is part of the catalog's contract.
type Catalog struct {
	entries []Entry
	index   map[string]string
}

// Default returns the catalog shipped with the binary.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded organ catalog is invalid: %v", err))
	}
	return c
}

// Load reads a catalog from a YAML file holding a single synonym: file mapping.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read organ catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("organ catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a YAML mapping while keeping key order, which a plain map would lose.
func Parse(data []byte) (*Catalog, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("catalog must be a mapping of synonym to file, got line %d", root.Line)
	}

	entries := make([]Entry, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		if value.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: value for %q must be a file name", value.Line, key.Value)
		}
		entries = append(entries, Entry{Synonym: key.Value, File: value.Value})
	}

	return New(entries)
}

// New builds a catalog from entries in resolution order.
func New(entries []Entry) (*Catalog, error) {
	c := &Catalog{
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[string]string, len(entries)),
	}
	for _, e := range entries {
		synonym := normalize(e.Synonym)
		file := strings.TrimSpace(e.File)
		if synonym == "" || file == "" {
			return nil, fmt.Errorf("entry %q -> %q is incomplete", e.Synonym, e.File)
		}
		if _, dup := c.index[synonym]; dup {
			return nil, fmt.Errorf("duplicate synonym %q", synonym)
		}
		c.index[synonym] = file
		c.entries = append(c.entries, Entry{Synonym: synonym, File: file})
	}
	if len(c.entries) == 0 {
		return nil, fmt.Errorf("catalog has no entries")
	}
	return c, nil
}

// Entries returns a copy of the entries in resolution order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Lookup finds the file for an exact synonym.
func (c *Catalog) Lookup(synonym string) (string, bool) {
	file, ok := c.index[normalize(synonym)]
	return file, ok
}

func (c *Catalog) Len() int {
	return len(c.entries)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
