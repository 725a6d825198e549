package organs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Precedence decides which key wins when several synonyms are substrings of one label.
type Precedence string

const (
	// PrecedenceCatalog picks the first matching key in catalog order.
	PrecedenceCatalog Precedence = "catalog"
	// PrecedenceLongest picks the longest matching key, falling back to catalog order on ties.
	PrecedenceLongest Precedence = "longest"
)

// ParsePrecedence accepts "catalog", "longest" or "" (catalog).
func ParsePrecedence(s string) (Precedence, error) {
	switch Precedence(strings.ToLower(strings.TrimSpace(s))) {
	case "", PrecedenceCatalog:
		return PrecedenceCatalog, nil
	case PrecedenceLongest:
		return PrecedenceLongest, nil
	default:
		return "", fmt.Errorf("unknown organ match precedence %q (use catalog or longest)", s)
	}
}

// Resolver turns freeform organ labels into reference image paths.
type Resolver struct {
	catalog    *Catalog
	imageDir   string
	precedence Precedence
}

func NewResolver(catalog *Catalog, imageDir string, precedence Precedence) *Resolver {
	if precedence == "" {
		precedence = PrecedenceCatalog
	}
	return &Resolver{
		catalog:    catalog,
		imageDir:   imageDir,
		precedence: precedence,
	}
}

// ImageDir is the directory reference images are served from.
func (r *Resolver) ImageDir() string {
	return r.imageDir
}

func (r *Resolver) Catalog() *Catalog {
	return r.catalog
}

// Match finds the catalog entry for a label without touching the filesystem.
func (r *Resolver) Match(label string) (Entry, bool) {
	name := normalize(label)
	if name == "" {
		return Entry{}, false
	}

	if file, ok := r.catalog.Lookup(name); ok {
		return Entry{Synonym: name, File: file}, true
	}

	var best Entry
	found := false
	for _, e := range r.catalog.entries {
		if !strings.Contains(name, e.Synonym) {
			continue
		}
		if r.precedence == PrecedenceCatalog {
			return e, true
		}
		if !found || len(e.Synonym) > len(best.Synonym) {
			best = e
			found = true
		}
	}
	return best, found
}

// Resolve returns the path of the reference image for label. A label that matches no synonym,
// or whose file is missing from the image directory, resolves to nothing.
func (r *Resolver) Resolve(label string) (string, bool) {
	entry, ok := r.Match(label)
	if !ok {
		return "", false
	}

	path := filepath.Join(r.imageDir, entry.File)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return path, true
}
