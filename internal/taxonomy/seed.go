package taxonomy

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shelfwise/shelfwise-server/internal/domain"
)

//go:embed defaults.yaml
var defaultSeedYAML []byte

// Seed is the canonical term list, keyed by category.
//
//	genre:
//	  - Fantasy
//	trope:
//	  - Chosen One
type Seed map[domain.Category][]string

// TermWriter creates canonical terms idempotently.
type TermWriter interface {
	UpsertTerm(ctx context.Context, category domain.Category, name, nameKey, slug string) (*domain.TaxonomyTerm, bool, error)
}

// SeedStats counts what Apply did.
type SeedStats struct {
	Created  int `json:"created"`
	Existing int `json:"existing"`
}

// DefaultSeed returns the built-in term list.
func DefaultSeed() Seed {
	seed, err := ParseSeed(bytes.NewReader(defaultSeedYAML))
	if err != nil {
		panic(fmt.Sprintf("taxonomy: embedded seed is invalid: %v", err))
	}
	return seed
}

// LoadSeedFile reads a YAML seed from disk.
func LoadSeedFile(path string) (Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	seed, err := ParseSeed(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return seed, nil
}

// ParseSeed decodes a YAML seed. Unknown categories and blank names are rejected.
func ParseSeed(r io.Reader) (Seed, error) {
	var raw map[string][]string
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	seed := make(Seed, len(raw))
	for name, terms := range raw {
		category, err := domain.ParseCategory(name)
		if err != nil {
			return nil, err
		}
		for i, term := range terms {
			if strings.TrimSpace(term) == "" {
				return nil, fmt.Errorf("%s[%d]: term name is blank", category, i)
			}
		}
		seed[category] = terms
	}
	return seed, nil
}

// Len returns the number of terms across all categories.
func (s Seed) Len() int {
	n := 0
	for _, terms := range s {
		n += len(terms)
	}
	return n
}

// Apply upserts every term in seed. Existing terms are left untouched, so
// Apply can run on every start and on every seed file change.
func Apply(ctx context.Context, w TermWriter, seed Seed) (SeedStats, error) {
	var stats SeedStats
	for _, category := range domain.Categories {
		for _, name := range seed[category] {
			name = strings.Join(strings.Fields(name), " ")
			_, created, err := w.UpsertTerm(ctx, category, name, Key(name), Slugify(name))
			if err != nil {
				return stats, fmt.Errorf("seed %s %q: %w", category, name, err)
			}
			if created {
				stats.Created++
			} else {
				stats.Existing++
			}
		}
	}
	return stats, nil
}
