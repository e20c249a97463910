package inventory

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// productFile is the on-disk layout of a product export.
type productFile struct {
	Products []Product `yaml:"products"`
}

// FileSearcher searches an in-memory product list loaded from YAML. Matching
// is a case-insensitive substring test on the product name; the first
// published product in file order wins.
type FileSearcher struct {
	products []Product
}

// NewFileSearcher wraps a product list.
func NewFileSearcher(products []Product) *FileSearcher {
	return &FileSearcher{products: products}
}

// LoadFile reads a YAML product export of the form `products: [...]`.
func LoadFile(path string) (*FileSearcher, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("inventory: read %s: %w", path, err)
	}
	return ParseFile(b)
}

// ParseFile decodes a YAML product export.
func ParseFile(b []byte) (*FileSearcher, error) {
	var f productFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("inventory: decode products: %w", err)
	}
	return NewFileSearcher(f.Products), nil
}

// Len returns the number of loaded products.
func (s *FileSearcher) Len() int { return len(s.products) }

// Search implements Searcher.
func (s *FileSearcher) Search(ctx context.Context, query string) (Product, bool, error) {
	if err := ctx.Err(); err != nil {
		return Product{}, false, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return Product{}, false, nil
	}
	for _, p := range s.products {
		if p.Status != StatusPublished {
			continue
		}
		if strings.Contains(strings.ToLower(p.Name), q) {
			return p, true, nil
		}
	}
	return Product{}, false, nil
}
