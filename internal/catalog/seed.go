package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/eleven-am/shelfscan/internal/shared"
	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Products []seedProduct `yaml:"products"`
}

type seedProduct struct {
	ID        int      `yaml:"id"`
	Name      string   `yaml:"name"`
	Brand     string   `yaml:"brand"`
	MfgDate   string   `yaml:"mfg_date"`
	UseBefore string   `yaml:"use_before"`
	MRP       string   `yaml:"mrp"`
	NetWeight string   `yaml:"net_weight"`
	Classes   []string `yaml:"classes"`
}

// SeedEntry is a catalog product together with the detector classes that
// resolve to it.
type SeedEntry struct {
	Product Product
	Classes []string
}

func LoadSeed(path string) ([]SeedEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(data)
}

func ParseSeed(data []byte) ([]SeedEntry, error) {
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	entries := make([]SeedEntry, 0, len(file.Products))
	seen := make(map[string]int)
	var errs []error
	for i, p := range file.Products {
		entry, err := p.entry()
		if err != nil {
			errs = append(errs, fmt.Errorf("product %d: %w", i, err))
			continue
		}
		for _, class := range entry.Classes {
			if owner, ok := seen[class]; ok {
				errs = append(errs, fmt.Errorf("product %d: class %q already mapped to product %d", i, class, owner))
				continue
			}
			seen[class] = entry.Product.ProductID
		}
		entries = append(entries, entry)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return entries, nil
}

func (p seedProduct) entry() (SeedEntry, error) {
	if p.ID <= 0 {
		return SeedEntry{}, errors.New("id must be positive")
	}
	if p.Name == "" {
		return SeedEntry{}, errors.New("name is required")
	}
	if len(p.Classes) == 0 {
		return SeedEntry{}, errors.New("at least one class is required")
	}

	product := Product{
		ProductID:   p.ID,
		ProductName: p.Name,
		BrandName:   p.Brand,
		NetWeight:   p.NetWeight,
	}

	var err error
	if p.MfgDate != "" {
		if product.MfgDate, err = shared.ParseDate(p.MfgDate); err != nil {
			return SeedEntry{}, fmt.Errorf("mfg_date: %w", err)
		}
	}
	if p.UseBefore != "" {
		if product.UseBefore, err = shared.ParseDate(p.UseBefore); err != nil {
			return SeedEntry{}, fmt.Errorf("use_before: %w", err)
		}
	}
	if p.MRP != "" {
		if product.MRP, err = ParseMoney(p.MRP); err != nil {
			return SeedEntry{}, fmt.Errorf("mrp: %w", err)
		}
	}

	return SeedEntry{Product: product, Classes: p.Classes}, nil
}

// Seed upserts every entry and returns the class names it touched.
func (s *Store) Seed(ctx context.Context, entries []SeedEntry) ([]string, error) {
	var classes []string
	for i := range entries {
		entry := &entries[i]
		if err := s.Upsert(ctx, &entry.Product, entry.Classes...); err != nil {
			return classes, fmt.Errorf("seed product %d: %w", entry.Product.ProductID, err)
		}
		classes = append(classes, entry.Classes...)
	}
	return classes, nil
}
