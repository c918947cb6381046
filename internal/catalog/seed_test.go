package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const seedYAML = `
products:
  - id: 7
    name: Classic Cola
    brand: Coca-Cola
    mfg_date: "2026-01-10"
    use_before: "2026-07-10"
    mrp: "40"
    net_weight: 500ml
    classes: [coke, coke_can]
  - id: 9
    name: Lays Magic Masala
    brand: Lays
    mrp: "20.5"
    classes: [lays]
`

func TestParseSeed(t *testing.T) {
	entries, err := ParseSeed([]byte(seedYAML))
	if err != nil {
		t.Fatalf("ParseSeed() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	cola := entries[0]
	if cola.Product.ProductID != 7 || cola.Product.BrandName != "Coca-Cola" {
		t.Errorf("unexpected product: %+v", cola.Product)
	}
	if cola.Product.MRP != "40.00" {
		t.Errorf("expected MRP 40.00, got %q", cola.Product.MRP)
	}
	if cola.Product.MfgDate.String() != "2026-01-10" {
		t.Errorf("expected mfg_date 2026-01-10, got %q", cola.Product.MfgDate.String())
	}
	if len(cola.Classes) != 2 {
		t.Errorf("expected 2 classes, got %v", cola.Classes)
	}

	if entries[1].Product.MRP != "20.50" {
		t.Errorf("expected MRP 20.50, got %q", entries[1].Product.MRP)
	}
	if !entries[1].Product.MfgDate.IsZero() {
		t.Error("expected zero mfg_date when omitted")
	}
}

func TestParseSeed_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing id",
			yaml:    "products:\n  - name: X\n    classes: [x]\n",
			wantErr: "id must be positive",
		},
		{
			name:    "missing name",
			yaml:    "products:\n  - id: 1\n    classes: [x]\n",
			wantErr: "name is required",
		},
		{
			name:    "no classes",
			yaml:    "products:\n  - id: 1\n    name: X\n",
			wantErr: "at least one class",
		},
		{
			name:    "bad date",
			yaml:    "products:\n  - id: 1\n    name: X\n    mfg_date: tomorrow\n    classes: [x]\n",
			wantErr: "mfg_date",
		},
		{
			name:    "bad mrp",
			yaml:    "products:\n  - id: 1\n    name: X\n    mrp: free\n    classes: [x]\n",
			wantErr: "mrp",
		},
		{
			name:    "duplicate class",
			yaml:    "products:\n  - id: 1\n    name: X\n    classes: [x]\n  - id: 2\n    name: Y\n    classes: [x]\n",
			wantErr: "already mapped",
		},
		{
			name:    "malformed",
			yaml:    "products: [",
			wantErr: "parse seed file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSeed([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadSeed_MissingFile(t *testing.T) {
	_, err := LoadSeed(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestStore_Seed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(seedYAML), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	entries, err := LoadSeed(path)
	if err != nil {
		t.Fatalf("LoadSeed() error = %v", err)
	}

	store := NewStore(setupTestDB(t))
	if err := store.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	ctx := context.Background()
	classes, err := store.Seed(ctx, entries)
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if len(classes) != 3 {
		t.Errorf("expected 3 seeded classes, got %v", classes)
	}

	product, err := store.FindByClass(ctx, "coke_can")
	if err != nil {
		t.Fatalf("FindByClass() error = %v", err)
	}
	if product.ProductName != "Classic Cola" {
		t.Errorf("expected Classic Cola, got %q", product.ProductName)
	}

	if _, err := store.Seed(ctx, entries); err != nil {
		t.Fatalf("re-seeding should be idempotent, got %v", err)
	}
	all, err := store.Classes(ctx)
	if err != nil {
		t.Fatalf("Classes() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 classes after re-seed, got %d", len(all))
	}
}
