package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eleven-am/shelfscan/internal/shared"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	return db
}

func seededStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(setupTestDB(t))
	if err := store.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	product := &Product{
		ProductID:   7,
		ProductName: "Classic Cola",
		BrandName:   "Coca-Cola",
		MfgDate:     shared.NewDate(2024, time.January, 5),
		UseBefore:   shared.NewDate(2024, time.July, 5),
		MRP:         "40.00",
		NetWeight:   "500ml",
	}
	if err := store.Upsert(context.Background(), product, "coke", "coke_bottle"); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	return store
}

func TestStore_Migrate(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	if err := store.Migrate(); err != nil {
		t.Errorf("Migrate() error = %v", err)
	}
	if !db.Migrator().HasTable("products") {
		t.Error("expected products table to exist")
	}
	if !db.Migrator().HasTable("product_classes") {
		t.Error("expected product_classes table to exist")
	}
}

func TestStore_FindByClass(t *testing.T) {
	store := seededStore(t)

	product, err := store.FindByClass(context.Background(), "coke_bottle")
	if err != nil {
		t.Fatalf("FindByClass() error = %v", err)
	}
	if product.ProductID != 7 {
		t.Errorf("expected product 7, got %d", product.ProductID)
	}
	if product.Label() != "Classic Cola (Coca-Cola)" {
		t.Errorf("unexpected label %q", product.Label())
	}
	if product.MfgDate.String() != "2024-01-05" || product.UseBefore.String() != "2024-07-05" {
		t.Errorf("unexpected dates %s / %s", product.MfgDate, product.UseBefore)
	}
	if product.MRP != "40.00" {
		t.Errorf("expected mrp 40.00, got %q", product.MRP)
	}
	if product.NetWeight != "500ml" {
		t.Errorf("expected net weight 500ml, got %q", product.NetWeight)
	}
}

func TestStore_FindByClass_NotFound(t *testing.T) {
	store := seededStore(t)

	_, err := store.FindByClass(context.Background(), "unicorn")
	if !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_FindByClass_DatabaseFailure(t *testing.T) {
	store := NewStore(setupTestDB(t))

	_, err := store.FindByClass(context.Background(), "coke")
	if !errors.Is(err, shared.ErrCatalogLookup) {
		t.Errorf("expected ErrCatalogLookup for missing tables, got %v", err)
	}
	if errors.Is(err, shared.ErrNotFound) {
		t.Error("store failure must not look like a missing product")
	}
}

func TestStore_UpsertRepointsClass(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()

	other := &Product{ProductID: 9, ProductName: "Zero", BrandName: "Coca-Cola", MRP: "42.50"}
	if err := store.Upsert(ctx, other, "coke"); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	product, err := store.FindByClass(ctx, "coke")
	if err != nil {
		t.Fatalf("FindByClass() error = %v", err)
	}
	if product.ProductID != 9 {
		t.Errorf("expected class repointed to product 9, got %d", product.ProductID)
	}

	classes, err := store.Classes(ctx)
	if err != nil {
		t.Fatalf("Classes() error = %v", err)
	}
	if len(classes) != 2 || classes[0].ClassName != "coke" || classes[1].ClassName != "coke_bottle" {
		t.Errorf("unexpected classes %+v", classes)
	}
}

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in      string
		want    Money
		wantErr bool
	}{
		{"45.5", "45.50", false},
		{"12", "12.00", false},
		{"99.99", "99.99", false},
		{"abc", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMoney(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMoney(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMoney(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMoney_Scan(t *testing.T) {
	var m Money
	if err := m.Scan(float64(19.9)); err != nil || m != "19.90" {
		t.Errorf("float scan: got %q, %v", m, err)
	}
	if err := m.Scan([]byte("7.25")); err != nil || m != "7.25" {
		t.Errorf("bytes scan: got %q, %v", m, err)
	}
	if err := m.Scan(int64(3)); err != nil || m != "3.00" {
		t.Errorf("int scan: got %q, %v", m, err)
	}
	if err := m.Scan(nil); err != nil || m != "" {
		t.Errorf("nil scan: got %q, %v", m, err)
	}
	if err := m.Scan(true); err == nil {
		t.Error("expected error scanning bool")
	}
}
