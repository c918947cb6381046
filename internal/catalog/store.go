package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/eleven-am/shelfscan/internal/shared"
	"gorm.io/gorm"
)

// Finder resolves a detector class to its catalog product.
type Finder interface {
	FindByClass(ctx context.Context, className string) (*Product, error)
}

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&Product{}, &ProductClass{})
}

// FindByClass returns shared.ErrNotFound when the class has no product and
// wraps shared.ErrCatalogLookup for any other failure. The lookup runs in its
// own transaction so a failed query leaves no open transaction behind.
func (s *Store) FindByClass(ctx context.Context, className string) (*Product, error) {
	var product Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Model(&Product{}).
			Joins("JOIN product_classes pc ON pc.product_id = products.product_id").
			Where("pc.class_name = ?", className).
			Take(&product).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrCatalogLookup, err)
	}
	return &product, nil
}

// Upsert saves the product and points each class name at it.
func (s *Store) Upsert(ctx context.Context, product *Product, classNames ...string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(product).Error; err != nil {
			return err
		}
		for _, name := range classNames {
			link := &ProductClass{ClassName: name, ProductID: product.ProductID}
			if err := tx.Save(link).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Classes(ctx context.Context) ([]ProductClass, error) {
	var classes []ProductClass
	err := s.db.WithContext(ctx).Order("class_name").Find(&classes).Error
	return classes, err
}
