package catalog

import (
	"database/sql/driver"
	"fmt"
	"strconv"

	"github.com/eleven-am/shelfscan/internal/shared"
)

type Product struct {
	ProductID   int         `gorm:"column:product_id;primaryKey" json:"product_id"`
	ProductName string      `gorm:"not null" json:"product_name"`
	BrandName   string      `json:"brand_name"`
	MfgDate     shared.Date `json:"mfg_date"`
	UseBefore   shared.Date `json:"use_before"`
	MRP         Money       `gorm:"column:mrp;type:numeric(10,2)" json:"mrp"`
	NetWeight   string      `json:"net_weight"`
}

func (Product) TableName() string {
	return "products"
}

// Label renders the product as "<name> (<brand>)".
func (p *Product) Label() string {
	return fmt.Sprintf("%s (%s)", p.ProductName, p.BrandName)
}

// ProductClass associates a detector class name with a catalog product.
type ProductClass struct {
	ClassName string `gorm:"primaryKey" json:"class_name"`
	ProductID int    `gorm:"not null;index" json:"product_id"`
}

func (ProductClass) TableName() string {
	return "product_classes"
}

// Money is a two-decimal amount kept in its textual form, e.g. "45.50".
type Money string

func ParseMoney(value string) (Money, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return "", fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return Money(strconv.FormatFloat(f, 'f', 2, 64)), nil
}

func (m Money) String() string {
	return string(m)
}

func (m Money) Value() (driver.Value, error) {
	if m == "" {
		return nil, nil
	}
	return string(m), nil
}

func (m *Money) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*m = ""
		return nil
	case float64:
		*m = Money(strconv.FormatFloat(v, 'f', 2, 64))
		return nil
	case int64:
		*m = Money(strconv.FormatFloat(float64(v), 'f', 2, 64))
		return nil
	case []byte:
		return m.scanString(string(v))
	case string:
		return m.scanString(v)
	default:
		return fmt.Errorf("cannot scan %T into Money", value)
	}
}

func (m *Money) scanString(value string) error {
	parsed, err := ParseMoney(value)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
