package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ImageList is stored as a JSON array in a text column.
type ImageList []string

func (a *ImageList) Scan(value interface{}) error {
	if value == nil {
		*a = []string{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	default:
		return fmt.Errorf("failed to scan ImageList: %v", value)
	}
}

func (a ImageList) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	return json.Marshal(a)
}

type Category struct {
	ID            int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	NameEN        string  `gorm:"type:varchar(128);not null" json:"name_en"`
	NameFR        string  `gorm:"type:varchar(128);not null" json:"name_fr"`
	NameAR        string  `gorm:"type:varchar(128);not null" json:"name_ar"`
	DescriptionEN *string `gorm:"type:text" json:"description_en,omitempty"`
	DescriptionFR *string `gorm:"type:text" json:"description_fr,omitempty"`
	DescriptionAR *string `gorm:"type:text" json:"description_ar,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Products []Product `gorm:"foreignKey:CategoryID" json:"products,omitempty"`
}

type Product struct {
	ID            int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	NameEN        string  `gorm:"type:varchar(128);not null" json:"name_en"`
	NameFR        string  `gorm:"type:varchar(128);not null" json:"name_fr"`
	NameAR        string  `gorm:"type:varchar(128);not null" json:"name_ar"`
	DescriptionEN *string `gorm:"type:text" json:"description_en,omitempty"`
	DescriptionFR *string `gorm:"type:text" json:"description_fr,omitempty"`
	DescriptionAR *string `gorm:"type:text" json:"description_ar,omitempty"`

	// OriginalPrice is the cost price; SellingPrice is what customers pay.
	OriginalPrice   string `gorm:"type:varchar(32);not null" json:"original_price"`
	SellingPrice    string `gorm:"type:varchar(32);not null" json:"selling_price"`
	DiscountPercent string `gorm:"type:varchar(32);default:'0'" json:"discount_percent"`

	Gender     *string   `gorm:"type:varchar(16)" json:"gender,omitempty"`
	Material   *string   `gorm:"type:varchar(64)" json:"material,omitempty"`
	Brand      *string   `gorm:"type:varchar(64)" json:"brand,omitempty"`
	Images     ImageList `gorm:"type:text" json:"images"`
	CategoryID int64     `gorm:"index;not null" json:"category_id"`
	IsActive   bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Category *Category        `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Variants []ProductVariant `gorm:"foreignKey:ProductID" json:"variants"`
}

type ProductVariant struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID int64  `gorm:"index;not null" json:"product_id"`
	Size      string `gorm:"type:varchar(32);not null" json:"size"`
	Color     string `gorm:"type:varchar(32);not null" json:"color"`
	Stock     int32  `gorm:"not null;default:0" json:"stock"`
	SKU       string `gorm:"type:varchar(64);uniqueIndex;not null" json:"sku"`
	IsActive  bool   `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}
