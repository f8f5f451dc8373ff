package models

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

type Order struct {
	ID             int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	CustomerName   string  `gorm:"type:varchar(128);not null" json:"customer_name"`
	CustomerEmail  string  `gorm:"type:varchar(128);not null" json:"customer_email"`
	CustomerPhone  string  `gorm:"type:varchar(32);not null" json:"customer_phone"`
	AlternatePhone *string `gorm:"type:varchar(32)" json:"alternate_phone,omitempty"`
	Address        string  `gorm:"type:text;not null" json:"address"`
	Governorate    string  `gorm:"type:varchar(64);not null" json:"governorate"`
	Delegation     string  `gorm:"type:varchar(64);not null" json:"delegation"`
	ZipCode        *string `gorm:"type:varchar(16)" json:"zip_code,omitempty"`

	Subtotal    string      `gorm:"type:varchar(32);not null" json:"subtotal"`
	DeliveryFee string      `gorm:"type:varchar(32);not null" json:"delivery_fee"`
	TotalAmount string      `gorm:"type:varchar(32);not null" json:"total_amount"`
	Status      OrderStatus `gorm:"type:varchar(16);not null;index;default:'pending'" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
}

// OrderItem rows are immutable after checkout: Price, PriceAtTime and
// Discount are snapshots so historical orders keep their value when the
// catalog changes.
type OrderItem struct {
	ID               int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID          int64  `gorm:"index;not null" json:"order_id"`
	ProductVariantID int64  `gorm:"index;not null" json:"product_variant_id"`
	Quantity         int32  `gorm:"not null" json:"quantity"`
	Price            string `gorm:"type:varchar(32);not null" json:"price"`
	PriceAtTime      string `gorm:"type:varchar(32);not null" json:"price_at_time"`
	Discount         string `gorm:"type:varchar(32);not null;default:'0'" json:"discount"`
	CreatedAt        time.Time `json:"created_at"`

	ProductVariant *ProductVariant `gorm:"foreignKey:ProductVariantID" json:"product_variant,omitempty"`
}

// DeliverySettings is a singleton row (ID always 1).
type DeliverySettings struct {
	ID             int64   `gorm:"primaryKey" json:"id"`
	MinOrderAmount string  `gorm:"type:varchar(32);not null;default:'0'" json:"min_order_amount"`
	DeliveryCost   string  `gorm:"type:varchar(32);not null;default:'0'" json:"delivery_cost"`
	IsActive       bool    `gorm:"not null;default:false" json:"is_active"`
	LogoURL        *string `gorm:"type:varchar(256)" json:"logo_url,omitempty"`
	LogoWidth      *int32  `json:"logo_width,omitempty"`
	LogoHeight     *int32  `json:"logo_height,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}
