package model

import "time"

type CartStatus string

const (
	CartStatusActive     CartStatus = "ACTIVE"
	CartStatusCheckedOut CartStatus = "CHECKED_OUT"
)

// カートの編集系はこのサービスの外。checkoutで読むだけ。
type Cart struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	CartRef   string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"cart_ref"`
	Status    CartStatus `gorm:"type:varchar(16);not null" json:"status"`
	CreatedAt time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

type CartItem struct {
	ID                int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID            int64     `gorm:"not null;index" json:"cart_id"`
	ProductID         int64     `gorm:"not null" json:"product_id"`
	VariantID         *int64    `json:"variant_id,omitempty"`
	Quantity          int64     `gorm:"not null" json:"quantity"`
	UnitPriceSnapshot int64     `gorm:"not null" json:"unit_price_snapshot"`
	CreatedAt         time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
