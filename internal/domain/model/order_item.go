package model

import "time"

// 注文時点の商品スナップショット。作成後は不変。
type OrderItem struct {
	ID                  int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID             int64     `gorm:"not null;index" json:"order_id"`
	ProductID           int64     `gorm:"not null;index" json:"product_id"`
	VariantID           *int64    `gorm:"index" json:"variant_id,omitempty"`
	ProductNameSnapshot string    `gorm:"type:varchar(255);not null" json:"product_name_snapshot"`
	ProductSKUSnapshot  string    `gorm:"type:varchar(64);not null" json:"product_sku_snapshot"`
	VariantNameSnapshot string    `gorm:"type:varchar(255)" json:"variant_name_snapshot,omitempty"`
	UnitPriceSnapshot   int64     `gorm:"not null" json:"unit_price_snapshot"`
	Quantity            int64     `gorm:"not null" json:"quantity"`
	LineTotal           int64     `gorm:"not null" json:"line_total"`
	CreatedAt           time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
