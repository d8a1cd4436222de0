package model

import "time"

type AddressType string

const (
	AddressTypeShipping AddressType = "SHIPPING"
	AddressTypeBilling  AddressType = "BILLING"
)

// 注文に紐づく住所スナップショット。typeごとに1件。
type OrderAddress struct {
	ID          int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID     int64       `gorm:"not null;index;uniqueIndex:uq_order_address_type" json:"order_id"`
	AddressType AddressType `gorm:"type:varchar(16);not null;uniqueIndex:uq_order_address_type" json:"address_type"`
	Recipient   string      `gorm:"type:varchar(255);not null" json:"recipient"`
	Phone       string      `gorm:"type:varchar(32)" json:"phone"`
	Line1       string      `gorm:"type:varchar(255);not null" json:"line1"`
	Line2       string      `gorm:"type:varchar(255)" json:"line2"`
	City        string      `gorm:"type:varchar(128);not null" json:"city"`
	PostalCode  string      `gorm:"type:varchar(16);not null" json:"postal_code"`
	Country     string      `gorm:"type:varchar(2);not null" json:"country"`
	CreatedAt   time.Time   `gorm:"not null;autoCreateTime" json:"created_at"`
}
