package model

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipping   OrderStatus = "SHIPPING"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// 許可された遷移だけtrue（DELIVERED/CANCELLEDは終端）
var validNext = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusPending:    {OrderStatusConfirmed: true, OrderStatusCancelled: true},
	OrderStatusConfirmed:  {OrderStatusProcessing: true, OrderStatusCancelled: true},
	OrderStatusProcessing: {OrderStatusShipping: true, OrderStatusCancelled: true},
	OrderStatusShipping:   {OrderStatusDelivered: true},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

type Order struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNumber string `gorm:"type:varchar(32);not null;uniqueIndex" json:"order_number"`

	//注文時点の顧客スナップショット（userレコードとは独立）
	CustomerName  string `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerEmail string `gorm:"type:varchar(255);not null" json:"customer_email"`
	CustomerPhone string `gorm:"type:varchar(32)" json:"customer_phone"`

	//金額内訳（最小通貨単位、total = subtotal + tax + shipping - discount）
	Subtotal int64 `gorm:"not null" json:"subtotal"`
	Tax      int64 `gorm:"not null" json:"tax"`
	Shipping int64 `gorm:"not null" json:"shipping"`
	Discount int64 `gorm:"not null" json:"discount"`
	Total    int64 `gorm:"not null" json:"total"`

	Status OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	//到達した遷移のタイムスタンプ
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	ShippedAt   *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	//楽観ロック用。更新のたびに+1
	VersionNumber int64 `gorm:"not null;default:1" json:"version_number"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
