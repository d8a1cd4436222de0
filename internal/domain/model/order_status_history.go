package model

import "time"

// 遷移の監査ログ。追記のみで更新・削除しない。
type OrderStatusHistory struct {
	ID          int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID     int64       `gorm:"not null;index" json:"order_id"`
	OldStatus   OrderStatus `gorm:"type:varchar(20)" json:"old_status"`
	NewStatus   OrderStatus `gorm:"type:varchar(20);not null" json:"new_status"`
	Comment     string      `gorm:"type:varchar(512)" json:"comment,omitempty"`
	ActorUserID *int64      `json:"actor_user_id,omitempty"` // nilはシステム起点
	CreatedAt   time.Time   `gorm:"not null;autoCreateTime" json:"created_at"`
}
