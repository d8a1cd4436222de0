package model

import (
	"fmt"
	"time"
)

type ReservationStatus string

const (
	ReservationStatusActive    ReservationStatus = "ACTIVE"
	ReservationStatusCommitted ReservationStatus = "COMMITTED"
	ReservationStatusReleased  ReservationStatus = "RELEASED"
	ReservationStatusExpired   ReservationStatus = "EXPIRED"
)

// 在庫の一時押さえ。ACTIVEの合計＋消費済みがon-handを超えないのが不変条件。
// チェックアウト前はcart/session参照、注文確定後はORDER:<id>がownerになる。
type StockReservation struct {
	ID            int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerRef      string            `gorm:"type:varchar(64);not null;index" json:"owner_ref"`
	ProductID     int64             `gorm:"not null;index:idx_reservation_stock" json:"product_id"`
	VariantID     *int64            `gorm:"index:idx_reservation_stock" json:"variant_id,omitempty"`
	Quantity      int64             `gorm:"not null" json:"quantity"`
	Status        ReservationStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	ReservedUntil time.Time         `gorm:"not null;index" json:"reserved_until"`
	CreatedAt     time.Time         `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func OrderOwnerRef(orderID int64) string {
	return fmt.Sprintf("ORDER:%d", orderID)
}
