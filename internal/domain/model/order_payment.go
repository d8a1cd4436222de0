package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

// 支払い試行1回につき1行。上書きせず履歴として残す。
// PaymentRequestIDが冪等キー（ゲートウェイのコールバックと突き合わせる）。
type OrderPayment struct {
	ID               int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID          int64         `gorm:"not null;index" json:"order_id"`
	PaymentRequestID string        `gorm:"type:varchar(64);not null;uniqueIndex" json:"payment_request_id"`
	TransactionID    *string       `gorm:"type:varchar(64)" json:"transaction_id,omitempty"`
	Method           string        `gorm:"type:varchar(32);not null" json:"method"`
	Amount           int64         `gorm:"not null" json:"amount"`
	Currency         string        `gorm:"type:varchar(8);not null" json:"currency"`
	Status           PaymentStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	CheckoutURL      string        `gorm:"type:varchar(512)" json:"checkout_url,omitempty"`
	QRCodeURL        string        `gorm:"type:varchar(512)" json:"qr_code_url,omitempty"`
	PaidAt           *time.Time    `json:"paid_at,omitempty"`
	FailedAt         *time.Time    `json:"failed_at,omitempty"`
	CreatedAt        time.Time     `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time     `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
