package repository

import (
	"context"
	"time"

	"app/internal/domain/model"
)

type OrderPaymentRepository interface {
	Create(ctx context.Context, payment model.OrderPayment) (int64, error)
	FindByRequestID(ctx context.Context, paymentRequestID string) (model.OrderPayment, error)

	// コールバック適用の直列化用。行ロック（FOR UPDATE）付きで取得する。
	FindByRequestIDForUpdate(ctx context.Context, paymentRequestID string) (model.OrderPayment, error)

	// インテント応答で返るURLの後詰め（行はゲートウェイ呼び出し前に作る）
	SetCheckoutURLs(ctx context.Context, paymentID int64, checkoutURL, qrCodeURL string) error

	MarkPaid(ctx context.Context, paymentID int64, transactionID string, paidAt time.Time) error
	MarkFailed(ctx context.Context, paymentID int64, transactionID string, failedAt time.Time) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderPayment, error)
}
