package usecase

import (
	"context"
	"time"

	repo "app/internal/repository"
)

// usecaseに渡す部品（テストで差し替える）

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID() string
}

type ReserveRequest struct {
	ProductID int64
	VariantID *int64
	Quantity  int64
}

type ReservationResult struct {
	Success   bool
	Available int64 // 失敗時は現在の空き、成功時は予約後の空き
}

// 注文作成と同じトランザクションで予約を取るためのInTx系。
// 単独呼び出し用のラッパはInventoryUsecase側にある。
type InventoryService interface {
	ReserveInTx(ctx context.Context, r repo.TxRepos, ownerRef string, req ReserveRequest) (ReservationResult, error)
	CommitInTx(ctx context.Context, r repo.TxRepos, ownerRef string) (int, error)
	ReleaseInTx(ctx context.Context, r repo.TxRepos, ownerRef string) (int, error)
}

type PaymentHandle struct {
	PaymentRequestID string `json:"payment_request_id"`
	CheckoutURL      string `json:"checkout_url,omitempty"`
	QRCodeURL        string `json:"qr_code_url,omitempty"`
}

type PaymentCreator interface {
	CreatePayment(ctx context.Context, orderID int64, orderNumber string, amount int64, currency string, method string) (PaymentHandle, error)
}

type CheckoutItem struct {
	ProductID int64
	VariantID *int64
	Quantity  int64
	UnitPrice int64
}

// カート本体の編集・マージは別サービス。checkout入口はこれだけ使う。
type CartProvider interface {
	GetCheckoutItems(ctx context.Context, cartRef string) ([]CheckoutItem, error)
	MarkCheckedOut(ctx context.Context, cartRef string) error
}
