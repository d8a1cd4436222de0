package repository

import (
	"context"
	"time"

	"app/internal/domain/model"
)

type OrderListFilter struct {
	Page   int
	Limit  int
	Status string
	From   *time.Time
	To     *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	FindByNumber(ctx context.Context, orderNumber string) (model.Order, error)
	Create(ctx context.Context, order model.Order) (int64, error)

	// version一致のときだけstatusと対応タイムスタンプを更新し、versionを+1する（楽観ロック）。
	// 行が更新されなければfalse。
	UpdateStatusVersioned(ctx context.Context, orderID int64, expectedVersion int64, newStatus model.OrderStatus, stampedAt time.Time) (bool, error)

	List(ctx context.Context, f OrderListFilter) ([]model.Order, int64, error)
}
