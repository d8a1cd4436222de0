package notify

import (
	"context"

	"app/internal/domain/model"
)

// 通知は送り捨て。失敗してもトランザクションを巻き戻さない（呼び出し側でログのみ）。
type Sink interface {
	NotifyNewOrder(ctx context.Context, order model.Order) error
	NotifyOrderStatusChanged(ctx context.Context, order model.Order, oldStatus, newStatus model.OrderStatus) error
	NotifyCustomer(ctx context.Context, order model.Order, statusLabel string) error
}
