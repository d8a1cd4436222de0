package repository

import (
	"context"

	"app/internal/domain/model"
)

type StatusHistoryRepository interface {
	Create(ctx context.Context, entry model.OrderStatusHistory) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderStatusHistory, error)
}
