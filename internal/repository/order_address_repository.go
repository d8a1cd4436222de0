package repository

import (
	"context"

	"app/internal/domain/model"
)

type OrderAddressRepository interface {
	CreateBulk(ctx context.Context, orderID int64, addresses []model.OrderAddress) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderAddress, error)
}
