package repository

import (
	"context"

	"app/internal/domain/model"

	"gorm.io/gorm"
)

type OrderAddressGormRepository struct {
	db *gorm.DB
}

func NewOrderAddressGormRepository(db *gorm.DB) *OrderAddressGormRepository {
	return &OrderAddressGormRepository{db: db}
}

func (r *OrderAddressGormRepository) CreateBulk(ctx context.Context, orderID int64, addresses []model.OrderAddress) error {
	if len(addresses) == 0 {
		return nil
	}
	for i := range addresses {
		addresses[i].OrderID = orderID
	}
	return r.db.WithContext(ctx).Create(&addresses).Error
}

func (r *OrderAddressGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderAddress, error) {
	var addresses []model.OrderAddress
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("address_type asc").
		Find(&addresses).Error
	if err != nil {
		return nil, err
	}
	return addresses, nil
}
