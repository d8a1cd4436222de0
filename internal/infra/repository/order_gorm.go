package repository

import (
	"context"
	"errors"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

func (r *OrderGormRepository) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

func (r *OrderGormRepository) FindByNumber(ctx context.Context, orderNumber string) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).Where("order_number = ?", orderNumber).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

func (r *OrderGormRepository) Create(ctx context.Context, order model.Order) (int64, error) {
	// Postgresはunique違反で外側のトランザクションごとabortする（25P02）。
	// 番号衝突後に同じトランザクションでinsertし直せるよう、savepointで囲む。
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&order).Error
	})
	if err != nil {
		return 0, err
	}
	return order.ID, nil
}

// statusごとのタイムスタンプ列
var statusStampColumn = map[model.OrderStatus]string{
	model.OrderStatusConfirmed:  "confirmed_at",
	model.OrderStatusProcessing: "processed_at",
	model.OrderStatusShipping:   "shipped_at",
	model.OrderStatusDelivered:  "delivered_at",
	model.OrderStatusCancelled:  "cancelled_at",
}

func (r *OrderGormRepository) UpdateStatusVersioned(ctx context.Context, orderID int64, expectedVersion int64, newStatus model.OrderStatus, stampedAt time.Time) (bool, error) {
	updates := map[string]any{
		"status":         newStatus,
		"version_number": gorm.Expr("version_number + 1"),
		"updated_at":     stampedAt,
	}
	if col, ok := statusStampColumn[newStatus]; ok {
		updates[col] = stampedAt
	}

	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND version_number = ?", orderID, expectedVersion).
		Updates(updates)

	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *OrderGormRepository) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}

	q := r.db.WithContext(ctx).Model(&model.Order{})

	//status 絞り込み
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	//期間絞り込み
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at <= ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.Order{}, 0, err
	}

	var items []model.Order
	offset := (f.Page - 1) * f.Limit
	if err := q.Order("id desc").Limit(f.Limit).Offset(offset).Find(&items).Error; err != nil {
		return []model.Order{}, 0, err
	}

	return items, total, nil
}
