package repository

import (
	"context"
	"time"

	"app/internal/domain/model"

	"gorm.io/gorm"
)

type ReservationGormRepository struct {
	db *gorm.DB
}

func NewReservationGormRepository(db *gorm.DB) *ReservationGormRepository {
	return &ReservationGormRepository{db: db}
}

func (r *ReservationGormRepository) Create(ctx context.Context, reservation model.StockReservation) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&reservation).Error; err != nil {
		return 0, err
	}
	return reservation.ID, nil
}

func (r *ReservationGormRepository) SumActiveByStock(ctx context.Context, productID int64, variantID *int64) (int64, error) {
	q := r.db.WithContext(ctx).Model(&model.StockReservation{}).
		Where("product_id = ? AND status = ?", productID, model.ReservationStatusActive)
	if variantID != nil {
		q = q.Where("variant_id = ?", *variantID)
	} else {
		q = q.Where("variant_id IS NULL")
	}

	var sum *int64
	if err := q.Select("SUM(quantity)").Scan(&sum).Error; err != nil {
		return 0, err
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}

func (r *ReservationGormRepository) ListActiveByOwner(ctx context.Context, ownerRef string) ([]model.StockReservation, error) {
	var reservations []model.StockReservation
	err := r.db.WithContext(ctx).
		Where("owner_ref = ? AND status = ?", ownerRef, model.ReservationStatusActive).
		Order("id asc").
		Find(&reservations).Error
	if err != nil {
		return nil, err
	}
	return reservations, nil
}

func (r *ReservationGormRepository) ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]model.StockReservation, error) {
	if limit <= 0 {
		limit = 100
	}
	var reservations []model.StockReservation
	err := r.db.WithContext(ctx).
		Where("status = ? AND reserved_until < ?", model.ReservationStatusActive, now).
		Order("reserved_until asc").
		Limit(limit).
		Find(&reservations).Error
	if err != nil {
		return nil, err
	}
	return reservations, nil
}

// fromのままの行だけ更新する。0行なら他所で先に状態が動いている。
func (r *ReservationGormRepository) UpdateStatus(ctx context.Context, reservationID int64, from, to model.ReservationStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.StockReservation{}).
		Where("id = ? AND status = ?", reservationID, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
