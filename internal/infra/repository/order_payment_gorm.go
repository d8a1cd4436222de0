package repository

import (
	"context"
	"errors"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderPaymentGormRepository struct {
	db *gorm.DB
}

func NewOrderPaymentGormRepository(db *gorm.DB) *OrderPaymentGormRepository {
	return &OrderPaymentGormRepository{db: db}
}

func (r *OrderPaymentGormRepository) Create(ctx context.Context, payment model.OrderPayment) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&payment).Error; err != nil {
		return 0, err
	}
	return payment.ID, nil
}

func (r *OrderPaymentGormRepository) FindByRequestID(ctx context.Context, paymentRequestID string) (model.OrderPayment, error) {
	var p model.OrderPayment
	err := r.db.WithContext(ctx).
		Where("payment_request_id = ?", paymentRequestID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.OrderPayment{}, repo.ErrNotFound
	}
	if err != nil {
		return model.OrderPayment{}, err
	}
	return p, nil
}

// コールバック2重配送の直列化はこの行ロックに依存している
func (r *OrderPaymentGormRepository) FindByRequestIDForUpdate(ctx context.Context, paymentRequestID string) (model.OrderPayment, error) {
	var p model.OrderPayment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("payment_request_id = ?", paymentRequestID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.OrderPayment{}, repo.ErrNotFound
	}
	if err != nil {
		return model.OrderPayment{}, err
	}
	return p, nil
}

func (r *OrderPaymentGormRepository) SetCheckoutURLs(ctx context.Context, paymentID int64, checkoutURL, qrCodeURL string) error {
	res := r.db.WithContext(ctx).Model(&model.OrderPayment{}).
		Where("id = ?", paymentID).
		Updates(map[string]any{
			"checkout_url": checkoutURL,
			"qr_code_url":  qrCodeURL,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *OrderPaymentGormRepository) MarkPaid(ctx context.Context, paymentID int64, transactionID string, paidAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.OrderPayment{}).
		Where("id = ?", paymentID).
		Updates(map[string]any{
			"status":         model.PaymentStatusPaid,
			"transaction_id": transactionID,
			"paid_at":        paidAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *OrderPaymentGormRepository) MarkFailed(ctx context.Context, paymentID int64, transactionID string, failedAt time.Time) error {
	updates := map[string]any{
		"status":    model.PaymentStatusFailed,
		"failed_at": failedAt,
	}
	if transactionID != "" {
		updates["transaction_id"] = transactionID
	}
	res := r.db.WithContext(ctx).Model(&model.OrderPayment{}).
		Where("id = ?", paymentID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *OrderPaymentGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderPayment, error) {
	var payments []model.OrderPayment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id asc").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}
