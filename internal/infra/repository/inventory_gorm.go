package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InventoryGormRepository struct {
	db *gorm.DB
}

func NewInventoryGormRepository(db *gorm.DB) *InventoryGormRepository {
	return &InventoryGormRepository{db: db}
}

// 在庫行をFOR UPDATEでロックしてon-handを返す。
// ロックは行単位（対象のproduct/variantだけ）。テーブルロックにはしない。
func (r *InventoryGormRepository) LockStock(ctx context.Context, productID int64, variantID *int64) (int64, error) {
	if variantID != nil {
		var v model.ProductVariant
		err := r.db.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND product_id = ?", *variantID, productID).
			First(&v).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, repo.ErrNotFound
		}
		if err != nil {
			return 0, err
		}
		return v.Stock, nil
	}

	var p model.Product
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", productID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, repo.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return p.Stock, nil
}

// commit時の恒久減算。stock >= qtyの行だけ更新し、負の在庫は作らない。
func (r *InventoryGormRepository) DecreaseStock(ctx context.Context, productID int64, variantID *int64, qty int64) error {
	var res *gorm.DB
	if variantID != nil {
		res = r.db.WithContext(ctx).Model(&model.ProductVariant{}).
			Where("id = ? AND product_id = ? AND stock >= ?", *variantID, productID, qty).
			Update("stock", gorm.Expr("stock - ?", qty))
	} else {
		res = r.db.WithContext(ctx).Model(&model.Product{}).
			Where("id = ? AND stock >= ?", productID, qty).
			Update("stock", gorm.Expr("stock - ?", qty))
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
