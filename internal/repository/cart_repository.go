package repository

import (
	"context"

	"app/internal/domain/model"
)

// checkout入口が読む分だけの狭いインターフェース。カート編集系は別サービス。
type CartRepository interface {
	FindActiveByRef(ctx context.Context, cartRef string) (model.Cart, error)
	ListItemsByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error)
	MarkCheckedOut(ctx context.Context, cartID int64) error
}
