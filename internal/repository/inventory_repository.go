package repository

import "context"

type InventoryRepository interface {
	// 在庫行（variant指定ならvariant行、なければproduct行）を
	// FOR UPDATEでロックしてon-hand数量を返す。check-and-reserveの間ロックを保持する。
	LockStock(ctx context.Context, productID int64, variantID *int64) (int64, error)

	// 予約commit時の恒久減算。呼ぶ前にLockStockでロック済みであること。
	DecreaseStock(ctx context.Context, productID int64, variantID *int64, qty int64) error
}
