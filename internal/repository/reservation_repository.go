package repository

import (
	"context"
	"time"

	"app/internal/domain/model"
)

type ReservationRepository interface {
	Create(ctx context.Context, reservation model.StockReservation) (int64, error)

	// 対象在庫行のACTIVE予約数量の合計
	SumActiveByStock(ctx context.Context, productID int64, variantID *int64) (int64, error)

	ListActiveByOwner(ctx context.Context, ownerRef string) ([]model.StockReservation, error)

	// 掃除ジョブ用：期限切れACTIVEを拾う
	ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]model.StockReservation, error)

	// fromのときだけtoへ更新。更新できなければfalse（他所で先に処理済み）。
	UpdateStatus(ctx context.Context, reservationID int64, from, to model.ReservationStatus) (bool, error)
}
