package usecase

import (
	"context"
	"errors"
	"time"

	"app/internal/domain/model"
	"app/internal/metrics"
	repo "app/internal/repository"

	"github.com/rs/zerolog"
)

// 予約プロトコル：reserve / commit / release / expire。
// 空きは on-hand − ACTIVE予約合計 で計算する。reserveはon-handを減らさず、
// commitで初めて恒久減算する。チェックは対象在庫行のFOR UPDATEロック下で行うので
// 同じ最後の1個を同時に取り合っても両方成功することはない。
type InventoryUsecase struct {
	tx     repo.TransactionManager
	ttl    time.Duration
	clock  Clock
	logger zerolog.Logger
}

func NewInventoryUsecase(tx repo.TransactionManager, reservationTTL time.Duration, clock Clock, logger zerolog.Logger) *InventoryUsecase {
	return &InventoryUsecase{tx: tx, ttl: reservationTTL, clock: clock, logger: logger}
}

// ReserveInTx は呼び出し元のトランザクション内で1件予約する。
// 不足時は副作用なしでSuccess=false。
func (u *InventoryUsecase) ReserveInTx(ctx context.Context, r repo.TxRepos, ownerRef string, req ReserveRequest) (ReservationResult, error) {
	if req.Quantity <= 0 {
		return ReservationResult{}, NewError(KindValidation, "invalid quantity")
	}
	if ownerRef == "" {
		return ReservationResult{}, NewError(KindValidation, "invalid owner ref")
	}

	//在庫行ロック（これ以降check-and-insertが直列化される）
	onHand, err := r.Inventory().LockStock(ctx, req.ProductID, req.VariantID)
	if errors.Is(err, repo.ErrNotFound) {
		return ReservationResult{}, NewError(KindNotFound, "product not found")
	}
	if err != nil {
		return ReservationResult{}, NewError(KindPersistence, "db error")
	}

	reserved, err := r.Reservations().SumActiveByStock(ctx, req.ProductID, req.VariantID)
	if err != nil {
		return ReservationResult{}, NewError(KindPersistence, "db error")
	}

	available := onHand - reserved
	if available < req.Quantity {
		metrics.Reservations.WithLabelValues("rejected").Inc()
		return ReservationResult{Success: false, Available: available}, nil
	}

	now := u.clock.Now()
	_, err = r.Reservations().Create(ctx, model.StockReservation{
		OwnerRef:      ownerRef,
		ProductID:     req.ProductID,
		VariantID:     req.VariantID,
		Quantity:      req.Quantity,
		Status:        model.ReservationStatusActive,
		ReservedUntil: now.Add(u.ttl),
	})
	if err != nil {
		return ReservationResult{}, NewError(KindPersistence, "db error")
	}

	metrics.Reservations.WithLabelValues("reserved").Inc()
	return ReservationResult{Success: true, Available: available - req.Quantity}, nil
}

func (u *InventoryUsecase) Reserve(ctx context.Context, ownerRef string, req ReserveRequest) (ReservationResult, error) {
	var out ReservationResult
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		res, err := u.ReserveInTx(ctx, r, ownerRef, req)
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return ReservationResult{}, err
	}
	return out, nil
}

// CommitInTx はownerのACTIVE予約を全部COMMITTEDにしてon-handを恒久減算する。
// ACTIVEが無ければ何もしない（冪等）。
func (u *InventoryUsecase) CommitInTx(ctx context.Context, r repo.TxRepos, ownerRef string) (int, error) {
	reservations, err := r.Reservations().ListActiveByOwner(ctx, ownerRef)
	if err != nil {
		return 0, NewError(KindPersistence, "db error")
	}

	committed := 0
	for _, res := range reservations {
		//reserveと同じ行ロック規律
		if _, err := r.Inventory().LockStock(ctx, res.ProductID, res.VariantID); err != nil {
			return committed, NewError(KindPersistence, "db error")
		}

		ok, err := r.Reservations().UpdateStatus(ctx, res.ID, model.ReservationStatusActive, model.ReservationStatusCommitted)
		if err != nil {
			return committed, NewError(KindPersistence, "db error")
		}
		if !ok {
			// 別経路で処理済み（expire等）。スキップ。
			continue
		}

		if err := r.Inventory().DecreaseStock(ctx, res.ProductID, res.VariantID, res.Quantity); err != nil {
			return committed, NewError(KindPersistence, "db error")
		}

		committed++
		metrics.Reservations.WithLabelValues("committed").Inc()
	}
	return committed, nil
}

func (u *InventoryUsecase) Commit(ctx context.Context, ownerRef string) (int, error) {
	var n int
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		committed, err := u.CommitInTx(ctx, r, ownerRef)
		if err != nil {
			return err
		}
		n = committed
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// ReleaseInTx はownerのACTIVE予約をRELEASEDへ。空きは即時回復する（計算値なので）。
// 既にcommit/expire済みの分はそのまま（best-effort sweep）。冪等。
func (u *InventoryUsecase) ReleaseInTx(ctx context.Context, r repo.TxRepos, ownerRef string) (int, error) {
	reservations, err := r.Reservations().ListActiveByOwner(ctx, ownerRef)
	if err != nil {
		return 0, NewError(KindPersistence, "db error")
	}

	released := 0
	for _, res := range reservations {
		if _, err := r.Inventory().LockStock(ctx, res.ProductID, res.VariantID); err != nil {
			return released, NewError(KindPersistence, "db error")
		}

		ok, err := r.Reservations().UpdateStatus(ctx, res.ID, model.ReservationStatusActive, model.ReservationStatusReleased)
		if err != nil {
			return released, NewError(KindPersistence, "db error")
		}
		if ok {
			released++
			metrics.Reservations.WithLabelValues("released").Inc()
		}
	}
	return released, nil
}

func (u *InventoryUsecase) ReleaseReservations(ctx context.Context, ownerRef string) (int, error) {
	var n int
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		released, err := u.ReleaseInTx(ctx, r, ownerRef)
		if err != nil {
			return err
		}
		n = released
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// CleanupExpired は期限切れACTIVEをEXPIREDにして空きを戻す。
// COMMITTED/RELEASEDには触らない。reserveと同じ行ロックを使うので
// タイマーと手動実行が重なっても安全。
func (u *InventoryUsecase) CleanupExpired(ctx context.Context, limit int) (int, error) {
	now := u.clock.Now()
	expired := 0

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		stale, err := r.Reservations().ListExpiredActive(ctx, now, limit)
		if err != nil {
			return NewError(KindPersistence, "db error")
		}

		for _, res := range stale {
			if _, err := r.Inventory().LockStock(ctx, res.ProductID, res.VariantID); err != nil {
				return NewError(KindPersistence, "db error")
			}

			//ロック後にACTIVEのままの行だけ倒す
			ok, err := r.Reservations().UpdateStatus(ctx, res.ID, model.ReservationStatusActive, model.ReservationStatusExpired)
			if err != nil {
				return NewError(KindPersistence, "db error")
			}
			if ok {
				expired++
				metrics.Reservations.WithLabelValues("expired").Inc()
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if expired > 0 {
		u.logger.Info().Int("expired", expired).Msg("expired stale reservations")
	}
	return expired, nil
}

// Availability は現在の空き（on-hand − ACTIVE予約合計）を返す。
func (u *InventoryUsecase) Availability(ctx context.Context, productID int64, variantID *int64) (int64, error) {
	var available int64
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		onHand, err := r.Inventory().LockStock(ctx, productID, variantID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewError(KindNotFound, "product not found")
		}
		if err != nil {
			return NewError(KindPersistence, "db error")
		}
		reserved, err := r.Reservations().SumActiveByStock(ctx, productID, variantID)
		if err != nil {
			return NewError(KindPersistence, "db error")
		}
		available = onHand - reserved
		return nil
	})
	if err != nil {
		return 0, err
	}
	return available, nil
}
