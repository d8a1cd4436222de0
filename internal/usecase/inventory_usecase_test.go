package usecase_test

import (
	"context"
	"testing"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
	"app/internal/usecase"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

const testTTL = 20 * time.Minute

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newInventoryFixture() (*usecase.InventoryUsecase, *TxManagerMock, *ReservationRepoMock, *InventoryRepoMock) {
	tx := new(TxManagerMock)
	resRepo := new(ReservationRepoMock)
	invRepo := new(InventoryRepoMock)
	tx.Repos = &TxReposMock{reservations: resRepo, inventory: invRepo}

	uc := usecase.NewInventoryUsecase(tx, testTTL, &fixedClock{t: testNow}, zerolog.Nop())
	return uc, tx, resRepo, invRepo
}

func TestInventoryUsecase_Reserve_Success(t *testing.T) {
	ctx := context.Background()
	uc, tx, resRepo, invRepo := newInventoryFixture()
	tx.On("WithinTx", mock.Anything).Return(nil)

	invRepo.On("LockStock", mock.Anything, int64(7), (*int64)(nil)).Return(int64(10), nil)
	resRepo.On("SumActiveByStock", mock.Anything, int64(7), (*int64)(nil)).Return(int64(3), nil)
	resRepo.On("Create", mock.Anything, mock.MatchedBy(func(r model.StockReservation) bool {
		return r.OwnerRef == "ORDER:1" &&
			r.ProductID == 7 &&
			r.Quantity == 5 &&
			r.Status == model.ReservationStatusActive &&
			r.ReservedUntil.Equal(testNow.Add(testTTL))
	})).Return(int64(100), nil)

	res, err := uc.Reserve(ctx, "ORDER:1", usecase.ReserveRequest{ProductID: 7, Quantity: 5})
	assert.NoError(t, err)
	assert.True(t, res.Success)
	//空き10-3=7から5引いて2
	assert.Equal(t, int64(2), res.Available)

	resRepo.AssertExpectations(t)
	invRepo.AssertExpectations(t)
}

func TestInventoryUsecase_Reserve_Insufficient_NoSideEffect(t *testing.T) {
	ctx := context.Background()
	uc, tx, resRepo, invRepo := newInventoryFixture()
	tx.On("WithinTx", mock.Anything).Return(nil)

	invRepo.On("LockStock", mock.Anything, int64(7), (*int64)(nil)).Return(int64(5), nil)
	resRepo.On("SumActiveByStock", mock.Anything, int64(7), (*int64)(nil)).Return(int64(3), nil)

	res, err := uc.Reserve(ctx, "ORDER:1", usecase.ReserveRequest{ProductID: 7, Quantity: 3})
	assert.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, int64(2), res.Available)

	//不足時は予約行を作らない
	resRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestInventoryUsecase_Reserve_InvalidQuantity(t *testing.T) {
	uc, _, _, _ := newInventoryFixture()

	_, err := uc.Reserve(context.Background(), "ORDER:1", usecase.ReserveRequest{ProductID: 7, Quantity: 0})
	assert.True(t, usecase.IsKind(err, usecase.KindValidation))
}

func TestInventoryUsecase_Reserve_UnknownProduct(t *testing.T) {
	ctx := context.Background()
	uc, tx, _, invRepo := newInventoryFixture()
	tx.On("WithinTx", mock.Anything).Return(nil)

	invRepo.On("LockStock", mock.Anything, int64(99), (*int64)(nil)).Return(int64(0), repo.ErrNotFound)

	_, err := uc.Reserve(ctx, "ORDER:1", usecase.ReserveRequest{ProductID: 99, Quantity: 1})
	assert.True(t, usecase.IsKind(err, usecase.KindNotFound))
}

func TestInventoryUsecase_Commit_DecrementsStock(t *testing.T) {
	ctx := context.Background()
	uc, tx, resRepo, invRepo := newInventoryFixture()
	tx.On("WithinTx", mock.Anything).Return(nil)

	holds := []model.StockReservation{
		{ID: 1, OwnerRef: "ORDER:1", ProductID: 7, Quantity: 2, Status: model.ReservationStatusActive},
		{ID: 2, OwnerRef: "ORDER:1", ProductID: 8, Quantity: 1, Status: model.ReservationStatusActive},
	}
	resRepo.On("ListActiveByOwner", mock.Anything, "ORDER:1").Return(holds, nil)
	invRepo.On("LockStock", mock.Anything, int64(7), (*int64)(nil)).Return(int64(10), nil)
	invRepo.On("LockStock", mock.Anything, int64(8), (*int64)(nil)).Return(int64(4), nil)
	resRepo.On("UpdateStatus", mock.Anything, int64(1), model.ReservationStatusActive, model.ReservationStatusCommitted).Return(true, nil)
	resRepo.On("UpdateStatus", mock.Anything, int64(2), model.ReservationStatusActive, model.ReservationStatusCommitted).Return(true, nil)
	invRepo.On("DecreaseStock", mock.Anything, int64(7), (*int64)(nil), int64(2)).Return(nil)
	invRepo.On("DecreaseStock", mock.Anything, int64(8), (*int64)(nil), int64(1)).Return(nil)

	n, err := uc.Commit(ctx, "ORDER:1")
	assert.NoError(t, err)
	assert.Equal(t, 2, n)

	resRepo.AssertExpectations(t)
	invRepo.AssertExpectations(t)
}

func TestInventoryUsecase_Commit_SkipsAlreadyProcessed(t *testing.T) {
	ctx := context.Background()
	uc, tx, resRepo, invRepo := newInventoryFixture()
	tx.On("WithinTx", mock.Anything).Return(nil)

	holds := []model.StockReservation{
		{ID: 1, OwnerRef: "ORDER:1", ProductID: 7, Quantity: 2, Status: model.ReservationStatusActive},
	}
	resRepo.On("ListActiveByOwner", mock.Anything, "ORDER:1").Return(holds, nil)
	invRepo.On("LockStock", mock.Anything, int64(7), (*int64)(nil)).Return(int64(10), nil)
	//リスト後ロック前にexpire済み
	resRepo.On("UpdateStatus", mock.Anything, int64(1), model.ReservationStatusActive, model.ReservationStatusCommitted).Return(false, nil)

	n, err := uc.Commit(ctx, "ORDER:1")
	assert.NoError(t, err)
	assert.Equal(t, 0, n)

	//倒せなかった行の在庫は減らさない
	invRepo.AssertNotCalled(t, "DecreaseStock", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestInventoryUsecase_Commit_NoActive_NoOp(t *testing.T) {
	ctx := context.Background()
	uc, tx, resRepo, invRepo := newInventoryFixture()
	tx.On("WithinTx", mock.Anything).Return(nil)

	resRepo.On("ListActiveByOwner", mock.Anything, "ORDER:1").Return([]model.StockReservation{}, nil)

	n, err := uc.Commit(ctx, "ORDER:1")
	assert.NoError(t, err)
	assert.Equal(t, 0, n)

	invRepo.AssertNotCalled(t, "DecreaseStock", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestInventoryUsecase_Release_FlipsActiveOnly(t *testing.T) {
	ctx := context.Background()
	uc, tx, resRepo, invRepo := newInventoryFixture()
	tx.On("WithinTx", mock.Anything).Return(nil)

	holds := []model.StockReservation{
		{ID: 1, OwnerRef: "ORDER:1", ProductID: 7, Quantity: 2, Status: model.ReservationStatusActive},
		{ID: 2, OwnerRef: "ORDER:1", ProductID: 8, Quantity: 1, Status: model.ReservationStatusActive},
	}
	resRepo.On("ListActiveByOwner", mock.Anything, "ORDER:1").Return(holds, nil)
	invRepo.On("LockStock", mock.Anything, int64(7), (*int64)(nil)).Return(int64(10), nil)
	invRepo.On("LockStock", mock.Anything, int64(8), (*int64)(nil)).Return(int64(4), nil)
	resRepo.On("UpdateStatus", mock.Anything, int64(1), model.ReservationStatusActive, model.ReservationStatusReleased).Return(true, nil)
	resRepo.On("UpdateStatus", mock.Anything, int64(2), model.ReservationStatusActive, model.ReservationStatusReleased).Return(false, nil)

	n, err := uc.ReleaseReservations(ctx, "ORDER:1")
	assert.NoError(t, err)
	assert.Equal(t, 1, n)

	//releaseは在庫を触らない（空きは計算値なので自動回復）
	invRepo.AssertNotCalled(t, "DecreaseStock", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestInventoryUsecase_CleanupExpired(t *testing.T) {
	ctx := context.Background()
	uc, tx, resRepo, invRepo := newInventoryFixture()
	tx.On("WithinTx", mock.Anything).Return(nil)

	stale := []model.StockReservation{
		{ID: 1, ProductID: 7, Quantity: 2, Status: model.ReservationStatusActive},
		{ID: 2, ProductID: 8, Quantity: 1, Status: model.ReservationStatusActive},
	}
	resRepo.On("ListExpiredActive", mock.Anything, testNow, 100).Return(stale, nil)
	invRepo.On("LockStock", mock.Anything, int64(7), (*int64)(nil)).Return(int64(10), nil)
	invRepo.On("LockStock", mock.Anything, int64(8), (*int64)(nil)).Return(int64(4), nil)
	resRepo.On("UpdateStatus", mock.Anything, int64(1), model.ReservationStatusActive, model.ReservationStatusExpired).Return(true, nil)
	//ロック待ちの間に別経路でcommit済み
	resRepo.On("UpdateStatus", mock.Anything, int64(2), model.ReservationStatusActive, model.ReservationStatusExpired).Return(false, nil)

	n, err := uc.CleanupExpired(ctx, 100)
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestInventoryUsecase_Availability(t *testing.T) {
	ctx := context.Background()
	uc, tx, resRepo, invRepo := newInventoryFixture()
	tx.On("WithinTx", mock.Anything).Return(nil)

	invRepo.On("LockStock", mock.Anything, int64(7), (*int64)(nil)).Return(int64(10), nil)
	resRepo.On("SumActiveByStock", mock.Anything, int64(7), (*int64)(nil)).Return(int64(4), nil)

	available, err := uc.Availability(ctx, 7, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(6), available)
}
