package usecase_test

import (
	"context"
	"errors"
	"testing"

	"app/internal/domain/model"
	"app/internal/infra/gateway"
	repo "app/internal/repository"
	"app/internal/usecase"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

const testSecret = "test-secret"

type paymentFixture struct {
	tx      *TxManagerMock
	orders  *OrderRepoMock
	payRepo *PaymentRepoMock
	history *StatusHistoryRepoMock
	resRepo *ReservationRepoMock
	invRepo *InventoryRepoMock
	gw      *GatewayClientMock
	uc      *usecase.PaymentUsecase
}

func newPaymentFixture() *paymentFixture {
	f := &paymentFixture{
		tx:      new(TxManagerMock),
		orders:  new(OrderRepoMock),
		payRepo: new(PaymentRepoMock),
		history: new(StatusHistoryRepoMock),
		resRepo: new(ReservationRepoMock),
		invRepo: new(InventoryRepoMock),
		gw:      new(GatewayClientMock),
	}
	f.tx.Repos = &TxReposMock{
		orders:        f.orders,
		payments:      f.payRepo,
		statusHistory: f.history,
		reservations:  f.resRepo,
		inventory:     f.invRepo,
	}

	clock := &fixedClock{t: testNow}
	inventory := usecase.NewInventoryUsecase(f.tx, testTTL, clock, zerolog.Nop())
	f.uc = usecase.NewPaymentUsecase(f.tx, f.gw, inventory, nopSink{}, clock,
		&fixedIDGen{id: "req-1"}, testSecret, nil, zerolog.Nop())
	return f
}

func signedCallback(resultCode int, amount int64) gateway.CallbackPayload {
	p := gateway.CallbackPayload{
		PartnerCode:   "SHOP01",
		OrderNumber:   "ORD-20260301-ABCDEF1234",
		RequestID:     "req-1",
		Amount:        amount,
		ResultCode:    resultCode,
		TransactionID: "tx-99",
	}
	p.SignWith(testSecret)
	return p
}

// =====================
// CreatePayment
// =====================

func TestPaymentUsecase_CreatePayment_Success(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture()
	f.tx.On("WithinTx", mock.Anything).Return(nil)

	//行はURLなしで先に作り、インテント応答で後詰めする
	f.payRepo.On("Create", mock.Anything, mock.MatchedBy(func(p model.OrderPayment) bool {
		return p.OrderID == 42 &&
			p.PaymentRequestID == "req-1" &&
			p.Status == model.PaymentStatusPending &&
			p.Amount == 1100 &&
			p.CheckoutURL == ""
	})).Return(int64(1), nil)
	f.gw.On("CreateIntent", mock.Anything, "req-1", "ORD-X", int64(1100), "JPY", "gateway").
		Run(func(args mock.Arguments) {
			//ゲートウェイを呼ぶ時点で行が存在している
			f.payRepo.AssertCalled(t, "Create", mock.Anything, mock.Anything)
		}).
		Return(gateway.IntentResponse{CheckoutURL: "https://pay.example/q", QRCodeURL: "https://pay.example/qr"}, nil)
	f.payRepo.On("SetCheckoutURLs", mock.Anything, int64(1), "https://pay.example/q", "https://pay.example/qr").Return(nil)

	h, err := f.uc.CreatePayment(ctx, 42, "ORD-X", 1100, "JPY", "gateway")
	assert.NoError(t, err)
	assert.Equal(t, "req-1", h.PaymentRequestID)
	assert.Equal(t, "https://pay.example/q", h.CheckoutURL)

	f.payRepo.AssertExpectations(t)
}

func TestPaymentUsecase_CreatePayment_GatewayTimeout_KeepsPendingRow(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture()
	f.tx.On("WithinTx", mock.Anything).Return(nil)

	f.payRepo.On("Create", mock.Anything, mock.MatchedBy(func(p model.OrderPayment) bool {
		return p.PaymentRequestID == "req-1" && p.Status == model.PaymentStatusPending
	})).Return(int64(1), nil)
	f.gw.On("CreateIntent", mock.Anything, "req-1", "ORD-X", int64(1100), "JPY", "gateway").
		Return(gateway.IntentResponse{}, gateway.ErrTimeout)

	_, err := f.uc.CreatePayment(ctx, 42, "ORD-X", 1100, "JPY", "gateway")
	assert.True(t, usecase.IsKind(err, usecase.KindGatewayTimeout))

	//インテントが成立しているかもしれないので、行はPENDINGのまま残す。
	//プロセスが死んでいても後から来るコールバックの突き合わせ先がある。
	f.payRepo.AssertCalled(t, "Create", mock.Anything, mock.Anything)
	f.payRepo.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentUsecase_CreatePayment_GatewayRejected_MarksFailed(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture()
	f.tx.On("WithinTx", mock.Anything).Return(nil)

	f.payRepo.On("Create", mock.Anything, mock.Anything).Return(int64(1), nil)
	f.gw.On("CreateIntent", mock.Anything, "req-1", "ORD-X", int64(1100), "JPY", "gateway").
		Return(gateway.IntentResponse{}, errors.New("connection refused"))
	f.payRepo.On("MarkFailed", mock.Anything, int64(1), "", testNow).Return(nil)

	_, err := f.uc.CreatePayment(ctx, 42, "ORD-X", 1100, "JPY", "gateway")
	assert.True(t, usecase.IsKind(err, usecase.KindGatewayTimeout))

	f.payRepo.AssertExpectations(t)
}

func TestPaymentUsecase_CreatePayment_InvalidInput(t *testing.T) {
	f := newPaymentFixture()

	_, err := f.uc.CreatePayment(context.Background(), 0, "ORD-X", 1100, "JPY", "gateway")
	assert.True(t, usecase.IsKind(err, usecase.KindValidation))
}

// =====================
// HandleCallback
// =====================

func TestPaymentUsecase_HandleCallback_InvalidSignature(t *testing.T) {
	f := newPaymentFixture()

	p := signedCallback(gateway.ResultCodeSuccess, 1100)
	p.Signature = "deadbeef"

	err := f.uc.HandleCallback(context.Background(), p)
	assert.True(t, usecase.IsKind(err, usecase.KindSignatureInvalid))

	//署名が通らない限りDBには触らない
	f.tx.AssertNotCalled(t, "WithinTx", mock.Anything)
}

func TestPaymentUsecase_HandleCallback_UnknownRef(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture()
	f.tx.On("WithinTx", mock.Anything).Return(nil)

	f.payRepo.On("FindByRequestIDForUpdate", mock.Anything, "req-1").Return(model.OrderPayment{}, repo.ErrNotFound)

	err := f.uc.HandleCallback(ctx, signedCallback(gateway.ResultCodeSuccess, 1100))
	assert.True(t, usecase.IsKind(err, usecase.KindNotFound))
}

func TestPaymentUsecase_HandleCallback_Duplicate_NoOp(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture()
	f.tx.On("WithinTx", mock.Anything).Return(nil)

	f.payRepo.On("FindByRequestIDForUpdate", mock.Anything, "req-1").Return(model.OrderPayment{
		ID: 1, OrderID: 42, PaymentRequestID: "req-1", Amount: 1100, Status: model.PaymentStatusPaid,
	}, nil)

	//2回目の配送は成功扱いで何もしない
	err := f.uc.HandleCallback(ctx, signedCallback(gateway.ResultCodeSuccess, 1100))
	assert.NoError(t, err)

	f.payRepo.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.orders.AssertNotCalled(t, "UpdateStatusVersioned", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.invRepo.AssertNotCalled(t, "DecreaseStock", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentUsecase_HandleCallback_AmountMismatch(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture()
	f.tx.On("WithinTx", mock.Anything).Return(nil)

	f.payRepo.On("FindByRequestIDForUpdate", mock.Anything, "req-1").Return(model.OrderPayment{
		ID: 1, OrderID: 42, PaymentRequestID: "req-1", Amount: 1100, Status: model.PaymentStatusPending,
	}, nil)

	err := f.uc.HandleCallback(ctx, signedCallback(gateway.ResultCodeSuccess, 999))
	assert.True(t, usecase.IsKind(err, usecase.KindValidation))

	f.payRepo.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentUsecase_HandleCallback_Success_ConfirmsAndCommits(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture()
	f.tx.On("WithinTx", mock.Anything).Return(nil)

	f.payRepo.On("FindByRequestIDForUpdate", mock.Anything, "req-1").Return(model.OrderPayment{
		ID: 1, OrderID: 42, PaymentRequestID: "req-1", Amount: 1100, Status: model.PaymentStatusPending,
	}, nil)
	f.payRepo.On("MarkPaid", mock.Anything, int64(1), "tx-99", testNow).Return(nil)

	f.orders.On("FindByID", mock.Anything, int64(42)).Return(model.Order{
		ID: 42, OrderNumber: "ORD-X", Status: model.OrderStatusPending, VersionNumber: 1,
	}, nil)
	f.orders.On("UpdateStatusVersioned", mock.Anything, int64(42), int64(1), model.OrderStatusConfirmed, testNow).Return(true, nil)
	f.history.On("Create", mock.Anything, mock.MatchedBy(func(e model.OrderStatusHistory) bool {
		return e.OrderID == 42 && e.NewStatus == model.OrderStatusConfirmed
	})).Return(nil)

	//支払い確定＝予約を消費
	holds := []model.StockReservation{
		{ID: 10, OwnerRef: "ORDER:42", ProductID: 7, Quantity: 2, Status: model.ReservationStatusActive},
	}
	f.resRepo.On("ListActiveByOwner", mock.Anything, "ORDER:42").Return(holds, nil)
	f.invRepo.On("LockStock", mock.Anything, int64(7), (*int64)(nil)).Return(int64(10), nil)
	f.resRepo.On("UpdateStatus", mock.Anything, int64(10), model.ReservationStatusActive, model.ReservationStatusCommitted).Return(true, nil)
	f.invRepo.On("DecreaseStock", mock.Anything, int64(7), (*int64)(nil), int64(2)).Return(nil)

	err := f.uc.HandleCallback(ctx, signedCallback(gateway.ResultCodeSuccess, 1100))
	assert.NoError(t, err)

	f.payRepo.AssertExpectations(t)
	f.orders.AssertExpectations(t)
	f.resRepo.AssertExpectations(t)
	f.invRepo.AssertExpectations(t)
}

func TestPaymentUsecase_HandleCallback_Failure_KeepsReservations(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture()
	f.tx.On("WithinTx", mock.Anything).Return(nil)

	f.payRepo.On("FindByRequestIDForUpdate", mock.Anything, "req-1").Return(model.OrderPayment{
		ID: 1, OrderID: 42, PaymentRequestID: "req-1", Amount: 1100, Status: model.PaymentStatusPending,
	}, nil)
	f.payRepo.On("MarkFailed", mock.Anything, int64(1), "tx-99", testNow).Return(nil)

	err := f.uc.HandleCallback(ctx, signedCallback(7, 1100))
	assert.NoError(t, err)

	//失敗しても予約は解放しない（顧客が期限内に再試行できる）
	f.resRepo.AssertNotCalled(t, "ListActiveByOwner", mock.Anything, mock.Anything)
	f.orders.AssertNotCalled(t, "UpdateStatusVersioned", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.payRepo.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentUsecase_HandleCallback_PaidButOrderCancelled(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture()
	f.tx.On("WithinTx", mock.Anything).Return(nil)

	f.payRepo.On("FindByRequestIDForUpdate", mock.Anything, "req-1").Return(model.OrderPayment{
		ID: 1, OrderID: 42, PaymentRequestID: "req-1", Amount: 1100, Status: model.PaymentStatusPending,
	}, nil)
	f.payRepo.On("MarkPaid", mock.Anything, int64(1), "tx-99", testNow).Return(nil)

	//キャンセル済みの注文に支払いが届いた。支払い記録だけ残して遷移はしない。
	f.orders.On("FindByID", mock.Anything, int64(42)).Return(model.Order{
		ID: 42, Status: model.OrderStatusCancelled, VersionNumber: 2,
	}, nil)
	f.resRepo.On("ListActiveByOwner", mock.Anything, "ORDER:42").Return([]model.StockReservation{}, nil)

	err := f.uc.HandleCallback(ctx, signedCallback(gateway.ResultCodeSuccess, 1100))
	assert.NoError(t, err)

	f.orders.AssertNotCalled(t, "UpdateStatusVersioned", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentUsecase_GetPaymentByRequestID(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture()
	f.tx.On("WithinTx", mock.Anything).Return(nil)

	f.payRepo.On("FindByRequestID", mock.Anything, "req-1").Return(model.OrderPayment{
		ID: 1, OrderID: 42, PaymentRequestID: "req-1", Status: model.PaymentStatusPaid,
	}, nil)

	pay, err := f.uc.GetPaymentByRequestID(ctx, "req-1")
	assert.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, pay.Status)
}

func TestPaymentUsecase_GetPaymentByRequestID_NotFound(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture()
	f.tx.On("WithinTx", mock.Anything).Return(nil)

	f.payRepo.On("FindByRequestID", mock.Anything, "req-x").Return(model.OrderPayment{}, repo.ErrNotFound)

	_, err := f.uc.GetPaymentByRequestID(ctx, "req-x")
	assert.True(t, usecase.IsKind(err, usecase.KindNotFound))
}

func TestPaymentUsecase_HandleCallback_MissingRequestID(t *testing.T) {
	f := newPaymentFixture()

	err := f.uc.HandleCallback(context.Background(), gateway.CallbackPayload{})
	assert.True(t, usecase.IsKind(err, usecase.KindValidation))
}
