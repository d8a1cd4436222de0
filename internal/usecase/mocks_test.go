package usecase_test

import (
	"context"
	"time"

	"app/internal/domain/model"
	"app/internal/infra/gateway"
	"app/internal/notify"
	repo "app/internal/repository"
	"app/internal/usecase"

	"github.com/stretchr/testify/mock"
)

// =====================
// TxManager / TxRepos mocks
// =====================

// TxManagerMock は WithinTx の中で渡す repos を固定して unit テストを回す
type TxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	// 呼ばれた事実だけ記録（ctxの具体値は問わない）
	m.Called(ctx)
	return fn(m.Repos)
}

type TxReposMock struct {
	orders         repo.OrderRepository
	orderItems     repo.OrderItemRepository
	orderAddresses repo.OrderAddressRepository
	payments       repo.OrderPaymentRepository
	statusHistory  repo.StatusHistoryRepository
	reservations   repo.ReservationRepository
	inventory      repo.InventoryRepository
	products       repo.ProductRepository
}

func (r *TxReposMock) Orders() repo.OrderRepository                { return r.orders }
func (r *TxReposMock) OrderItems() repo.OrderItemRepository        { return r.orderItems }
func (r *TxReposMock) OrderAddresses() repo.OrderAddressRepository { return r.orderAddresses }
func (r *TxReposMock) Payments() repo.OrderPaymentRepository       { return r.payments }
func (r *TxReposMock) StatusHistory() repo.StatusHistoryRepository { return r.statusHistory }
func (r *TxReposMock) Reservations() repo.ReservationRepository    { return r.reservations }
func (r *TxReposMock) Inventory() repo.InventoryRepository         { return r.inventory }
func (r *TxReposMock) Products() repo.ProductRepository            { return r.products }

// =====================
// Repository mocks
// =====================

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) FindByNumber(ctx context.Context, orderNumber string) (model.Order, error) {
	args := m.Called(ctx, orderNumber)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) Create(ctx context.Context, order model.Order) (int64, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(int64), args.Error(1)
}

func (m *OrderRepoMock) UpdateStatusVersioned(ctx context.Context, orderID int64, expectedVersion int64, newStatus model.OrderStatus, stampedAt time.Time) (bool, error) {
	args := m.Called(ctx, orderID, expectedVersion, newStatus, stampedAt)
	return args.Bool(0), args.Error(1)
}

func (m *OrderRepoMock) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, int64, error) {
	args := m.Called(ctx, f)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

type OrderItemRepoMock struct{ mock.Mock }

func (m *OrderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	args := m.Called(ctx, orderID, items)
	return args.Error(0)
}

func (m *OrderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

type OrderAddressRepoMock struct{ mock.Mock }

func (m *OrderAddressRepoMock) CreateBulk(ctx context.Context, orderID int64, addresses []model.OrderAddress) error {
	args := m.Called(ctx, orderID, addresses)
	return args.Error(0)
}

func (m *OrderAddressRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderAddress, error) {
	args := m.Called(ctx, orderID)
	addrs, _ := args.Get(0).([]model.OrderAddress)
	return addrs, args.Error(1)
}

type PaymentRepoMock struct{ mock.Mock }

func (m *PaymentRepoMock) Create(ctx context.Context, payment model.OrderPayment) (int64, error) {
	args := m.Called(ctx, payment)
	return args.Get(0).(int64), args.Error(1)
}

func (m *PaymentRepoMock) FindByRequestID(ctx context.Context, paymentRequestID string) (model.OrderPayment, error) {
	args := m.Called(ctx, paymentRequestID)
	p, _ := args.Get(0).(model.OrderPayment)
	return p, args.Error(1)
}

func (m *PaymentRepoMock) FindByRequestIDForUpdate(ctx context.Context, paymentRequestID string) (model.OrderPayment, error) {
	args := m.Called(ctx, paymentRequestID)
	p, _ := args.Get(0).(model.OrderPayment)
	return p, args.Error(1)
}

func (m *PaymentRepoMock) SetCheckoutURLs(ctx context.Context, paymentID int64, checkoutURL, qrCodeURL string) error {
	args := m.Called(ctx, paymentID, checkoutURL, qrCodeURL)
	return args.Error(0)
}

func (m *PaymentRepoMock) MarkPaid(ctx context.Context, paymentID int64, transactionID string, paidAt time.Time) error {
	args := m.Called(ctx, paymentID, transactionID, paidAt)
	return args.Error(0)
}

func (m *PaymentRepoMock) MarkFailed(ctx context.Context, paymentID int64, transactionID string, failedAt time.Time) error {
	args := m.Called(ctx, paymentID, transactionID, failedAt)
	return args.Error(0)
}

func (m *PaymentRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderPayment, error) {
	args := m.Called(ctx, orderID)
	payments, _ := args.Get(0).([]model.OrderPayment)
	return payments, args.Error(1)
}

type StatusHistoryRepoMock struct{ mock.Mock }

func (m *StatusHistoryRepoMock) Create(ctx context.Context, entry model.OrderStatusHistory) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *StatusHistoryRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderStatusHistory, error) {
	args := m.Called(ctx, orderID)
	entries, _ := args.Get(0).([]model.OrderStatusHistory)
	return entries, args.Error(1)
}

type ReservationRepoMock struct{ mock.Mock }

func (m *ReservationRepoMock) Create(ctx context.Context, reservation model.StockReservation) (int64, error) {
	args := m.Called(ctx, reservation)
	return args.Get(0).(int64), args.Error(1)
}

func (m *ReservationRepoMock) SumActiveByStock(ctx context.Context, productID int64, variantID *int64) (int64, error) {
	args := m.Called(ctx, productID, variantID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *ReservationRepoMock) ListActiveByOwner(ctx context.Context, ownerRef string) ([]model.StockReservation, error) {
	args := m.Called(ctx, ownerRef)
	reservations, _ := args.Get(0).([]model.StockReservation)
	return reservations, args.Error(1)
}

func (m *ReservationRepoMock) ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]model.StockReservation, error) {
	args := m.Called(ctx, now, limit)
	reservations, _ := args.Get(0).([]model.StockReservation)
	return reservations, args.Error(1)
}

func (m *ReservationRepoMock) UpdateStatus(ctx context.Context, reservationID int64, from, to model.ReservationStatus) (bool, error) {
	args := m.Called(ctx, reservationID, from, to)
	return args.Bool(0), args.Error(1)
}

type InventoryRepoMock struct{ mock.Mock }

func (m *InventoryRepoMock) LockStock(ctx context.Context, productID int64, variantID *int64) (int64, error) {
	args := m.Called(ctx, productID, variantID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *InventoryRepoMock) DecreaseStock(ctx context.Context, productID int64, variantID *int64, qty int64) error {
	args := m.Called(ctx, productID, variantID, qty)
	return args.Error(0)
}

type ProductRepoMock struct{ mock.Mock }

func (m *ProductRepoMock) FindByID(ctx context.Context, productID int64) (model.Product, error) {
	args := m.Called(ctx, productID)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *ProductRepoMock) FindVariantByID(ctx context.Context, variantID int64) (model.ProductVariant, error) {
	args := m.Called(ctx, variantID)
	v, _ := args.Get(0).(model.ProductVariant)
	return v, args.Error(1)
}

// =====================
// 外部依存の差し替え
// =====================

type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }

type fixedIDGen struct{ id string }

func (g *fixedIDGen) NewID() string { return g.id }

// 通知は送り捨てなのでテストでは握りつぶす
type nopSink struct{}

func (nopSink) NotifyNewOrder(ctx context.Context, order model.Order) error { return nil }
func (nopSink) NotifyOrderStatusChanged(ctx context.Context, order model.Order, oldStatus, newStatus model.OrderStatus) error {
	return nil
}
func (nopSink) NotifyCustomer(ctx context.Context, order model.Order, statusLabel string) error {
	return nil
}

var _ notify.Sink = nopSink{}

type GatewayClientMock struct{ mock.Mock }

func (m *GatewayClientMock) CreateIntent(ctx context.Context, requestID, orderNumber string, amount int64, currency, method string) (gateway.IntentResponse, error) {
	args := m.Called(ctx, requestID, orderNumber, amount, currency, method)
	resp, _ := args.Get(0).(gateway.IntentResponse)
	return resp, args.Error(1)
}

type PaymentCreatorMock struct{ mock.Mock }

func (m *PaymentCreatorMock) CreatePayment(ctx context.Context, orderID int64, orderNumber string, amount int64, currency string, method string) (usecase.PaymentHandle, error) {
	args := m.Called(ctx, orderID, orderNumber, amount, currency, method)
	h, _ := args.Get(0).(usecase.PaymentHandle)
	return h, args.Error(1)
}

type CartProviderMock struct{ mock.Mock }

func (m *CartProviderMock) GetCheckoutItems(ctx context.Context, cartRef string) ([]usecase.CheckoutItem, error) {
	args := m.Called(ctx, cartRef)
	items, _ := args.Get(0).([]usecase.CheckoutItem)
	return items, args.Error(1)
}

func (m *CartProviderMock) MarkCheckedOut(ctx context.Context, cartRef string) error {
	args := m.Called(ctx, cartRef)
	return args.Error(0)
}
