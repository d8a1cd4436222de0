package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"app/internal/domain/model"
	"app/internal/metrics"
	"app/internal/notify"
	repo "app/internal/repository"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const orderNumberRetries = 3

type OrderUsecase struct {
	tx        repo.TransactionManager
	inventory InventoryService
	payments  PaymentCreator
	carts     CartProvider
	sink      notify.Sink
	clock     Clock
	logger    zerolog.Logger
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	inventory InventoryService,
	payments PaymentCreator,
	carts CartProvider,
	sink notify.Sink,
	clock Clock,
	logger zerolog.Logger,
) *OrderUsecase {
	return &OrderUsecase{
		tx:        tx,
		inventory: inventory,
		payments:  payments,
		carts:     carts,
		sink:      sink,
		clock:     clock,
		logger:    logger,
	}
}

type CustomerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type OrderItemInput struct {
	ProductID int64  `json:"product_id"`
	VariantID *int64 `json:"variant_id,omitempty"`
	Quantity  int64  `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

type AddressInput struct {
	Type       model.AddressType `json:"type"`
	Recipient  string            `json:"recipient"`
	Phone      string            `json:"phone"`
	Line1      string            `json:"line1"`
	Line2      string            `json:"line2"`
	City       string            `json:"city"`
	PostalCode string            `json:"postal_code"`
	Country    string            `json:"country"`
}

type CreateOrderInput struct {
	Customer      CustomerInfo
	Items         []OrderItemInput
	Addresses     []AddressInput
	PaymentMethod string
	Currency      string
	Tax           int64
	ShippingFee   int64
	Discount      int64
}

type OrderItemOutput struct {
	ProductID int64  `json:"product_id"`
	VariantID *int64 `json:"variant_id,omitempty"`
	Name      string `json:"name"`
	SKU       string `json:"sku"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int64  `json:"quantity"`
	LineTotal int64  `json:"line_total"`
}

type OrderOutput struct {
	ID          int64             `json:"id"`
	OrderNumber string            `json:"order_number"`
	Status      string            `json:"status"`
	Subtotal    int64             `json:"subtotal"`
	Tax         int64             `json:"tax"`
	Shipping    int64             `json:"shipping"`
	Discount    int64             `json:"discount"`
	Total       int64             `json:"total"`
	CreatedAt   time.Time         `json:"created_at"`
	Items       []OrderItemOutput `json:"items"`
}

type CreateOrderOutput struct {
	Order   OrderOutput    `json:"order"`
	Payment *PaymentHandle `json:"payment,omitempty"`
}

// CreateOrder は注文＋明細＋住所＋履歴の作成と全itemの在庫予約を
// 1トランザクションで行う。どれか1件でも在庫不足なら全体をロールバックし、
// ACTIVEな予約は一切残らない（注文行も残らない）。
// 決済インテント作成はcommit後（外部HTTPをトランザクション内に入れない）。
// ゲートウェイ失敗時は注文はPENDINGのまま残り、予約はTTLまで生きる。
func (u *OrderUsecase) CreateOrder(ctx context.Context, in CreateOrderInput) (CreateOrderOutput, error) {
	if err := validateCreateOrder(in); err != nil {
		return CreateOrderOutput{}, err
	}

	var subtotal int64
	for _, it := range in.Items {
		subtotal += it.UnitPrice * it.Quantity
	}
	total := subtotal + in.Tax + in.ShippingFee - in.Discount
	if total < 0 {
		return CreateOrderOutput{}, NewError(KindValidation, "negative total")
	}

	var (
		created   model.Order
		outItems  []model.OrderItem
		shortages []StockShortage
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		now := u.clock.Now()

		order := model.Order{
			CustomerName:  strings.TrimSpace(in.Customer.Name),
			CustomerEmail: strings.TrimSpace(in.Customer.Email),
			CustomerPhone: strings.TrimSpace(in.Customer.Phone),
			Subtotal:      subtotal,
			Tax:           in.Tax,
			Shipping:      in.ShippingFee,
			Discount:      in.Discount,
			Total:         total,
			Status:        model.OrderStatusPending,
			VersionNumber: 1,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		//番号衝突はunique違反で検出して再生成
		order, err := u.createWithFreshNumber(ctx, r, order)
		if err != nil {
			return err
		}
		orderID := order.ID

		items, err := u.buildItemSnapshots(ctx, r, in.Items, now)
		if err != nil {
			return err
		}
		if err := r.OrderItems().CreateBulk(ctx, orderID, items); err != nil {
			return NewError(KindPersistence, "db error")
		}

		addresses := make([]model.OrderAddress, 0, len(in.Addresses))
		for _, a := range in.Addresses {
			addresses = append(addresses, model.OrderAddress{
				AddressType: a.Type,
				Recipient:   a.Recipient,
				Phone:       a.Phone,
				Line1:       a.Line1,
				Line2:       a.Line2,
				City:        a.City,
				PostalCode:  a.PostalCode,
				Country:     a.Country,
				CreatedAt:   now,
			})
		}
		if err := r.OrderAddresses().CreateBulk(ctx, orderID, addresses); err != nil {
			return NewError(KindPersistence, "db error")
		}

		if err := r.StatusHistory().Create(ctx, model.OrderStatusHistory{
			OrderID:   orderID,
			OldStatus: "",
			NewStatus: model.OrderStatusPending,
			Comment:   "order created",
			CreatedAt: now,
		}); err != nil {
			return NewError(KindPersistence, "db error")
		}

		//在庫予約。不足は全部集めてから返す（クライアントがカートを直せるように）。
		ownerRef := model.OrderOwnerRef(orderID)
		for _, it := range in.Items {
			res, err := u.inventory.ReserveInTx(ctx, r, ownerRef, ReserveRequest{
				ProductID: it.ProductID,
				VariantID: it.VariantID,
				Quantity:  it.Quantity,
			})
			if err != nil {
				return err
			}
			if !res.Success {
				shortages = append(shortages, StockShortage{
					ProductID: it.ProductID,
					VariantID: it.VariantID,
					Requested: it.Quantity,
					Available: res.Available,
				})
			}
		}
		if len(shortages) > 0 {
			//ロールバックで注文行も取れた予約も全部消える
			return &Error{
				Kind:      KindInsufficientStock,
				Message:   "insufficient stock",
				Shortages: shortages,
			}
		}

		created = order
		outItems = items
		return nil
	})
	if err != nil {
		return CreateOrderOutput{}, err
	}

	metrics.OrdersCreated.Inc()

	out := CreateOrderOutput{Order: toOrderOutput(created, outItems)}

	//決済インテントはトランザクションの外。失敗しても注文はPENDINGで残る。
	handle, err := u.payments.CreatePayment(ctx, created.ID, created.OrderNumber, total, in.Currency, in.PaymentMethod)
	if err != nil {
		u.logger.Error().Err(err).Str("order_number", created.OrderNumber).Msg("payment intent failed")
		return out, err
	}
	out.Payment = &handle

	//通知は送り捨て
	u.notifyAsyncSafe(ctx, created, "", model.OrderStatusPending, true)

	return out, nil
}

// CheckoutFromCart はカート参照から明細を引いてCreateOrderする入口。
func (u *OrderUsecase) CheckoutFromCart(ctx context.Context, cartRef string, customer CustomerInfo, addresses []AddressInput, paymentMethod, currency string, tax, shippingFee, discount int64) (CreateOrderOutput, error) {
	if strings.TrimSpace(cartRef) == "" {
		return CreateOrderOutput{}, NewError(KindValidation, "invalid cart ref")
	}

	checkoutItems, err := u.carts.GetCheckoutItems(ctx, cartRef)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return CreateOrderOutput{}, NewError(KindNotFound, "cart not found")
		}
		return CreateOrderOutput{}, NewError(KindPersistence, "db error")
	}
	if len(checkoutItems) == 0 {
		return CreateOrderOutput{}, NewError(KindValidation, "cart empty")
	}

	items := make([]OrderItemInput, 0, len(checkoutItems))
	for _, ci := range checkoutItems {
		items = append(items, OrderItemInput{
			ProductID: ci.ProductID,
			VariantID: ci.VariantID,
			Quantity:  ci.Quantity,
			UnitPrice: ci.UnitPrice,
		})
	}

	out, err := u.CreateOrder(ctx, CreateOrderInput{
		Customer:      customer,
		Items:         items,
		Addresses:     addresses,
		PaymentMethod: paymentMethod,
		Currency:      currency,
		Tax:           tax,
		ShippingFee:   shippingFee,
		Discount:      discount,
	})
	if err != nil {
		return CreateOrderOutput{}, err
	}

	//再注文防止。失敗してもロールバックしない（ログのみ）。
	if err := u.carts.MarkCheckedOut(ctx, cartRef); err != nil {
		u.logger.Warn().Err(err).Str("cart_ref", cartRef).Msg("mark cart checked out failed")
	}
	return out, nil
}

func validateCreateOrder(in CreateOrderInput) error {
	if len(in.Items) == 0 {
		return NewError(KindValidation, "no items")
	}
	seen := map[string]bool{}
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return NewError(KindValidation, "invalid quantity")
		}
		if it.UnitPrice < 0 {
			return NewError(KindValidation, "invalid unit price")
		}
		//1注文につき同一(product, variant)は1明細（予約の重複を作らない）
		key := fmt.Sprintf("%d", it.ProductID)
		if it.VariantID != nil {
			key = fmt.Sprintf("%d:%d", it.ProductID, *it.VariantID)
		}
		if seen[key] {
			return NewError(KindValidation, "duplicate line item")
		}
		seen[key] = true
	}
	if in.Tax < 0 || in.ShippingFee < 0 || in.Discount < 0 {
		return NewError(KindValidation, "invalid amounts")
	}
	if strings.TrimSpace(in.Customer.Name) == "" || strings.TrimSpace(in.Customer.Email) == "" {
		return NewError(KindValidation, "invalid customer")
	}
	types := map[model.AddressType]bool{}
	for _, a := range in.Addresses {
		if a.Type != model.AddressTypeShipping && a.Type != model.AddressTypeBilling {
			return NewError(KindValidation, "invalid address type")
		}
		if types[a.Type] {
			return NewError(KindValidation, "duplicate address type")
		}
		types[a.Type] = true
	}
	return nil
}

func (u *OrderUsecase) createWithFreshNumber(ctx context.Context, r repo.TxRepos, order model.Order) (model.Order, error) {
	for i := 0; i < orderNumberRetries; i++ {
		order.OrderNumber = GenerateOrderNumber(order.CreatedAt)
		orderID, err := r.Orders().Create(ctx, order)
		if err == nil {
			order.ID = orderID
			return order, nil
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			continue
		}
		return model.Order{}, NewError(KindPersistence, "db error")
	}
	return model.Order{}, NewError(KindPersistence, "order number collision")
}

func (u *OrderUsecase) buildItemSnapshots(ctx context.Context, r repo.TxRepos, inputs []OrderItemInput, now time.Time) ([]model.OrderItem, error) {
	items := make([]model.OrderItem, 0, len(inputs))
	for _, it := range inputs {
		p, err := r.Products().FindByID(ctx, it.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			return nil, NewError(KindValidation, fmt.Sprintf("unknown product %d", it.ProductID))
		}
		if err != nil {
			return nil, NewError(KindPersistence, "db error")
		}
		if !p.IsActive {
			return nil, NewError(KindValidation, fmt.Sprintf("inactive product %d", it.ProductID))
		}

		item := model.OrderItem{
			ProductID:           it.ProductID,
			VariantID:           it.VariantID,
			ProductNameSnapshot: p.Name,
			ProductSKUSnapshot:  p.SKU,
			UnitPriceSnapshot:   it.UnitPrice,
			Quantity:            it.Quantity,
			LineTotal:           it.UnitPrice * it.Quantity,
			CreatedAt:           now,
		}

		if it.VariantID != nil {
			v, err := r.Products().FindVariantByID(ctx, *it.VariantID)
			if errors.Is(err, repo.ErrNotFound) {
				return nil, NewError(KindValidation, fmt.Sprintf("unknown variant %d", *it.VariantID))
			}
			if err != nil {
				return nil, NewError(KindPersistence, "db error")
			}
			if v.ProductID != it.ProductID {
				return nil, NewError(KindValidation, fmt.Sprintf("variant %d does not belong to product %d", *it.VariantID, it.ProductID))
			}
			item.VariantNameSnapshot = v.Name
			item.ProductSKUSnapshot = v.SKU
		}

		items = append(items, item)
	}
	return items, nil
}

// ---- 状態遷移 ----

func (u *OrderUsecase) ConfirmOrder(ctx context.Context, orderID int64, note string, actor *int64) error {
	return u.transition(ctx, orderID, model.OrderStatusConfirmed, note, actor)
}

// ProcessOrder はCONFIRMEDからのみ（fulfillmentのピックアップ条件）。
func (u *OrderUsecase) ProcessOrder(ctx context.Context, orderID int64, note string, actor *int64) error {
	return u.transition(ctx, orderID, model.OrderStatusProcessing, note, actor)
}

func (u *OrderUsecase) ShipOrder(ctx context.Context, orderID int64, trackingRef string, actor *int64) error {
	note := ""
	if trackingRef != "" {
		note = "tracking: " + trackingRef
	}
	return u.transition(ctx, orderID, model.OrderStatusShipping, note, actor)
}

func (u *OrderUsecase) DeliverOrder(ctx context.Context, orderID int64, actor *int64) error {
	return u.transition(ctx, orderID, model.OrderStatusDelivered, "", actor)
}

// CancelOrder はPENDING/CONFIRMED/PROCESSINGからのみ。
// 残っているACTIVE予約を同じトランザクションで解放する。
func (u *OrderUsecase) CancelOrder(ctx context.Context, orderID int64, reason string, actor *int64) error {
	return u.transition(ctx, orderID, model.OrderStatusCancelled, reason, actor)
}

func (u *OrderUsecase) transition(ctx context.Context, orderID int64, to model.OrderStatus, comment string, actor *int64) error {
	if orderID <= 0 {
		return NewError(KindValidation, "invalid id")
	}

	var (
		updated model.Order
		from    model.OrderStatus
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewError(KindNotFound, "not found")
		}
		if err != nil {
			return NewError(KindPersistence, "db error")
		}

		if !model.CanTransition(o.Status, to) {
			return &Error{
				Kind:          KindInvalidStateTransition,
				Message:       fmt.Sprintf("cannot %s from %s", transitionVerb(to), o.Status),
				CurrentStatus: string(o.Status),
			}
		}

		now := u.clock.Now()
		ok, err := r.Orders().UpdateStatusVersioned(ctx, o.ID, o.VersionNumber, to, now)
		if err != nil {
			return NewError(KindPersistence, "db error")
		}
		if !ok {
			//読んだ後に誰かが先に更新した。呼び出し側が全体をやり直す。
			return NewError(KindConcurrentModification, "order modified concurrently")
		}

		if err := r.StatusHistory().Create(ctx, model.OrderStatusHistory{
			OrderID:     o.ID,
			OldStatus:   o.Status,
			NewStatus:   to,
			Comment:     comment,
			ActorUserID: actor,
			CreatedAt:   now,
		}); err != nil {
			return NewError(KindPersistence, "db error")
		}

		if to == model.OrderStatusCancelled {
			//committed/expired分はそのまま。残ったACTIVEだけ戻す。
			if _, err := u.inventory.ReleaseInTx(ctx, r, model.OrderOwnerRef(o.ID)); err != nil {
				return err
			}
		}

		from = o.Status
		updated = o
		updated.Status = to
		updated.VersionNumber = o.VersionNumber + 1
		return nil
	})
	if err != nil {
		return err
	}

	metrics.OrderTransitions.WithLabelValues(string(to)).Inc()
	u.notifyAsyncSafe(ctx, updated, from, to, false)
	return nil
}

func transitionVerb(to model.OrderStatus) string {
	switch to {
	case model.OrderStatusConfirmed:
		return "confirm"
	case model.OrderStatusProcessing:
		return "process"
	case model.OrderStatusShipping:
		return "ship"
	case model.OrderStatusDelivered:
		return "deliver"
	case model.OrderStatusCancelled:
		return "cancel"
	default:
		return "transition"
	}
}

// 通知失敗で業務処理を巻き戻さない
func (u *OrderUsecase) notifyAsyncSafe(ctx context.Context, order model.Order, from, to model.OrderStatus, isNew bool) {
	if isNew {
		if err := u.sink.NotifyNewOrder(ctx, order); err != nil {
			u.logger.Warn().Err(err).Str("order_number", order.OrderNumber).Msg("notify new order failed")
		}
	} else {
		if err := u.sink.NotifyOrderStatusChanged(ctx, order, from, to); err != nil {
			u.logger.Warn().Err(err).Str("order_number", order.OrderNumber).Msg("notify status change failed")
		}
	}
	if err := u.sink.NotifyCustomer(ctx, order, strings.ToLower(string(to))); err != nil {
		u.logger.Warn().Err(err).Str("order_number", order.OrderNumber).Msg("notify customer failed")
	}
}

// ---- 参照系 ----

func (u *OrderUsecase) GetOrder(ctx context.Context, orderID int64) (OrderOutput, error) {
	if orderID <= 0 {
		return OrderOutput{}, NewError(KindValidation, "invalid id")
	}
	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewError(KindNotFound, "not found")
		}
		if err != nil {
			return NewError(KindPersistence, "db error")
		}
		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return NewError(KindPersistence, "db error")
		}
		out = toOrderOutput(o, items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) GetOrderByNumber(ctx context.Context, orderNumber string) (OrderOutput, error) {
	if strings.TrimSpace(orderNumber) == "" {
		return OrderOutput{}, NewError(KindValidation, "invalid order number")
	}
	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByNumber(ctx, orderNumber)
		if errors.Is(err, repo.ErrNotFound) {
			return NewError(KindNotFound, "not found")
		}
		if err != nil {
			return NewError(KindPersistence, "db error")
		}
		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return NewError(KindPersistence, "db error")
		}
		out = toOrderOutput(o, items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

type StatusHistoryOutput struct {
	OldStatus   string    `json:"old_status"`
	NewStatus   string    `json:"new_status"`
	Comment     string    `json:"comment,omitempty"`
	ActorUserID *int64    `json:"actor_user_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (u *OrderUsecase) GetOrderHistory(ctx context.Context, orderID int64) ([]StatusHistoryOutput, error) {
	if orderID <= 0 {
		return nil, NewError(KindValidation, "invalid id")
	}
	var outs []StatusHistoryOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Orders().FindByID(ctx, orderID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewError(KindNotFound, "not found")
			}
			return NewError(KindPersistence, "db error")
		}
		entries, err := r.StatusHistory().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewError(KindPersistence, "db error")
		}
		outs = make([]StatusHistoryOutput, 0, len(entries))
		for _, e := range entries {
			outs = append(outs, StatusHistoryOutput{
				OldStatus:   string(e.OldStatus),
				NewStatus:   string(e.NewStatus),
				Comment:     e.Comment,
				ActorUserID: e.ActorUserID,
				CreatedAt:   e.CreatedAt,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outs, nil
}

func (u *OrderUsecase) ListOrders(ctx context.Context, f repo.OrderListFilter) ([]OrderOutput, int64, error) {
	if f.Page < 1 {
		return nil, 0, NewError(KindValidation, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return nil, 0, NewError(KindValidation, "invalid limit")
	}

	var (
		outs  []OrderOutput
		total int64
	)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, n, err := r.Orders().List(ctx, f)
		if err != nil {
			return NewError(KindPersistence, "db error")
		}
		total = n
		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewError(KindPersistence, "db error")
			}
			outs = append(outs, toOrderOutput(o, items))
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return outs, total, nil
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Name:      it.ProductNameSnapshot,
			SKU:       it.ProductSKUSnapshot,
			UnitPrice: it.UnitPriceSnapshot,
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal,
		})
	}

	return OrderOutput{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		Status:      string(o.Status),
		Subtotal:    o.Subtotal,
		Tax:         o.Tax,
		Shipping:    o.Shipping,
		Discount:    o.Discount,
		Total:       o.Total,
		CreatedAt:   o.CreatedAt,
		Items:       outItems,
	}
}
