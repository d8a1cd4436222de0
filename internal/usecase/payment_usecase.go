package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"app/internal/domain/model"
	"app/internal/infra/gateway"
	"app/internal/infra/redisx"
	"app/internal/metrics"
	"app/internal/notify"
	repo "app/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// 外部ゲートウェイ呼び出し（テストで差し替える）
type GatewayClient interface {
	CreateIntent(ctx context.Context, requestID, orderNumber string, amount int64, currency, method string) (gateway.IntentResponse, error)
}

// 決済インテント作成と、ゲートウェイ通知（IPN）の突き合わせ。
// 1つのPaymentRequestIDに対する適用は行ロックで直列化し、2重配送は何もしない。
type PaymentUsecase struct {
	tx            repo.TransactionManager
	gateway       GatewayClient
	inventory     InventoryService
	sink          notify.Sink
	clock         Clock
	idGen         IDGenerator
	gatewaySecret string
	rdb           *redis.Client // nil可（dedup fast-pathなしで動く）
	logger        zerolog.Logger
}

func NewPaymentUsecase(
	tx repo.TransactionManager,
	gw GatewayClient,
	inventory InventoryService,
	sink notify.Sink,
	clock Clock,
	idGen IDGenerator,
	gatewaySecret string,
	rdb *redis.Client,
	logger zerolog.Logger,
) *PaymentUsecase {
	return &PaymentUsecase{
		tx:            tx,
		gateway:       gw,
		inventory:     inventory,
		sink:          sink,
		clock:         clock,
		idGen:         idGen,
		gatewaySecret: gatewaySecret,
		rdb:           rdb,
		logger:        logger,
	}
}

// CreatePayment はPaymentRequestID（冪等キー）を発行し、PENDINGの支払い行を
// 作ってからインテントを作る。試行ごとに行が増える（上書きしない）。
// 行が先にあるので、ゲートウェイ側でインテントが成立した直後にプロセスが
// 死んでも、後から来るコールバックの突き合わせ先は必ず存在する。
func (p *PaymentUsecase) CreatePayment(ctx context.Context, orderID int64, orderNumber string, amount int64, currency string, method string) (PaymentHandle, error) {
	if orderID <= 0 || amount <= 0 {
		return PaymentHandle{}, NewError(KindValidation, "invalid payment input")
	}
	if currency == "" {
		currency = "USD"
	}
	if method == "" {
		method = "gateway"
	}

	requestID := p.idGen.NewID()

	var paymentID int64
	err := p.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		id, err := r.Payments().Create(ctx, model.OrderPayment{
			OrderID:          orderID,
			PaymentRequestID: requestID,
			Method:           method,
			Amount:           amount,
			Currency:         currency,
			Status:           model.PaymentStatusPending,
			CreatedAt:        p.clock.Now(),
		})
		if err != nil {
			return NewError(KindPersistence, "db error")
		}
		paymentID = id
		return nil
	})
	if err != nil {
		return PaymentHandle{}, err
	}

	resp, err := p.gateway.CreateIntent(ctx, requestID, orderNumber, amount, currency, method)
	if err != nil {
		if errors.Is(err, gateway.ErrTimeout) {
			// タイムアウトはインテントが成立している可能性がある。
			// 行はPENDINGのままにして、届けばコールバックを適用する。
			return PaymentHandle{}, NewError(KindGatewayTimeout, "payment gateway timeout")
		}
		// 明確な失敗（接続不可・拒否）はこの試行をFAILEDで締める
		p.markAttemptFailed(ctx, paymentID)
		return PaymentHandle{}, NewError(KindGatewayTimeout, "payment gateway unavailable")
	}

	err = p.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.Payments().SetCheckoutURLs(ctx, paymentID, resp.CheckoutURL, resp.QRCodeURL); err != nil {
			return NewError(KindPersistence, "db error")
		}
		return nil
	})
	if err != nil {
		return PaymentHandle{}, err
	}

	return PaymentHandle{
		PaymentRequestID: requestID,
		CheckoutURL:      resp.CheckoutURL,
		QRCodeURL:        resp.QRCodeURL,
	}, nil
}

func (p *PaymentUsecase) markAttemptFailed(ctx context.Context, paymentID int64) {
	err := p.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		return r.Payments().MarkFailed(ctx, paymentID, "", p.clock.Now())
	})
	if err != nil {
		p.logger.Warn().Err(err).Int64("payment_id", paymentID).Msg("mark payment attempt failed")
	}
}

// HandleCallback はゲートウェイ通知を正確に1回だけ適用する。
//  1. 署名検証（不正なら何も触らない）
//  2. redisで既知の配送なら即no-op（fast-path。正しさはDB行ロックが担保）
//  3. PaymentRequestID行をFOR UPDATEで取得し、PENDING以外なら重複としてno-op
//  4. 成功コード→PAID＋注文をCONFIRMEDへ＋予約commit。
//     失敗コード→FAILEDのみ。在庫はTTL失効か明示キャンセルに任せる
//     （顧客が期限内に再試行するかもしれないので自動解放しない）。
func (p *PaymentUsecase) HandleCallback(ctx context.Context, payload gateway.CallbackPayload) error {
	if strings.TrimSpace(payload.RequestID) == "" {
		return NewError(KindValidation, "missing request id")
	}

	if !payload.VerifyWith(p.gatewaySecret) {
		metrics.PaymentCallbacks.WithLabelValues("invalid_signature").Inc()
		//セキュリティイベントとして記録
		p.logger.Warn().
			Str("request_id", payload.RequestID).
			Str("trans_id", payload.TransactionID).
			Msg("callback signature invalid")
		return NewError(KindSignatureInvalid, "invalid signature")
	}

	dedupKey := fmt.Sprintf(redisx.KeyCallbackDedup, payload.RequestID, payload.TransactionID)
	if p.rdb != nil {
		//redisが落ちていてもDB側のチェックで正しく弾ける
		if n, err := p.rdb.Exists(ctx, dedupKey).Result(); err == nil && n > 0 {
			metrics.PaymentCallbacks.WithLabelValues("duplicate").Inc()
			p.logger.Info().Str("request_id", payload.RequestID).Msg("duplicate callback (cache)")
			return nil
		}
	}

	var (
		applied      bool
		paid         bool
		notifyOrder  model.Order
		notifyFrom   model.OrderStatus
		shouldNotify bool
	)

	err := p.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//2重配送の直列化はこの行ロック
		pay, err := r.Payments().FindByRequestIDForUpdate(ctx, payload.RequestID)
		if errors.Is(err, repo.ErrNotFound) {
			metrics.PaymentCallbacks.WithLabelValues("unknown_ref").Inc()
			p.logger.Warn().Str("request_id", payload.RequestID).Msg("callback for unknown payment")
			return NewError(KindNotFound, "unknown payment request")
		}
		if err != nil {
			return NewError(KindPersistence, "db error")
		}

		if pay.Status != model.PaymentStatusPending {
			//既に適用済み。重複配送はno-opで成功扱い。
			metrics.PaymentCallbacks.WithLabelValues("duplicate").Inc()
			p.logger.Info().
				Str("request_id", payload.RequestID).
				Str("status", string(pay.Status)).
				Msg("duplicate callback")
			return nil
		}

		if payload.Amount != pay.Amount {
			p.logger.Warn().
				Str("request_id", payload.RequestID).
				Int64("expected", pay.Amount).
				Int64("got", payload.Amount).
				Msg("callback amount mismatch")
			return NewError(KindValidation, "amount mismatch")
		}

		now := p.clock.Now()

		if payload.ResultCode != gateway.ResultCodeSuccess {
			if err := r.Payments().MarkFailed(ctx, pay.ID, payload.TransactionID, now); err != nil {
				return NewError(KindPersistence, "db error")
			}
			applied = true
			return nil
		}

		if err := r.Payments().MarkPaid(ctx, pay.ID, payload.TransactionID, now); err != nil {
			return NewError(KindPersistence, "db error")
		}

		//注文をCONFIRMEDへ。既にキャンセル等で遷移できない場合は支払い記録だけ残す。
		o, err := r.Orders().FindByID(ctx, pay.OrderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewError(KindPersistence, "payment without order")
		}
		if err != nil {
			return NewError(KindPersistence, "db error")
		}

		if model.CanTransition(o.Status, model.OrderStatusConfirmed) {
			ok, err := r.Orders().UpdateStatusVersioned(ctx, o.ID, o.VersionNumber, model.OrderStatusConfirmed, now)
			if err != nil {
				return NewError(KindPersistence, "db error")
			}
			if !ok {
				return NewError(KindConcurrentModification, "order modified concurrently")
			}
			if err := r.StatusHistory().Create(ctx, model.OrderStatusHistory{
				OrderID:   o.ID,
				OldStatus: o.Status,
				NewStatus: model.OrderStatusConfirmed,
				Comment:   "payment confirmed: " + payload.TransactionID,
				CreatedAt: now,
			}); err != nil {
				return NewError(KindPersistence, "db error")
			}
			notifyOrder = o
			notifyOrder.Status = model.OrderStatusConfirmed
			notifyFrom = o.Status
			shouldNotify = true
		} else {
			p.logger.Warn().
				Int64("order_id", o.ID).
				Str("status", string(o.Status)).
				Msg("paid callback for non-confirmable order")
		}

		//支払い確定＝予約を消費
		if _, err := p.inventory.CommitInTx(ctx, r, model.OrderOwnerRef(pay.OrderID)); err != nil {
			return err
		}

		applied = true
		paid = true
		return nil
	})
	if err != nil {
		return err
	}

	if applied {
		if paid {
			metrics.PaymentCallbacks.WithLabelValues("applied_paid").Inc()
		} else {
			metrics.PaymentCallbacks.WithLabelValues("applied_failed").Inc()
		}
		//適用できた後だけマークする（失敗時にリトライを塞がない）
		if p.rdb != nil {
			if err := p.rdb.Set(ctx, dedupKey, "1", redisx.TTLCallbackDedup).Err(); err != nil {
				p.logger.Warn().Err(err).Msg("callback dedup cache set failed")
			}
		}
	}

	if shouldNotify {
		if err := p.sink.NotifyOrderStatusChanged(ctx, notifyOrder, notifyFrom, notifyOrder.Status); err != nil {
			p.logger.Warn().Err(err).Str("order_number", notifyOrder.OrderNumber).Msg("notify status change failed")
		}
		if err := p.sink.NotifyCustomer(ctx, notifyOrder, "confirmed"); err != nil {
			p.logger.Warn().Err(err).Str("order_number", notifyOrder.OrderNumber).Msg("notify customer failed")
		}
	}
	return nil
}

// GetPaymentByRequestID はチェックアウト後のポーリング用。行ロックなしで読む。
func (p *PaymentUsecase) GetPaymentByRequestID(ctx context.Context, requestID string) (model.OrderPayment, error) {
	if strings.TrimSpace(requestID) == "" {
		return model.OrderPayment{}, NewError(KindValidation, "invalid request id")
	}
	var out model.OrderPayment
	err := p.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		pay, err := r.Payments().FindByRequestID(ctx, requestID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewError(KindNotFound, "not found")
		}
		if err != nil {
			return NewError(KindPersistence, "db error")
		}
		out = pay
		return nil
	})
	if err != nil {
		return model.OrderPayment{}, err
	}
	return out, nil
}

// GetPayments は注文の支払い試行履歴（試行ごとに1行）。
func (p *PaymentUsecase) GetPayments(ctx context.Context, orderID int64) ([]model.OrderPayment, error) {
	if orderID <= 0 {
		return nil, NewError(KindValidation, "invalid id")
	}
	var out []model.OrderPayment
	err := p.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		payments, err := r.Payments().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewError(KindPersistence, "db error")
		}
		out = payments
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
