package notify

import (
	"context"

	"app/internal/domain/model"

	"github.com/rs/zerolog"
)

// kafkaなし環境（ローカル・テスト）向け
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) NotifyNewOrder(ctx context.Context, order model.Order) error {
	s.logger.Info().
		Str("order_number", order.OrderNumber).
		Int64("total", order.Total).
		Msg("new order")
	return nil
}

func (s *LogSink) NotifyOrderStatusChanged(ctx context.Context, order model.Order, oldStatus, newStatus model.OrderStatus) error {
	s.logger.Info().
		Str("order_number", order.OrderNumber).
		Str("old_status", string(oldStatus)).
		Str("new_status", string(newStatus)).
		Msg("order status changed")
	return nil
}

func (s *LogSink) NotifyCustomer(ctx context.Context, order model.Order, statusLabel string) error {
	s.logger.Info().
		Str("order_number", order.OrderNumber).
		Str("email", order.CustomerEmail).
		Str("status_label", statusLabel).
		Msg("customer notification")
	return nil
}
