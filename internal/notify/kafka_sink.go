package notify

import (
	"context"
	"time"

	"app/internal/domain/model"
	kafkax "app/internal/infra/kafka"

	"github.com/google/uuid"
)

type KafkaSink struct {
	producer    *kafkax.Producer
	serviceName string
}

func NewKafkaSink(producer *kafkax.Producer, serviceName string) *KafkaSink {
	return &KafkaSink{producer: producer, serviceName: serviceName}
}

func (s *KafkaSink) NotifyNewOrder(ctx context.Context, order model.Order) error {
	return s.publish(ctx, TopicOrderEvents, order.OrderNumber, EventOrderCreated, OrderCreatedPayload{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Total:       order.Total,
		Status:      string(order.Status),
	})
}

func (s *KafkaSink) NotifyOrderStatusChanged(ctx context.Context, order model.Order, oldStatus, newStatus model.OrderStatus) error {
	return s.publish(ctx, TopicOrderEvents, order.OrderNumber, EventOrderStatusChanged, OrderStatusChangedPayload{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		OldStatus:   string(oldStatus),
		NewStatus:   string(newStatus),
	})
}

func (s *KafkaSink) NotifyCustomer(ctx context.Context, order model.Order, statusLabel string) error {
	return s.publish(ctx, TopicCustomerNotifications, order.OrderNumber, EventCustomerNotified, CustomerNotificationPayload{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerEmail: order.CustomerEmail,
		StatusLabel:   statusLabel,
	})
}

func (s *KafkaSink) publish(ctx context.Context, topic, orderNumber, eventType string, payload any) error {
	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.serviceName,
		CorrelationID: orderNumber,
		Payload:       kafkax.MustMarshal(payload),
	}
	return s.producer.Publish(ctx, topic, []byte(orderNumber), kafkax.MustMarshal(env))
}
