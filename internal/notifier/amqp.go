package notifier

import (
	"context"

	"github.com/campuslabs/roomreserve/internal/models"
	"github.com/campuslabs/roomreserve/pkg/rabbitmq"
)

const (
	RoutingKeyConfirmed = "reservation.confirmed"
	RoutingKeyReminder  = "reservation.reminder"
)

// AMQPNotifier publishes notification messages to the notifications exchange.
// The mail worker consumes them and turns them into emails.
type AMQPNotifier struct {
	publisher *rabbitmq.Publisher
}

func NewAMQPNotifier(publisher *rabbitmq.Publisher) *AMQPNotifier {
	return &AMQPNotifier{publisher: publisher}
}

func (n *AMQPNotifier) SendConfirmation(ctx context.Context, r *models.Reservation) error {
	return n.publisher.Publish(ctx, RoutingKeyConfirmed, NewMessage(KindConfirmation, r))
}

func (n *AMQPNotifier) SendReminder(ctx context.Context, r *models.Reservation) error {
	return n.publisher.Publish(ctx, RoutingKeyReminder, NewMessage(KindReminder, r))
}
