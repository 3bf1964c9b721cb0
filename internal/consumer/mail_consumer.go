package consumer

import (
	"encoding/json"

	"github.com/campuslabs/roomreserve/internal/mailer"
	"github.com/campuslabs/roomreserve/internal/notifier"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// MailConsumer drains the notification queue and turns messages into emails.
type MailConsumer struct {
	mailer *mailer.Mailer
	log    zerolog.Logger
}

func NewMailConsumer(m *mailer.Mailer, log zerolog.Logger) *MailConsumer {
	return &MailConsumer{mailer: m, log: log}
}

func (mc *MailConsumer) Start(msgs <-chan amqp.Delivery) {
	go func() {
		for msg := range msgs {
			mc.handleMessage(msg)
		}
		mc.log.Info().Msg("notification channel closed, stopping mail consumer")
	}()
}

func (mc *MailConsumer) handleMessage(msg amqp.Delivery) {
	var notification notifier.Message
	if err := json.Unmarshal(msg.Body, &notification); err != nil {
		mc.log.Warn().Err(err).Msg("failed to unmarshal notification")
		msg.Nack(false, false)
		return
	}

	if err := mc.mailer.Send(notification); err != nil {
		// Mail delivery is best-effort: log and drop rather than requeue a
		// message that will likely fail again.
		mc.log.Warn().
			Err(err).
			Str("reservation_id", notification.ReservationID).
			Str("kind", notification.Kind).
			Msg("failed to send notification email")
		msg.Nack(false, false)
		return
	}

	mc.log.Info().
		Str("reservation_id", notification.ReservationID).
		Str("kind", notification.Kind).
		Str("to", notification.Email).
		Msg("notification email sent")
	msg.Ack(false)
}
