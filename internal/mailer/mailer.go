// Package mailer composes and sends reservation emails over SMTP. Without
// SMTP configuration it runs in log-only mode, which is what local
// development and tests use.
package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/campuslabs/roomreserve/internal/notifier"
	"github.com/rs/zerolog"
)

type Mailer struct {
	host string
	port string
	user string
	pass string
	from string
	log  zerolog.Logger
}

func New(host, port, user, pass, from string, log zerolog.Logger) *Mailer {
	if from == "" {
		from = "RoomReserve <no-reply@roomreserve.local>"
	}
	return &Mailer{host: host, port: port, user: user, pass: pass, from: from, log: log}
}

// Send composes the email for the message kind and dispatches it.
func (m *Mailer) Send(msg notifier.Message) error {
	var subject, intro string
	switch msg.Kind {
	case notifier.KindConfirmation:
		subject = "Room reserved!"
		intro = "Room reserved! Please make sure to be in the room within 15 minutes of your scheduled time slot."
	case notifier.KindReminder:
		subject = "Reminder: Please confirm check-in"
		intro = "Please confirm your check-in for your reserved room within 15 minutes of your time slot."
	default:
		return fmt.Errorf("unknown notification kind %q", msg.Kind)
	}

	body := intro + "\n\n[ROOM DETAILS]\n" + formatDetails(msg)

	if m.host == "" {
		m.log.Info().
			Str("to", msg.Email).
			Str("subject", subject).
			Msg("log-only mode, would send email")
		return nil
	}

	raw := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		m.from, msg.Email, subject, body)

	addr := m.host + ":" + m.port
	auth := smtp.PlainAuth("", m.user, m.pass, m.host)
	if err := smtp.SendMail(addr, auth, m.user, []string{msg.Email}, []byte(raw)); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

func formatDetails(msg notifier.Message) string {
	lines := []string{
		fmt.Sprintf("Room: %s", msg.RoomName),
		fmt.Sprintf("Building/Floor: %s, Floor %d", msg.Building, msg.Floor),
		fmt.Sprintf("Date: %s", msg.Date),
		fmt.Sprintf("Time: %s - %s", msg.StartTime, msg.EndTime),
	}
	if msg.Purpose != "" {
		lines = append(lines, fmt.Sprintf("Purpose: %s", msg.Purpose))
	}
	return strings.Join(lines, "\n")
}
