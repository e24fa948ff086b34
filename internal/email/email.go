// Package email turns notifications relayed over Kafka into user e-mails.
package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/Domenick1991/airdash/internal/domain"
	"github.com/Domenick1991/airdash/internal/notify"
)

var ErrNoRecipient = errors.New("notification has no recipient")

// Directory resolves a user id to an address.
type Directory interface {
	Address(ctx context.Context, userID int64) (string, error)
}

type Mail struct {
	To      string
	Subject string
	Body    string
}

// Sender writes composed mail to its log; it has no SMTP transport.
type Sender struct {
	directory Directory
	logger    logrus.FieldLogger
}

func NewSender(directory Directory, logger logrus.FieldLogger) *Sender {
	return &Sender{directory: directory, logger: logger.WithField("component", "email")}
}

func (s *Sender) Compose(ctx context.Context, n notify.Relayed) (Mail, error) {
	if n.UserID == 0 {
		return Mail{}, ErrNoRecipient
	}
	to, err := s.directory.Address(ctx, n.UserID)
	if err != nil {
		return Mail{}, fmt.Errorf("resolve user %d: %w", n.UserID, err)
	}

	subject := n.Title
	if n.Level == notify.LevelError || n.Level == notify.LevelWarning {
		subject = "[" + strings.ToUpper(string(n.Level)) + "] " + subject
	}
	body := n.Body
	if body == "" {
		body = n.Title
	}
	return Mail{
		To:      to,
		Subject: subject,
		Body:    fmt.Sprintf("%s\n\n%s", body, n.At.Format("02.01.2006 15:04")),
	}, nil
}

func (s *Sender) Send(ctx context.Context, n notify.Relayed) error {
	mail, err := s.Compose(ctx, n)
	if err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"to":              mail.To,
		"subject":         mail.Subject,
		"notification_id": n.ID,
	}).Info("email sent")
	return nil
}

// Handle is a kafka.Consumer handler. Records that cannot be decoded or
// have no recipient are skipped so one bad record does not stop the relay.
func (s *Sender) Handle(ctx context.Context, msg kafkaGo.Message) error {
	var n notify.Relayed
	if err := json.Unmarshal(msg.Value, &n); err != nil {
		s.logger.WithError(err).WithField("offset", msg.Offset).Warn("decode notification")
		return nil
	}
	if err := s.Send(ctx, n); err != nil {
		if errors.Is(err, ErrNoRecipient) {
			s.logger.WithField("notification_id", n.ID).Debug("notification without recipient skipped")
			return nil
		}
		return err
	}
	return nil
}

type UserGetter interface {
	GetUser(ctx context.Context, id int64) (domain.User, error)
}

// UserDirectory looks addresses up through the users API. It needs an
// administrator session.
type UserDirectory struct {
	users UserGetter
}

func NewUserDirectory(users UserGetter) UserDirectory {
	return UserDirectory{users: users}
}

func (d UserDirectory) Address(ctx context.Context, userID int64) (string, error) {
	u, err := d.users.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if u.Email == "" {
		return "", ErrNoRecipient
	}
	return u.Email, nil
}
