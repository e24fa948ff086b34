package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/Domenick1991/airdash/config"
	"github.com/Domenick1991/airdash/internal/apiclient"
	"github.com/Domenick1991/airdash/internal/domain"
	"github.com/Domenick1991/airdash/internal/email"
	"github.com/Domenick1991/airdash/internal/kafka"
	"github.com/Domenick1991/airdash/internal/logger"
	"github.com/Domenick1991/airdash/internal/session"
)

const groupID = "airdash-notifier"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run relays dashboard notifications from Kafka to e-mail. It signs in
// with an administrator account to resolve user addresses.
func run() error {
	flagSet := pflag.NewFlagSet("airdash-notifier", pflag.ContinueOnError)
	configPath := flagSet.String("config", os.Getenv("CONFIG_PATH"), "path to config.yaml (env CONFIG_PATH)")
	adminEmail := flagSet.String("email", os.Getenv("AIRDASH_ADMIN_EMAIL"), "administrator email (env AIRDASH_ADMIN_EMAIL)")
	adminPassword := flagSet.String("password", os.Getenv("AIRDASH_ADMIN_PASSWORD"), "administrator password (env AIRDASH_ADMIN_PASSWORD)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	path := *configPath
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return err
	}
	if cfg.Notifications.KafkaTopic == "" || len(cfg.Kafka.Brokers) == 0 {
		return errors.New("notifications.kafka_topic and kafka.brokers are required")
	}

	log := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess := session.NewManager(session.NewMemoryStore(), log)
	client := apiclient.New(apiclient.Config{
		ServerURL: cfg.API.ServerURL,
		FlightURL: cfg.API.FlightURL,
		Timeout:   cfg.API.Timeout(),
	}, sess, log)
	s, err := client.Login(ctx, domain.LoginCredentials{Email: *adminEmail, Password: *adminPassword})
	if err != nil {
		return fmt.Errorf("login: %s", apiclient.Message(err, err.Error()))
	}
	if s.User == nil || !s.User.Role.IsAdministrator() {
		return errors.New("notifier account must be an administrator")
	}

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, groupID, cfg.Notifications.KafkaTopic)
	defer consumer.Close()

	sender := email.NewSender(email.NewUserDirectory(client), log)
	log.WithField("topic", cfg.Notifications.KafkaTopic).Info("notifier started")
	if err := consumer.Consume(ctx, sender.Handle); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("consume notifications: %w", err)
	}
	log.Info("notifier stopped")
	return nil
}
