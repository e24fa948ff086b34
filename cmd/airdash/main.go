package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/Domenick1991/airdash/api"
	"github.com/Domenick1991/airdash/config"
	"github.com/Domenick1991/airdash/internal/apiclient"
	"github.com/Domenick1991/airdash/internal/bootstrap"
	"github.com/Domenick1991/airdash/internal/cache"
	"github.com/Domenick1991/airdash/internal/dashboard"
	"github.com/Domenick1991/airdash/internal/kafka"
	"github.com/Domenick1991/airdash/internal/logger"
	"github.com/Domenick1991/airdash/internal/metrics"
	"github.com/Domenick1991/airdash/internal/notify"
	"github.com/Domenick1991/airdash/internal/realtime"
	"github.com/Domenick1991/airdash/internal/service/booking"
	"github.com/Domenick1991/airdash/internal/service/flights"
	"github.com/Domenick1991/airdash/internal/service/ratings"
	"github.com/Domenick1991/airdash/internal/service/users"
	"github.com/Domenick1991/airdash/internal/session"
	"github.com/Domenick1991/airdash/internal/tui"
	"github.com/Domenick1991/airdash/internal/view"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	email      string
	password   string
	noTUI      bool
	httpAddr   string
}

func run() error {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.httpAddr != "" {
		cfg.HTTP.Enabled = true
		cfg.HTTP.Address = opts.httpAddr
	}

	var logOutput io.Writer = os.Stderr
	if !opts.noTUI {
		path := cfg.Log.File
		if path == "" {
			path = "airdash.log"
		}
		f, err := logger.OpenFile(path)
		if err != nil {
			return err
		}
		defer f.Close()
		logOutput = f
	} else if cfg.Log.File != "" {
		f, err := logger.OpenFile(cfg.Log.File)
		if err != nil {
			return err
		}
		defer f.Close()
		logOutput = f
	}
	log := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: logOutput})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	sess := session.NewManager(store, log)
	client := apiclient.New(apiclient.Config{
		ServerURL: cfg.API.ServerURL,
		FlightURL: cfg.API.FlightURL,
		Timeout:   cfg.API.Timeout(),
	}, sess, log)

	var producer *kafka.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, log)
		defer producer.Close()
	}

	sinks := []notify.Sink{notify.NewLogSink(log)}
	if producer != nil && cfg.Notifications.KafkaTopic != "" {
		sinks = append(sinks, notify.NewKafkaSink(producer, cfg.Notifications.KafkaTopic, func() int64 {
			if u := sess.Get().User; u != nil {
				return u.ID
			}
			return 0
		}))
	}
	hub := notify.NewHub(log, sinks...)

	transport, err := realtimeTransport(ctx, cfg, sess, producer, log)
	if err != nil {
		return err
	}

	m := metrics.New()
	app := dashboard.New(dashboard.Deps{
		Session:  sess,
		Client:   client,
		Flights:  flights.NewFlightService(client, hub, log),
		Booking:  booking.NewBookingService(client, sess, hub, log),
		Users:    users.NewUserService(client, sess, hub, log),
		Ratings:  ratings.NewRatingService(client, hub),
		Notifier: hub,
		Views: view.Options{
			Transport:     transport,
			Notifier:      hub,
			Recorder:      m,
			Logger:        log,
			PollInterval:  cfg.Reconcile.Interval(),
			MaxReconnects: cfg.Realtime.MaxReconnectAttempts,
			DiscardStale:  cfg.Realtime.DiscardStaleEvents,
		},
		Logger: log,
	})
	defer app.Close()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("start dashboard: %w", err)
	}
	if opts.email != "" {
		if _, err := app.Login(ctx, opts.email, opts.password); err != nil {
			return fmt.Errorf("login: %s", apiclient.Message(err, err.Error()))
		}
	}

	httpErr := make(chan error, 1)
	if cfg.HTTP.Enabled {
		router := api.NewRouter(api.RouterDeps{
			Pages:         app,
			Flights:       app,
			Accounts:      app,
			Notifications: hub,
			Metrics:       m.Handler(),
			Logger:        log,
		})
		go func() { httpErr <- bootstrap.Run(ctx, cfg.HTTP.Address, router, log) }()
	}

	if opts.noTUI {
		log.Info("dashboard running without terminal UI")
		select {
		case <-ctx.Done():
			return nil
		case err := <-httpErr:
			return err
		}
	}

	if !app.Session().Authenticated() {
		return errors.New("not signed in: pass --email and --password")
	}
	model, release := tui.NewModel(app, hub)
	defer release()
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("terminal ui: %w", err)
	}
	return nil
}

func parseFlags(args []string) (options, error) {
	var opts options
	flagSet := pflag.NewFlagSet("airdash", pflag.ContinueOnError)
	flagSet.StringVar(&opts.configPath, "config", os.Getenv("CONFIG_PATH"), "path to config.yaml (env CONFIG_PATH)")
	flagSet.StringVar(&opts.email, "email", "", "sign in with this email")
	flagSet.StringVar(&opts.password, "password", os.Getenv("AIRDASH_PASSWORD"), "password for --email (env AIRDASH_PASSWORD)")
	flagSet.BoolVar(&opts.noTUI, "no-tui", false, "run headless; combine with --http")
	flagSet.StringVar(&opts.httpAddr, "http", "", "serve the local HTTP surface on this address")
	help := flagSet.BoolP("help", "h", false, "show this help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
		}
		return opts, err
	}
	if *help {
		printHelp(flagSet)
		return opts, pflag.ErrHelp
	}
	return opts, nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, "airdash: real-time airline ticketing dashboard\n\nUsage:\n  airdash [flags]\n\nFlags:\n")
	flagSet.PrintDefaults()
}

// loadConfig reads path, falling back to config.yaml and then to built-in
// defaults when no file exists.
func loadConfig(path string) (*config.Config, error) {
	explicit := path != ""
	if !explicit {
		path = "config.yaml"
	}
	cfg, err := config.LoadConfig(path)
	if err == nil {
		return cfg, nil
	}
	if !explicit && errors.Is(err, os.ErrNotExist) {
		cfg = config.Default()
		return cfg, cfg.Validate()
	}
	return nil, fmt.Errorf("load config: %w", err)
}

func sessionStore(ctx context.Context, cfg *config.Config) (session.Store, error) {
	switch cfg.Session.Store {
	case config.SessionStoreRedis:
		store := cache.NewRedisSessionStore(cfg.Redis, cfg.Session.Profile, cfg.Session.TTL())
		if err := store.Ping(ctx); err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return store, nil
	case config.SessionStoreMemory:
		return session.NewMemoryStore(), nil
	default:
		return session.NewFileStore(cfg.Session.Path), nil
	}
}

func realtimeTransport(ctx context.Context, cfg *config.Config, sess *session.Manager, producer *kafka.Producer, log logrus.FieldLogger) (realtime.Transport, error) {
	if cfg.Realtime.Transport != config.TransportKafka {
		return realtime.NewSocketIOTransport(cfg.Realtime.URL, sess.Token, log), nil
	}
	if err := producer.CheckConnection(ctx); err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}
	return realtime.NewKafkaTransport(cfg.Kafka.Brokers, cfg.Kafka.TopicPrefix, producer, log), nil
}
