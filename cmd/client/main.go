package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"rpsboard/internal/bus"
	"rpsboard/internal/config"
	"rpsboard/internal/event"
	"rpsboard/internal/handlers"
	"rpsboard/internal/metrics"
	"rpsboard/internal/round"
	"rpsboard/internal/session"
	"rpsboard/internal/transport"
	"rpsboard/pkg/realtime"
)

func main() {
	app := &cli.App{
		Name:  "rpsboard",
		Usage: "rock paper scissors client with a live scoreboard",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "rpsboard.yaml", Usage: "path to the YAML config file"},
			&cli.StringFlag{Name: "env-file", Value: ".env", Usage: "path to an optional .env file"},
			&cli.StringFlag{Name: "server", Usage: "game server websocket URL"},
			&cli.StringFlag{Name: "transport", Usage: "websocket or nats"},
			&cli.StringFlag{Name: "listen", Usage: "address of the local UI"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
			&cli.BoolFlag{Name: "extended", Usage: "offer lizard and spock"},
			&cli.BoolFlag{Name: "cooldown", Usage: "forbid repeating the previous choice"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		slog.Error("client stopped", "error", err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (config.Config, error) {
	if err := config.LoadDotEnv(c.String("env-file")); err != nil {
		return config.Config{}, fmt.Errorf("load env file: %w", err)
	}
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return config.Config{}, err
	}
	if c.IsSet("server") {
		cfg.Server.URL = c.String("server")
	}
	if c.IsSet("transport") {
		cfg.Server.Transport = c.String("transport")
	}
	if c.IsSet("listen") {
		cfg.HTTP.ListenAddr = c.String("listen")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("extended") {
		cfg.Game.ExtendedOptions = c.Bool("extended")
	}
	if c.IsSet("cooldown") {
		cfg.Game.Cooldown = c.Bool("cooldown")
	}
	return cfg, cfg.Validate()
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	level, _ := config.ParseLevel(cfg.Log.Level)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	pubsub := bus.New(logger.With("component", "bus"))
	defer pubsub.Close()

	link, err := dialTransport(logger, cfg, pubsub)
	if err != nil {
		return err
	}
	defer link.Close()

	view := session.NewView(realtime.NewBroadcaster(0), cfg.Game.NoticeLimit)
	sess := session.New(session.Config{
		Logger:  logger.With("component", "session"),
		Sender:  link,
		Names:   event.NewDirectory(),
		View:    view,
		Metrics: m,
		Options: round.Options{Extended: cfg.Game.ExtendedOptions, Cooldown: cfg.Game.Cooldown},
	})
	loop := realtime.NewLoop(0)
	consumer := session.NewConsumer(logger.With("component", "consumer"), pubsub, loop, sess)
	if err := consumer.Subscribe(ctx); err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	handlers.NewClientHandler(logger.With("component", "http"), loop, sess, link).RegisterRoutes(r)

	server := &http.Server{
		Addr:              cfg.HTTP.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ignoreCanceled(loop.Run(ctx)) })
	g.Go(func() error { return ignoreCanceled(consumer.Run(ctx)) })
	g.Go(func() error { return link.Run(ctx) })
	g.Go(func() error {
		logger.Info("listening", "url", "http://"+displayAddr(cfg.HTTP.ListenAddr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("client stopped")
	return err
}

func dialTransport(logger *slog.Logger, cfg config.Config, pub message.Publisher) (transport.Transport, error) {
	switch cfg.Server.Transport {
	case config.TransportNATS:
		return transport.DialNATS(logger, cfg.NATS.URL, cfg.NATS.Prefix, pub, cfg.Server.ReconnectPerMinute)
	default:
		return transport.NewWebSocket(logger, cfg.Server.URL, pub, cfg.Server.ReconnectPerMinute), nil
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func displayAddr(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil || host != "" {
		return addr
	}
	return "localhost:" + port
}
