package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/compose-network/courier/courier-app/config"
	courierlog "github.com/compose-network/courier/log"
	"github.com/compose-network/courier/metrics"
	apisrv "github.com/compose-network/courier/server/api"
	apimw "github.com/compose-network/courier/server/api/middleware"
	"github.com/compose-network/courier/x/poll"
	"github.com/compose-network/courier/x/pubsub"
	"github.com/compose-network/courier/x/service"
	"github.com/compose-network/courier/x/transport"
	"github.com/compose-network/courier/x/transport/tcp"
)

// App holds what every command needs: config, logger and the output
// stream samples print to. Writes to out are serialized, since service and
// subscriber callbacks print from transport goroutines.
type App struct {
	cfg *config.Config
	log zerolog.Logger
	out io.Writer

	// dial is replaced in tests to run commands over an in-process transport.
	dial func(ctx context.Context) (transport.Transport, error)
}

func NewApp(cfg *config.Config, log zerolog.Logger, out io.Writer) *App {
	a := &App{
		cfg: cfg,
		log: courierlog.Component(log, "app"),
		out: &lockedWriter{w: out},
	}
	a.dial = func(ctx context.Context) (transport.Transport, error) {
		c, err := tcp.Dial(ctx, a.cfg.Transport.Client, log)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return a
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// connect dials the hub.
func (a *App) connect(ctx context.Context) (transport.Transport, error) {
	tr, err := a.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to hub %s: %w", a.cfg.Transport.Client.Address, err)
	}
	return tr, nil
}

func (a *App) pubsubOptions() []pubsub.Option {
	return []pubsub.Option{
		pubsub.WithPayloadConfig(a.cfg.Publisher),
		pubsub.WithLogger(a.log),
	}
}

func (a *App) serviceOptions() []service.Option {
	return []service.Option{service.WithLogger(a.log)}
}

// waitFor polls cond on the configured interval, printing msg while it is false.
// An error means cond never held; callers stop quietly only when ctx ended.
func (a *App) waitFor(ctx context.Context, cond func() bool, msg string) error {
	return poll.Until(ctx, a.cfg.Service.PollInterval, cond, func() {
		fmt.Fprintln(a.out, msg)
	})
}

// sleep waits d or until ctx ends, reporting whether to keep going.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// RunHub runs the TCP hub and, when enabled, the HTTP API until ctx ends.
func (a *App) RunHub(ctx context.Context) error {
	hub, err := tcp.NewHub(a.cfg.Transport.Hub, a.log)
	if err != nil {
		return fmt.Errorf("failed to create hub: %w", err)
	}
	if err := hub.Start(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// stays nil, and never fires, when the API is disabled
	var apiDone chan error
	if a.cfg.API.Enabled {
		apiDone = make(chan error, 1)
		s := a.newAPIServer(hub)
		go func() { apiDone <- s.Start(runCtx) }()
	}

	a.log.Info().
		Str("version", Version).
		Str("hub_addr", hub.Addr().String()).
		Bool("api_enabled", a.cfg.API.Enabled).
		Msg("Courier hub started successfully")

	select {
	case <-ctx.Done():
		a.log.Info().Msg("Context canceled, initiating shutdown")
	case err := <-apiDone:
		if err != nil {
			a.log.Error().Err(err).Msg("API server error")
		}
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
	defer stop()
	if err := hub.Stop(shutdownCtx); err != nil {
		a.log.Error().Err(err).Msg("Hub shutdown error")
		return err
	}

	a.log.Info().Msg("Graceful shutdown complete")
	return nil
}

func (a *App) newAPIServer(hub *tcp.Hub) *apisrv.Server {
	s := apisrv.NewServer(a.cfg.API, a.log)
	s.Use(apimw.Recover(a.log))
	s.Use(apimw.RequestID())
	s.Use(apimw.Logger(a.log))
	s.Router.Use(apimw.Metrics())

	handler := apisrv.NewHandler(hub, a.log,
		apisrv.WithReadiness(func() bool { return hub.Addr() != nil }),
		apisrv.WithStats(func() map[string]any { return hubStats(hub) }),
	)
	handler.RegisterMux(s.Router)

	if a.cfg.Metrics.Enabled {
		s.Router.Handle(a.cfg.Metrics.Path, promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})).
			Methods(http.MethodGet)
	}
	return s
}

func hubStats(hub *tcp.Hub) map[string]any {
	conns := hub.Connections()

	var framesIn, framesOut, bytesIn, bytesOut uint64
	for _, c := range conns {
		framesIn += c.FramesRead
		framesOut += c.FramesWritten
		bytesIn += c.BytesRead
		bytesOut += c.BytesWritten
	}

	return map[string]any{
		"connections":    len(conns),
		"frames_in":      framesIn,
		"frames_out":     framesOut,
		"bytes_in":       bytesIn,
		"bytes_out":      bytesOut,
		"app_version":    Version,
		"app_git_commit": GitCommit,
		"go_version":     runtime.Version(),
		"goroutines":     runtime.NumGoroutine(),
	}
}
