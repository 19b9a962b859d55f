package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"go-chi-calculator/internal/calculator"
	"go-chi-calculator/internal/observability"
	"go-chi-calculator/internal/server"
)

var CLI struct {
	Debug bool `help:"Log in human-readable development format." env:"CALCULATOR_DEBUG"`

	Serve serveCmd `cmd:"" default:"withargs" help:"Run the calculator HTTP API."`
	Eval  evalCmd  `cmd:"" help:"Press keys on a fresh calculator and print the display."`
}

type serveCmd struct {
	Addr            string        `help:"Listen address." default:":8080" env:"CALCULATOR_ADDR"`
	SessionTTL      time.Duration `help:"Drop sessions idle for longer than this." default:"30m" env:"CALCULATOR_SESSION_TTL"`
	SweepInterval   time.Duration `help:"How often idle sessions are swept." default:"1m" env:"CALCULATOR_SWEEP_INTERVAL"`
	Telemetry       bool          `help:"Export traces, metrics and logs over OTLP." default:"true" negatable:"" env:"CALCULATOR_TELEMETRY"`
	MetricsInterval time.Duration `help:"OTLP metric push interval." default:"15s" env:"CALCULATOR_METRICS_INTERVAL"`
}

type evalCmd struct {
	Keys []string `arg:"" help:"Keypad labels, e.g. 5 + 3 = (use -- before a leading minus)."`

	out io.Writer
}

func main() {

	if err := loadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx := kong.Parse(&CLI,
		kong.Name("calculator"),
		kong.Description("Keypad calculator engine served over HTTP."),
		kong.UsageOnError(),
	)

	// Logger
	if err := observability.InitLogger(CLI.Debug); err != nil {
		panic(err)
	}
	defer observability.SyncLogger()

	ctx.FatalIfErrorf(ctx.Run())
}

func (c *serveCmd) Run() error {

	ctx := context.Background()

	// Tracing, metrics, log export
	if c.Telemetry {
		shutdown, err := initTelemetry(ctx, c.MetricsInterval)
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		defer shutdown(ctx)
	}

	if err := initMetrics(); err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	// Sessions
	store := calculator.NewStore()
	sweeper, err := calculator.NewSweeper(store, c.SessionTTL, c.SweepInterval)
	if err != nil {
		return err
	}
	sweeper.Start()
	defer sweeper.Stop()

	// Router
	router := server.NewRouter(store)

	srv := &http.Server{
		Addr:              c.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		observability.Logger.Info("server started",
			zap.String("addr", c.Addr),
			zap.Duration("session_ttl", c.SessionTTL),
			zap.Bool("telemetry", c.Telemetry),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	return waitForShutdown(srv, errCh)
}

func waitForShutdown(srv *http.Server, errCh <-chan error) error {

	stop := make(chan os.Signal, 1)

	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		observability.Logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return srv.Shutdown(ctx)
}

func (c *evalCmd) Run() error {
	s := calculator.InitialState()

	for _, label := range c.Keys {
		a, err := calculator.ParseKey(label)
		if err != nil {
			return err
		}
		s = calculator.Apply(s, a)

		observability.Logger.Debug("key pressed",
			zap.String("key", label),
			zap.Stringer("action", a),
			zap.String("display", s.Current),
			zap.Bool("overwrite", s.Overwrite),
		)
	}

	out := c.out
	if out == nil {
		out = os.Stdout
	}
	_, err := fmt.Fprintln(out, s.Current)
	return err
}
