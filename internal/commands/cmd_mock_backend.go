package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/codesentry/internal/core/logging"
	"github.com/colonyops/codesentry/internal/mockbackend"
	"github.com/colonyops/codesentry/internal/printer"
)

type MockBackendCmd struct {
	flags *Flags

	// flags
	addr          string
	delay         time.Duration
	omitRequestID bool
}

// NewMockBackendCmd creates the mock-backend command.
func NewMockBackendCmd(flags *Flags) *MockBackendCmd {
	return &MockBackendCmd{flags: flags}
}

// Register adds the mock-backend command to the application.
func (cmd *MockBackendCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "mock-backend",
		Usage:     "Run a local analysis backend for development",
		UsageText: "codesentry mock-backend [options]",
		Description: `Serves the submission endpoints under /api/ and the push channel at
/ws/analysis/. Every accepted submission produces a canned result that is
pushed to all connected clients after --delay.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8000",
				Destination: &cmd.addr,
			},
			&cli.DurationFlag{
				Name:        "delay",
				Usage:       "time before a result is pushed",
				Value:       2 * time.Second,
				Destination: &cmd.delay,
			},
			&cli.BoolFlag{
				Name:        "omit-request-id",
				Usage:       "do not echo request_id in pushed results",
				Destination: &cmd.omitRequestID,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *MockBackendCmd) run(ctx context.Context, _ *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mock := mockbackend.New(mockbackend.Options{
		Delay:         cmd.delay,
		OmitRequestID: cmd.omitRequestID,
		Logger:        logging.Component("mockbackend"),
	})
	defer mock.Close()

	ln, err := net.Listen("tcp", cmd.addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	srv := &http.Server{
		Handler:           mock.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	p := printer.Ctx(ctx)
	p.Successf("Mock backend listening on http://%s", ln.Addr())
	p.Printf("  submit: http://%s/api", ln.Addr())
	p.Printf("  push:   ws://%s%s", ln.Addr(), mockbackend.PathPush)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	mock.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shutdown mock backend")
		return err
	}
	return nil
}
