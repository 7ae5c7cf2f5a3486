package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/olx/internal/models"
	"github.com/desertthunder/olx/internal/server"
	"github.com/desertthunder/olx/internal/shared"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 5 * time.Second

// relayRouter mounts the relay and a health check behind logging and panic recovery.
func (r *Runner) relayRouter(relay *server.RelayHandler) *server.BasicRouter {
	logger := shared.WithLogger(r.logger, "component", "relay")

	router := server.NewBasicRouter()
	router.Use(server.Recover(logger), server.Logging(logger))
	router.Handler(relay)
	router.Handler(server.NewHealthHandler(relay.Hub()))
	return router
}

// RelayServe runs the realtime relay until interrupted.
func (r *Runner) RelayServe(ctx context.Context, cmd *cli.Command) error {
	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Realtime.ListenAddr
	}
	if addr == "" {
		return fmt.Errorf("%w: realtime.listen_addr or --addr", shared.ErrMissingArgument)
	}

	relay := server.NewRelayHandler(nil, shared.WithLogger(r.logger, "component", "relay"))
	srv := &http.Server{
		Addr:              addr,
		Handler:           r.relayRouter(relay),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("relay listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("relay stopped: %w", err)
	case <-ctx.Done():
	}

	r.logger.Info("shutting down relay")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		srv.Close()
		return fmt.Errorf("failed to shut down relay: %w", err)
	}
	return nil
}

// RelayPublish posts one progress event to a channel of the configured relay.
func (r *Runner) RelayPublish(ctx context.Context, cmd *cli.Command) error {
	channel := cmd.String("channel")
	ev := models.ProgressEvent{
		Title:    cmd.String("title"),
		Progress: int(cmd.Int("progress")),
		Total:    int(cmd.Int("total")),
		Error:    cmd.String("error"),
	}

	client := r.relayClient()
	defer client.Close()

	if err := client.Publish(ctx, channel, ev); err != nil {
		return err
	}
	r.writePlain("✓ Published to %s\n", channel)
	return nil
}

// RelayListen prints the events of a channel until interrupted.
func (r *Runner) RelayListen(ctx context.Context, cmd *cli.Command) error {
	channel := cmd.String("channel")

	client := r.relayClient()
	defer client.Close()

	sub, err := client.On(channel, func(data json.RawMessage) {
		r.writePlain("%s %s\n", time.Now().Format(time.TimeOnly), data)
	})
	if err != nil {
		return err
	}
	defer sub.Off()

	r.logger.Info("listening", "url", client.StreamURL(channel))
	<-ctx.Done()
	return nil
}
