package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/episodesync/internal/notify"
)

const (
	hubPath         = "/ws"
	healthPath      = "/healthz"
	readHeaderLimit = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

func newServeCmd() *cobra.Command {
	var origins []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Push data-changed events to open views over a websocket",
		Long: `Listen on notify.listen_addr and broadcast {"type":"data-changed"} on
` + hubPath + ` whenever the refresh stamp changes, including changes made by other
episodesync processes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, origins)
		},
	}

	cmd.Flags().StringSliceVar(&origins, "allow-origin", nil, "additional browser origin patterns allowed to connect")

	return cmd
}

func runServe(cmd *cobra.Command, origins []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := shutdownContext(cmd.Context(), cc.Logger)

	addr := cc.Cfg.Notify.ListenAddr
	if addr == "" {
		return errors.New("serve: notify.listen_addr is empty")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("serve: listening on %s: %w", addr, err)
	}

	hub := notify.NewHub(cc.Logger, origins...)
	defer hub.Close()

	cc.Statusf("Serving refresh events on ws://%s%s\n", ln.Addr(), hubPath)

	return serveHub(ctx, ln, hub, cc.Cfg.Notify.StampFile, cc.Logger)
}

// serveHub runs the HTTP server on ln and, when stampPath is set, forwards
// stamp updates to the hub. It returns when ctx is canceled or either part
// fails.
func serveHub(ctx context.Context, ln net.Listener, hub *notify.Hub, stampPath string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("GET "+hubPath, hub)
	mux.HandleFunc("GET "+healthPath, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: readHeaderLimit,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}

		return nil
	})

	if stampPath != "" {
		g.Go(func() error {
			return notify.NewWatcher(stampPath, logger).Run(gctx, func(r notify.Refresh) {
				logger.Debug("stamp updated, notifying views",
					slog.Time("at", r.At),
					slog.Int("views", hub.Count()),
				)
				hub.Notify()
			})
		})
	}

	g.Go(func() error {
		<-gctx.Done()

		// Hijacked websocket connections are not tracked by Shutdown.
		hub.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
