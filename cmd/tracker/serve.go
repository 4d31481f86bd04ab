package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"code_tracker/internal/bot"
	"code_tracker/internal/httpapi"
	"code_tracker/internal/notify"
	"code_tracker/internal/scheduler"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler, HTTP API and Telegram bot",
	Long:  `Start periodic discovery passes and serve stored codes over HTTP. The Telegram bot is started when TELEGRAM_BOT_TOKEN is set.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "HTTP listen address (overrides HTTP_ADDR)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.cfg.HTTPAddr
	if serveAddr != "" {
		addr = serveAddr
	}

	g, gctx := errgroup.WithContext(ctx)

	api := httpapi.New(a.registry, a.store, a.hub, a.prom, a.log.With("component", "http"))
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		a.log.Info("http listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		// Ends open event streams so Shutdown does not wait on them.
		a.hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	sched := scheduler.New(a.pipeline, a.log.With("component", "scheduler"))
	sched.SetTickInterval(a.cfg.ScanInterval)
	sched.SetStartupDelay(a.cfg.StartupDelay)
	g.Go(func() error {
		sched.Run(gctx)
		return nil
	})

	if a.cfg.TelegramBotToken != "" {
		b, err := bot.New(a.cfg.TelegramBotToken, a.registry, a.store, a.pipeline, a.cfg, a.log.With("component", "bot"))
		if err != nil {
			cancel()
			_ = g.Wait()
			return err
		}
		sub := a.hub.Subscribe(notify.DefaultBuffer)
		g.Go(func() error {
			b.Run(gctx)
			return nil
		})
		g.Go(func() error {
			b.Forward(gctx, sub)
			return nil
		})
	} else {
		a.log.Info("TELEGRAM_BOT_TOKEN not set, bot disabled")
	}

	a.log.Info("tracker started", "interval", a.cfg.ScanInterval, "startup_delay", a.cfg.StartupDelay)
	err = g.Wait()
	a.log.Info("tracker stopped")
	return err
}
