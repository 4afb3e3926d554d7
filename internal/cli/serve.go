package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pfrederiksen/voebb-loans/internal/api"
	"github.com/pfrederiksen/voebb-loans/internal/config"
	"github.com/pfrederiksen/voebb-loans/internal/logger"
	"github.com/pfrederiksen/voebb-loans/internal/storage"
	"github.com/pfrederiksen/voebb-loans/internal/tracker"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Poll all accounts and serve the sensors over HTTP",
		Long: `Run one update loop per configured account (every update.interval, throttled by
update.cooldown) and serve the sensors on http.addr. Sends reminders for items due
within notify.reminder_days through Telegram, or prints them with notify.dry_run.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := pruneSnapshots(store, cfg.Accounts, log); err != nil {
		log.Warn("Could not prune snapshots", logger.Fields{"error": err.Error()})
	}

	client, err := newPortalClient(cfg, log)
	if err != nil {
		return fmt.Errorf("initializing portal client: %w", err)
	}

	notif, err := newNotifier(cfg, cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("initializing notifier: %w", err)
	}
	if notif == nil {
		log.Info("Notifications disabled", nil)
	}

	proc := &Processor{
		Store:        store,
		Notifier:     notif,
		ReminderDays: cfg.Notify.ReminderDays,
		Logger:       log,
	}

	sensors := make([]*tracker.Sensor, 0, len(cfg.Accounts))
	for _, acc := range cfg.Accounts {
		s := tracker.NewSensor(acc.Credentials(), client, tracker.Options{
			Cooldown:     cfg.Update.Cooldown,
			FetchTimeout: cfg.Portal.FetchTimeout,
			Logger:       log,
		})

		// Last-known-good items until the first fetch succeeds
		snapshot, err := store.LoadSnapshot(acc.Username)
		if err != nil {
			log.Warn("Could not restore snapshot", logger.Fields{"account": acc.Username, "error": err.Error()})
		} else {
			s.Restore(snapshot.Items)
		}
		sensors = append(sensors, s)
	}

	onUpdate := func(ctx context.Context, s *tracker.Sensor, result *tracker.Result) {
		if _, err := proc.Process(ctx, s.Username(), result.Items, s.FetchState().LastFetch); err != nil {
			log.Error("Recording loans failed", logger.Fields{"account": s.Username(), "run_id": result.RunID}, err)
		}
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.New(sensors, api.Options{OnUpdate: onUpdate, Logger: log}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range sensors {
		s := s
		g.Go(func() error {
			runLoop(gctx, s, cfg.Update.Interval, onUpdate)
			return nil
		})
	}

	g.Go(func() error {
		log.Info("HTTP server listening", logger.Fields{"addr": cfg.HTTP.Addr, "accounts": len(sensors)})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down", nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// pruneSnapshots deletes the stored snapshots of accounts that are no longer configured
func pruneSnapshots(store *storage.Storage, accounts []config.Account, log *logger.Logger) error {
	stored, err := store.Accounts()
	if err != nil {
		return err
	}

	configured := make(map[string]bool, len(accounts))
	for _, acc := range accounts {
		configured[acc.Username] = true
	}
	for _, account := range stored {
		if configured[account] {
			continue
		}
		if err := store.DeleteSnapshot(account); err != nil {
			return fmt.Errorf("deleting snapshot of %s: %w", account, err)
		}
		log.Info("Removed snapshot of unconfigured account", logger.Fields{"account": account})
	}
	return nil
}

// runLoop updates s right away and then every interval until ctx is done.
// Failures are recorded on the sensor and do not stop the loop.
func runLoop(ctx context.Context, s *tracker.Sensor, interval time.Duration, onUpdate api.UpdateHook) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if result, err := s.Update(ctx); err == nil && result.Fetched {
			onUpdate(ctx, s, result)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
