package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/voebb-loans/internal/config"
	"github.com/pfrederiksen/voebb-loans/internal/crypto"
	"github.com/pfrederiksen/voebb-loans/internal/logger"
	"github.com/pfrederiksen/voebb-loans/internal/notifier"
	"github.com/pfrederiksen/voebb-loans/internal/portal"
	"github.com/pfrederiksen/voebb-loans/internal/storage"
	"github.com/pfrederiksen/voebb-loans/internal/tracker"
)

const (
	ExitSuccess = 0
	ExitError   = 1
	ExitDueSoon = 2
)

var (
	flagConfig   string
	flagLogLevel string
	flagVerbose  bool
)

// osExit is replaced in tests
var osExit = os.Exit

// portalClient is what the commands need from the portal
type portalClient interface {
	tracker.Fetcher
	Validate(ctx context.Context, creds portal.Credentials) error
}

// newPortalClient connects the portal flow to the configured remote browser.
// Replaced in tests.
var newPortalClient = func(cfg *config.Config, log *logger.Logger) (portalClient, error) {
	return portal.New(portal.NewRemoteOpener(cfg.SeleniumURL()), portal.Options{
		URL:          cfg.Portal.URL,
		Locators:     cfg.Portal.Locators,
		Columns:      cfg.Portal.Columns,
		ImplicitWait: cfg.Portal.ImplicitWait,
		Logger:       log,
	})
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "voebb",
		Short: "Track borrowed items of VOEBB library accounts",
		Long: `A CLI tool to track loans of VOEBB (Verbund der Öffentlichen Bibliotheken Berlins) accounts.
Logs into the library portal through a remote Selenium browser, reads the loans table
and reports the next item to return.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default ~/.config/voebb/config.yaml or ./config.yaml)")
	cmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level override: DEBUG, INFO, WARN or ERROR")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose output")

	cmd.AddCommand(newCheckCmd(), newLoginCmd(), newServeCmd(), newCalendarCmd())
	return cmd
}

// loadConfig reads the configuration and installs the default logger
func loadConfig(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, nil, err
	}

	levelName := cfg.Logging.Level
	if flagLogLevel != "" {
		levelName = flagLogLevel
	} else if flagVerbose {
		levelName = string(logger.LevelDebug)
	}
	level, err := logger.ParseLevel(levelName)
	if err != nil {
		return nil, nil, err
	}

	log := logger.New(level, cmd.ErrOrStderr())
	logger.SetDefault(log)
	return cfg, log, nil
}

// openStorage opens the snapshot database, encrypted when a passphrase is set
func openStorage(cfg *config.Config) (*storage.Storage, error) {
	store, err := storage.New(cfg.Storage.DataDir, crypto.NewEncryptor(cfg.Storage.Passphrase))
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	return store, nil
}

// newNotifier picks the notifier for the configuration. Returns nil when
// notifications are disabled.
func newNotifier(cfg *config.Config, w io.Writer) (notifier.Notifier, error) {
	switch {
	case cfg.Notify.DryRun:
		return notifier.NewDryRunNotifier(w), nil
	case cfg.TelegramEnabled():
		n, err := notifier.NewTelegramNotifier(cfg.Notify.TelegramBotToken, cfg.Notify.TelegramChatID)
		if err != nil {
			return nil, err
		}
		return n, nil
	default:
		return nil, nil
	}
}

// selectAccounts returns all accounts, or only the named one
func selectAccounts(cfg *config.Config, name string) ([]config.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return cfg.Accounts, nil
	}
	acc, ok := cfg.Account(name)
	if !ok {
		return nil, fmt.Errorf("account %q is not configured", name)
	}
	return []config.Account{acc}, nil
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		osExit(ExitError)
	}
}
