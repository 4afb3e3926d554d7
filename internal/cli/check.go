package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/voebb-loans/internal/loan"
	"github.com/pfrederiksen/voebb-loans/internal/logger"
	"github.com/pfrederiksen/voebb-loans/internal/portal"
	"github.com/pfrederiksen/voebb-loans/internal/tracker"
)

var (
	flagAccount string
	flagFormat  string
	flagSort    string
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Fetch and print the current loans",
		Long: `Fetch the current loans of all configured accounts (or one with --account),
print them and save the snapshot. Exits with code 2 when an item is due within
notify.reminder_days.`,
		RunE: runCheck,
	}

	cmd.Flags().StringVar(&flagAccount, "account", "", "Only check this account (username)")
	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	cmd.Flags().StringVar(&flagSort, "sort", "date", "Sort order: date, title or library")

	return cmd
}

// runCheck is the main command logic
func runCheck(cmd *cobra.Command, args []string) error {
	// Validate format
	format := OutputFormat(strings.ToLower(flagFormat))
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flagFormat)
	}
	order, ok := parseSortOrder(flagSort)
	if !ok {
		return fmt.Errorf("invalid sort order: %s (must be 'date', 'title' or 'library')", flagSort)
	}

	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	accounts, err := selectAccounts(cfg, flagAccount)
	if err != nil {
		return err
	}

	store, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	client, err := newPortalClient(cfg, log)
	if err != nil {
		return fmt.Errorf("initializing portal client: %w", err)
	}

	proc := &Processor{
		Store:        store,
		ReminderDays: cfg.Notify.ReminderDays,
		Logger:       log,
	}

	result := &OutputResult{
		CheckedAt:    time.Now().UTC(),
		ReminderDays: cfg.Notify.ReminderDays,
	}

	for _, acc := range accounts {
		log.Debug("Checking account", logger.Fields{"account": acc.Username})

		items, err := fetch(cmd.Context(), client, acc.Credentials(), cfg.Portal.FetchTimeout)
		if err != nil {
			return fmt.Errorf("fetching loans for %s: %w", acc.Username, err)
		}

		outcome, err := proc.Process(cmd.Context(), acc.Username, items, time.Now())
		if err != nil {
			return fmt.Errorf("recording loans for %s: %w", acc.Username, err)
		}

		sorted := make([]loan.Item, len(items))
		copy(sorted, items)
		sortItems(sorted, order)

		result.Accounts = append(result.Accounts, AccountResult{
			Account:  acc.Username,
			State:    tracker.FormatState(items),
			Items:    sorted,
			DueSoon:  outcome.DueSoon,
			Borrowed: outcome.Changes.Borrowed,
			Returned: outcome.Changes.Returned,
		})
		result.ItemCount += len(items)
		result.DueSoonCount += len(outcome.DueSoon)
	}

	if err := WriteOutput(cmd.OutOrStdout(), result, format, flagVerbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	// Set exit code based on whether something is due soon
	if result.DueSoonCount > 0 {
		osExit(ExitDueSoon)
	}
	return nil
}

// fetch runs one unthrottled fetch under the configured deadline
func fetch(ctx context.Context, f tracker.Fetcher, creds portal.Credentials, timeout time.Duration) ([]loan.Item, error) {
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()
	return f.Fetch(ctx, creds)
}

// withTimeout applies timeout to ctx unless it is zero
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}
