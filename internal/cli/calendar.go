package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/voebb-loans/internal/calendar"
)

var flagOutput string

func newCalendarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Export stored due dates as an iCalendar file",
		Long: `Write the due dates of the last successful fetch of an account as an .ics file,
one all-day event per item. Does not contact the portal.`,
		Args: cobra.NoArgs,
		RunE: runCalendar,
	}

	cmd.Flags().StringVar(&flagAccount, "account", "", "Account (username), required with more than one account")
	cmd.Flags().StringVar(&flagOutput, "output", "", "Output file (default stdout)")

	return cmd
}

func runCalendar(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	account := flagAccount
	if account == "" {
		stored, err := store.Accounts()
		if err != nil {
			return fmt.Errorf("listing accounts: %w", err)
		}
		switch len(stored) {
		case 0:
			return fmt.Errorf("no stored loans, run check first")
		case 1:
			account = stored[0]
		default:
			return fmt.Errorf("--account is required, stored accounts: %v", stored)
		}
	}

	snapshot, err := store.LoadSnapshot(account)
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}
	ics := calendar.GenerateICS(account, snapshot.Items, time.Now())

	if flagOutput == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), ics)
		return err
	}
	if err := os.WriteFile(flagOutput, []byte(ics), 0644); err != nil {
		return fmt.Errorf("writing calendar: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d events to %s\n", len(snapshot.Items), flagOutput)
	return nil
}
