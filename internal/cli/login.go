package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pfrederiksen/voebb-loans/internal/portal"
)

// Login failure codes, as reported to the user
const (
	LoginInvalidAuth = "invalid_auth"
	LoginUnknown     = "unknown"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login [username]",
		Short: "Check that a library card and password can log in",
		Long: `Log into the portal with the given card number and password, then log out.
The password is read from the terminal without echo, or from the first line of stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runLogin,
	}
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Selenium.Host == "" {
		return errors.New("invalid configuration: selenium.host is required")
	}

	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.ErrOrStderr()

	username := ""
	if len(args) > 0 {
		username = strings.TrimSpace(args[0])
	}
	if username == "" {
		fmt.Fprint(out, "Username: ")
		if username, err = readLine(in); err != nil {
			return fmt.Errorf("reading username: %w", err)
		}
	}
	if username == "" {
		return errors.New("username is required")
	}

	fmt.Fprint(out, "Password: ")
	password, err := readPassword(cmd.InOrStdin(), in)
	fmt.Fprintln(out)
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}

	client, err := newPortalClient(cfg, log)
	if err != nil {
		return fmt.Errorf("initializing portal client: %w", err)
	}

	ctx, cancel := withTimeout(cmd.Context(), cfg.Portal.FetchTimeout)
	defer cancel()

	if err := client.Validate(ctx, portal.Credentials{Username: username, Password: password}); err != nil {
		return fmt.Errorf("%s: %w", LoginErrorCode(err), err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "VOEBB %s\n", username)
	return nil
}

// LoginErrorCode maps a validation error to the code shown to the user
func LoginErrorCode(err error) string {
	if errors.Is(err, portal.ErrInvalidAuth) {
		return LoginInvalidAuth
	}
	return LoginUnknown
}

// readPassword reads without echo from a terminal, otherwise one line from buffered
func readPassword(raw io.Reader, buffered *bufio.Reader) (string, error) {
	if f, ok := raw.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return readLine(buffered)
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
