package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pfrederiksen/voebb-loans/internal/config"
	"github.com/pfrederiksen/voebb-loans/internal/loan"
	"github.com/pfrederiksen/voebb-loans/internal/logger"
	"github.com/pfrederiksen/voebb-loans/internal/portal"
)

type fakeClient struct {
	items       map[string][]loan.Item
	fetchErr    error
	validateErr error
	validated   []portal.Credentials
}

func (f *fakeClient) Fetch(ctx context.Context, creds portal.Credentials) ([]loan.Item, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.items[creds.Username], nil
}

func (f *fakeClient) Validate(ctx context.Context, creds portal.Credentials) error {
	f.validated = append(f.validated, creds)
	return f.validateErr
}

// setup installs client and records exit codes instead of exiting
func setup(t *testing.T, client *fakeClient) *[]int {
	t.Helper()

	origClient, origExit := newPortalClient, osExit
	origLogger := logger.Default()
	t.Cleanup(func() {
		newPortalClient, osExit = origClient, origExit
		logger.SetDefault(origLogger)
	})

	newPortalClient = func(cfg *config.Config, log *logger.Logger) (portalClient, error) {
		return client, nil
	}
	codes := &[]int{}
	osExit = func(code int) { *codes = append(*codes, code) }
	return codes
}

func writeConfig(t *testing.T, extra string) (path, dataDir string) {
	t.Helper()
	dir := t.TempDir()
	dataDir = filepath.Join(dir, "data")
	content := fmt.Sprintf(`
selenium:
  host: selenium.test
accounts:
  - username: "111"
    password: one
  - username: "222"
    password: two
storage:
  data_dir: %s
notify:
  reminder_days: 3
logging:
  level: ERROR
%s`, dataDir, extra)

	path = filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path, dataDir
}

func run(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func today() loan.Date {
	return loan.DateOf(time.Now())
}

func TestCheck_DueSoon(t *testing.T) {
	client := &fakeClient{items: map[string][]loan.Item{
		"111": {
			{Title: "Later", ReturnDate: today().AddDays(30)},
			{Title: "Soon", Author: "A. Author", ReturnDate: today().AddDays(1)},
		},
		"222": nil,
	}}
	codes := setup(t, client)
	path, _ := writeConfig(t, "")

	stdout, _, err := run(t, "", "--config", path, "check", "--format", "json")
	if err != nil {
		t.Fatalf("check error = %v", err)
	}

	var result OutputResult
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("invalid JSON output %q: %v", stdout, err)
	}
	if len(result.Accounts) != 2 {
		t.Fatalf("Accounts = %d, want 2", len(result.Accounts))
	}
	first := result.Accounts[0]
	if first.Items[0].Title != "Soon" {
		t.Errorf("items not sorted by date: %+v", first.Items)
	}
	if want := fmt.Sprintf("Next item to return: Soon at %s", today().AddDays(1)); first.State != want {
		t.Errorf("State = %q, want %q", first.State, want)
	}
	if result.Accounts[1].State != "N/A" {
		t.Errorf("empty account State = %q, want N/A", result.Accounts[1].State)
	}
	if result.ItemCount != 2 || result.DueSoonCount != 1 {
		t.Errorf("counts = %d/%d, want 2/1", result.ItemCount, result.DueSoonCount)
	}

	if len(*codes) != 1 || (*codes)[0] != ExitDueSoon {
		t.Errorf("exit codes = %v, want [%d]", *codes, ExitDueSoon)
	}
}

func TestCheck_NothingDueAndChanges(t *testing.T) {
	client := &fakeClient{items: map[string][]loan.Item{
		"111": {{Title: "First", ReturnDate: today().AddDays(20)}},
	}}
	codes := setup(t, client)
	path, _ := writeConfig(t, "")

	stdout, _, err := run(t, "", "--config", path, "check", "--account", "111")
	if err != nil {
		t.Fatalf("check error = %v", err)
	}
	if strings.Contains(stdout, "NEW:") {
		t.Errorf("first run reported new items:\n%s", stdout)
	}
	if len(*codes) != 0 {
		t.Errorf("exit codes = %v, want none", *codes)
	}

	client.items["111"] = []loan.Item{{Title: "Second", ReturnDate: today().AddDays(21)}}
	stdout, _, err = run(t, "", "--config", path, "check", "--account", "111")
	if err != nil {
		t.Fatalf("second check error = %v", err)
	}
	for _, want := range []string{"111: Next item to return: Second", "NEW: Second", "RETURNED: First", "Total: 1 item, 0 due within 3 days"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}
}

func TestCheck_Errors(t *testing.T) {
	tests := []struct {
		name   string
		client *fakeClient
		args   []string
		want   string
	}{
		{"bad format", &fakeClient{}, []string{"check", "--format", "xml"}, "invalid format"},
		{"bad sort", &fakeClient{}, []string{"check", "--sort", "author"}, "invalid sort order"},
		{"unknown account", &fakeClient{}, []string{"check", "--account", "999"}, "not configured"},
		{"fetch failure", &fakeClient{fetchErr: portal.ErrInvalidAuth}, []string{"check"}, "fetching loans for 111"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setup(t, tt.client)
			path, _ := writeConfig(t, "")

			_, _, err := run(t, "", append([]string{"--config", path}, tt.args...)...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestCalendar(t *testing.T) {
	client := &fakeClient{items: map[string][]loan.Item{
		"111": {{Title: "Book", ReturnDate: loan.NewDate(2030, time.January, 15)}},
	}}
	setup(t, client)
	path, _ := writeConfig(t, "")

	if _, _, err := run(t, "", "--config", path, "check", "--account", "111"); err != nil {
		t.Fatalf("check error = %v", err)
	}

	stdout, _, err := run(t, "", "--config", path, "calendar")
	if err != nil {
		t.Fatalf("calendar error = %v", err)
	}
	if !strings.Contains(stdout, "DTSTART;VALUE=DATE:20300115") {
		t.Errorf("calendar output missing due date:\n%s", stdout)
	}

	out := filepath.Join(t.TempDir(), "loans.ics")
	if _, _, err := run(t, "", "--config", path, "calendar", "--account", "111", "--output", out); err != nil {
		t.Fatalf("calendar --output error = %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil || !strings.Contains(string(data), "BEGIN:VCALENDAR") {
		t.Errorf("calendar file = %q, %v", data, err)
	}
}

func TestCalendar_NoSnapshots(t *testing.T) {
	setup(t, &fakeClient{})
	path, _ := writeConfig(t, "")

	if _, _, err := run(t, "", "--config", path, "calendar"); err == nil {
		t.Error("calendar expected error without stored loans")
	}
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		args    []string
		stdin   string
		wantOut string
		wantErr string
		wantPW  string
	}{
		{"success", nil, []string{"login", "12345678"}, "secret\n", "VOEBB 12345678\n", "", "secret"},
		{"prompted username", nil, []string{"login"}, "12345678\nsecret", "VOEBB 12345678\n", "", "secret"},
		{"invalid auth", portal.ErrInvalidAuth, []string{"login", "12345678"}, "wrong\n", "", "invalid_auth", "wrong"},
		{"unknown", fmt.Errorf("%w: loading portal: boom", portal.ErrFetchFailed), []string{"login", "12345678"}, "pw\n", "", "unknown", "pw"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{validateErr: tt.err}
			setup(t, client)
			path, _ := writeConfig(t, "")

			stdout, _, err := run(t, tt.stdin, append([]string{"--config", path}, tt.args...)...)
			if tt.wantErr == "" && err != nil {
				t.Fatalf("login error = %v", err)
			}
			if tt.wantErr != "" && (err == nil || !strings.HasPrefix(err.Error(), tt.wantErr)) {
				t.Fatalf("login error = %v, want prefix %q", err, tt.wantErr)
			}
			if stdout != tt.wantOut {
				t.Errorf("stdout = %q, want %q", stdout, tt.wantOut)
			}
			if len(client.validated) != 1 || client.validated[0].Password != tt.wantPW {
				t.Errorf("validated = %+v", client.validated)
			}
		})
	}
}

func TestLoginErrorCode(t *testing.T) {
	if got := LoginErrorCode(fmt.Errorf("x: %w", portal.ErrInvalidAuth)); got != LoginInvalidAuth {
		t.Errorf("LoginErrorCode(invalid auth) = %q", got)
	}
	if got := LoginErrorCode(portal.ErrFailedFetchingAusleihen); got != LoginUnknown {
		t.Errorf("LoginErrorCode(other) = %q", got)
	}
}
