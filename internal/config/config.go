// Package config loads the application configuration from a YAML file and
// VOEBB_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pfrederiksen/voebb-loans/internal/portal"
	"github.com/pfrederiksen/voebb-loans/internal/storage"
	"github.com/pfrederiksen/voebb-loans/internal/tracker"
)

// EnvPrefix prefixes every environment variable override
const EnvPrefix = "VOEBB"

// Config holds all application configuration
type Config struct {
	Selenium SeleniumConfig `mapstructure:"selenium"`
	Portal   PortalConfig   `mapstructure:"portal"`
	Accounts []Account      `mapstructure:"accounts"`
	Update   UpdateConfig   `mapstructure:"update"`
	Storage  StorageConfig  `mapstructure:"storage"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// SeleniumConfig locates the remote browser
type SeleniumConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Path string `mapstructure:"path"`
}

// PortalConfig holds the portal URL, timings and element overrides
type PortalConfig struct {
	URL          string          `mapstructure:"url"`
	ImplicitWait time.Duration   `mapstructure:"implicit_wait"`
	FetchTimeout time.Duration   `mapstructure:"fetch_timeout"`
	Locators     portal.Locators `mapstructure:"locators"`
	Columns      portal.Columns  `mapstructure:"columns"`
}

// Account is one library card
type Account struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// UpdateConfig controls how often accounts are polled
type UpdateConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Cooldown time.Duration `mapstructure:"cooldown"`
}

// StorageConfig holds the snapshot database location
type StorageConfig struct {
	DataDir    string `mapstructure:"data_dir"`
	Passphrase string `mapstructure:"passphrase"` // empty stores plaintext
}

// HTTPConfig holds the API listener
type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// NotifyConfig holds reminder settings
type NotifyConfig struct {
	TelegramBotToken string `mapstructure:"telegram_bot_token"`
	TelegramChatID   string `mapstructure:"telegram_chat_id"`
	ReminderDays     int    `mapstructure:"reminder_days"`
	DryRun           bool   `mapstructure:"dry_run"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("selenium.host", "")
	v.SetDefault("selenium.port", "4444")
	v.SetDefault("selenium.path", "/wd/hub")

	v.SetDefault("portal.url", portal.DefaultURL)
	v.SetDefault("portal.implicit_wait", portal.DefaultImplicitWait)
	v.SetDefault("portal.fetch_timeout", 3*time.Minute)
	cols := portal.DefaultColumns()
	v.SetDefault("portal.columns.return_date", cols.ReturnDate)
	v.SetDefault("portal.columns.library", cols.Library)
	v.SetDefault("portal.columns.title", cols.Title)
	v.SetDefault("portal.columns.extension", cols.Extension)

	v.SetDefault("update.interval", 15*time.Minute)
	v.SetDefault("update.cooldown", tracker.DefaultCooldown)

	v.SetDefault("storage.data_dir", storage.DefaultDataDir)
	v.SetDefault("storage.passphrase", "")

	v.SetDefault("http.addr", ":8080")

	v.SetDefault("notify.telegram_bot_token", "")
	v.SetDefault("notify.telegram_chat_id", "")
	v.SetDefault("notify.reminder_days", 3)
	v.SetDefault("notify.dry_run", false)

	v.SetDefault("logging.level", "INFO")
}

// defaultConfigPath returns the directory searched for config.yaml
func defaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "voebb")
}

// Load reads configuration from path, or from the default locations when path is
// empty, and applies environment overrides. A missing default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Single-account fallback
	_ = v.BindEnv("username")
	_ = v.BindEnv("password")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultConfigPath())
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if len(cfg.Accounts) == 0 {
		if user := v.GetString("username"); user != "" {
			cfg.Accounts = []Account{{Username: user, Password: v.GetString("password")}}
		}
	}
	cfg.Portal.Locators = portal.DefaultLocators().With(cfg.Portal.Locators)

	return cfg, nil
}

// Validate checks the settings needed to talk to the portal
func (c *Config) Validate() error {
	if c.Selenium.Host == "" {
		return errors.New("selenium.host is required")
	}
	if len(c.Accounts) == 0 {
		return errors.New("at least one account is required")
	}
	// Sensors are addressed by unique id, which folds punctuation and case
	ids := make(map[string]string, len(c.Accounts))
	for i, acc := range c.Accounts {
		if acc.Username == "" || acc.Password == "" {
			return fmt.Errorf("accounts[%d]: username and password are required", i)
		}
		id := tracker.UniqueID(acc.Username)
		if other, ok := ids[id]; ok {
			if other == acc.Username {
				return fmt.Errorf("accounts[%d]: duplicate username %q", i, acc.Username)
			}
			return fmt.Errorf("accounts[%d]: username %q has the same id %s as %q", i, acc.Username, id, other)
		}
		ids[id] = acc.Username
	}
	if c.Update.Interval <= 0 {
		return fmt.Errorf("update.interval must be positive, got %s", c.Update.Interval)
	}
	if c.Update.Cooldown < 0 {
		return fmt.Errorf("update.cooldown must not be negative, got %s", c.Update.Cooldown)
	}
	if c.Notify.ReminderDays < 0 {
		return fmt.Errorf("notify.reminder_days must not be negative, got %d", c.Notify.ReminderDays)
	}
	if err := c.Portal.Locators.Validate(); err != nil {
		return err
	}
	return c.Portal.Columns.Validate()
}

// Account returns the configured account with the given username
func (c *Config) Account(username string) (Account, bool) {
	for _, acc := range c.Accounts {
		if acc.Username == username {
			return acc, true
		}
	}
	return Account{}, false
}

// Credentials converts an account for the portal client
func (a Account) Credentials() portal.Credentials {
	return portal.Credentials{Username: a.Username, Password: a.Password}
}

// SeleniumURL returns the remote WebDriver endpoint
func (c *Config) SeleniumURL() string {
	return portal.RemoteURL(c.Selenium.Host, c.Selenium.Port, c.Selenium.Path)
}

// TelegramEnabled reports whether both Telegram settings are present
func (c *Config) TelegramEnabled() bool {
	return c.Notify.TelegramBotToken != "" && c.Notify.TelegramChatID != ""
}
