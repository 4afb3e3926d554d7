package tracker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/pfrederiksen/voebb-loans/internal/loan"
	"github.com/pfrederiksen/voebb-loans/internal/logger"
	"github.com/pfrederiksen/voebb-loans/internal/portal"
)

const (
	// DefaultCooldown is the minimum time between two fetches of the same account
	DefaultCooldown = 6 * time.Hour

	// Icon is the entity icon shown by the host
	Icon = "mdi:library"

	// NoItemsState is the entity state when nothing is borrowed
	NoItemsState = "N/A"
)

// Fetcher retrieves the current loans of an account
type Fetcher interface {
	Fetch(ctx context.Context, creds portal.Credentials) ([]loan.Item, error)
}

// FetchState is the process-local result of the last successful fetch
type FetchState struct {
	LastFetch time.Time
	Items     []loan.Item
}

// Result describes the outcome of one Update
type Result struct {
	RunID    string
	Fetched  bool        // false when the cool-down window skipped the fetch
	Previous []loan.Item // items before this update
	Items    []loan.Item // items after this update
}

// Options configures a Sensor
type Options struct {
	Cooldown     time.Duration // 0 fetches on every update
	FetchTimeout time.Duration // overall deadline per fetch, 0 for none
	Now          func() time.Time
	Logger       *logger.Logger
}

// Sensor tracks the loans of one account
type Sensor struct {
	creds    portal.Credentials
	fetcher  Fetcher
	cooldown time.Duration
	timeout  time.Duration
	now      func() time.Time
	log      *logger.Logger

	updateMu sync.Mutex // serializes updates

	mu      sync.RWMutex
	state   FetchState
	lastErr error
}

// NewSensor creates a Sensor for the given account
func NewSensor(creds portal.Credentials, fetcher Fetcher, opts Options) *Sensor {
	s := &Sensor{
		creds:    creds,
		fetcher:  fetcher,
		cooldown: opts.Cooldown,
		timeout:  opts.FetchTimeout,
		now:      opts.Now,
		log:      opts.Logger,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = logger.Default()
	}
	s.log = s.log.With(logger.Fields{"account": creds.Username})
	return s
}

// Restore seeds the item list with last-known-good items from a previous run.
// The fetch timestamp stays unset, so the next Update fetches.
func (s *Sensor) Restore(items []loan.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Items = items
}

// Update fetches the account's loans unless the last successful fetch is younger
// than the cool-down window. On failure the cached items and timestamp are kept and
// the error is returned.
func (s *Sensor) Update(ctx context.Context) (*Result, error) {
	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	result := &Result{RunID: uuid.NewString()}
	log := s.log.With(logger.Fields{"run_id": result.RunID})

	previous := s.FetchState()
	result.Previous = previous.Items

	if !previous.LastFetch.IsZero() && s.now().Sub(previous.LastFetch) < s.cooldown {
		log.Debug("Skipping fetch within cool-down window", logger.Fields{
			"last_fetch": previous.LastFetch.UTC().Format(time.RFC3339),
			"cooldown":   s.cooldown.String(),
		})
		logger.IncrCounter("fetch.skipped")
		result.Items = previous.Items
		return result, nil
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	log.Info("Fetching loans", nil)
	start := time.Now()
	items, err := s.fetcher.Fetch(ctx, s.creds)
	logger.RecordTiming("fetch.duration", time.Since(start))

	if err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()

		logger.IncrCounter("fetch.failed." + portal.Kind(err))
		log.Error("Fetching loans failed", logger.Fields{"kind": portal.Kind(err)}, err)
		return nil, fmt.Errorf("updating %s: %w", s.creds.Username, err)
	}

	s.mu.Lock()
	s.state = FetchState{LastFetch: s.now(), Items: items}
	s.lastErr = nil
	s.mu.Unlock()

	logger.IncrCounter("fetch.success")
	logger.SetGauge(CountGauge(s.creds.Username), float64(len(items)))
	log.Info("Loans fetched", logger.Fields{"count": len(items)})

	result.Fetched = true
	result.Items = items
	return result, nil
}

// FetchState returns a copy of the current fetch state
func (s *Sensor) FetchState() FetchState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]loan.Item, len(s.state.Items))
	copy(items, s.state.Items)
	return FetchState{LastFetch: s.state.LastFetch, Items: items}
}

// LastError returns the error of the last update, nil after a successful one
func (s *Sensor) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Username returns the account name
func (s *Sensor) Username() string {
	return s.creds.Username
}

// EntityID returns the host entity id, e.g. "sensor.voebb_12345678"
func (s *Sensor) EntityID() string {
	return "sensor." + UniqueID(s.creds.Username)
}

// Name returns the display name of the entity
func (s *Sensor) Name() string {
	return "VOEBB: " + s.creds.Username
}

// NextItem returns the item with the earliest due date
func (s *Sensor) NextItem() (loan.Item, bool) {
	return loan.Next(s.FetchState().Items)
}

// State returns the entity state string
func (s *Sensor) State() string {
	return FormatState(s.FetchState().Items)
}

// FormatState renders the entity state for a list of items
func FormatState(items []loan.Item) string {
	next, ok := loan.Next(items)
	if !ok {
		return NoItemsState
	}
	return fmt.Sprintf("Next item to return: %s at %s", next.Title, next.ReturnDate)
}

// CountGauge names the loans-count gauge of an account. The card number is hashed
// since metrics are served without authentication.
func CountGauge(username string) string {
	sum := sha256.Sum256([]byte(username))
	return "loans.count." + hex.EncodeToString(sum[:4])
}

// UniqueID derives a stable id from the username, e.g. "voebb_12345678"
func UniqueID(username string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(username) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return "voebb_" + b.String()
}
