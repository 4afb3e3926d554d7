package portal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pfrederiksen/voebb-loans/internal/loan"
	"github.com/pfrederiksen/voebb-loans/internal/logger"
)

// DefaultImplicitWait bounds how long element lookups wait for rendering
const DefaultImplicitWait = 2 * time.Second

// Credentials identify one library account
type Credentials struct {
	Username string
	Password string
}

// Options configures a Client
type Options struct {
	URL          string
	Locators     Locators
	Columns      Columns
	ImplicitWait time.Duration
	Logger       *logger.Logger
}

// Client runs the login and loans flow against the portal
type Client struct {
	open     Opener
	url      string
	locators Locators
	columns  Columns
	wait     time.Duration
	log      *logger.Logger
}

// New creates a new Client. Zero-valued options fall back to the portal defaults.
func New(open Opener, opts Options) (*Client, error) {
	c := &Client{
		open:     open,
		url:      opts.URL,
		locators: DefaultLocators().With(opts.Locators),
		columns:  opts.Columns,
		wait:     opts.ImplicitWait,
		log:      opts.Logger,
	}
	if c.url == "" {
		c.url = DefaultURL
	}
	if c.columns == (Columns{}) {
		c.columns = DefaultColumns()
	}
	if c.wait <= 0 {
		c.wait = DefaultImplicitWait
	}
	if c.log == nil {
		c.log = logger.Default()
	}

	if err := c.locators.Validate(); err != nil {
		return nil, err
	}
	if err := c.columns.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Fetch logs in and returns the account's current loans in page order
func (c *Client) Fetch(ctx context.Context, creds Credentials) ([]loan.Item, error) {
	sess, err := c.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	return c.FetchLoans(ctx, sess)
}

// Validate checks that creds can log in, then closes the session
func (c *Client) Validate(ctx context.Context, creds Credentials) error {
	sess, err := c.Login(ctx, creds)
	if err != nil {
		return err
	}
	c.closeSession(sess)
	return nil
}

// Login opens a new session and authenticates it.
// On success the caller owns the returned session; on failure it is already closed.
func (c *Client) Login(ctx context.Context, creds Credentials) (sess Session, err error) {
	log := c.log.With(logger.Fields{"account": creds.Username})

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: opening session: %w", ErrFetchFailed, err)
	}
	opened, err := c.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: opening session: %w", ErrFetchFailed, err)
	}
	defer func() {
		if err != nil {
			log.Debug("Login failed, closing session", nil)
			c.closeSession(opened)
		}
	}()
	sess = opened

	steps := []struct {
		name string
		fn   func() error
	}{
		{"loading portal", func() error { return sess.Get(c.url) }},
		{"setting implicit wait", func() error { return sess.SetImplicitWait(c.wait) }},
		{"opening login form", func() error { return c.click(sess, LoginTrigger) }},
		{"entering username", func() error { return c.sendKeys(sess, Username, creds.Username) }},
		{"entering password", func() error { return c.sendKeys(sess, Password, creds.Password) }},
		{"submitting login form", func() error { return c.click(sess, Submit) }},
	}
	for _, step := range steps {
		if err := runStep(ctx, step.name, step.fn); err != nil {
			return nil, err
		}
	}

	if err := c.checkLoggedIn(ctx, sess); err != nil {
		return nil, err
	}

	log.Debug("Login succeeded", nil)
	return sess, nil
}

// checkLoggedIn re-locates the login trigger, which carries the logout label once
// the session is authenticated
func (c *Client) checkLoggedIn(ctx context.Context, sess Session) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: checking login: %w", ErrFetchFailed, err)
	}

	marker, err := c.find(sess, LoginTrigger)
	if errors.Is(err, ErrNoSuchElement) {
		return fmt.Errorf("%w: login marker missing", ErrInvalidAuth)
	}
	if err != nil {
		return fmt.Errorf("%w: checking login: %w", ErrFetchFailed, err)
	}

	label, err := marker.GetAttribute("value")
	if err != nil {
		return fmt.Errorf("%w: reading login marker: %w", ErrFetchFailed, err)
	}
	if label != LoggedInLabel {
		return fmt.Errorf("%w: login marker reads %q", ErrInvalidAuth, label)
	}
	return nil
}

// FetchLoans navigates an authenticated session to the loans page and parses the
// loans table. The session is always closed before returning.
func (c *Client) FetchLoans(ctx context.Context, sess Session) ([]loan.Item, error) {
	defer c.closeSession(sess)

	if err := runStep(ctx, "opening account page", func() error { return c.click(sess, AccountLink) }); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: locating loans link: %w", ErrFetchFailed, err)
	}
	link, err := c.find(sess, LoansLink)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedFetchingAusleihen, err)
	}
	if err := runStep(ctx, "opening loans page", link.Click); err != nil {
		return nil, err
	}

	var source string
	if err := runStep(ctx, "reading loans page", func() error {
		var err error
		source, err = sess.PageSource()
		return err
	}); err != nil {
		return nil, err
	}

	items, err := parseLoans(source, c.locators[LoanRows].Value, c.columns)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing loans table: %w", ErrFetchFailed, err)
	}

	c.log.Debug("Loans table parsed", logger.Fields{"count": len(items)})
	return items, nil
}

func (c *Client) find(sess Session, name string) (Element, error) {
	loc := c.locators[name]
	elem, err := sess.FindElement(loc.By, loc.Value)
	if err != nil {
		return nil, fmt.Errorf("locating %s (%s): %w", name, loc, err)
	}
	return elem, nil
}

func (c *Client) click(sess Session, name string) error {
	elem, err := c.find(sess, name)
	if err != nil {
		return err
	}
	return elem.Click()
}

func (c *Client) sendKeys(sess Session, name, keys string) error {
	elem, err := c.find(sess, name)
	if err != nil {
		return err
	}
	return elem.SendKeys(keys)
}

func (c *Client) closeSession(sess Session) {
	if err := sess.Close(); err != nil {
		c.log.Warn("Closing remote session failed", logger.Fields{"error": err.Error()})
	}
}

// runStep runs one automation step unless ctx is already done, wrapping any failure
// as ErrFetchFailed
func runStep(ctx context.Context, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrFetchFailed, name, err)
	}
	if err := fn(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrFetchFailed, name, err)
	}
	return nil
}
