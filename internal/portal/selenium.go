package portal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
)

// Browser window and mode for every remote session
var chromeArgs = []string{
	"--headless=new",
	"--window-size=1920,1080",
}

// RemoteURL builds the WebDriver endpoint address from host, port and path
func RemoteURL(host, port, path string) string {
	path = "/" + strings.TrimPrefix(path, "/")
	return "http://" + net.JoinHostPort(host, port) + strings.TrimSuffix(path, "/")
}

// NewRemoteOpener returns an Opener that starts headless Chrome sessions on the
// remote WebDriver endpoint
func NewRemoteOpener(endpoint string) Opener {
	return func(ctx context.Context) (Session, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		caps := selenium.Capabilities{"browserName": "chrome"}
		caps.AddChrome(chrome.Capabilities{Args: chromeArgs})

		wd, err := selenium.NewRemote(caps, endpoint)
		if err != nil {
			return nil, fmt.Errorf("connecting to %s: %w", endpoint, err)
		}
		return &remoteSession{wd: wd}, nil
	}
}

// remoteSession adapts a selenium.WebDriver to Session
type remoteSession struct {
	wd selenium.WebDriver
}

func (s *remoteSession) Get(url string) error {
	return s.wd.Get(url)
}

func (s *remoteSession) SetImplicitWait(timeout time.Duration) error {
	return s.wd.SetImplicitWaitTimeout(timeout)
}

func (s *remoteSession) FindElement(by, value string) (Element, error) {
	elem, err := s.wd.FindElement(w3cLocator(by, value))
	if err != nil {
		return nil, mapFindError(err)
	}
	return &remoteElement{elem: elem}, nil
}

func (s *remoteSession) PageSource() (string, error) {
	return s.wd.PageSource()
}

func (s *remoteSession) Close() error {
	return s.wd.Quit()
}

// remoteElement adapts a selenium.WebElement to Element
type remoteElement struct {
	elem selenium.WebElement
}

func (e *remoteElement) Click() error {
	return e.elem.Click()
}

func (e *remoteElement) SendKeys(keys string) error {
	return e.elem.SendKeys(keys)
}

func (e *remoteElement) GetAttribute(name string) (string, error) {
	return e.elem.GetAttribute(name)
}

// cssQuote escapes a value for a double-quoted CSS attribute selector
var cssQuote = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// w3cLocator rewrites id and name lookups as CSS attribute selectors. W3C remote
// ends lack both strategies and the driver's own fallback ("#"+id, input[name])
// breaks on ids such as "L#AUSW" and on non-input elements.
func w3cLocator(by, value string) (string, string) {
	switch by {
	case ByID, ByName:
		return ByCSSSelector, fmt.Sprintf(`[%s="%s"]`, by, cssQuote.Replace(value))
	}
	return by, value
}

// mapFindError turns the WebDriver "no such element" error into ErrNoSuchElement
func mapFindError(err error) error {
	var wdErr *selenium.Error
	if errors.As(err, &wdErr) && wdErr.Err == "no such element" {
		return fmt.Errorf("%w: %s", ErrNoSuchElement, wdErr.Message)
	}
	return err
}
