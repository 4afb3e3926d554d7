package portal

import (
	"context"
	"time"
)

// Session is one remote browser session
type Session interface {
	Get(url string) error
	SetImplicitWait(timeout time.Duration) error
	// FindElement returns an error wrapping ErrNoSuchElement when nothing matches
	FindElement(by, value string) (Element, error)
	PageSource() (string, error)
	Close() error
}

// Element is one element located in a Session
type Element interface {
	Click() error
	SendKeys(keys string) error
	GetAttribute(name string) (string, error)
}

// Opener creates a fresh, isolated Session
type Opener func(ctx context.Context) (Session, error)
