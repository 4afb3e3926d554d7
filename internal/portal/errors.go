package portal

import "errors"

var (
	// ErrInvalidAuth means the submitted credentials did not yield a logged-in session
	ErrInvalidAuth = errors.New("invalid credentials")

	// ErrFailedFetchingAusleihen means the session was authenticated but the loans
	// page link could not be located
	ErrFailedFetchingAusleihen = errors.New("loans page link not found")

	// ErrFetchFailed wraps any other automation failure
	ErrFetchFailed = errors.New("fetch failed")

	// ErrNoSuchElement is returned by a Session when a locator matches nothing
	ErrNoSuchElement = errors.New("no such element")
)

// Kind returns a short name for the failure class of err, suitable for logs,
// metrics and API responses. Returns "" for a nil error.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidAuth):
		return "invalid_auth"
	case errors.Is(err, ErrFailedFetchingAusleihen):
		return "failed_fetching_ausleihen"
	default:
		return "fetch_failed"
	}
}
