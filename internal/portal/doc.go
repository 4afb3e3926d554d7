// Package portal drives the VOEBB web portal through a remote browser session.
//
// The portal package opens a headless browser on a remote WebDriver endpoint, logs in
// with the account's credentials, navigates to the current loans page and parses the
// loans table into loan items. Element locators are data (see Locators), so markup
// changes on the portal only require configuration changes.
//
// Every fetch opens its own session and closes it on every exit path. Failures are
// reported as one of ErrInvalidAuth, ErrFailedFetchingAusleihen or ErrFetchFailed.
package portal
