// Package cli implements the command-line interface for voebb.
//
// The cli package provides the Cobra-based CLI: check fetches the loans of one or all
// configured accounts and prints them (text/JSON, sorted by date/title/library), login
// validates a library card against the portal, serve polls every account on a schedule
// behind the HTTP API, and calendar exports stored due dates as iCalendar. It wires the
// portal, tracker, storage, notifier and api packages together.
package cli
