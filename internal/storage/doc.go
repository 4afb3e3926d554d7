// Package storage provides bbolt-based persistence for loan snapshots.
//
// The storage package keeps the last-known-good snapshot of every configured account
// in a single bbolt database, one key per account username. Records are JSON,
// optionally sealed with a passphrase (see package crypto). The default storage
// location is ~/.local/share/voebb/.
package storage
