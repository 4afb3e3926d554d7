// Package loan provides types and functions for items currently borrowed from VOEBB.
//
// The loan package handles item representation, parsing of the portal's free-text
// title column, due-date parsing, ordering by due date, and change detection between
// two successive fetches. Each item is assigned a deterministic SHA1-based key generated
// from all of its fields, so two items are equal exactly when their keys are equal.
package loan
