// Package tracker keeps the loan state of one configured VOEBB account.
//
// A Sensor owns the account's fetch state (last successful fetch time and item list),
// decides on every Update whether the cool-down window allows a fresh fetch, and
// renders the entity surface: a human-readable state naming the next item to return
// and the full item list as attributes. Failed updates never touch the cached list.
package tracker
