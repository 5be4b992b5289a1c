// Package id generates time-sortable identifiers for trade records. ULIDs
// sort lexicographically by creation time, which keeps journal queries and
// SQLite indexes cheap.
package id

import "github.com/oklog/ulid/v2"

// New returns a fresh ULID string.
func New() string {
	return ulid.Make().String()
}
