//go:build !cgo_sqlite

package biblstore

import (
	_ "modernc.org/sqlite"
)

const (
	driverName = "sqlite"
	driverType = "purego"
)
