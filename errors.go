package modelcache

import "errors"

// Sentinel errors surfaced to callers, per the error kinds of the cache's
// error handling design. Check with errors.Is; messages are wrapped with
// key/device context at the call site.
var (
	// ErrNotFound is returned by Cache.Get when the key is absent.
	ErrNotFound = errors.New("modelcache: key not found")

	// ErrNotReserved is returned when an operation requires a reserved
	// device but the caller holds none.
	ErrNotReserved = errors.New("modelcache: no device reserved for caller")

	// ErrNoDevice is returned when ReserveDevice times out waiting for a
	// free execution device.
	ErrNoDevice = errors.New("modelcache: no free execution device")

	// ErrOutOfDeviceMemory is returned when materialization cannot place a
	// model on its target device.
	ErrOutOfDeviceMemory = errors.New("modelcache: out of device memory")
)

// errLockedEviction is internal: make_room could not find enough unlocked
// candidates to satisfy the byte budget. It is logged as a warning and
// never surfaced to callers; the over-commit is tolerated for liveness.
var errLockedEviction = errors.New("modelcache: eviction candidates all locked, over-committing budget")
