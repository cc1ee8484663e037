package modelcache

import uuid "github.com/satori/go.uuid"

// CallerID is a stable token for the current unit of execution: the
// identity a caller presents to ReserveDevice and LockHandle.Lock.
//
// Go has no portable equivalent of a current-thread identifier
// (goroutines are not OS threads and expose no stable id), so rather than
// approximate one, callers mint an explicit CallerID, once per logical
// session or worker goroutine, and thread it through their calls. This
// is the "session identity" alternative to thread identity; see
// DESIGN.md for the full reasoning.
type CallerID string

// unowned marks a device table slot with no current owner.
const unowned CallerID = ""

// NewCallerID mints a fresh caller identity.
func NewCallerID() CallerID {
	return CallerID(uuid.Must(uuid.NewV4()).String())
}
