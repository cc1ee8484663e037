package modelcache

import (
	"errors"
	"sync"
)

// LockHandle is a scoped token returned by Cache.Get: while held, it
// drives load-on-enter and offload-on-exit residency transitions for one
// record. Handles must be paired so Unlock runs on every exit path,
// including exceptional ones, typically via defer.
type LockHandle struct {
	cache  *Cache
	record Record

	mu     sync.Mutex
	locked bool
}

// Lock increments the record's active lock count, resolves caller's
// reserved device, and materializes the record onto it. On any failure
// the lock count is rolled back and the error is propagated; the record
// itself is left untouched.
func (h *LockHandle) Lock(caller CallerID) (DeviceModel, error) {
	h.record.incLocks()

	device, err := h.cache.devices.CurrentDevice(caller)
	if err != nil {
		h.record.decLocks()
		return nil, err
	}

	model, err := h.cache.residency.Materialize(h.record, device)
	if err != nil {
		h.record.decLocks()
		if errors.Is(err, ErrOutOfDeviceMemory) {
			withKey(h.record.Key()).WithField("device", string(device)).
				Warn("insufficient device memory to load model, aborting lock")
		}
		return nil, err
	}

	h.record.setResidentDevice(device)
	h.mu.Lock()
	h.locked = true
	h.mu.Unlock()

	return model, nil
}

// Unlock decrements the active lock count and asks the facade to offload
// any now-unlocked records. Idempotent: a second call is a no-op. A
// handle whose Lock failed need not call Unlock; it never incremented.
func (h *LockHandle) Unlock() {
	h.mu.Lock()
	if !h.locked {
		h.mu.Unlock()
		return
	}
	h.locked = false
	h.mu.Unlock()

	h.record.decLocks()
	h.cache.offloadUnlockedRecords()
}
