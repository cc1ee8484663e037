package modelcache

import (
	"fmt"
	"sync"
	"time"
)

// DeviceRegistry tracks the set of execution devices and which caller owns
// each, gating new reservations with a counting semaphore. Size is fixed
// at construction from the device enumerator and never resized.
type DeviceRegistry struct {
	mu     sync.Mutex
	order  []DeviceID          // enumeration order; tie-break for "any free device"
	owners map[DeviceID]CallerID

	// freePermits is a counting semaphore with capacity len(order): one
	// token per device. It must never be acquired while mu is held, or a
	// caller waiting on a permit while holding mu would deadlock against
	// Release, which also needs mu.
	freePermits chan struct{}
}

// NewDeviceRegistry builds a registry over the given devices, all
// initially unowned.
func NewDeviceRegistry(devices []DeviceID) *DeviceRegistry {
	order := append([]DeviceID(nil), devices...)
	owners := make(map[DeviceID]CallerID, len(order))
	permits := make(chan struct{}, len(order))
	for _, d := range order {
		owners[d] = unowned
		permits <- struct{}{}
	}
	return &DeviceRegistry{
		order:       order,
		owners:      owners,
		freePermits: permits,
	}
}

// Devices returns the fixed set of devices this registry was built with.
func (r *DeviceRegistry) Devices() []DeviceID {
	return append([]DeviceID(nil), r.order...)
}

// ownedDeviceLocked returns the device already owned by caller, if any.
// Requires mu held.
func (r *DeviceRegistry) ownedDeviceLocked(caller CallerID) (DeviceID, bool) {
	for _, d := range r.order {
		if r.owners[d] == caller {
			return d, true
		}
	}
	return "", false
}

// Reserve acquires a device for caller, blocking up to timeout for one to
// become free. Reentrant: a caller that already owns a device gets it back
// without consuming a permit. timeout <= 0 waits indefinitely.
func (r *DeviceRegistry) Reserve(caller CallerID, timeout time.Duration) (DeviceID, error) {
	r.mu.Lock()
	if d, ok := r.ownedDeviceLocked(caller); ok {
		r.mu.Unlock()
		return d, nil
	}
	r.mu.Unlock()

	// Block on the semaphore without holding mu; see freePermits comment.
	if timeout <= 0 {
		<-r.freePermits
	} else {
		select {
		case <-r.freePermits:
		case <-time.After(timeout):
			return "", fmt.Errorf("%w: timed out after %s", ErrNoDevice, timeout)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.order {
		if r.owners[d] == unowned {
			r.owners[d] = caller
			logger.WithFields(map[string]any{"device": string(d), "caller": string(caller)}).
				Info("reserved execution device")
			return d, nil
		}
	}
	// A permit was available but no device reads as unowned: should not
	// happen if permits and ownership stay in sync, but never block
	// forever on an internal inconsistency.
	return "", fmt.Errorf("%w: semaphore/ownership desync", ErrNoDevice)
}

// Release clears caller's ownership of device and signals the semaphore.
// Idempotent: releasing an already-unowned device is a no-op. Releasing a
// device owned by a different caller is a defensive no-op, logged as a
// warning, never fatal.
func (r *DeviceRegistry) Release(caller CallerID, device DeviceID) {
	r.mu.Lock()
	owner, ok := r.owners[device]
	if !ok || owner == unowned {
		r.mu.Unlock()
		return
	}
	if owner != caller {
		r.mu.Unlock()
		logger.WithFields(map[string]any{"device": string(device), "caller": string(caller)}).
			Warn("release called by non-owning caller, ignoring")
		return
	}
	r.owners[device] = unowned
	r.mu.Unlock()

	logger.WithField("device", string(device)).Info("released execution device")
	r.freePermits <- struct{}{}
}

// CurrentDevice returns the device owned by caller, or ErrNotReserved.
func (r *DeviceRegistry) CurrentDevice(caller CallerID) (DeviceID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.ownedDeviceLocked(caller); ok {
		return d, nil
	}
	return "", fmt.Errorf("%w: caller %s", ErrNotReserved, caller)
}
