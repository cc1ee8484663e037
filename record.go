package modelcache

import (
	"sync"
	"sync/atomic"
)

// Record is the shared contract of the two record shapes a cache entry
// can take. size_bytes is set at insertion and never mutates;
// active_locks never goes negative; a record with active_locks > 0 must
// never be evicted.
type Record interface {
	Key() Key
	SizeBytes() int64

	// Locks returns the current active lock count.
	Locks() int32
	incLocks() int32
	decLocks() int32

	ResidentDevice() (DeviceID, bool)
	setResidentDevice(DeviceID)
	clearResidentDevice()
}

// recordHeader is the common header embedded by both record shapes.
//
// Record must be a pointer, because it contains mutexes: it is shared
// between the entry holding it in the store and any in-flight lock handle.
type recordHeader struct {
	key         Key
	sizeBytes   int64
	activeLocks int32 // accessed via sync/atomic

	mu             sync.Mutex // guards residentDevice/hasResident
	residentDevice DeviceID
	hasResident    bool
}

func (h *recordHeader) Key() Key         { return h.key }
func (h *recordHeader) SizeBytes() int64 { return h.sizeBytes }

func (h *recordHeader) ResidentDevice() (DeviceID, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.residentDevice, h.hasResident
}

func (h *recordHeader) setResidentDevice(d DeviceID) {
	h.mu.Lock()
	h.residentDevice = d
	h.hasResident = true
	h.mu.Unlock()
}

func (h *recordHeader) clearResidentDevice() {
	h.mu.Lock()
	h.residentDevice = ""
	h.hasResident = false
	h.mu.Unlock()
}

// Locks returns the current active lock count.
func (h *recordHeader) Locks() int32 {
	return atomic.LoadInt32(&h.activeLocks)
}

func (h *recordHeader) incLocks() int32 {
	return atomic.AddInt32(&h.activeLocks, 1)
}

func (h *recordHeader) decLocks() int32 {
	return atomic.AddInt32(&h.activeLocks, -1)
}

// OpaqueRecord owns a single host-resident model object. Device-resident
// copies are produced by deep-copy then move, if the model supports it;
// host-only models are returned by reference on materialization.
type OpaqueRecord struct {
	*recordHeader
	Model any
}

// NewOpaqueRecord builds an Opaque record for model under key.
func NewOpaqueRecord(key Key, sizeBytes int64, model any) *OpaqueRecord {
	return &OpaqueRecord{
		recordHeader: &recordHeader{key: key, sizeBytes: sizeBytes},
		Model:        model,
	}
}

// ReconstructableRecord owns the materials to rebuild a model from a
// class descriptor, configuration, and an immutable weight map. Callers
// who want to patch weights must patch their device-local copy; the
// WeightMap here is shared read-only by convention.
type ReconstructableRecord struct {
	*recordHeader
	ClassDescriptor any
	Config          any
	Weights         WeightMap
}

// NewReconstructableRecord builds a Reconstructable record.
func NewReconstructableRecord(key Key, sizeBytes int64, classDescriptor, config any, weights WeightMap) *ReconstructableRecord {
	return &ReconstructableRecord{
		recordHeader:    &recordHeader{key: key, sizeBytes: sizeBytes},
		ClassDescriptor: classDescriptor,
		Config:          config,
		Weights:         weights,
	}
}
