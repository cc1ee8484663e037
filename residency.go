package modelcache

import (
	"fmt"
	"math"
)

const mib = 1 << 20

// ResidencyEngine materializes a device-resident copy of a record on
// demand, handling both the Opaque and Reconstructable record shapes.
type ResidencyEngine struct {
	factory     Factory
	precision   Precision
	snapshotter MemorySnapshotter // optional, §4.3 advisory diagnostic
	freeVRAM    FreeVRAMReporter  // optional, VRAM preflight check

	logMemoryUsage bool
}

// NewResidencyEngine builds an engine that reconstructs shells via factory
// at the given default precision.
func NewResidencyEngine(factory Factory, precision Precision) *ResidencyEngine {
	return &ResidencyEngine{factory: factory, precision: precision}
}

// WithSnapshotter attaches the optional memory-snapshot diagnostic.
func (e *ResidencyEngine) WithSnapshotter(s MemorySnapshotter, enabled bool) *ResidencyEngine {
	e.snapshotter = s
	e.logMemoryUsage = enabled
	return e
}

// WithFreeVRAMReporter attaches the optional VRAM preflight check.
func (e *ResidencyEngine) WithFreeVRAMReporter(r FreeVRAMReporter) *ResidencyEngine {
	e.freeVRAM = r
	return e
}

// Materialize produces a device-resident copy of record on target, per the
// record's shape. Any failure other than ErrOutOfDeviceMemory is fatal
// only to this attempt; the record itself is left untouched and remains
// host-resident and loadable later.
func (e *ResidencyEngine) Materialize(record Record, target DeviceID) (DeviceModel, error) {
	if e.freeVRAM != nil {
		free, err := e.freeVRAM.FreeBytes(target)
		if err == nil && free < record.SizeBytes() {
			return nil, fmt.Errorf("%w: need %d bytes, %d free on %s",
				ErrOutOfDeviceMemory, record.SizeBytes(), free, target)
		}
	}

	switch r := record.(type) {
	case *OpaqueRecord:
		return e.materializeOpaque(r, target)
	case *ReconstructableRecord:
		return e.materializeReconstructable(r, target)
	default:
		return nil, fmt.Errorf("modelcache: unrecognized record type %T", record)
	}
}

func (e *ResidencyEngine) materializeOpaque(r *OpaqueRecord, target DeviceID) (DeviceModel, error) {
	mover, ok := r.Model.(MovableModel)
	if !ok {
		// Host-only model: this is defined behavior, not a failure.
		return r.Model, nil
	}

	before := e.snapshot(target)

	clone := mover.DeepCopy()
	if err := clone.MoveTo(target); err != nil {
		return nil, e.wrapMoveError(err)
	}

	after := e.snapshot(target)
	e.checkMemoryDelta(r.Key(), r.SizeBytes(), before, after)
	return clone, nil
}

func (e *ResidencyEngine) materializeReconstructable(r *ReconstructableRecord, target DeviceID) (DeviceModel, error) {
	before := e.snapshot(target)

	var (
		shell Shell
		err   error
	)
	suppressInit := func(fn func()) { fn() }
	shell, err = e.factory.Build(r.ClassDescriptor, r.Config, suppressInit)
	if err != nil {
		return nil, fmt.Errorf("modelcache: building shell for %s: %w", r.Key(), err)
	}

	precision := e.precision
	if err := shell.MoveTo(target, precision); err != nil {
		return nil, e.wrapMoveError(err)
	}
	if err := shell.LoadWeights(r.Weights); err != nil {
		return nil, fmt.Errorf("modelcache: loading weights for %s: %w", r.Key(), err)
	}

	after := e.snapshot(target)
	e.checkMemoryDelta(r.Key(), r.SizeBytes(), before, after)
	return shell, nil
}

func (e *ResidencyEngine) wrapMoveError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrOutOfDeviceMemory, err)
}

// snapshot captures device memory usage if a snapshotter is configured and
// enabled; nil otherwise.
func (e *ResidencyEngine) snapshot(device DeviceID) *int64 {
	if !e.logMemoryUsage || e.snapshotter == nil {
		return nil
	}
	used, err := e.snapshotter.Snapshot(device)
	if err != nil {
		return nil
	}
	return &used
}

// checkMemoryDelta is advisory only: it emits a diagnostic log line when
// the observed device-memory delta disagrees with the record's declared
// size by more than max(10%, 10 MiB). It never affects control flow.
func (e *ResidencyEngine) checkMemoryDelta(key Key, sizeBytes int64, before, after *int64) {
	if before == nil || after == nil {
		return
	}
	delta := *after - *before
	if delta < 0 {
		delta = -delta
	}

	tolerance := int64(math.Round(float64(sizeBytes) * 0.1))
	if tolerance < 10*mib {
		tolerance = 10 * mib
	}

	diff := delta - sizeBytes
	if diff < 0 {
		diff = -diff
	}
	if diff > tolerance {
		withKey(key).WithFields(map[string]any{
			"declared_bytes": sizeBytes,
			"observed_delta": delta,
		}).Warn("materialize: observed device-memory delta diverges from declared size")
	}
}
