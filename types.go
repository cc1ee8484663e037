package modelcache

// DeviceID identifies an execution device, e.g. "cuda:0" or the storage
// tier's "host". Values come from the device enumerator and are otherwise
// opaque to the cache.
type DeviceID string

// Precision names the numeric precision a reconstructed model is moved to.
type Precision string

const (
	FP32 Precision = "fp32"
	FP16 Precision = "fp16"
	BF16 Precision = "bf16"
)

// Tensor is an opaque weight value; the cache never inspects its contents,
// only stores and forwards it to a Shell's LoadWeights.
type Tensor any

// WeightMap is the immutable mapping from parameter name to tensor that
// populates a reconstructed shell. Callers must never mutate a WeightMap
// obtained from a cached record.
type WeightMap map[string]Tensor

// DeviceModel is whatever a Materialize call hands back to a caller: either
// the original or deep-copied opaque model, or a populated Shell.
type DeviceModel = any

// MovableModel is the capability an Opaque record's model may expose. Models
// without it are declared host-only and are returned as-is by the
// residency engine.
type MovableModel interface {
	// DeepCopy returns a structurally independent copy of the model so that
	// concurrent callers never share mutable device-resident state.
	DeepCopy() MovableModel

	// MoveTo relocates the receiver onto device in place.
	MoveTo(device DeviceID) error
}

// Shell is what the Factory contract returns: an uninitialized model ready
// to be placed on a device and loaded with weights.
type Shell interface {
	MoveTo(device DeviceID, precision Precision) error
	LoadWeights(weights WeightMap) error
}

// Factory is the external collaborator that builds empty shells from a
// class descriptor and configuration. suppressInit wraps whatever
// construction call the factory makes internally; the weights will be
// overwritten by LoadWeights immediately after. The suppressInit the
// residency engine passes runs the wrapped call as is: it does not itself
// disable any default weight initialization.
type Factory interface {
	Build(classDescriptor, config any, suppressInit func(func())) (Shell, error)
}

// Sizer estimates the host-memory footprint of an arbitrary model object.
type Sizer interface {
	SizeOf(model any) (int64, error)
}

// DeviceEnumerator reports the set of execution devices available at
// startup. The device registry never resizes after construction.
type DeviceEnumerator interface {
	Devices() ([]DeviceID, error)
}

// MemoryHinter is the optional memory-hinting collaborator invoked after
// eviction and after offload (e.g. an empty_device_cache-style call).
type MemoryHinter interface {
	EmptyDeviceCache(device DeviceID)
}

// MemorySnapshotter captures device-memory usage for the advisory
// post-materialization diagnostic of the residency engine. Optional.
type MemorySnapshotter interface {
	Snapshot(device DeviceID) (bytesUsed int64, err error)
}

// FreeVRAMReporter is an optional preflight collaborator: when present, the
// residency engine consults it before attempting a move so an
// out-of-memory condition can fail fast instead of mid-copy.
type FreeVRAMReporter interface {
	FreeBytes(device DeviceID) (int64, error)
}

// ParameterizedModule is the hook a host model implements to be recognized
// as a framework parameterized module and stored as a Reconstructable
// record instead of an Opaque one.
type ParameterizedModule interface {
	ClassDescriptor() any
	ModuleConfig() any
	StateDict() WeightMap
}
