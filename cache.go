package modelcache

import (
	"fmt"
	"time"
)

// Cache is the public surface of the two-tier residency cache: put, get,
// exists, reserve_device. It threads the entry store, device registry,
// and residency engine together and records statistics.
type Cache struct {
	entries   *EntryStore
	devices   *DeviceRegistry
	residency *ResidencyEngine
	sizer     Sizer
	hinter    MemoryHinter // optional empty_device_cache collaborator

	cfg   Config
	stats *Stats // optional; nil disables all counting
}

// New builds a Cache. factory and sizer are the external collaborators of
// §6; enumerator supplies the fixed set of execution devices at startup.
func New(cfg Config, enumerator DeviceEnumerator, factory Factory, sizer Sizer) (*Cache, error) {
	cfg.applyDefaults()

	devices, err := enumerator.Devices()
	if err != nil {
		return nil, fmt.Errorf("modelcache: enumerating devices: %w", err)
	}

	logger.WithField("devices", devices).Info("modelcache: initialized device registry")

	return &Cache{
		entries:   NewEntryStore(cfg.MaxCacheBytes),
		devices:   NewDeviceRegistry(devices),
		residency: NewResidencyEngine(factory, cfg.Precision),
		sizer:     sizer,
		cfg:       cfg,
	}, nil
}

// WithStats attaches a Stats block; all counters stay at zero until this
// is called.
func (c *Cache) WithStats(s *Stats) *Cache {
	c.stats = s
	return c
}

// WithMemoryHinter attaches the optional memory-hinting collaborator
// (e.g. an empty_device_cache call) invoked after eviction and offload.
func (c *Cache) WithMemoryHinter(h MemoryHinter) *Cache {
	c.hinter = h
	return c
}

// WithSnapshotter attaches the residency engine's optional advisory
// memory-snapshot diagnostic, gated by the cache's log_memory_usage
// configuration option.
func (c *Cache) WithSnapshotter(s MemorySnapshotter) *Cache {
	c.residency.WithSnapshotter(s, c.cfg.LogMemoryUsage)
	return c
}

// WithFreeVRAMReporter attaches the optional VRAM preflight collaborator.
func (c *Cache) WithFreeVRAMReporter(r FreeVRAMReporter) *Cache {
	c.residency.WithFreeVRAMReporter(r)
	return c
}

// Stats returns the attached Stats block, or nil if none was configured.
func (c *Cache) Stats() *Stats {
	return c.stats
}

// ByteBudget returns the host-memory budget.
func (c *Cache) ByteBudget() int64 { return c.entries.ByteBudget() }

// SetByteBudget updates the host-memory budget. Pure configuration.
func (c *Cache) SetByteBudget(n int64) { c.entries.SetByteBudget(n) }

// VRAMBudget returns the configured device-memory budget. Advisory only
// in this core: it is never enforced directly, only carried for callers
// (or a FreeVRAMReporter) that want to reason about it.
func (c *Cache) VRAMBudget() int64 { return c.cfg.MaxVRAMBytes }

// SetVRAMBudget updates the advisory device-memory budget.
func (c *Cache) SetVRAMBudget(n int64) { c.cfg.MaxVRAMBytes = n }

// Put stores model under the canonical key formed from modelKey and the
// optional submodel tag. If the key is already present, Put returns
// without change. A later Put for the same key never replaces the
// first. If model is a framework-recognized parameterized module, it is
// stored as a Reconstructable record (its class descriptor, config, and
// state dict are captured); otherwise it is stored as an Opaque record.
func (c *Cache) Put(modelKey string, model any, tag string) error {
	key := NewKey(modelKey, tag)

	if _, ok := c.entries.Lookup(key); ok {
		return nil
	}

	size, err := c.sizer.SizeOf(model)
	if err != nil {
		return fmt.Errorf("modelcache: sizing model %s: %w", key, err)
	}

	var rec Record
	if pm, ok := model.(ParameterizedModule); ok {
		rec = NewReconstructableRecord(key, size, pm.ClassDescriptor(), pm.ModuleConfig(), pm.StateDict())
	} else {
		rec = NewOpaqueRecord(key, size, model)
	}

	_, evicted := c.entries.Insert(key, rec)
	if c.stats != nil {
		c.stats.recordEvictions(evicted)
	}
	if evicted > 0 && c.hinter != nil {
		for _, d := range c.devices.Devices() {
			c.hinter.EmptyDeviceCache(d)
		}
	}
	return nil
}

// Get looks up modelKey/tag and returns a fresh LockHandle over its
// record. This call does not itself move the model to any device; only
// LockHandle.Lock does. On miss it increments stats.misses and returns
// ErrNotFound; on hit it increments stats.hits, updates the high
// watermark, in-cache count and per-name peak size, and touches recency.
func (c *Cache) Get(modelKey, tag, statsName string) (*LockHandle, error) {
	key := NewKey(modelKey, tag)

	rec, ok := c.entries.Lookup(key)
	if !ok {
		if c.stats != nil {
			c.stats.recordMiss()
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	if c.stats != nil {
		name := statsName
		if name == "" {
			name = key.String()
		}
		c.stats.recordHit(name, c.entries.ByteBudget(), c.entries.CurrentBytes(), c.entries.InCacheCount(), rec.SizeBytes())
	}

	c.entries.Touch(key)

	return &LockHandle{cache: c, record: rec}, nil
}

// Exists reports whether modelKey/tag is a member of the cache. It does
// not touch recency.
func (c *Cache) Exists(modelKey, tag string) bool {
	_, ok := c.entries.Lookup(NewKey(modelKey, tag))
	return ok
}

// ReserveDevice is a scoped wrapper over the device registry: it reserves
// a device for caller, waiting up to timeout (<=0 waits indefinitely),
// and returns a release function the caller must invoke on every exit
// path, typically via defer, to give the device back.
func (c *Cache) ReserveDevice(caller CallerID, timeout time.Duration) (DeviceID, func(), error) {
	device, err := c.devices.Reserve(caller, timeout)
	if err != nil {
		return "", func() {}, err
	}

	release := func() {
		c.devices.Release(caller, device)
		if c.hinter != nil {
			c.hinter.EmptyDeviceCache(device)
		}
	}
	return device, release, nil
}

// offloadUnlockedRecords drops the device-resident copy of every record
// with zero active locks, then hints the device allocator to reclaim.
// Called by LockHandle.Unlock after every release.
func (c *Cache) offloadUnlockedRecords() {
	c.entries.mu.Lock()
	var toClear []Record
	var devicesTouched = map[DeviceID]struct{}{}
	for _, m := range c.entries.records {
		if m.record.Locks() == 0 {
			if d, ok := m.record.ResidentDevice(); ok {
				devicesTouched[d] = struct{}{}
			}
			toClear = append(toClear, m.record)
		}
	}
	c.entries.mu.Unlock()

	for _, r := range toClear {
		r.clearResidentDevice()
	}

	if c.hinter != nil {
		for d := range devicesTouched {
			c.hinter.EmptyDeviceCache(d)
		}
	}
}

// LogStats emits a single diagnostic line summarizing current byte usage
// against budget and the number of resident records.
func (c *Cache) LogStats() {
	logger.WithFields(map[string]any{
		"bytes_used":  c.entries.CurrentBytes(),
		"byte_budget": c.entries.ByteBudget(),
		"in_cache":    c.entries.InCacheCount(),
	}).Info("modelcache: cache usage")
}

// CurrentBytes returns the sum of size_bytes over all records.
func (c *Cache) CurrentBytes() int64 { return c.entries.CurrentBytes() }
