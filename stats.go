package modelcache

import "sync"

// Stats is the optional counters block. All increments on a Cache are
// guarded by "if stats"; a Cache built without one skips them entirely.
type Stats struct {
	mu sync.Mutex

	Hits               uint64
	Misses             uint64
	HighWatermarkBytes int64
	InCacheCount       int
	Evictions          int
	ByteBudget         int64
	PerNamePeakSize    map[string]int64
}

// NewStats builds an empty stats block.
func NewStats() *Stats {
	return &Stats{PerNamePeakSize: make(map[string]int64)}
}

func (s *Stats) recordHit(statsName string, byteBudget, highWatermark int64, inCacheCount int, size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Hits++
	s.ByteBudget = byteBudget
	if highWatermark > s.HighWatermarkBytes {
		s.HighWatermarkBytes = highWatermark
	}
	s.InCacheCount = inCacheCount
	if size > s.PerNamePeakSize[statsName] {
		s.PerNamePeakSize[statsName] = size
	}
}

func (s *Stats) recordMiss() {
	s.mu.Lock()
	s.Misses++
	s.mu.Unlock()
}

func (s *Stats) recordEvictions(n int) {
	if n == 0 {
		return
	}
	s.mu.Lock()
	s.Evictions += n
	s.mu.Unlock()
}

// Snapshot returns an immutable copy suitable for serialization to a
// StatsSink.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	peak := make(map[string]int64, len(s.PerNamePeakSize))
	for k, v := range s.PerNamePeakSize {
		peak[k] = v
	}
	return StatsSnapshot{
		Hits:               s.Hits,
		Misses:             s.Misses,
		HighWatermarkBytes: s.HighWatermarkBytes,
		InCacheCount:       s.InCacheCount,
		Evictions:          s.Evictions,
		ByteBudget:         s.ByteBudget,
		PerNamePeakSize:    peak,
	}
}

// StatsSnapshot is a point-in-time, JSON-serializable copy of Stats,
// published to StatsSink implementations.
type StatsSnapshot struct {
	Hits               uint64           `json:"hits"`
	Misses             uint64           `json:"misses"`
	HighWatermarkBytes int64            `json:"high_watermark_bytes"`
	InCacheCount       int              `json:"in_cache_count"`
	Evictions          int              `json:"evictions"`
	ByteBudget         int64            `json:"byte_budget"`
	PerNamePeakSize    map[string]int64 `json:"per_name_peak_size"`
}
