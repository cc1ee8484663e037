package modelcache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, budget int64, devices []DeviceID) *Cache {
	t.Helper()
	cfg := DefaultConfig()
	cfg.MaxCacheBytes = budget
	c, err := New(cfg, fakeEnumeratorT{devices}, factoryStub{}, fakeSizerT{})
	require.NoError(t, err)
	return c
}

type fakeEnumeratorT struct{ devices []DeviceID }

func (f fakeEnumeratorT) Devices() ([]DeviceID, error) { return f.devices, nil }

type fakeSizerT struct{}

func (fakeSizerT) SizeOf(model any) (int64, error) { return 10, nil }

func TestLockHandleLockRequiresReservedDevice(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, 0, []DeviceID{"cuda:0"})
	require.NoError(t, c.Put("m", &movableStub{}, ""))

	handle, err := c.Get("m", "", "")
	require.NoError(t, err)

	caller := NewCallerID()
	_, err = handle.Lock(caller)
	require.ErrorIs(t, err, ErrNotReserved)
	require.Zero(t, handle.record.Locks(), "a failed Lock must roll back its increment")
}

func TestLockHandleLockAndUnlock(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, 0, []DeviceID{"cuda:0"})
	model := &movableStub{}
	require.NoError(t, c.Put("m", model, ""))

	caller := NewCallerID()
	device, release, err := c.ReserveDevice(caller, 0)
	require.NoError(t, err)
	defer release()

	handle, err := c.Get("m", "", "")
	require.NoError(t, err)

	out, err := handle.Lock(caller)
	require.NoError(t, err)
	require.NotNil(t, out)
	require.EqualValues(t, 1, handle.record.Locks())

	resident, ok := handle.record.ResidentDevice()
	require.True(t, ok)
	require.Equal(t, device, resident)

	handle.Unlock()
	require.Zero(t, handle.record.Locks())

	// Unlock is idempotent.
	handle.Unlock()
	require.Zero(t, handle.record.Locks())
}

func TestLockHandleUnlockOffloadsOnlyFullyUnlockedRecords(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, 0, []DeviceID{"cuda:0"})
	require.NoError(t, c.Put("m", &movableStub{}, ""))

	caller := NewCallerID()
	_, release, err := c.ReserveDevice(caller, 0)
	require.NoError(t, err)
	defer release()

	first, err := c.Get("m", "", "")
	require.NoError(t, err)
	second, err := c.Get("m", "", "")
	require.NoError(t, err)

	_, err = first.Lock(caller)
	require.NoError(t, err)
	_, err = second.Lock(caller)
	require.NoError(t, err)

	first.Unlock()
	_, stillResident := first.record.ResidentDevice()
	require.True(t, stillResident, "a record with an outstanding lock must stay resident")

	second.Unlock()
	_, resident := first.record.ResidentDevice()
	require.False(t, resident, "the last unlock must offload the now-unlocked record")
}
