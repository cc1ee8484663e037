package modelcache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDeviceRegistryReserveRelease(t *testing.T) {
	t.Parallel()

	r := NewDeviceRegistry([]DeviceID{"cuda:0", "cuda:1"})
	caller := NewCallerID()

	d, err := r.Reserve(caller, time.Second)
	require.NoError(t, err)
	require.Contains(t, []DeviceID{"cuda:0", "cuda:1"}, d)

	current, err := r.CurrentDevice(caller)
	require.NoError(t, err)
	require.Equal(t, d, current)

	r.Release(caller, d)
	_, err = r.CurrentDevice(caller)
	require.ErrorIs(t, err, ErrNotReserved)
}

func TestDeviceRegistryReentrant(t *testing.T) {
	t.Parallel()

	r := NewDeviceRegistry([]DeviceID{"cuda:0"})
	caller := NewCallerID()

	first, err := r.Reserve(caller, time.Second)
	require.NoError(t, err)

	// A caller that already owns a device gets it back without blocking
	// on the semaphore a second time.
	second, err := r.Reserve(caller, time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestDeviceRegistryTimeout(t *testing.T) {
	t.Parallel()

	r := NewDeviceRegistry([]DeviceID{"cuda:0"})
	owner := NewCallerID()
	_, err := r.Reserve(owner, time.Second)
	require.NoError(t, err)

	waiter := NewCallerID()
	_, err = r.Reserve(waiter, 10*time.Millisecond)
	require.ErrorIs(t, err, ErrNoDevice)
}

func TestDeviceRegistryReleaseWakesWaiter(t *testing.T) {
	t.Parallel()

	r := NewDeviceRegistry([]DeviceID{"cuda:0"})
	owner := NewCallerID()
	d, err := r.Reserve(owner, time.Second)
	require.NoError(t, err)

	waiter := NewCallerID()
	var wg sync.WaitGroup
	wg.Add(1)
	var gotErr error
	go func() {
		defer wg.Done()
		_, gotErr = r.Reserve(waiter, time.Second)
	}()

	time.Sleep(20 * time.Millisecond)
	r.Release(owner, d)
	wg.Wait()

	require.NoError(t, gotErr)
}

func TestDeviceRegistryReleaseByNonOwnerIsNoop(t *testing.T) {
	t.Parallel()

	r := NewDeviceRegistry([]DeviceID{"cuda:0"})
	owner := NewCallerID()
	d, err := r.Reserve(owner, time.Second)
	require.NoError(t, err)

	r.Release(NewCallerID(), d)

	current, err := r.CurrentDevice(owner)
	require.NoError(t, err)
	require.Equal(t, d, current)
}
