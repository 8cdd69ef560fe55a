package runtime

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBeginTransferRejectsUnpairedDevice(t *testing.T) {
	rt, _ := newTestRuntime(t)
	_, rerr := rt.beginTransfer("ghost", Uploading, 100, "", 0, 0, 0)
	require.NotNil(t, rerr)
	require.Equal(t, KindNotFound, rerr.Kind)
}

func TestTransferTicketProgressAndClose(t *testing.T) {
	rt, _ := newTestRuntime(t)
	d, _ := approveNewDevice(t, rt, "anon-1", "curl/8", "10.0.0.5")

	ticket, rerr := rt.beginTransfer(d.DeviceID, Uploading, 1000, "", 0, 0, 0)
	require.Nil(t, rerr)
	require.False(t, ticket.Cancelled())

	ticket.AddProgress(400)
	ticket.AddProgress(-50) // ignored: non-positive deltas are dropped
	transferred, total := rt.OverallProgress(Uploading)
	require.Equal(t, int64(400), transferred)
	require.Equal(t, int64(1000), total)

	ticket.Close()
	ticket.Close() // idempotent
}

func TestTransferCancelledAfterRevocation(t *testing.T) {
	rt, _ := newTestRuntime(t)
	d, _ := approveNewDevice(t, rt, "anon-1", "curl/8", "10.0.0.5")

	ticket, rerr := rt.beginTransfer(d.DeviceID, Downloading, 2048, "", 0, 0, 0)
	require.Nil(t, rerr)
	require.False(t, ticket.Cancelled())

	rt.revokeDevice(d.DeviceID)
	require.True(t, ticket.Cancelled())

	ticket.Close()
}

func TestBeginTransferDeniedAfterQueueingIfRevokedBeforeAdmit(t *testing.T) {
	rt, _ := newTestRuntime(t)
	d, _ := approveNewDevice(t, rt, "anon-1", "curl/8", "10.0.0.5")

	first, rerr := rt.beginTransfer(d.DeviceID, Uploading, 10, "", 0, 0, 0)
	require.Nil(t, rerr)

	// Revoke while a second transfer for the same device is still
	// queued behind the device's fair lock (held by `first`).
	done := make(chan struct{})
	var second *TransferTicket
	var secondErr *Error
	go func() {
		second, secondErr = rt.beginTransfer(d.DeviceID, Uploading, 10, "", 0, 0, 0)
		close(done)
	}()

	// Give the goroutine a moment to reach the Admit phase (blocked on
	// the device's fair lock, held by `first`).
	time.Sleep(20 * time.Millisecond)
	rt.revokeDevice(d.DeviceID)
	first.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second beginTransfer never returned")
	}

	require.Nil(t, second)
	require.NotNil(t, secondErr)
	require.Equal(t, KindRevoked, secondErr.Kind)
}

func TestPerDeviceTransfersAreFIFOOrdered(t *testing.T) {
	rt, _ := newTestRuntime(t)
	d, _ := approveNewDevice(t, rt, "anon-1", "curl/8", "10.0.0.5")

	const n = 4
	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	first, rerr := rt.beginTransfer(d.DeviceID, Uploading, 10, "", 0, 0, 0)
	require.Nil(t, rerr)

	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticket, rerr := rt.beginTransfer(d.DeviceID, Uploading, 10, "", 0, 0, 0)
			if rerr != nil {
				return
			}
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			ticket.Close()
		}()
		time.Sleep(20 * time.Millisecond)
	}

	first.Close()
	wg.Wait()

	require.Len(t, order, n)
	for i := 0; i < n; i++ {
		require.Equal(t, i, order[i])
	}
}

func TestBatchAccountingTakesMaxOfReportedTotals(t *testing.T) {
	rt, _ := newTestRuntime(t)
	d, _ := approveNewDevice(t, rt, "anon-1", "curl/8", "10.0.0.5")
	d2, _ := approveNewDevice(t, rt, "anon-2", "curl/8", "10.0.0.6")

	t1, rerr := rt.beginTransfer(d.DeviceID, Uploading, 100, "batch-1", 2, 500, 0)
	require.Nil(t, rerr)

	_, total := rt.OverallProgress(Uploading)
	require.Equal(t, int64(500), total)

	// A second beginTransfer call for the same batch (from a second
	// device, since one device runs one transfer at a time) reports a
	// smaller totalBytes; the singleton must keep the max, not the
	// latest value.
	t2, rerr := rt.beginTransfer(d2.DeviceID, Uploading, 50, "batch-1", 2, 300, 0)
	require.Nil(t, rerr)

	_, total = rt.OverallProgress(Uploading)
	require.Equal(t, int64(500), total, "batch total must take the max of reported totals, not the latest")

	t1.Close()
	t2.Close()
}

func TestBatchSingletonClearsWhenAllFilesComplete(t *testing.T) {
	rt, _ := newTestRuntime(t)
	d, _ := approveNewDevice(t, rt, "anon-1", "curl/8", "10.0.0.5")

	t1, rerr := rt.beginTransfer(d.DeviceID, Downloading, 100, "batch-9", 1, 100, 0)
	require.Nil(t, rerr)
	t1.AddProgress(100)
	t1.Close()

	_, total := rt.OverallProgress(Downloading)
	require.Equal(t, int64(0), total, "batch singleton must clear once completedFiles reaches totalFiles")
}

func TestBatchSingletonReplacedByDifferentBatchID(t *testing.T) {
	rt, _ := newTestRuntime(t)
	d, _ := approveNewDevice(t, rt, "anon-1", "curl/8", "10.0.0.5")
	d2, _ := approveNewDevice(t, rt, "anon-2", "curl/8", "10.0.0.6")

	t1, rerr := rt.beginTransfer(d.DeviceID, Uploading, 100, "batch-a", 5, 1000, 0)
	require.Nil(t, rerr)
	t1.AddProgress(40)

	t2, rerr := rt.beginTransfer(d2.DeviceID, Uploading, 50, "batch-b", 1, 50, 0)
	require.Nil(t, rerr)

	transferred, total := rt.OverallProgress(Uploading)
	require.Equal(t, int64(50), total, "a new batchId replaces the singleton and resets totals")
	require.Equal(t, int64(0), transferred, "a new batchId resets the overall accumulator")

	t1.Close()
	t2.Close()
}
