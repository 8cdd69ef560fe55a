package runtime

import "github.com/mediabus/mediabus-host/pkg/mblog"

// beginTransfer admits a new upload or download for deviceID following
// the three-phase protocol described for Runtime: Queue (under the
// global lock), Admit (blocks on the device's fair lock with the
// global lock released), Run (re-verify under the global lock, then
// flip active). The global lock is never held while blocked on the
// device lock.
func (r *Runtime) beginTransfer(deviceID string, direction Direction, totalBytes int64, batchID string, batchTotalFiles int, batchTotalBytes int64, batchCompletedFiles int) (*TransferTicket, *Error) {
	// Queue.
	r.mu.Lock()
	if _, ok := r.paired[deviceID]; !ok {
		r.mu.Unlock()
		return nil, newError(KindNotFound, "device is not paired")
	}
	dr := r.ensureDeviceRuntimeLocked(deviceID)
	generation := dr.CancelGeneration
	dr.QueuedTransfers++
	r.mu.Unlock()

	// Admit: may block for an arbitrarily long time; must happen with
	// the global lock released.
	dr.lock.Lock()

	// Run.
	r.mu.Lock()
	if _, ok := r.paired[deviceID]; !ok || dr.CancelGeneration != generation {
		dr.QueuedTransfers--
		r.mu.Unlock()
		dr.lock.Unlock()
		return nil, newError(KindRevoked, "device was revoked while the transfer was queued")
	}

	id := newTransferID()
	t := &Transfer{
		ID:         id,
		DeviceID:   deviceID,
		Direction:  direction,
		TotalBytes: totalBytes,
		Active:     true,
		Generation: generation,
		BatchID:    batchID,
	}
	dr.QueuedTransfers--
	dr.ActiveTransfers++

	// Batch accounting runs before the new transfer is recorded, so its
	// "no active transfers" check sees only transfers already running.
	r.applyBatchLocked(direction, batchID, batchTotalFiles, batchTotalBytes)
	r.transfers[id] = t

	now := r.clock.NowMs()
	r.emitTransfer(now, deviceID, "started", &mblog.TransferEvent{
		TransferID: id,
		Direction:  transferDirection(direction),
		TotalBytes: totalBytes,
	})
	r.mu.Unlock()

	return &TransferTicket{
		runtime:    r,
		deviceRT:   dr,
		transferID: id,
		deviceID:   deviceID,
		direction:  direction,
		generation: generation,
	}, nil
}

func transferDirection(d Direction) mblog.Direction {
	if d == Downloading {
		return mblog.DirectionDownload
	}
	return mblog.DirectionUpload
}

// batchSlotLocked returns a pointer to the direction's batch singleton
// slot so callers can read or replace it in place. Callers must hold mu.
func (r *Runtime) batchSlotLocked(direction Direction) **batchState {
	if direction == Uploading {
		return &r.uploadBatch
	}
	return &r.downloadBatch
}

func (r *Runtime) overallAccumulatorLocked(direction Direction) *int64 {
	if direction == Uploading {
		return &r.overallUploadTransferred
	}
	return &r.overallDownloadTransferred
}

// activeTransferTotalBytesLocked sums TotalBytes across every active
// transfer in the given direction. Callers must hold mu.
func (r *Runtime) activeTransferTotalBytesLocked(direction Direction) int64 {
	var sum int64
	for _, t := range r.transfers {
		if t.Direction == direction && t.Active {
			sum += t.TotalBytes
		}
	}
	return sum
}

func (r *Runtime) activeTransferCountLocked(direction Direction) int {
	n := 0
	for _, t := range r.transfers {
		if t.Direction == direction && t.Active {
			n++
		}
	}
	return n
}

// applyBatchLocked implements the batch accounting policy from
// beginTransfer. Callers must hold mu.
func (r *Runtime) applyBatchLocked(direction Direction, batchID string, totalFiles int, totalBytes int64) {
	slot := r.batchSlotLocked(direction)
	acc := r.overallAccumulatorLocked(direction)

	if batchID == "" {
		if r.activeTransferCountLocked(direction) == 0 {
			*slot = nil
			*acc = 0
		}
		return
	}

	if *slot != nil && (*slot).BatchID == batchID {
		if totalFiles > (*slot).TotalFiles {
			(*slot).TotalFiles = totalFiles
		}
		if totalBytes > (*slot).TotalBytes {
			(*slot).TotalBytes = totalBytes
		}
		(*slot).ActiveFiles++
		return
	}

	*slot = &batchState{
		BatchID:     batchID,
		TotalFiles:  totalFiles,
		TotalBytes:  totalBytes,
		ActiveFiles: 1,
	}
	*acc = 0
}

// completeBatchLocked records one transfer's completion against the
// direction's batch singleton, advancing CompletedFiles monotonically
// and clearing the singleton once every file has completed. Callers
// must hold mu.
func (r *Runtime) completeBatchLocked(direction Direction) {
	slot := r.batchSlotLocked(direction)
	if *slot == nil {
		return
	}
	b := *slot
	b.ActiveFiles--
	if b.ActiveFiles < 0 {
		b.ActiveFiles = 0
	}
	b.CompletedFiles++
	if b.CompletedFiles >= b.TotalFiles {
		*slot = nil
		*r.overallAccumulatorLocked(direction) = 0
	}
}

// OverallProgress reports the direction's current overall transferred
// and total byte counts: the batch's TotalBytes when a batch is known,
// otherwise the sum of active Transfers' TotalBytes.
func (r *Runtime) OverallProgress(direction Direction) (transferred, total int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	transferred = *r.overallAccumulatorLocked(direction)
	if b := *r.batchSlotLocked(direction); b != nil {
		total = b.TotalBytes
	} else {
		total = r.activeTransferTotalBytesLocked(direction)
	}
	return transferred, total
}

// TransferTicket is the handle returned by beginTransfer; it is the
// only way progress, cancellation, and completion of one transfer are
// observed.
type TransferTicket struct {
	runtime    *Runtime
	deviceRT   *DeviceRuntime
	transferID string
	deviceID   string
	direction  Direction
	generation uint64
	closed     bool
}

// AddProgress records delta additional bytes moved. Non-positive deltas
// are ignored; progress is monotonically non-decreasing.
func (t *TransferTicket) AddProgress(delta int64) {
	if delta <= 0 {
		return
	}
	r := t.runtime
	r.mu.Lock()
	defer r.mu.Unlock()

	tr, ok := r.transfers[t.transferID]
	if !ok {
		return
	}
	tr.TransferredBytes += delta
	*r.overallAccumulatorLocked(t.direction) += delta
}

// Cancelled reports whether this transfer must stop: true iff its
// device is no longer paired, or the device's cancelGeneration has
// advanced past the generation this ticket was admitted under.
func (t *TransferTicket) Cancelled() bool {
	r := t.runtime
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.paired[t.deviceID]; !ok {
		return true
	}
	return t.deviceRT.CancelGeneration != t.generation
}

// Close is idempotent: it decrements active-transfer counters, advances
// batch accounting, releases the device's fair transfer lock, and
// removes the transfer record. If the transfer record is already gone
// — revokeDeviceLocked removes a revoked device's transfers up front,
// ahead of the run loop noticing cancellation — the counters and batch
// accounting were already settled there, so Close only reports and
// unlocks.
func (t *TransferTicket) Close() {
	if t.closed {
		return
	}
	t.closed = true

	r := t.runtime
	r.mu.Lock()
	tr, ok := r.transfers[t.transferID]
	if ok {
		delete(r.transfers, t.transferID)
		t.deviceRT.ActiveTransfers--
		r.completeBatchLocked(t.direction)
	}

	now := r.clock.NowMs()
	var bytesTransferred int64
	if ok {
		bytesTransferred = tr.TransferredBytes
	}
	r.emitTransfer(now, t.deviceID, "closed", &mblog.TransferEvent{
		TransferID:       t.transferID,
		Direction:        transferDirection(t.direction),
		BytesTransferred: bytesTransferred,
	})
	r.mu.Unlock()

	t.deviceRT.lock.Unlock()
}
