package httpsurface

import (
	"io"
	"os"

	"github.com/mediabus/mediabus-host/pkg/runtime"
)

// streamDownload copies src to dst in fixed-size buffered chunks,
// reporting each chunk to ticket and checking ticket.Cancelled() before
// every read — the same buffered-read-then-check shape the retrieved
// blob downloader uses, minus its stall/slow detection (which has no
// equivalent need here: cancellation is driven by revocation, not by
// transfer speed).
func streamDownload(dst io.Writer, src io.Reader, ticket *runtime.TransferTicket) error {
	buf := make([]byte, downloadBufferSize)
	for {
		if ticket.Cancelled() {
			return errTransferCancelled
		}
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return werr
			}
			ticket.AddProgress(int64(n))
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// errTransferCancelled is a sentinel distinguishing ticket cancellation
// from an ordinary I/O error in the download/zip paths, where no
// *runtime.Error can be surfaced once headers are already flushed.
var errTransferCancelled = &cancelledError{}

type cancelledError struct{}

func (*cancelledError) Error() string { return "transfer cancelled" }

// streamUpload reads from src and writes to dst in fixed-size buffered
// chunks, reporting progress to ticket. It terminates as soon as
// receivedBytes reaches contentLength (when contentLength >= 0),
// regardless of whether the source has more buffered data pending —
// matching the "ignore trailing idle timeout once satisfied" rule.
// Returns a *runtime.Error classifying how the upload ended; nil means
// clean completion.
func streamUpload(dst *os.File, src io.Reader, ticket *runtime.TransferTicket, contentLength int64) *runtime.Error {
	buf := make([]byte, uploadBufferSize)
	var received int64
	for {
		if ticket.Cancelled() {
			return &runtime.Error{Kind: runtime.KindPolicyDenied, Message: "transfer cancelled"}
		}
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return &runtime.Error{Kind: runtime.KindInternal, Message: "failed to write upload"}
			}
			received += int64(n)
			ticket.AddProgress(int64(n))
		}
		if contentLength >= 0 && received >= contentLength {
			return nil
		}
		if ticket.Cancelled() {
			return &runtime.Error{Kind: runtime.KindPolicyDenied, Message: "transfer cancelled"}
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return &runtime.Error{Kind: runtime.KindClientAborted, Message: "client closed connection"}
		}
	}
}
