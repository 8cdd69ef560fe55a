// Package supervisor selects the host's bind address, owns the
// TLS-terminating listener lifecycle, and restarts the listener plus
// the mDNS advertisement whenever the chosen address changes — the
// process-level control loop the rest of the module plugs into.
package supervisor

import "github.com/mediabus/mediabus-host/pkg/devicestore"

// Port is fixed per spec: the host always binds 8443.
const Port = 8443

// TransferSummary is the upload/download progress snapshot published
// in HostState.
type TransferSummary struct {
	UploadTransferredBytes   int64
	UploadTotalBytes         int64
	DownloadTransferredBytes int64
	DownloadTotalBytes       int64
}

// HostState is the observable snapshot a UI layer would poll or
// subscribe to.
type HostState struct {
	Running       bool
	Transitioning bool
	Hostname      string
	IPAddress     string
	Port          int
	StatusText    string
	Error         string
	AvailableIPs  []string
	PairedDevices []devicestore.PairedDevice
	Transfer      TransferSummary
}
