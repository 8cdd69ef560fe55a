// Package mdns advertises MediaBus's HTTPS endpoint as an mDNS
// service. Registration goes through zeroconf.Register, so the service
// record names the machine's own hostname; no address record is
// published for "<label>.local", which appears only in the service's
// host=<label>.local TXT entry. It is a thin adapter over zeroconf, collapsed from
// the teacher's multi-service (commissionable/operational/commissioner)
// advertiser down to the single `_https._tcp` service this host needs.
package mdns

import (
	"fmt"
	"net"
	"sync"

	"github.com/enbility/zeroconf/v3"
	"github.com/enbility/zeroconf/v3/api"
)

const (
	serviceType  = "_https._tcp"
	domain       = "local."
	instanceName = "MediaBus"
)

// Advertiser registers and deregisters the single `_https._tcp.local.`
// mDNS service MediaBus exposes.
type Advertiser struct {
	// Interface restricts advertisement to a single named interface;
	// empty means advertise on all interfaces.
	Interface string

	// ConnectionFactory and InterfaceProvider let tests substitute mock
	// packet connections instead of binding real multicast sockets,
	// the same seam the teacher's own discovery tests use.
	ConnectionFactory api.ConnectionFactory
	InterfaceProvider api.InterfaceProvider

	mu        sync.Mutex
	server    *zeroconf.Server
	hostLabel string
}

// Start registers the service on port with a host=<hostLabel>.local TXT
// entry. ipAddress is not used: the advertised addresses are those of
// the selected interfaces (all interfaces when none is selected). Any
// previously running advertisement is replaced.
func (a *Advertiser) Start(ipAddress string, port int, hostLabel string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	txt := []string{
		"path=/",
		fmt.Sprintf("host=%s.local", hostLabel),
	}

	var opts []zeroconf.ServerOption
	if a.ConnectionFactory != nil {
		opts = append(opts, zeroconf.WithServerConnFactory(a.ConnectionFactory))
	}
	if a.InterfaceProvider != nil {
		opts = append(opts, zeroconf.WithServerInterfaceProvider(a.InterfaceProvider))
	}
	server, err := zeroconf.Register(instanceName, serviceType, domain, port, txt, a.interfaces(), opts...)
	if err != nil {
		return fmt.Errorf("mdns: register service: %w", err)
	}

	a.server = server
	a.hostLabel = hostLabel
	return nil
}

// Stop unregisters the service, if running. Stop is idempotent; any
// failure to unregister is the caller's to log, never to propagate as a
// reason to keep the host down — the advertiser spec requires this
// failure mode not to be fatal.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
		a.hostLabel = ""
	}
}

// AdvertisedHostname returns "<label>.local" for the label the running
// advertisement was started with (the value of its host TXT entry), or
// defaultValue if nothing is currently advertised.
func (a *Advertiser) AdvertisedHostname(defaultValue string) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server == nil || a.hostLabel == "" {
		return defaultValue
	}
	return a.hostLabel + ".local"
}

func (a *Advertiser) interfaces() []net.Interface {
	if a.Interface == "" {
		return nil
	}
	iface, err := net.InterfaceByName(a.Interface)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}
