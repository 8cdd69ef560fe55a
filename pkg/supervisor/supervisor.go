package supervisor

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/mediabus/mediabus-host/pkg/connection"
	"github.com/mediabus/mediabus-host/pkg/mblog"
	"github.com/mediabus/mediabus-host/pkg/mdns"
	"github.com/mediabus/mediabus-host/pkg/runtime"
	"github.com/mediabus/mediabus-host/pkg/tlsidentity"
)

const (
	hostLabel          = "mediabus"
	rescanInterval     = 3 * time.Second
	eaddrinuseWaitOnce = 400 * time.Millisecond
)

// HTTPServer is the subset of *http.Server's interface Supervisor
// needs in order to start and stop one listener lifecycle.
type HTTPServer interface {
	Serve(l net.Listener) error
	Close() error
}

// NewServerFunc builds a fresh HTTPServer for one bind attempt. An
// *http.Server cannot be reused after Close, so Supervisor asks for a
// new one on every (re)bind.
type NewServerFunc func() HTTPServer

// Supervisor owns bind-IP selection and the HttpSurface/MdnsAdvertiser
// lifecycle, restarting both whenever the chosen address changes.
type Supervisor struct {
	tls       *tlsidentity.Store
	advertise *mdns.Advertiser
	newServer NewServerFunc
	rt        *runtime.Runtime
	log       *mblog.Logger

	mu      sync.Mutex
	state   HostState
	current net.Listener
	server  HTTPServer
}

// New returns a Supervisor ready to Run.
func New(tlsStore *tlsidentity.Store, advertiser *mdns.Advertiser, newServer NewServerFunc, rt *runtime.Runtime, log *mblog.Logger) *Supervisor {
	if log == nil {
		log = mblog.New(nil, "supervisor")
	}
	return &Supervisor{
		tls:       tlsStore,
		advertise: advertiser,
		newServer: newServer,
		rt:        rt,
		log:       log,
		state:     HostState{Port: Port, StatusText: "starting"},
	}
}

// Run selects a bind address and keeps the listener bound to it until
// ctx is cancelled, rebinding whenever the set of candidate addresses
// changes the chosen one. It returns once ctx is cancelled and every
// resource has been torn down.
func (s *Supervisor) Run(ctx context.Context) {
	ticker := time.NewTicker(rescanInterval)
	defer ticker.Stop()

	s.rescanAndRebind(ctx)

	for {
		select {
		case <-ctx.Done():
			s.teardown()
			return
		case <-ticker.C:
			s.rescanAndRebind(ctx)
		}
	}
}

func (s *Supervisor) rescanAndRebind(ctx context.Context) {
	addrs, err := candidateAddresses()
	if err != nil {
		s.setError(fmt.Sprintf("failed to enumerate interfaces: %v", err))
		return
	}

	s.mu.Lock()
	s.state.AvailableIPs = addrs
	chosen := ""
	if len(addrs) > 0 {
		chosen = addrs[0]
	}
	unchanged := chosen != "" && chosen == s.state.IPAddress && s.state.Running
	s.mu.Unlock()

	if unchanged {
		s.refreshObservables()
		return
	}
	if chosen == "" {
		s.teardown()
		s.setError("no private IPv4 address available")
		return
	}

	s.rebind(ctx, chosen)
}

func (s *Supervisor) rebind(ctx context.Context, ip string) {
	s.mu.Lock()
	s.state.Transitioning = true
	s.state.StatusText = "binding"
	s.mu.Unlock()

	s.teardown()

	cert, err := s.tls.Acquire(hostLabel + ".local")
	if err != nil {
		s.setError(fmt.Sprintf("failed to acquire TLS identity: %v", err))
		return
	}

	addr := fmt.Sprintf("%s:%d", ip, Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil && isAddrInUse(err) {
		s.log.Warn("bind address in use, retrying once", "addr", addr)
		backoff := connection.NewBackoffWithConfig(connection.BackoffConfig{
			Initial: eaddrinuseWaitOnce, Max: eaddrinuseWaitOnce, Multiplier: 1, Jitter: 0,
		})
		time.Sleep(backoff.Next())
		ln, err = net.Listen("tcp", addr)
	}
	if err != nil {
		s.setError(fmt.Sprintf("failed to bind %s: %v", addr, err))
		return
	}

	tlsLn := tls.NewListener(ln, &tls.Config{Certificates: []tls.Certificate{cert}})
	srv := s.newServer()

	s.mu.Lock()
	s.current = tlsLn
	s.server = srv
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(tlsLn); err != nil && !isUseOfClosedConn(err) {
			s.log.Error("http server exited", "err", err)
		}
	}()

	if err := s.advertise.Start(ip, Port, hostLabel); err != nil {
		s.log.Error("mdns advertisement failed to start", "err", err)
	}

	s.mu.Lock()
	s.state.Running = true
	s.state.Transitioning = false
	s.state.Error = ""
	s.state.IPAddress = ip
	s.state.Hostname = s.advertise.AdvertisedHostname(ip)
	s.state.StatusText = "running"
	s.mu.Unlock()

	s.log.Info("bound", "ip", ip, "port", Port)
	s.refreshObservables()
}

func (s *Supervisor) teardown() {
	s.mu.Lock()
	ln := s.current
	srv := s.server
	s.current = nil
	s.server = nil
	wasRunning := s.state.Running
	s.state.Running = false
	s.mu.Unlock()

	if !wasRunning && ln == nil && srv == nil {
		return
	}

	s.advertise.Stop()
	if srv != nil {
		_ = srv.Close()
	}
	if ln != nil {
		_ = ln.Close()
	}
}

func (s *Supervisor) refreshObservables() {
	if s.rt == nil {
		return
	}
	devices := s.rt.PairedDevices()
	ut, utot := s.rt.OverallProgress(runtime.Uploading)
	dt, dtot := s.rt.OverallProgress(runtime.Downloading)

	s.mu.Lock()
	s.state.PairedDevices = devices
	s.state.Transfer = TransferSummary{
		UploadTransferredBytes:   ut,
		UploadTotalBytes:         utot,
		DownloadTransferredBytes: dt,
		DownloadTotalBytes:       dtot,
	}
	s.mu.Unlock()
}

func (s *Supervisor) setError(msg string) {
	s.mu.Lock()
	s.state.Error = msg
	s.state.StatusText = "error"
	s.state.Transitioning = false
	s.mu.Unlock()
	s.log.Error(msg)
}

// State returns a snapshot of the current observable host state.
func (s *Supervisor) State() HostState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func isAddrInUse(err error) bool {
	return err != nil && strings.Contains(err.Error(), "address already in use")
}

func isUseOfClosedConn(err error) bool {
	return err != nil && strings.Contains(err.Error(), "use of closed network connection")
}
