// Package httpsurface implements the fixed TLS REST surface external
// clients rely on: static SPA passthrough, pairing/session endpoints,
// and streaming upload/download/ZIP file transfer. Every handler is
// stateless between requests; all mutable state lives in the Runtime
// it is given a handle to.
package httpsurface

import (
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/mediabus/mediabus-host/pkg/mblog"
	"github.com/mediabus/mediabus-host/pkg/runtime"
)

const appName = "MediaBus"

// uploadBufferSize and downloadBufferSize are the fixed chunk sizes the
// upload and download pipelines read/write in, matching the ~8 KiB the
// contract specifies.
const (
	uploadBufferSize   = 8 * 1024
	downloadBufferSize = 8 * 1024
)

// Server is the TLS-terminating HTTP/1.1 surface. It satisfies
// pkg/supervisor.HTTPServer (Serve(net.Listener) error / Close() error)
// so Supervisor can bind and rebind it without knowing it is backed by
// net/http underneath.
type Server struct {
	rt       *runtime.Runtime
	assets   http.Handler
	hostname string
	port     int
	log      *mblog.Logger

	mux        *http.ServeMux
	httpServer *http.Server
}

// New builds a Server wired to rt for all pairing/session/transfer
// state and assets for everything under the static SPA passthrough.
func New(rt *runtime.Runtime, assets http.Handler, hostname string, port int, log *mblog.Logger) *Server {
	if log == nil {
		log = mblog.New(nil, "httpsurface")
	}
	s := &Server{
		rt:       rt,
		assets:   assets,
		hostname: hostname,
		port:     port,
		log:      log,
		mux:      http.NewServeMux(),
	}
	s.registerRoutes()
	s.httpServer = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// registerRoutes wires every fixed route onto the plain net/http
// ServeMux, the same way the teacher's cmd/mash-web server does — no
// router library is substituted in.
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/bootstrap", s.handleBootstrap)
	s.mux.HandleFunc("GET /api/pair/status", s.handlePairStatus)
	s.mux.HandleFunc("POST /api/session/disconnect", s.handleSessionDisconnect)
	s.mux.HandleFunc("POST /api/heartbeat", s.handleHeartbeat)

	s.mux.HandleFunc("GET /api/files/list", s.handleFilesList)
	s.mux.HandleFunc("GET /api/files/download", s.handleFilesDownload)
	s.mux.HandleFunc("GET /api/files/download-zip", s.handleFilesDownloadZip)
	s.mux.HandleFunc("GET /api/files/download-zip-batch", s.handleFilesDownloadZipBatch)
	s.mux.HandleFunc("PUT /api/files/upload", s.handleFilesUpload)
	s.mux.HandleFunc("DELETE /api/files/delete", s.handleFilesDelete)
	s.mux.HandleFunc("POST /api/files/mkdir", s.handleFilesMkdir)
	s.mux.HandleFunc("POST /api/files/rename", s.handleFilesRename)

	s.mux.HandleFunc("GET /api/qr", s.handleQR)

	s.mux.Handle("/", s.assets)
}

// Serve accepts connections off l until it is closed.
func (s *Server) Serve(l net.Listener) error {
	return s.httpServer.Serve(l)
}

// Close shuts the server down immediately, closing any open listeners
// and in-flight connections.
func (s *Server) Close() error {
	return s.httpServer.Close()
}

// writeJSON writes data as a JSON body with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError translates a *runtime.Error into the fixed status/body
// mapping from the error-handling contract.
func writeError(w http.ResponseWriter, err *runtime.Error) {
	writeJSON(w, statusForKind(err.Kind), map[string]string{"error": err.Message})
}

// statusForKind maps a runtime.Kind to its fixed HTTP status.
//
// KindRevoked is reserved for the auth-layer revocation notice (401 +
// {status:"revoked"}, handled directly in handleHeartbeat); cancellation
// observed mid-transfer is reported as KindPolicyDenied (403) instead,
// matching the concrete "Transfer cancelled" scenario rather than the
// session-level Revoked kind.
func statusForKind(k runtime.Kind) int {
	switch k {
	case runtime.KindValidation:
		return http.StatusBadRequest
	case runtime.KindNotAuthorized:
		return http.StatusUnauthorized
	case runtime.KindRevoked:
		return http.StatusUnauthorized
	case runtime.KindPolicyDenied:
		return http.StatusForbidden
	case runtime.KindNotFound:
		return http.StatusNotFound
	case runtime.KindConflict:
		return http.StatusConflict
	case runtime.KindResourceUnavailable:
		return http.StatusInternalServerError
	case runtime.KindClientAborted:
		return http.StatusNoContent
	default:
		return http.StatusInternalServerError
	}
}

// noStore marks a response as never cacheable, required on every
// session-bearing endpoint.
func noStore(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
}

// requireSession authenticates the request's session cookie and writes
// a 401 if it is missing or invalid. Callers that get ok==false must
// not write anything further.
func (s *Server) requireSession(w http.ResponseWriter, r *http.Request) (runtime.PairedDevice, bool) {
	noStore(w)
	cookie := cookieValue(r, runtime.SessionCookieName)
	auth := s.rt.AuthenticateSession(cookie, remoteIP(r), true)
	if !auth.Valid {
		writeError(w, &runtime.Error{Kind: runtime.KindNotAuthorized, Message: "not authenticated"})
		return runtime.PairedDevice{}, false
	}
	return auth.Device, true
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func setCookie(w http.ResponseWriter, name, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge.Seconds()),
	})
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
