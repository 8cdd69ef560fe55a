package httpsurface

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mediabus/mediabus-host/pkg/runtime"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"host":   s.hostname,
		"port":   s.port,
	})
}

// handleBootstrap is the single entrypoint the SPA calls on load: it
// reports the paired device's settings if the request carries a valid
// session, or issues/reuses a pairing challenge otherwise.
func (s *Server) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	noStore(w)
	ip := remoteIP(r)

	if cookie := cookieValue(r, runtime.SessionCookieName); cookie != "" {
		if auth := s.rt.AuthenticateSession(cookie, ip, true); auth.Valid {
			settings := s.rt.Settings()
			writeJSON(w, http.StatusOK, map[string]any{
				"paired": true,
				"device": map[string]string{
					"id":          auth.Device.DeviceID,
					"displayName": auth.Device.DisplayName,
				},
				"host":            s.hostname,
				"port":            s.port,
				"showHiddenFiles": settings.ShowHiddenFiles,
				"allowUpload":     settings.AllowUpload,
				"allowDownload":   settings.AllowDownload,
				"allowDelete":     settings.AllowDelete,
			})
			return
		}
	}

	clearCookie(w, runtime.SessionCookieName)

	anonID := cookieValue(r, runtime.AnonCookieName)
	if anonID == "" {
		anonID = newAnonID()
		setCookie(w, runtime.AnonCookieName, anonID, time.Duration(runtime.AnonCookieTTLMs)*time.Millisecond)
	}

	challenge := s.rt.EnsurePendingChallenge(anonID, r.UserAgent(), ip)
	writeJSON(w, http.StatusOK, map[string]any{
		"paired":        false,
		"appName":       appName,
		"pairCode":      challenge.Code,
		"pairToken":     challenge.Token,
		"pairExpiresAt": challenge.ExpiresAtMs,
		"pairQrPayload": pairQrPayload(challenge.Token, challenge.Code),
	})
}

func pairQrPayload(token, code string) string {
	return fmt.Sprintf("mediabus://pair?token=%s&code=%s", url.QueryEscape(token), code)
}

// handlePairStatus polls a pairing challenge by token. The first call
// to observe approval creates the session and sets the cookie; every
// later poll of the same token sees NotFound.
func (s *Server) handlePairStatus(w http.ResponseWriter, r *http.Request) {
	noStore(w)
	status := s.rt.PairingStatus(r.URL.Query().Get("token"))

	switch status.Outcome {
	case runtime.PairingPending:
		writeJSON(w, http.StatusOK, map[string]any{"status": "pending", "expiresAt": status.ExpiresAtMs})

	case runtime.PairingApproved:
		signed, terr := s.rt.CreateSessionForPairedDevice(status.DeviceID, remoteIP(r))
		if terr != nil {
			if terr.Kind == runtime.KindPolicyDenied {
				writeJSON(w, http.StatusOK, map[string]any{"status": "blocked", "reason": "max_clients"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"status": "not_found"})
			return
		}
		setCookie(w, runtime.SessionCookieName, signed, 12*time.Hour)
		writeJSON(w, http.StatusOK, map[string]any{"status": "approved"})

	default:
		writeJSON(w, http.StatusOK, map[string]any{"status": "not_found"})
	}
}

func (s *Server) handleSessionDisconnect(w http.ResponseWriter, r *http.Request) {
	noStore(w)
	s.rt.DisconnectSession(cookieValue(r, runtime.SessionCookieName))
	clearCookie(w, runtime.SessionCookieName)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleHeartbeat touches a device's liveness timestamps, or reports
// why the session is no longer valid: a pending revocation notice takes
// priority over a generic not-authorized response.
func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	noStore(w)
	ip := remoteIP(r)
	cookie := cookieValue(r, runtime.SessionCookieName)

	if auth := s.rt.AuthenticateSession(cookie, ip, true); auth.Valid {
		s.rt.Heartbeat(auth.Device.DeviceID, ip)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	if _, sessionID, ok := s.rt.DecodeSessionCookie(cookie); ok {
		if _, found := s.rt.ConsumeRevocationNotice(sessionID); found {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"status": "revoked", "error": "device was revoked"})
			return
		}
	}

	writeJSON(w, http.StatusUnauthorized, map[string]string{"status": "not_authorized"})
}

// newAnonID draws a fresh random pre-pairing cookie value, the same
// shape as the runtime package's own random-token generators (random
// bytes, base64url) but kept local since Runtime's generators are
// package-private.
func newAnonID() string {
	buf := make([]byte, 18)
	if _, err := rand.Read(buf); err != nil {
		panic("httpsurface: failed to read random bytes: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
