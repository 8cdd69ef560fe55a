package httpsurface

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mediabus/mediabus-host/pkg/devicestore"
	"github.com/mediabus/mediabus-host/pkg/runtime"
	"github.com/mediabus/mediabus-host/pkg/token"
	"github.com/stretchr/testify/require"
)

// newTestServer builds a Server backed by an in-memory devicestore and a
// shared folder rooted at t.TempDir(), with every transfer permission on
// and hidden files off, matching devicestore.DefaultHostSettings.
func newTestServer(t *testing.T) (*Server, *runtime.Runtime, *runtime.FakeClock) {
	t.Helper()

	store, err := devicestore.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	settings := devicestore.DefaultHostSettings()
	settings.SharedFolderPath = t.TempDir()
	require.NoError(t, store.SaveSettings(settings))

	secret, err := store.LoadOrCreateSecret()
	require.NoError(t, err)

	clock := runtime.NewFakeClock(1_700_000_000_000)
	codec := token.NewCodec(secret)

	rt, err := runtime.NewRuntime(clock, codec, store, nil, nil)
	require.NoError(t, err)

	assets := http.NotFoundHandler()
	srv := New(rt, assets, "mediabus.local", 8443, nil)
	return srv, rt, clock
}

// pairDevice runs a full pair-by-token flow and returns the paired
// device plus a valid "mb_session" cookie value for it.
func pairDevice(t *testing.T, rt *runtime.Runtime) (runtime.PairedDevice, string) {
	t.Helper()

	challenge := rt.EnsurePendingChallenge("anon-1", "test-agent", "127.0.0.1:1")
	device, rerr := rt.ApproveByToken(challenge.Token)
	require.Nil(t, rerr)

	cookie, rerr := rt.CreateSessionForPairedDevice(device.DeviceID, "127.0.0.1:1")
	require.Nil(t, rerr)

	return device, cookie
}

func doRequest(srv *Server, method, target string, cookie string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: runtime.SessionCookieName, Value: cookie})
	}
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)
	return w
}
