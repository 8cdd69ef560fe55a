package runtime

import (
	"testing"

	"github.com/mediabus/mediabus-host/pkg/devicestore"
	"github.com/mediabus/mediabus-host/pkg/token"
	"github.com/stretchr/testify/require"
)

func newTestRuntime(t *testing.T) (*Runtime, *FakeClock) {
	t.Helper()
	store, err := devicestore.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	secret, err := store.LoadOrCreateSecret()
	require.NoError(t, err)

	clock := NewFakeClock(1_700_000_000_000)
	codec := token.NewCodec(secret)

	rt, err := NewRuntime(clock, codec, store, nil, nil)
	require.NoError(t, err)
	return rt, clock
}

func approveNewDevice(t *testing.T, rt *Runtime, anonID, userAgent, ip string) (PairedDevice, PairChallenge) {
	t.Helper()
	c := rt.ensurePendingChallenge(anonID, userAgent, ip)
	d, rerr := rt.approveByToken(c.Token)
	require.Nil(t, rerr)
	return d, c
}
