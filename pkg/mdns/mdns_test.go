package mdns

import (
	"net"
	"testing"

	"github.com/enbility/zeroconf/v3/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// testAdvertiser returns an Advertiser wired to mock multicast
// connections, so Start/Stop exercise the real zeroconf registration
// path without binding a real socket — the same seam the teacher's own
// discovery tests use.
func testAdvertiser(t *testing.T) *Advertiser {
	t.Helper()

	factory := mocks.NewMockConnectionFactory(t)
	provider := mocks.NewMockInterfaceProvider(t)

	provider.EXPECT().MulticastInterfaces().Return([]net.Interface{
		{Index: 1, Name: "lo0", Flags: net.FlagUp | net.FlagMulticast},
	}).Maybe()

	ipv4Conn := mocks.NewMockPacketConn(t)
	ipv6Conn := mocks.NewMockPacketConn(t)
	setupMockPacketConn(ipv4Conn)
	setupMockPacketConn(ipv6Conn)

	factory.EXPECT().CreateIPv4Conn(mock.Anything).Return(ipv4Conn, nil).Maybe()
	factory.EXPECT().CreateIPv6Conn(mock.Anything).Return(ipv6Conn, nil).Maybe()

	return &Advertiser{
		ConnectionFactory: factory,
		InterfaceProvider: provider,
	}
}

func setupMockPacketConn(conn *mocks.MockPacketConn) {
	conn.EXPECT().JoinGroup(mock.Anything, mock.Anything).Return(nil).Maybe()
	conn.EXPECT().LeaveGroup(mock.Anything, mock.Anything).Return(nil).Maybe()
	conn.EXPECT().WriteTo(mock.Anything, mock.Anything, mock.Anything).Return(0, nil).Maybe()
	conn.EXPECT().ReadFrom(mock.Anything).RunAndReturn(func(b []byte) (int, int, net.Addr, error) {
		return 0, 0, nil, nil
	}).Maybe()
	conn.EXPECT().Close().Return(nil).Maybe()
	conn.EXPECT().SetMulticastTTL(mock.Anything).Return(nil).Maybe()
	conn.EXPECT().SetMulticastHopLimit(mock.Anything).Return(nil).Maybe()
}

func TestAdvertisedHostnameDefaultsWhenNotRunning(t *testing.T) {
	a := &Advertiser{}
	require.Equal(t, "mediabus.local", a.AdvertisedHostname("mediabus.local"))
}

func TestStartAdvertisesUnderHostLabel(t *testing.T) {
	a := testAdvertiser(t)

	err := a.Start("192.168.1.50", 8443, "mediabus")
	require.NoError(t, err)
	defer a.Stop()

	require.Equal(t, "mediabus.local", a.AdvertisedHostname("fallback"))
}

func TestStopClearsAdvertisedHostname(t *testing.T) {
	a := testAdvertiser(t)

	require.NoError(t, a.Start("192.168.1.50", 8443, "mediabus"))
	a.Stop()

	require.Equal(t, "fallback", a.AdvertisedHostname("fallback"))
}

func TestStartReplacesPriorAdvertisement(t *testing.T) {
	a := testAdvertiser(t)

	require.NoError(t, a.Start("192.168.1.50", 8443, "mediabus"))
	require.NoError(t, a.Start("192.168.1.51", 8443, "mediabus"))
	defer a.Stop()

	require.Equal(t, "mediabus.local", a.AdvertisedHostname("fallback"))
}
