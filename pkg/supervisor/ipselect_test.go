package supervisor

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsPrivateOrLinkLocal(t *testing.T) {
	cases := []struct {
		ip   string
		want bool
	}{
		{"10.1.2.3", true},
		{"172.16.0.1", true},
		{"172.31.255.255", true},
		{"172.32.0.1", false},
		{"192.168.1.1", true},
		{"169.254.1.1", true},
		{"8.8.8.8", false},
		{"203.0.113.5", false},
	}
	for _, c := range cases {
		ip := net.ParseIP(c.ip).To4()
		require.Equal(t, c.want, isPrivateOrLinkLocal(ip), c.ip)
	}
}

func TestCandidateAddressesAreSortedLexicographically(t *testing.T) {
	// This exercises the real local interface list; we only assert the
	// sortedness invariant, since the actual set of bound interfaces is
	// environment-dependent.
	addrs, err := candidateAddresses()
	require.NoError(t, err)
	for i := 1; i < len(addrs); i++ {
		require.LessOrEqual(t, addrs[i-1], addrs[i])
	}
}
