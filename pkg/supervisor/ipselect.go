package supervisor

import (
	"net"
	"sort"
)

// candidateAddresses returns every private IPv4 address (RFC1918
// site-local, or 169.254/16 link-local) bound to a local interface,
// sorted by dotted-quad string. This is deliberately lexicographic
// string order, not numeric or interface-priority order: not
// necessarily "the best" interface, but a deterministic pick across
// restarts, matching the behavior this supervisor preserves rather
// than "fixes".
func candidateAddresses() ([]string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}

	var out []string
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip4 := ipNet.IP.To4()
		if ip4 == nil {
			continue
		}
		if isPrivateOrLinkLocal(ip4) {
			out = append(out, ip4.String())
		}
	}

	sort.Strings(out)
	return out, nil
}

func isPrivateOrLinkLocal(ip net.IP) bool {
	switch {
	case ip[0] == 10:
		return true
	case ip[0] == 172 && ip[1] >= 16 && ip[1] <= 31:
		return true
	case ip[0] == 192 && ip[1] == 168:
		return true
	case ip[0] == 169 && ip[1] == 254:
		return true
	default:
		return false
	}
}
