package validator

import (
	"errors"
	"fmt"
	"net"
	"syscall"
)

var ErrAddressBlocked = errors.New("address blocked")

var privateNetworks = mustParseCIDRs(
	"10.0.0.0/8",     // Private network
	"172.16.0.0/12",  // Private network
	"192.168.0.0/16", // Private network
	"169.254.0.0/16", // Link-local, cloud metadata
	"100.64.0.0/10",  // Shared address space (CGNAT)
	"fc00::/7",       // Unique local address (IPv6)
	"fe80::/10",      // Link-local (IPv6)
)

// AddressGuard decides which resolved addresses the relay may connect to.
// Checking at dial time covers every hop of a redirect chain and the
// addresses actually used, not a separate lookup.
type AddressGuard struct {
	AllowLocalhost  bool
	AllowPrivateIPs bool
}

// Permissive reports whether the guard lets every address through.
func (g AddressGuard) Permissive() bool {
	return g.AllowLocalhost && g.AllowPrivateIPs
}

// CheckIP returns an error wrapping ErrAddressBlocked when ip is not allowed.
func (g AddressGuard) CheckIP(ip net.IP) error {
	if isLocalhost(ip) {
		if !g.AllowLocalhost {
			return fmt.Errorf("%w: requests to localhost are not allowed: %s", ErrAddressBlocked, ip)
		}
		return nil
	}
	if isPrivateIP(ip) && !g.AllowPrivateIPs {
		return fmt.Errorf("%w: requests to private IP ranges are not allowed: %s", ErrAddressBlocked, ip)
	}
	return nil
}

// Control is meant for net.Dialer.Control.
func (g AddressGuard) Control(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAddressBlocked, err)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return fmt.Errorf("%w: unresolved address %s", ErrAddressBlocked, host)
	}
	return g.CheckIP(ip)
}

func isLocalhost(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsUnspecified()
}

func isPrivateIP(ip net.IP) bool {
	if ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return true
	}
	for _, network := range privateNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	networks := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(err)
		}
		networks = append(networks, network)
	}
	return networks
}
