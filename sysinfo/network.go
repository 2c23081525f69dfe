package sysinfo

import (
	"context"
	"net"
	"strings"
	"time"
)

// probeAddr is the public address used to find the outbound route. UDP
// "dials" send no packets; only the routing decision is made.
const probeAddr = "8.8.8.8"

const dialTimeout = 500 * time.Millisecond

// Interfaces whose names contain these are virtual and skipped when
// scanning for a fallback address.
var virtualInterfaceNames = []string{"vmware", "vbox", "virtual", "veth", "docker", "br-", "hyper-v", "loopback", "hamachi", "tunnel", "tailscale", "utun"}

// Wired interfaces are preferred over Wi-Fi when scanning.
var preferredInterfaceNames = []string{"eth", "ethernet", "lan", "en", "wi", "wlan", "wifi", "wireless"}

// ifaceAddr is an IPv4 address and the interface it belongs to.
type ifaceAddr struct {
	name string
	ip   string
}

// localIP returns the host's primary IPv4 address. It asks the OS which
// interface routes to the internet (GetBestInterface on Windows, then a UDP
// dial everywhere) and falls back to scanning physical-looking interfaces.
func localIP(ctx context.Context) (string, error) {
	if ip := bestInterfaceIP(); ip != "" {
		return ip, nil
	}

	var publicCandidate string
	d := net.Dialer{Timeout: dialTimeout}
	if conn, err := d.DialContext(ctx, "udp", net.JoinHostPort(probeAddr, "80")); err == nil {
		if ua, ok := conn.LocalAddr().(*net.UDPAddr); ok {
			if ip4 := ua.IP.To4(); ip4 != nil && !ip4.IsLoopback() {
				if ip4.IsPrivate() {
					_ = conn.Close()
					return ip4.String(), nil
				}
				publicCandidate = ip4.String()
			}
		}
		_ = conn.Close()
	}

	if ip := pickInterfaceIP(interfaceAddrs()); ip != "" {
		return ip, nil
	}
	if publicCandidate != "" {
		return publicCandidate, nil
	}
	return "", errNoResult
}

// interfaceAddrs lists IPv4 addresses of up, non-loopback interfaces.
func interfaceAddrs() []ifaceAddr {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}
	var candidates []ifaceAddr
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			if ip4 := addrIPv4(a); ip4 != nil {
				candidates = append(candidates, ifaceAddr{name: iface.Name, ip: ip4.String()})
			}
		}
	}
	return candidates
}

// pickInterfaceIP drops virtual interfaces, then prefers names that look
// wired or wireless, then takes the first remaining candidate.
func pickInterfaceIP(candidates []ifaceAddr) string {
	physical := candidates[:0:0]
	for _, c := range candidates {
		if !containsAny(strings.ToLower(c.name), virtualInterfaceNames) {
			physical = append(physical, c)
		}
	}
	for _, pref := range preferredInterfaceNames {
		for _, c := range physical {
			if strings.HasPrefix(strings.ToLower(c.name), pref) {
				return c.ip
			}
		}
	}
	if len(physical) > 0 {
		return physical[0].ip
	}
	return ""
}

func addrIPv4(a net.Addr) net.IP {
	switch v := a.(type) {
	case *net.IPNet:
		return v.IP.To4()
	case *net.IPAddr:
		return v.IP.To4()
	}
	return nil
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
