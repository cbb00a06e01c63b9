// Package netaddr classifies addresses observed by the probes.
package netaddr

import (
	"net"
	"strings"
)

// Class is the coarse category of an observed address.
type Class string

const (
	ClassPrivate Class = "private"
	ClassPublic  Class = "public"
	ClassOther   Class = "other"
)

// privateCIDRs covers RFC1918, loopback and link-local space.
var privateCIDRs = mustParseCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"::1/128",
	"fe80::/10",
	"fc00::/7",
)

// vpnCIDRs are ranges VPN providers commonly reuse for tunnel addressing.
// 10.8.0.0/16 is the OpenVPN default; 198.18.0.0/16 is RFC 2544 benchmark space.
var vpnCIDRs = mustParseCIDRs(
	"10.8.0.0/16",
	"10.0.0.0/24",
	"172.16.0.0/16",
	"198.18.0.0/16",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic("netaddr: bad CIDR " + c)
		}
		nets = append(nets, n)
	}
	return nets
}

func contains(nets []*net.IPNet, ip net.IP) bool {
	for _, n := range nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// parseIPv4 accepts only the dotted-quad form: no IPv6, no zones, no mapped forms.
func parseIPv4(addr string) net.IP {
	if strings.Count(addr, ".") != 3 || strings.Contains(addr, ":") {
		return nil
	}
	ip := net.ParseIP(addr)
	if ip == nil {
		return nil
	}
	return ip.To4()
}

// IsPrivate reports whether addr is a private, loopback or link-local address.
func IsPrivate(addr string) bool {
	ip := net.ParseIP(strings.TrimSpace(addr))
	if ip == nil {
		return false
	}
	return contains(privateCIDRs, ip)
}

// IsPublicIPv4 reports whether addr is a syntactically valid IPv4 address outside
// the private ranges.
func IsPublicIPv4(addr string) bool {
	ip := parseIPv4(strings.TrimSpace(addr))
	if ip == nil {
		return false
	}
	return !contains(privateCIDRs, ip)
}

// Classify returns the category used by the topology probe.
func Classify(addr string) Class {
	switch {
	case IsPrivate(addr):
		return ClassPrivate
	case IsPublicIPv4(addr):
		return ClassPublic
	default:
		return ClassOther
	}
}

// MatchesVPNPattern reports whether addr falls in a range VPN providers are known
// to reuse.
func MatchesVPNPattern(addr string) bool {
	ip := parseIPv4(strings.TrimSpace(addr))
	if ip == nil {
		return false
	}
	return contains(vpnCIDRs, ip)
}

// MaskIP masks an address to its /24 (IPv4) or /64 (IPv6) prefix so diagnostics
// never carry a full public address. It returns "" for anything unparsable.
func MaskIP(addr string) string {
	ip := net.ParseIP(strings.TrimSpace(addr))
	if ip == nil {
		return ""
	}

	if ipv4 := ip.To4(); ipv4 != nil {
		return ipv4.Mask(net.CIDRMask(24, 32)).String() + "/24"
	}

	return ip.Mask(net.CIDRMask(64, 128)).String() + "/64"
}
