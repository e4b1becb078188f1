// Package privacy reduces identifying values to forms that are safe to log.
package privacy

import (
	"net/netip"
	"strings"
)

// AnonymizeIP truncates an address to its network: /24 for IPv4 (and
// IPv4-mapped IPv6) and /48 for IPv6. Empty input yields "unknown" and
// unparseable input yields "invalid".
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}

	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "invalid"
	}
	addr = addr.Unmap().WithZone("")

	bits := 48
	if addr.Is4() {
		bits = 24
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return "invalid"
	}
	return prefix.Addr().String()
}

// MaskWallet keeps the first and last four hex digits of a wallet address.
// Short addresses are returned unchanged since they identify nothing.
func MaskWallet(wallet string) string {
	const keep = 4
	hex := strings.TrimPrefix(wallet, "0x")
	if len(hex) <= 2*keep {
		return wallet
	}
	return "0x" + hex[:keep] + "..." + hex[len(hex)-keep:]
}
