// Copyright 2025 Certen Protocol
//
// Package netorigin classifies the remote address of a privileged request
// against the platform's trusted-origin policy: loopback, absent (a local
// trusted channel with no socket at all), or Docker's default bridge-network
// private ranges.
package netorigin

import "net"

var dockerRanges = mustParseCIDRs(
	"172.17.0.0/16",
	"172.18.0.0/16",
	"172.19.0.0/16",
	"172.20.0.0/16",
	"172.21.0.0/16",
	"172.22.0.0/16",
	"172.23.0.0/16",
	"172.24.0.0/16",
	"172.25.0.0/16",
	"172.26.0.0/16",
	"172.27.0.0/16",
	"172.28.0.0/16",
	"172.29.0.0/16",
	"172.30.0.0/16",
	"172.31.0.0/16",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		nets = append(nets, n)
	}
	return nets
}

// IsTrusted reports whether remoteAddr is an acceptable origin for a
// privileged request. A nil/empty remoteAddr is treated as "absent" — a
// trusted local channel with no socket info — and accepted.
func IsTrusted(remoteAddr string) bool {
	if remoteAddr == "" {
		return true
	}

	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	if ip.IsLoopback() {
		return true
	}
	for _, n := range dockerRanges {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
