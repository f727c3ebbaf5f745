package clientip

import (
	"net"
	"net/http"
	"strings"
)

// FromRequest returns the client IP from r.RemoteAddr. Behind a proxy, chi's
// RealIP middleware must run first so RemoteAddr already holds the forwarded
// address.
func FromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return strings.TrimSpace(host)
}

// LimitKey is the rate limit bucket for r: the IPv4 address, or the /64
// network for IPv6 clients.
func LimitKey(r *http.Request) string {
	raw := FromRequest(r)
	ip := net.ParseIP(raw)
	if ip == nil {
		return raw
	}
	if v4 := ip.To4(); v4 != nil {
		return v4.String()
	}
	return ip.Mask(net.CIDRMask(64, 128)).String() + "/64"
}
