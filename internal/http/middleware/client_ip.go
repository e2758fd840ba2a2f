package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// TrustedProxyIP sets RemoteAddr to the client address from X-Forwarded-For
// when the socket peer falls inside trusted. The header is read right to
// left and the first untrusted hop wins, so entries a client prepends are
// never used. Other forwarding headers are ignored. With no trusted prefixes
// the middleware is a no-op and limiters key on the socket peer.
func TrustedProxyIP(trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(trusted) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host, port, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host, port = r.RemoteAddr, "0"
			}
			peer, err := netip.ParseAddr(host)
			if err == nil && containsAddr(trusted, peer) {
				if client, ok := forwardedClient(r.Header.Values("X-Forwarded-For"), trusted); ok {
					r.RemoteAddr = net.JoinHostPort(client.String(), port)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func forwardedClient(values []string, trusted []netip.Prefix) (netip.Addr, bool) {
	var hops []string
	for _, v := range values {
		hops = append(hops, strings.Split(v, ",")...)
	}

	var client netip.Addr
	for i := len(hops) - 1; i >= 0; i-- {
		addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			break
		}
		client = addr.Unmap()
		if !containsAddr(trusted, client) {
			break
		}
	}
	return client, client.IsValid()
}

func containsAddr(prefixes []netip.Prefix, addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
