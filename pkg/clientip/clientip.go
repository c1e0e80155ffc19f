package clientip

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// Headers checked by GetIP when the service sits behind a proxy, highest
// priority first.
var ProxyHeaders = []string{"CF-Connecting-IP", "DO-Connecting-IP", "X-Forwarded-For", "X-Real-IP"}

// GetIP returns the client address of r. When trustProxy is set the proxy
// headers are consulted before RemoteAddr; X-Forwarded-For contributes its
// first valid entry. The zero Addr is returned when nothing parses.
func GetIP(r *http.Request, trustProxy bool) netip.Addr {
	if trustProxy {
		for _, h := range ProxyHeaders {
			v := r.Header.Get(h)
			if v == "" {
				continue
			}
			for part := range strings.SplitSeq(v, ",") {
				if ip, ok := parseIP(part); ok {
					return ip
				}
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ip, _ := parseIP(host)
	return ip
}

func parseIP(s string) (netip.Addr, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return netip.Addr{}, false
	}
	ip, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, false
	}
	return ip.Unmap().WithZone(""), true
}
