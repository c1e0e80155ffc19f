package clientip

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"

	"github.com/dmitrymomot/cashier/pkg/logger"
)

// PaystackIPs are the documented source addresses of Paystack webhook
// deliveries.
var PaystackIPs = []string{"52.31.139.75", "52.49.173.169", "52.214.14.220"}

var ErrInvalidEntry = errors.New("invalid allowlist entry")

// Allowlist admits requests whose client address matches one of its
// prefixes. An empty Allowlist admits everything.
type Allowlist struct {
	prefixes   []netip.Prefix
	trustProxy bool
	log        *slog.Logger
}

// AllowlistOption configures an Allowlist.
type AllowlistOption func(*Allowlist)

// TrustProxy makes the allowlist read the client address from proxy headers.
func TrustProxy() AllowlistOption {
	return func(a *Allowlist) { a.trustProxy = true }
}

// WithLogger logs rejected requests.
func WithLogger(l *slog.Logger) AllowlistOption {
	return func(a *Allowlist) {
		if l != nil {
			a.log = l
		}
	}
}

// NewAllowlist parses entries, each a bare address or a CIDR prefix.
func NewAllowlist(entries []string, opts ...AllowlistOption) (*Allowlist, error) {
	a := &Allowlist{log: logger.Discard()}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		p, err := parseEntry(e)
		if err != nil {
			return nil, errors.Join(ErrInvalidEntry, fmt.Errorf("%q: %w", e, err))
		}
		a.prefixes = append(a.prefixes, p)
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func parseEntry(e string) (netip.Prefix, error) {
	if strings.Contains(e, "/") {
		p, err := netip.ParsePrefix(e)
		if err != nil {
			return netip.Prefix{}, err
		}
		return p.Masked(), nil
	}
	ip, err := netip.ParseAddr(e)
	if err != nil {
		return netip.Prefix{}, err
	}
	ip = ip.Unmap()
	return netip.PrefixFrom(ip, ip.BitLen()), nil
}

// Allowed reports whether ip matches an entry.
func (a *Allowlist) Allowed(ip netip.Addr) bool {
	if len(a.prefixes) == 0 {
		return true
	}
	if !ip.IsValid() {
		return false
	}
	for _, p := range a.prefixes {
		if p.Contains(ip) {
			return true
		}
	}
	return false
}

// Middleware answers 403 {"message":"Forbidden"} to requests from addresses
// outside the allowlist.
func (a *Allowlist) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := GetIP(r, a.trustProxy)
		if !a.Allowed(ip) {
			a.log.WarnContext(r.Context(), "request from address outside allowlist",
				slog.String("client_ip", ip.String()),
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "Forbidden"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
