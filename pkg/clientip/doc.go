// Package clientip resolves the client address of a request and restricts
// endpoints to a set of source addresses.
//
// The webhook endpoint of the service can be limited to the addresses the
// payment provider delivers from:
//
//	allow, err := clientip.NewAllowlist(clientip.PaystackIPs, clientip.TrustProxy())
//	if err != nil {
//		return err
//	}
//	r.With(allow.Middleware).Post("/paystack/webhook", engine.ServeHTTP)
//
// Proxy headers are only honoured with TrustProxy; without it the TCP peer
// address is used, since the headers are client controlled.
package clientip
