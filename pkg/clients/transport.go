package clients

import (
	"net"
	"net/http"
	"time"
)

// DefaultTransport is the shared transport for outbound RabbitLoader API
// and OpenAI calls. Per-host connection caps keep a slow upstream from
// exhausting sockets; the upstream client clones the result when it needs
// a custom TLS server name for DNS-fallback retries.
func DefaultTransport() *http.Transport {
	return &http.Transport{
		MaxConnsPerHost:     100,
		MaxIdleConnsPerHost: 10,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,

		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,

		TLSHandshakeTimeout: 10 * time.Second,
	}
}
