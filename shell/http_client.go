package shell

import (
	"net"
	"net/http"
	"time"
)

// NewHTTPClient builds the client shared by the remote adapters when the
// caller does not supply one. It is safe for concurrent use.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   8 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          32,
			MaxIdleConnsPerHost:   8,
			IdleConnTimeout:       32 * time.Second,
			TLSHandshakeTimeout:   16 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
		},
	}
}

// ownedClient returns client, or a new one that the caller then owns.
func ownedClient(client *http.Client) (*http.Client, bool) {
	if client != nil {
		return client, false
	}
	return NewHTTPClient(), true
}
