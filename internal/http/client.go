package http

import (
	"crypto/tls"
	nethttp "net/http"
	"os"

	"golang.org/x/net/http2"

	"github.com/chatdesk/chatdesk/internal/config"
)

// CreateStreamingClient creates an HTTP client for long-lived streaming
// responses (server-sent events, Bedrock event streams) with proxy support.
//
// The overall client timeout is cleared: a stream may legitimately run for
// minutes, so callers bound requests with their context instead.
//
// HTTP/2 is enabled for direct connections and disabled when a proxy is
// active; DISABLE_HTTP2=true forces HTTP/1.1 everywhere.
func CreateStreamingClient(proxy *config.ProxySettings) (*nethttp.Client, error) {
	client, err := ConfigureHTTPClient(proxy)
	if err != nil {
		return nil, err
	}
	client.Timeout = 0

	tr, ok := client.Transport.(*nethttp.Transport)
	if !ok {
		// NTLM wraps the transport in a negotiator; leave it as-is
		return client, nil
	}

	tr.ForceAttemptHTTP2 = true
	_ = http2.ConfigureTransport(tr)

	if os.Getenv("DISABLE_HTTP2") == "true" || proxyActive(proxy) {
		tr.ForceAttemptHTTP2 = false
		tr.TLSNextProto = make(map[string]func(string, *tls.Conn) nethttp.RoundTripper)
	}

	return client, nil
}

// proxyActive reports whether requests will go through a proxy. In system
// mode that depends on the environment.
func proxyActive(proxy *config.ProxySettings) bool {
	mode := config.ProxyModeSystem
	if proxy != nil {
		mode = proxy.Mode
	}
	switch mode {
	case config.ProxyModeNone, "":
		return false
	case config.ProxyModeSystem:
		return os.Getenv("HTTP_PROXY") != "" || os.Getenv("HTTPS_PROXY") != "" ||
			os.Getenv("http_proxy") != "" || os.Getenv("https_proxy") != ""
	default:
		return true
	}
}
