package http

import (
	"net/http"
	"net/url"
	"testing"

	ntlmssp "github.com/Azure/go-ntlmssp"

	"github.com/chatdesk/chatdesk/internal/config"
)

// TestProxyFuncWithBypass_EmptyNoProxy verifies that an empty noProxy always routes through proxy.
func TestProxyFuncWithBypass_EmptyNoProxy(t *testing.T) {
	proxyURL, _ := url.Parse("http://proxy.corp:8080")
	proxyFunc := proxyFuncWithBypass(proxyURL, "")

	req, _ := http.NewRequest("GET", "https://api.example.com/data", nil)
	result, err := proxyFunc(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil {
		t.Fatal("expected proxy URL, got nil (direct)")
	}
	if result.Host != "proxy.corp:8080" {
		t.Errorf("expected proxy host proxy.corp:8080, got %s", result.Host)
	}
}

// TestProxyFuncWithBypass_WildcardDomain verifies *.example.com bypasses api.example.com.
func TestProxyFuncWithBypass_WildcardDomain(t *testing.T) {
	proxyURL, _ := url.Parse("http://proxy.corp:8080")
	proxyFunc := proxyFuncWithBypass(proxyURL, "*.example.com")

	// Subdomain should bypass proxy
	req, _ := http.NewRequest("GET", "https://api.example.com/data", nil)
	result, err := proxyFunc(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil (bypass) for api.example.com, got %v", result)
	}
}

// TestProxyFuncWithBypass_ExactDomain verifies example.com bypasses root and subdomains.
func TestProxyFuncWithBypass_ExactDomain(t *testing.T) {
	proxyURL, _ := url.Parse("http://proxy.corp:8080")
	proxyFunc := proxyFuncWithBypass(proxyURL, "example.com")

	// Root domain should bypass
	req, _ := http.NewRequest("GET", "https://example.com/data", nil)
	result, err := proxyFunc(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil (bypass) for example.com, got %v", result)
	}

	// Subdomain also bypasses: a domain without a leading dot matches subdomains
	req2, _ := http.NewRequest("GET", "https://api.example.com/data", nil)
	result2, err := proxyFunc(req2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result2 != nil {
		t.Errorf("expected nil (bypass) for api.example.com, got %v", result2)
	}
}

// TestProxyFuncWithBypass_CIDR verifies IP/CIDR range matching.
func TestProxyFuncWithBypass_CIDR(t *testing.T) {
	proxyURL, _ := url.Parse("http://proxy.corp:8080")
	proxyFunc := proxyFuncWithBypass(proxyURL, "10.0.0.0/8")

	// IP in range should bypass
	req, _ := http.NewRequest("GET", "http://10.1.2.3:8080/api", nil)
	result, err := proxyFunc(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil (bypass) for 10.1.2.3, got %v", result)
	}
}

// TestProxyFuncWithBypass_NonMatchingHost verifies non-matching hosts route through proxy.
func TestProxyFuncWithBypass_NonMatchingHost(t *testing.T) {
	proxyURL, _ := url.Parse("http://proxy.corp:8080")
	proxyFunc := proxyFuncWithBypass(proxyURL, "*.internal.corp,10.0.0.0/8")

	// External host should use proxy
	req, _ := http.NewRequest("GET", "https://bedrock-runtime.us-east-1.amazonaws.com/model", nil)
	result, err := proxyFunc(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil {
		t.Fatal("expected proxy URL for bedrock-runtime.us-east-1.amazonaws.com, got nil (direct)")
	}
	if result.Host != "proxy.corp:8080" {
		t.Errorf("expected proxy host proxy.corp:8080, got %s", result.Host)
	}
}

// TestProxyFuncWithBypass_MultiplePatterns verifies comma-separated patterns work.
func TestProxyFuncWithBypass_MultiplePatterns(t *testing.T) {
	proxyURL, _ := url.Parse("http://proxy.corp:8080")
	proxyFunc := proxyFuncWithBypass(proxyURL, "*.example.com, 192.168.0.0/16, internal.corp")

	tests := []struct {
		name       string
		url        string
		wantBypass bool
	}{
		{"wildcard match", "https://api.example.com/data", true},
		{"cidr match", "http://192.168.1.100/api", true},
		{"exact domain match", "https://internal.corp/status", true},
		{"non-match", "https://bedrock-runtime.us-east-1.amazonaws.com/model", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest("GET", tt.url, nil)
			result, err := proxyFunc(req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantBypass && result != nil {
				t.Errorf("expected bypass (nil) for %s, got %v", tt.url, result)
			}
			if !tt.wantBypass && result == nil {
				t.Errorf("expected proxy for %s, got nil (bypass)", tt.url)
			}
		})
	}
}

func TestConfigureHTTPClient_Modes(t *testing.T) {
	tests := []struct {
		name      string
		proxy     *config.ProxySettings
		wantNTLM  bool
		wantProxy bool
	}{
		{"nil uses system", nil, false, true},
		{"no-proxy", &config.ProxySettings{Mode: config.ProxyModeNone}, false, false},
		{"basic", &config.ProxySettings{Mode: config.ProxyModeBasic, Host: "proxy.corp", Port: 3128}, false, true},
		{"basic without host falls back", &config.ProxySettings{Mode: config.ProxyModeBasic}, false, false},
		{"ntlm", &config.ProxySettings{Mode: config.ProxyModeNTLM, Host: "proxy.corp"}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := ConfigureHTTPClient(tt.proxy)
			if err != nil {
				t.Fatalf("ConfigureHTTPClient failed: %v", err)
			}

			var tr *http.Transport
			switch rt := client.Transport.(type) {
			case ntlmssp.Negotiator:
				if !tt.wantNTLM {
					t.Fatal("unexpected NTLM negotiator")
				}
				tr = rt.RoundTripper.(*http.Transport)
			case *http.Transport:
				if tt.wantNTLM {
					t.Fatal("expected NTLM negotiator")
				}
				tr = rt
			default:
				t.Fatalf("unexpected transport %T", rt)
			}

			if (tr.Proxy != nil) != tt.wantProxy {
				t.Errorf("proxy func set = %v, want %v", tr.Proxy != nil, tt.wantProxy)
			}
		})
	}
}

func TestConfigureHTTPClient_UnsupportedMode(t *testing.T) {
	if _, err := ConfigureHTTPClient(&config.ProxySettings{Mode: "socks5"}); err == nil {
		t.Error("expected error for unsupported proxy mode")
	}
}

func TestBuildProxyURL(t *testing.T) {
	u := buildProxyURL(&config.ProxySettings{Host: "proxy.corp", User: "alice", Password: "pw"})
	if u.Host != "proxy.corp:8080" {
		t.Errorf("expected default port 8080, got %s", u.Host)
	}
	if u.User.Username() != "alice" {
		t.Errorf("expected user alice, got %v", u.User)
	}

	u = buildProxyURL(&config.ProxySettings{Host: "proxy.corp", Port: 3128, User: "alice"})
	if u.User != nil {
		t.Error("credentials should not be embedded without a password")
	}
}

func TestNeedsProxyPassword(t *testing.T) {
	tests := []struct {
		proxy config.ProxySettings
		want  bool
	}{
		{config.ProxySettings{Mode: config.ProxyModeBasic, User: "alice"}, true},
		{config.ProxySettings{Mode: config.ProxyModeNTLM, User: "alice", Password: "pw"}, false},
		{config.ProxySettings{Mode: config.ProxyModeSystem, User: "alice"}, false},
		{config.ProxySettings{Mode: config.ProxyModeBasic}, false},
	}
	for _, tt := range tests {
		if got := NeedsProxyPassword(&tt.proxy); got != tt.want {
			t.Errorf("NeedsProxyPassword(%+v) = %v, want %v", tt.proxy, got, tt.want)
		}
	}
}
