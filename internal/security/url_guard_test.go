package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestNewSafeClient はSSRF防止付きHTTPクライアントの生成をテストする。
func TestNewSafeClient(t *testing.T) {
	guard := NewURLGuard()
	timeout := 5 * time.Second
	client := guard.NewSafeClient(timeout)
	if client == nil {
		t.Fatal("NewSafeClient() returned nil")
	}
	if client.Timeout != timeout {
		t.Errorf("expected timeout %v, got %v", timeout, client.Timeout)
	}
	if client.Transport == nil || client.Transport == http.DefaultTransport {
		t.Fatal("expected custom Transport to be set")
	}
}

// TestNewSafeClientBlocksLoopback はSafeClientがループバックへのリクエストをブロックすることをテストする。
// httptestサーバーは127.0.0.1で起動されるため、safeurlがブロックする。
func TestNewSafeClientBlocksLoopback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := NewURLGuard().NewSafeClient(5 * time.Second)

	_, err := client.Get(ts.URL)
	if err == nil {
		t.Fatal("expected error for loopback address request, got nil")
	}
}

// TestValidateURL_PublicURL は公開URLの検証が成功することをテストする。
func TestValidateURL_PublicURL(t *testing.T) {
	guard := NewURLGuard()

	publicURLs := []string{
		"https://example.com",
		"https://shop.example.com/products/123?ref=wishlist",
		"http://blog.example.org/gift-ideas",
		"HTTPS://Example.com/item",
	}

	for _, u := range publicURLs {
		t.Run(u, func(t *testing.T) {
			if err := guard.ValidateURL(u); err != nil {
				t.Errorf("ValidateURL(%q) returned error: %v", u, err)
			}
		})
	}
}

// TestValidateURL_BlockedAddresses はプライベート・ループバック・リンクローカル等の拒否をテストする。
func TestValidateURL_BlockedAddresses(t *testing.T) {
	guard := NewURLGuard()

	blocked := []string{
		"http://10.0.0.1/item",
		"http://172.16.0.1/item",
		"http://192.168.1.100/item",
		"http://127.0.0.1/item",
		"http://localhost/item",
		"http://api.localhost/item",
		"http://169.254.169.254/latest/meta-data/",
		"http://[::1]/item",
		"http://0.0.0.0/item",
	}

	for _, u := range blocked {
		t.Run(u, func(t *testing.T) {
			if err := guard.ValidateURL(u); err == nil {
				t.Errorf("ValidateURL(%q) should have returned error", u)
			}
		})
	}
}

// TestValidateURL_InvalidURL は無効なURLの検証が失敗することをテストする。
func TestValidateURL_InvalidURL(t *testing.T) {
	guard := NewURLGuard()

	invalidURLs := []string{
		"",
		"   ",
		"not-a-url",
		"ftp://example.com/file",
		"file:///etc/passwd",
		"javascript:alert(1)",
	}

	for _, u := range invalidURLs {
		t.Run(u, func(t *testing.T) {
			if err := guard.ValidateURL(u); err == nil {
				t.Errorf("ValidateURL(%q) should have returned error for invalid URL", u)
			}
		})
	}
}

// TestNormalizeURL はホスト名がIDNAのASCII形式に正規化されることをテストする。
func TestNormalizeURL(t *testing.T) {
	guard := NewURLGuard()

	tests := []struct {
		in   string
		want string
	}{
		{"https://example.com/item", "https://example.com/item"},
		{"HTTPS://EXAMPLE.com/Item", "https://example.com/Item"},
		{"https://例え.jp/item", "https://xn--r8jz45g.jp/item"},
		{"http://example.com:8080/a", "http://example.com:8080/a"},
		{"  https://example.com  ", "https://example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := guard.NormalizeURL(tt.in)
			if err != nil {
				t.Fatalf("NormalizeURL(%q) returned error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
