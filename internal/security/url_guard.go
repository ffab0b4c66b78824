// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
	"golang.org/x/net/idna"
)

// URLGuard は外部URLの検証と安全なHTTPクライアントの生成を行う。
// アイテムURL・画像URLの登録時と、OAuthプロバイダーへの通信で使用される。
type URLGuard interface {
	// NewSafeClient はSSRF防止機能付きのHTTPクライアントを生成する。
	// safeurlライブラリにより、プライベートIP、ループバック、リンクローカル、
	// メタデータIPへのリクエストが自動的にブロックされる。
	NewSafeClient(timeout time.Duration) *http.Client

	// ValidateURL はURLの安全性を事前に検証する。
	ValidateURL(rawURL string) error

	// NormalizeURL はURLを検証し、ホスト名をIDNAのASCII形式に正規化して返す。
	NormalizeURL(rawURL string) (string, error)
}

// allowedSchemes は許可されるURLスキーム。
var allowedSchemes = []string{"http", "https"}

// blockedNetworks はブロック対象のネットワーク範囲。
// safeurlはDNS解決後のIPアドレスもDialerで検証するため、
// ここでは登録時の静的チェックのみを担う。
var blockedNetworks []net.IPNet

func init() {
	cidrs := []string{
		// プライベートIPアドレス (RFC 1918)
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		// ループバック (RFC 1122)
		"127.0.0.0/8",
		// リンクローカル (RFC 3927) - クラウドメタデータIP (169.254.169.254) を含む
		"169.254.0.0/16",
		// カレントネットワーク
		"0.0.0.0/8",
		// IPv6ループバック
		"::1/128",
		// IPv6リンクローカル
		"fe80::/10",
		// IPv6ユニークローカル
		"fc00::/7",
	}
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in blockedNetworks: %s: %v", cidr, err))
		}
		blockedNetworks = append(blockedNetworks, *network)
	}
}

// urlGuard はURLGuardの実装。
type urlGuard struct{}

// NewURLGuard はURLGuardの新しいインスタンスを生成する。
func NewURLGuard() URLGuard {
	return &urlGuard{}
}

// NewSafeClient はSSRF防止機能付きのHTTPクライアントを生成する。
func (g *urlGuard) NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(80, 443).
		Build()

	return safeurl.Client(config).Client
}

// ValidateURL はURLの安全性を事前に検証する。
// DNS解決を伴わない静的な検証を行う。
func (g *urlGuard) ValidateURL(rawURL string) error {
	_, err := g.parse(rawURL)
	return err
}

// NormalizeURL はURLを検証し、ホスト名をIDNAのASCII形式に正規化して返す。
func (g *urlGuard) NormalizeURL(rawURL string) (string, error) {
	parsed, err := g.parse(rawURL)
	if err != nil {
		return "", err
	}
	return parsed.String(), nil
}

func (g *urlGuard) parse(rawURL string) (*url.URL, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("empty URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	// スキーム検証: http/httpsのみ許可
	scheme := strings.ToLower(parsed.Scheme)
	if !isAllowedScheme(scheme) {
		return nil, fmt.Errorf("disallowed scheme: %s (allowed: %v)", scheme, allowedSchemes)
	}
	parsed.Scheme = scheme

	host := parsed.Hostname()
	if host == "" {
		return nil, fmt.Errorf("empty host in URL: %s", rawURL)
	}

	// IPアドレスの場合: ブロック対象CIDRとの照合
	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return nil, fmt.Errorf("blocked IP address: %s", ip.String())
		}
		return parsed, nil
	}

	// ホスト名の場合: IDNAで正規化してからブロック対象と照合
	asciiHost, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return nil, fmt.Errorf("invalid host %q: %w", host, err)
	}
	if isBlockedHostname(asciiHost) {
		return nil, fmt.Errorf("blocked host: %s", asciiHost)
	}

	if port := parsed.Port(); port != "" {
		parsed.Host = net.JoinHostPort(asciiHost, port)
	} else {
		parsed.Host = asciiHost
	}
	return parsed, nil
}

// isAllowedScheme はURLスキームが許可リストに含まれるかを検証する。
func isAllowedScheme(scheme string) bool {
	for _, allowed := range allowedSchemes {
		if strings.EqualFold(scheme, allowed) {
			return true
		}
	}
	return false
}

// isBlockedIP はIPアドレスがブロック対象のネットワーク範囲に含まれるかを検証する。
func isBlockedIP(ip net.IP) bool {
	for _, network := range blockedNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// isBlockedHostname はホスト名がブロック対象かを検証する。
// localhostとそのサブドメインを拒否する。
func isBlockedHostname(host string) bool {
	lower := strings.ToLower(strings.TrimSuffix(host, "."))
	return lower == "localhost" || strings.HasSuffix(lower, ".localhost")
}
