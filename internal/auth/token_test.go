package auth

import (
	"bytes"
	"crypto/sha256"
	"regexp"
	"testing"
)

var tokenPattern = regexp.MustCompile(`^[a-z2-7]+$`)

func TestGenerateToken_Format(t *testing.T) {
	token, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}
	// 24バイト = 192ビット → base32で39文字（パディングなし）
	if len(token) != 39 {
		t.Errorf("len(token) = %d, want 39", len(token))
	}
	if !tokenPattern.MatchString(token) {
		t.Errorf("token %q should be lowercase base32", token)
	}
}

func TestGenerateToken_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := GenerateToken()
		if err != nil {
			t.Fatalf("GenerateToken returned error: %v", err)
		}
		if seen[token] {
			t.Fatalf("duplicate token generated: %q", token)
		}
		seen[token] = true
	}
}

func TestHashSecret_IsSHA256(t *testing.T) {
	want := sha256.Sum256([]byte("secret"))
	if got := HashSecret("secret"); !bytes.Equal(got, want[:]) {
		t.Errorf("HashSecret = %x, want %x", got, want)
	}
	if bytes.Equal(HashSecret("a"), HashSecret("b")) {
		t.Error("different secrets should produce different digests")
	}
}

func TestConstantTimeEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b []byte
		want bool
	}{
		{"同一", []byte("abc"), []byte("abc"), true},
		{"空同士", []byte{}, []byte{}, true},
		{"nilと空", nil, []byte{}, true},
		{"1バイト違い", []byte("abc"), []byte("abd"), false},
		{"長さ違い", []byte("abc"), []byte("abcd"), false},
		{"空と非空", []byte{}, []byte{0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConstantTimeEqual(tt.a, tt.b); got != tt.want {
				t.Errorf("ConstantTimeEqual(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSplitToken(t *testing.T) {
	tests := []struct {
		token      string
		wantID     string
		wantSecret string
		wantOK     bool
	}{
		{"abc.def", "abc", "def", true},
		{"abc.def.ghi", "", "", false},
		{"abcdef", "", "", false},
		{".def", "", "", false},
		{"abc.", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		id, secret, ok := SplitToken(tt.token)
		if id != tt.wantID || secret != tt.wantSecret || ok != tt.wantOK {
			t.Errorf("SplitToken(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.token, id, secret, ok, tt.wantID, tt.wantSecret, tt.wantOK)
		}
	}
}
