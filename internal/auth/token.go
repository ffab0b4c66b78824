package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"fmt"
	"strings"
)

// tokenBytes はトークン1要素あたりの乱数バイト数。
const tokenBytes = 24

var tokenEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateToken はCSPRNGから24バイトを読み、小文字base32（パディングなし）で返す。
// セッションIDとシークレットの両方に使用する。
func GenerateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return strings.ToLower(tokenEncoding.EncodeToString(b)), nil
}

// HashSecret はシークレットのSHA-256ダイジェストを返す。
// セッションIDが検索キーを兼ねるためソルトは付与しない。
func HashSecret(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

// ConstantTimeEqual は2つのバイト列が同一かを一定時間で比較する。
// 長さが異なる場合は即座にfalseを返す。
func ConstantTimeEqual(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// SplitToken は "id.secret" 形式のトークンを分割する。
// "." で区切った要素がちょうど2つでない場合はokがfalseになる。
func SplitToken(token string) (id, secret string, ok bool) {
	id, secret, found := strings.Cut(token, ".")
	if !found || id == "" || secret == "" || strings.Contains(secret, ".") {
		return "", "", false
	}
	return id, secret, true
}
