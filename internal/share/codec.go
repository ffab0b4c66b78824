// Package share はウィッシュリストの公開共有リンクを提供する。
package share

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/speps/go-hashids/v2"
)

// tokenMinLength は公開トークンの最小長。
const tokenMinLength = 10

// ErrInvalidToken は公開トークンを内部IDに復元できない場合のエラー。
var ErrInvalidToken = errors.New("invalid share token")

// Codec は共有リンクの内部ID（UUID）と公開トークンを相互変換する。
// ソルト付きhashidsによる難読化であり、認可の境界ではない。
type Codec struct {
	h *hashids.HashID
}

// NewCodec はソルトからCodecを生成する。
func NewCodec(salt string) (*Codec, error) {
	if salt == "" {
		return nil, errors.New("share token salt must not be empty")
	}
	hd := hashids.NewData()
	hd.Salt = salt
	hd.MinLength = tokenMinLength
	h, err := hashids.NewWithData(hd)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize hashids: %w", err)
	}
	return &Codec{h: h}, nil
}

// Encode はUUIDを公開トークンに変換する。
func (c *Codec) Encode(id string) (string, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("invalid share ID %q: %w", id, err)
	}
	token, err := c.h.EncodeHex(strings.ReplaceAll(u.String(), "-", ""))
	if err != nil {
		return "", fmt.Errorf("failed to encode share ID: %w", err)
	}
	return token, nil
}

// Decode は公開トークンをUUIDに復元する。
// 復元できない場合はErrInvalidTokenを返す。
func (c *Codec) Decode(token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	hex, err := c.h.DecodeHex(token)
	if err != nil || len(hex) != 32 {
		return "", ErrInvalidToken
	}
	u, err := uuid.Parse(hex)
	if err != nil {
		return "", ErrInvalidToken
	}
	return u.String(), nil
}
