package auth

import (
	"golang.org/x/oauth2/endpoints"

	"github.com/hitoshi/wantify/internal/model"
)

const defaultGoogleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// googleUserInfo はGoogleのOIDCユーザー情報エンドポイントのレスポンス。
type googleUserInfo struct {
	Sub  string `json:"sub"`
	Name string `json:"name"`
}

// NewGoogleProvider はGoogle OAuth 2.0プロバイダーを生成する。
// PKCEを使用し、スコープはopenid, profile。
func NewGoogleProvider(cfg ProviderConfig) OAuthProvider {
	return newOAuthProvider(
		model.ProviderGoogle,
		true,
		cfg,
		endpoints.Google,
		[]string{"openid", "profile"},
		defaultGoogleUserInfoURL,
		func(body []byte) (*Claims, error) {
			info, err := decodeJSON[googleUserInfo](body)
			if err != nil {
				return nil, err
			}
			return &Claims{ProviderUserID: info.Sub, Username: info.Name}, nil
		},
	)
}
