package auth

import (
	"strconv"

	"golang.org/x/oauth2/endpoints"

	"github.com/hitoshi/wantify/internal/model"
)

const defaultGitHubUserInfoURL = "https://api.github.com/user"

// githubUser はGitHubの /user レスポンス。idは数値。
type githubUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
}

// NewGitHubProvider はGitHub OAuthプロバイダーを生成する。
// GitHubはPKCEを使用しない。
func NewGitHubProvider(cfg ProviderConfig) OAuthProvider {
	return newOAuthProvider(
		model.ProviderGitHub,
		false,
		cfg,
		endpoints.GitHub,
		nil,
		defaultGitHubUserInfoURL,
		func(body []byte) (*Claims, error) {
			user, err := decodeJSON[githubUser](body)
			if err != nil {
				return nil, err
			}
			if user.ID == 0 {
				return &Claims{Username: user.Login}, nil
			}
			return &Claims{ProviderUserID: strconv.FormatInt(user.ID, 10), Username: user.Login}, nil
		},
	)
}
