package auth

import (
	"golang.org/x/oauth2/endpoints"

	"github.com/hitoshi/wantify/internal/model"
)

const defaultDiscordUserInfoURL = "https://discord.com/api/users/@me"

type discordUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// NewDiscordProvider はDiscord OAuthプロバイダーを生成する。
// PKCEを使用し、スコープはidentifyのみ。
func NewDiscordProvider(cfg ProviderConfig) OAuthProvider {
	return newOAuthProvider(
		model.ProviderDiscord,
		true,
		cfg,
		endpoints.Discord,
		[]string{"identify"},
		defaultDiscordUserInfoURL,
		func(body []byte) (*Claims, error) {
			user, err := decodeJSON[discordUser](body)
			if err != nil {
				return nil, err
			}
			return &Claims{ProviderUserID: user.ID, Username: user.Username}, nil
		},
	)
}
