package providers

import (
	"github.com/samber/do/v2"

	"github.com/shelfwise/shelfwise-server/internal/auth"
	"github.com/shelfwise/shelfwise-server/internal/config"
	"github.com/shelfwise/shelfwise-server/internal/logger"
)

// AuthKey is the symmetric PASETO key that seals publisher and admin bearer
// tokens. The server and the CLI's token command must resolve the same key,
// so it is persisted in the data directory on first use.
type AuthKey []byte

// ProvideAuthKey loads the token key from the data directory, generating it
// when absent.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	key, err := auth.LoadOrGenerateKey(cfg.Metadata.BasePath)
	if err != nil {
		return nil, err
	}
	cfg.Auth.AccessTokenKey = key

	log.Info("Token key ready", "token_lifetime", cfg.Auth.AccessTokenDuration)
	return AuthKey(key), nil
}

// ProvideTokenService issues and verifies the bearer tokens that identify the
// submitting publisher.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	key := do.MustInvoke[AuthKey](i)

	return auth.NewTokenService([]byte(key), cfg.Auth.AccessTokenDuration)
}
