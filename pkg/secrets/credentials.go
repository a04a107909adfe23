package secrets

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/richxcame/tutor-payouts/pkg/config"
	"github.com/richxcame/tutor-payouts/pkg/logger"
)

// ApplyCredentials replaces the PayOS and JWT credentials in cfg with the
// values their configured references resolve to. Unset references keep
// the environment value.
func ApplyCredentials(ctx context.Context, store *Store, cfg *config.Config) error {
	refs := cfg.Secrets.Refs
	bindings := []struct {
		name   string
		ref    string
		target *string
	}{
		{"payos client id", refs.GatewayClientID, &cfg.Gateway.ClientID},
		{"payos api key", refs.GatewayAPIKey, &cfg.Gateway.APIKey},
		{"payos checksum key", refs.GatewayChecksumKey, &cfg.Gateway.ChecksumKey},
		{"jwt secret", refs.JWTSecret, &cfg.JWT.Secret},
		{"database password", refs.DatabasePassword, &cfg.Database.Password},
	}

	for _, b := range bindings {
		if b.ref == "" {
			continue
		}
		v, err := store.Lookup(ctx, b.ref)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", b.name, err)
		}
		*b.target = v
		logger.Info("Credential loaded from secret store", zap.String("credential", b.name))
	}
	return nil
}
