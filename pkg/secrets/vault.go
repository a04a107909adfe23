package secrets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	vault "github.com/hashicorp/vault/api"

	"github.com/richxcame/tutor-payouts/pkg/config"
)

type vaultSource struct {
	client *vault.Client
	mount  string
}

func newVaultSource(cfg config.VaultConfig) (Source, error) {
	if cfg.Address == "" || cfg.Token == "" {
		return nil, fmt.Errorf("secrets: vault requires address and token")
	}

	vc := vault.DefaultConfig()
	vc.Address = cfg.Address
	if cfg.CACert != "" || cfg.TLSSkipVerify {
		if err := vc.ConfigureTLS(&vault.TLSConfig{CACert: cfg.CACert, Insecure: cfg.TLSSkipVerify}); err != nil {
			return nil, fmt.Errorf("secrets: vault tls: %w", err)
		}
	}

	client, err := vault.NewClient(vc)
	if err != nil {
		return nil, fmt.Errorf("secrets: vault client: %w", err)
	}
	client.SetToken(cfg.Token)
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	mount := strings.Trim(cfg.Mount, "/")
	if mount == "" {
		mount = "secret"
	}
	return &vaultSource{client: client, mount: mount}, nil
}

func (v *vaultSource) Backend() Backend { return BackendVault }

func (v *vaultSource) Close() error { return nil }

func (v *vaultSource) Read(ctx context.Context, path, version string) (map[string]string, error) {
	kv := v.client.KVv2(v.mount)
	path = strings.TrimPrefix(path, "data/")

	var (
		secret *vault.KVSecret
		err    error
	)
	if version != "" {
		n, convErr := strconv.Atoi(version)
		if convErr != nil {
			return nil, fmt.Errorf("secrets: vault version %q: %w", version, convErr)
		}
		secret, err = kv.GetVersion(ctx, path, n)
	} else {
		secret, err = kv.Get(ctx, path)
	}
	if err != nil {
		var respErr *vault.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("secrets: vault path %s not found", path)
		}
		return nil, fmt.Errorf("secrets: vault read %s: %w", path, err)
	}

	data := make(map[string]string, len(secret.Data))
	for k, raw := range secret.Data {
		data[k] = fmt.Sprint(raw)
	}
	return data, nil
}
