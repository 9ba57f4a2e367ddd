package secrets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
)

// DefaultKeyField is the field read from a Vault secret when the reference
// does not name one.
const DefaultKeyField = "key"

// VaultKeySource reads keys from a HashiCorp Vault KV v2 engine.
//
// References are full logical paths with an optional field:
//
//	secret/data/ml/recommender
//	secret/data/ml/recommender#manman_key
type VaultKeySource struct {
	client *api.Client
}

// NewVaultKeySource creates a key source for the Vault at address.
func NewVaultKeySource(address, token string) (*VaultKeySource, error) {
	cfg := api.DefaultConfig()
	if cfg.Error != nil {
		return nil, fmt.Errorf("vault config: %w", cfg.Error)
	}
	cfg.Address = address
	cfg.Timeout = 10 * time.Second

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create vault client: %w", err)
	}
	if token != "" {
		client.SetToken(token)
	}
	return &VaultKeySource{client: client}, nil
}

// Key implements KeySource.
func (v *VaultKeySource) Key(ctx context.Context, ref string) (string, error) {
	path, field, _ := strings.Cut(ref, "#")
	if field == "" {
		field = DefaultKeyField
	}
	path = strings.Trim(path, "/")

	secret, err := v.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return "", fmt.Errorf("vault read %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, path)
	}

	// KV v2 nests the payload under data.data.
	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return "", fmt.Errorf("%w: %s has no data", ErrKeyNotFound, path)
	}
	key, ok := data[field].(string)
	if !ok || key == "" {
		return "", fmt.Errorf("%w: %s#%s", ErrKeyNotFound, path, field)
	}
	return key, nil
}

// Health reports whether the Vault is reachable, initialized and unsealed.
func (v *VaultKeySource) Health(ctx context.Context) error {
	resp, err := v.client.Sys().HealthWithContext(ctx)
	if err != nil {
		return fmt.Errorf("vault health: %w", err)
	}
	switch {
	case !resp.Initialized:
		return fmt.Errorf("vault at %s is not initialized", v.client.Address())
	case resp.Sealed:
		return fmt.Errorf("vault at %s is sealed", v.client.Address())
	}
	return nil
}
