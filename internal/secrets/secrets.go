// Package secrets merges encrypted environment values into a workload's
// environment and produces encrypted values for storage.
package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/cameronsjo/manman/internal/envelope"
	"github.com/cameronsjo/manman/internal/envvalue"
)

var (
	// ErrMissingKey indicates a secrets block with values but no key.
	ErrMissingKey = errors.New("secrets block has no key")

	// ErrNoKeySource indicates a key reference with no secret store
	// configured to resolve it.
	ErrNoKeySource = errors.New("no secret store configured for key_path")

	// ErrKeyNotFound indicates a key reference the secret store could not
	// resolve.
	ErrKeyNotFound = errors.New("key not found in secret store")
)

// Block is the secrets section of a manifest request. Values are
// ciphertexts produced by EncryptAll and may differ per environment.
type Block struct {
	// Key is the hex-encoded decryption key.
	Key string `json:"key,omitempty" yaml:"key,omitempty"`

	// KeyPath references the key in the secret store; used when Key is empty.
	KeyPath string `json:"key_path,omitempty" yaml:"key_path,omitempty"`

	Envs envvalue.Map[string] `json:"envs,omitempty" yaml:"envs,omitempty"`
}

// KeySource looks up a decryption key by reference.
type KeySource interface {
	Key(ctx context.Context, ref string) (string, error)
}

// Materializer decrypts secrets blocks.
type Materializer struct {
	keys KeySource
}

// NewMaterializer creates a Materializer. keys may be nil when key
// references are not supported.
func NewMaterializer(keys KeySource) *Materializer {
	return &Materializer{keys: keys}
}

// Materialize decrypts every secret that has a value for env and writes it
// into envs under its name, replacing any existing entry. Secrets with no
// value for env and no default are skipped and never reach the cipher. The
// key is only looked up when at least one secret resolves for env.
func (m *Materializer) Materialize(ctx context.Context, block *Block, env string, envs map[string]string) error {
	if block == nil {
		return nil
	}
	present := block.Envs.Resolve(env)
	if len(present) == 0 {
		return nil
	}

	key, err := m.key(ctx, block)
	if err != nil {
		return err
	}
	c, err := envelope.New(key)
	if err != nil {
		return fmt.Errorf("secrets key: %w", err)
	}

	for _, name := range block.Envs.Names() {
		ciphertext, ok := present[name]
		if !ok {
			continue
		}
		plaintext, err := c.Decrypt(ciphertext)
		if err != nil {
			return fmt.Errorf("secret %s: %w", name, err)
		}
		envs[name] = plaintext
	}
	return nil
}

func (m *Materializer) key(ctx context.Context, block *Block) (string, error) {
	if block.Key != "" {
		return block.Key, nil
	}
	if block.KeyPath == "" {
		return "", ErrMissingKey
	}
	if m.keys == nil {
		return "", fmt.Errorf("%w: %s", ErrNoKeySource, block.KeyPath)
	}
	return m.keys.Key(ctx, block.KeyPath)
}

// EncryptAll encrypts every entry of envs, keeping scalar and
// per-environment shapes. When key is empty a new key is generated; the
// key used is returned alongside the result.
func EncryptAll(envs envvalue.Map[string], key string) (envvalue.Map[string], string, error) {
	if key == "" {
		generated, err := envelope.GenerateKey(envelope.DefaultKeyLength)
		if err != nil {
			return nil, "", err
		}
		key = generated
	}

	c, err := envelope.New(key)
	if err != nil {
		return nil, "", err
	}

	out := make(envvalue.Map[string], len(envs))
	for _, name := range envs.Names() {
		encrypted, err := envs[name].Transform(c.Encrypt)
		if err != nil {
			return nil, "", fmt.Errorf("secret %s: %w", name, err)
		}
		out[name] = encrypted
	}
	return out, key, nil
}
