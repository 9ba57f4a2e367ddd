package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cameronsjo/manman/internal/envelope"
	"github.com/cameronsjo/manman/internal/envvalue"
)

type staticKeys map[string]string

func (s staticKeys) Key(_ context.Context, ref string) (string, error) {
	if k, ok := s[ref]; ok {
		return k, nil
	}
	return "", ErrKeyNotFound
}

func encrypt(t *testing.T, key, plaintext string) string {
	t.Helper()
	ct, err := envelope.Encrypt(key, plaintext)
	require.NoError(t, err)
	return ct
}

func TestEncryptAll_GeneratesKey(t *testing.T) {
	envs := envvalue.Map[string]{
		"DB_PASS": envvalue.Scalar("secret123"),
	}

	out, key, err := EncryptAll(envs, "")
	require.NoError(t, err)
	assert.True(t, envelope.IsValidKey(key))

	ct, ok := out["DB_PASS"].Resolve("dev")
	require.True(t, ok)
	assert.NotEqual(t, "secret123", ct)

	plain, err := envelope.Decrypt(key, ct)
	require.NoError(t, err)
	assert.Equal(t, "secret123", plain)

	other, err := envelope.GenerateKey(32)
	require.NoError(t, err)
	garbage, err := envelope.Decrypt(other, ct)
	if err == nil {
		assert.NotEqual(t, "secret123", garbage)
	} else {
		assert.ErrorIs(t, err, envelope.ErrDecryption)
	}
}

func TestEncryptAll_KeepsPerEnvironmentShape(t *testing.T) {
	key, err := envelope.GenerateKey(16)
	require.NoError(t, err)

	out, used, err := EncryptAll(envvalue.Map[string]{
		"TOKEN": envvalue.PerEnvironment(map[string]string{"dev": "d", "prod": "p"}),
	}, key)
	require.NoError(t, err)
	assert.Equal(t, key, used)
	assert.Equal(t, []string{"dev", "prod"}, out["TOKEN"].Environments())

	for env, want := range map[string]string{"dev": "d", "prod": "p"} {
		ct, _ := out["TOKEN"].Resolve(env)
		plain, err := envelope.Decrypt(key, ct)
		require.NoError(t, err)
		assert.Equal(t, want, plain)
	}
}

func TestEncryptAll_InvalidKey(t *testing.T) {
	_, _, err := EncryptAll(envvalue.Map[string]{"A": envvalue.Scalar("x")}, "abcd")
	assert.ErrorIs(t, err, envelope.ErrInvalidKeyLength)

	_, _, err = EncryptAll(envvalue.Map[string]{"A": envvalue.Scalar("x")}, "nothex!")
	assert.ErrorIs(t, err, envelope.ErrInvalidKeyFormat)
}

func TestMaterialize(t *testing.T) {
	key, err := envelope.GenerateKey(32)
	require.NoError(t, err)

	block := &Block{
		Key: key,
		Envs: envvalue.Map[string]{
			"DB_PASS": envvalue.Scalar(encrypt(t, key, "secret123")),
			"API_KEY": envvalue.PerEnvironment(map[string]string{
				"prod":              encrypt(t, key, "prod-key"),
				envvalue.DefaultKey: encrypt(t, key, "default-key"),
			}),
			"PROD_ONLY": envvalue.PerEnvironment(map[string]string{
				"prod": encrypt(t, key, "only-prod"),
			}),
		},
	}

	envs := map[string]string{"DB_PASS": "plain", "OTHER": "kept"}
	err = NewMaterializer(nil).Materialize(context.Background(), block, "dev", envs)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"DB_PASS": "secret123",
		"API_KEY": "default-key",
		"OTHER":   "kept",
	}, envs)
}

func TestMaterialize_NilOrEmptyBlock(t *testing.T) {
	m := NewMaterializer(nil)
	envs := map[string]string{}

	require.NoError(t, m.Materialize(context.Background(), nil, "dev", envs))
	require.NoError(t, m.Materialize(context.Background(), &Block{}, "dev", envs))
	assert.Empty(t, envs)
}

func TestMaterialize_KeyFromSource(t *testing.T) {
	key, err := envelope.GenerateKey(24)
	require.NoError(t, err)

	block := &Block{
		KeyPath: "secret/data/ml/app",
		Envs:    envvalue.Map[string]{"A": envvalue.Scalar(encrypt(t, key, "a"))},
	}
	envs := map[string]string{}

	m := NewMaterializer(staticKeys{"secret/data/ml/app": key})
	require.NoError(t, m.Materialize(context.Background(), block, "dev", envs))
	assert.Equal(t, "a", envs["A"])

	err = NewMaterializer(nil).Materialize(context.Background(), block, "dev", envs)
	assert.ErrorIs(t, err, ErrNoKeySource)
}

func TestMaterialize_NothingForEnvironment(t *testing.T) {
	key, err := envelope.GenerateKey(32)
	require.NoError(t, err)

	block := &Block{
		KeyPath: "secret/data/ml/app",
		Envs: envvalue.Map[string]{
			"PROD_ONLY": envvalue.PerEnvironment(map[string]string{"prod": encrypt(t, key, "p")}),
		},
	}
	envs := map[string]string{"OTHER": "kept"}

	require.NoError(t, NewMaterializer(nil).Materialize(context.Background(), block, "dev", envs))
	assert.Equal(t, map[string]string{"OTHER": "kept"}, envs)

	err = NewMaterializer(nil).Materialize(context.Background(), block, "prod", envs)
	assert.ErrorIs(t, err, ErrNoKeySource)
}

func TestMaterialize_Errors(t *testing.T) {
	key, err := envelope.GenerateKey(32)
	require.NoError(t, err)
	other, err := envelope.GenerateKey(32)
	require.NoError(t, err)

	tests := []struct {
		name    string
		block   *Block
		wantErr error
	}{
		{
			name:    "no key",
			block:   &Block{Envs: envvalue.Map[string]{"A": envvalue.Scalar("00")}},
			wantErr: ErrMissingKey,
		},
		{
			name:    "short key",
			block:   &Block{Key: "abcd", Envs: envvalue.Map[string]{"A": envvalue.Scalar("00")}},
			wantErr: envelope.ErrInvalidKeyLength,
		},
		{
			name:    "garbage ciphertext",
			block:   &Block{Key: key, Envs: envvalue.Map[string]{"A": envvalue.Scalar("zz")}},
			wantErr: envelope.ErrDecryption,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewMaterializer(nil).Materialize(context.Background(), tt.block, "dev", map[string]string{})
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}

	// Wrong key either fails or yields something other than the secret.
	block := &Block{Key: other, Envs: envvalue.Map[string]{"A": envvalue.Scalar(encrypt(t, key, "secret123"))}}
	envs := map[string]string{}
	if err := NewMaterializer(nil).Materialize(context.Background(), block, "dev", envs); err == nil {
		assert.NotEqual(t, "secret123", envs["A"])
	}
}
