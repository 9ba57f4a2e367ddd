package cmd

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/cameronsjo/manman/internal/envelope"
	"github.com/cameronsjo/manman/internal/envvalue"
	"github.com/cameronsjo/manman/internal/secrets"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

const plainSecrets = `
DB_PASS: {prod: prod-pass, _default: dev-pass}
API_TOKEN: token
`

func TestSecretsEncrypt(t *testing.T) {
	file := writeFile(t, "secrets.yaml", plainSecrets)

	out, err := executeCmd(t, "secrets", "encrypt", "-f", file, "--key", testKey)
	require.NoError(t, err)

	var encrypted envvalue.Map[string]
	require.NoError(t, yaml.Unmarshal([]byte(out), &encrypted))
	assert.Equal(t, []string{"API_TOKEN", "DB_PASS"}, encrypted.Names())
	assert.True(t, encrypted["DB_PASS"].IsPerEnvironment())

	ct, ok := encrypted["DB_PASS"].Resolve("prod")
	require.True(t, ok)
	plain, err := envelope.Decrypt(testKey, ct)
	require.NoError(t, err)
	assert.Equal(t, "prod-pass", plain)

	ct, _ = encrypted["DB_PASS"].Resolve("stage")
	plain, err = envelope.Decrypt(testKey, ct)
	require.NoError(t, err)
	assert.Equal(t, "dev-pass", plain)
}

func TestSecretsEncrypt_Block(t *testing.T) {
	file := writeFile(t, "secrets.yaml", plainSecrets)

	out, err := executeCmd(t, "secrets", "encrypt", "-f", file, "--block")
	require.NoError(t, err)

	var doc struct {
		Secrets secrets.Block `yaml:"secrets"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	require.True(t, envelope.IsValidKey(doc.Secrets.Key), "generated key is included")

	envs := map[string]string{}
	require.NoError(t, secrets.NewMaterializer(nil).Materialize(t.Context(), &doc.Secrets, "prod", envs))
	assert.Equal(t, map[string]string{"DB_PASS": "prod-pass", "API_TOKEN": "token"}, envs)
}

func TestSecretsEncrypt_InvalidKey(t *testing.T) {
	file := writeFile(t, "secrets.yaml", plainSecrets)

	_, err := executeCmd(t, "secrets", "encrypt", "-f", file, "--key", "xyz")
	assert.ErrorIs(t, err, envelope.ErrInvalidKeyFormat)

	_, err = executeCmd(t, "secrets", "encrypt", "-f", file, "--key", "aabb")
	assert.ErrorIs(t, err, envelope.ErrInvalidKeyLength)
}

func TestSecretsEncrypt_BooleanLikeNames(t *testing.T) {
	file := writeFile(t, "secrets.yaml", "\"Y\": yes-value\n\"ON\": {prod: on-prod}\n")

	out, err := executeCmd(t, "secrets", "encrypt", "-f", file, "--key", testKey)
	require.NoError(t, err)

	var encrypted envvalue.Map[string]
	require.NoError(t, yaml.Unmarshal([]byte(out), &encrypted))
	assert.Equal(t, []string{"ON", "Y"}, encrypted.Names())

	ct, ok := encrypted["Y"].Resolve("dev")
	require.True(t, ok)
	plain, err := envelope.Decrypt(testKey, ct)
	require.NoError(t, err)
	assert.Equal(t, "yes-value", plain)

	ct, ok = encrypted["ON"].Resolve("prod")
	require.True(t, ok)
	plain, err = envelope.Decrypt(testKey, ct)
	require.NoError(t, err)
	assert.Equal(t, "on-prod", plain)
}

func TestSecretsDecrypt(t *testing.T) {
	ct, err := envelope.Encrypt(testKey, "hunter2")
	require.NoError(t, err)

	t.Run("key flag", func(t *testing.T) {
		out, err := executeCmd(t, "secrets", "decrypt", ct, "--key", testKey)
		require.NoError(t, err)
		assert.Equal(t, "hunter2\n", out)
	})

	t.Run("key from environment", func(t *testing.T) {
		t.Setenv(SecretKeyEnv, testKey)
		out, err := executeCmd(t, "secrets", "decrypt", ct)
		require.NoError(t, err)
		assert.Equal(t, "hunter2\n", out)
	})

	t.Run("key from prompt", func(t *testing.T) {
		t.Setenv(SecretKeyEnv, "")
		orig := readKeyPrompt
		t.Cleanup(func() { readKeyPrompt = orig })
		readKeyPrompt = func(string) (string, error) { return testKey, nil }

		out, err := executeCmd(t, "secrets", "decrypt", ct)
		require.NoError(t, err)
		assert.Equal(t, "hunter2\n", out)
	})

	t.Run("no key available", func(t *testing.T) {
		t.Setenv(SecretKeyEnv, "")
		orig := readKeyPrompt
		t.Cleanup(func() { readKeyPrompt = orig })
		readKeyPrompt = func(string) (string, error) { return "", errors.New("not a terminal") }

		_, err := executeCmd(t, "secrets", "decrypt", ct)
		assert.ErrorContains(t, err, "not a terminal")
	})

	t.Run("malformed ciphertext", func(t *testing.T) {
		_, err := executeCmd(t, "secrets", "decrypt", "not-hex", "--key", testKey)
		assert.ErrorIs(t, err, envelope.ErrDecryption)
	})

	t.Run("file for environment", func(t *testing.T) {
		prod, err := envelope.Encrypt(testKey, "prod-pass")
		require.NoError(t, err)
		file := writeFile(t, "encrypted.yaml", "DB_PASS: {prod: "+prod+"}\nAPI_TOKEN: "+ct+"\n")

		out, err := executeCmd(t, "secrets", "decrypt", "-f", file, "--env", "prod", "--key", testKey)
		require.NoError(t, err)
		assert.Equal(t, "API_TOKEN=hunter2\nDB_PASS=prod-pass\n", out)

		out, err = executeCmd(t, "secrets", "decrypt", "-f", file, "--env", "dev", "--key", testKey)
		require.NoError(t, err)
		assert.Equal(t, "API_TOKEN=hunter2\n", out)
	})

	t.Run("file needs env", func(t *testing.T) {
		file := writeFile(t, "encrypted.yaml", "API_TOKEN: "+ct+"\n")
		_, err := executeCmd(t, "secrets", "decrypt", "-f", file, "--key", testKey)
		assert.ErrorContains(t, err, "--env")
	})

	t.Run("nothing to decrypt", func(t *testing.T) {
		_, err := executeCmd(t, "secrets", "decrypt", "--key", testKey)
		assert.Error(t, err)
	})
}

func TestSecretsKeygen(t *testing.T) {
	for _, length := range envelope.ValidKeyLengths {
		out, err := executeCmd(t, "secrets", "keygen", "--length", strconv.Itoa(length))
		require.NoError(t, err)
		key := strings.TrimSpace(out)
		assert.Len(t, key, length*2)
		assert.True(t, envelope.IsValidKey(key))
	}

	_, err := executeCmd(t, "secrets", "keygen", "--length", "20")
	assert.ErrorIs(t, err, envelope.ErrInvalidKeyLength)
}
