package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoctor(t *testing.T) {
	t.Setenv("VAULT_BASE_URL", "")
	t.Setenv("VAULT_ADDR", "")
	t.Setenv("VAULT_TOKEN", "")
	t.Setenv("PORT", "")

	t.Run("complete store", func(t *testing.T) {
		dir := writeTemplates(t)
		out, err := executeCmd(t, "doctor", "--templates", dir)
		require.NoError(t, err)
		assert.Contains(t, out, "  * settings")
		assert.Contains(t, out, "  * _default/server.yaml.tmpl")
		assert.Contains(t, out, "  ! _default/tolerations.yaml")
	})

	t.Run("missing template fails", func(t *testing.T) {
		dir := writeTemplates(t)
		require.NoError(t, os.Remove(filepath.Join(dir, "_default", "consumer.yaml.tmpl")))

		out, err := executeCmd(t, "doctor", "--templates", dir)
		assert.ErrorContains(t, err, "1 check(s) failed")
		assert.Contains(t, out, "  x _default/consumer.yaml.tmpl")
	})

	t.Run("unusable store", func(t *testing.T) {
		_, err := executeCmd(t, "doctor", "--templates", "ftp://nowhere")
		assert.ErrorContains(t, err, "1 check(s) failed")
	})
}
