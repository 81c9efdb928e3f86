package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/grove"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func writeSeed(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	seed := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(seed, []byte(`
- name: Users API
  folders:
    - name: admin
      folders: []
      requests: []
  requests:
    - name: list
      method: GET
      endpoint: https://example.test/users
`), 0644))

	cfg := filepath.Join(dir, "grove.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("log_level: error\nseed: "+seed+"\n"), 0644))
	return cfg
}

func TestVersionCommand(t *testing.T) {
	out := run(t, "version")
	assert.Equal(t, "grove version "+grove.Version+"\n", out)
}

func TestTreeCommand(t *testing.T) {
	cfg := writeSeed(t)

	out := run(t, "tree", "--config", cfg, "--format", "outline")
	assert.Contains(t, out, "- **Users API**")
	assert.Contains(t, out, "  - **admin**")
	assert.Contains(t, out, "`GET` list")

	out = run(t, "tree", "--config", cfg, "--format", "mermaid")
	assert.Contains(t, out, `c_0[("Users API")]`)
	assert.Contains(t, out, "c_0 --> c_0_0")
}
