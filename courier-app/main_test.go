package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/compose-network/courier/courier-app/config"
)

// Commands share the cfgFile flag variable, so these tests are not parallel.

func execRoot(t *testing.T, args ...string) string {
	t.Helper()
	cfgFile = ""
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.Execute())
	return out.String()
}

func TestVersionCommand(t *testing.T) {
	out := execRoot(t, "version")
	assert.Contains(t, out, "Version:    "+Version)
	assert.Contains(t, out, "Go Version:")
}

func TestConfigShow_AppliesFlags(t *testing.T) {
	out := execRoot(t, "config", "show", "--hub-addr", "10.1.2.3:8470", "--zero-copy", "--call-timeout", "250ms")

	var cfg config.Config
	require.NoError(t, yaml.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, "10.1.2.3:8470", cfg.Transport.Client.Address)
	assert.True(t, cfg.Publisher.ZeroCopy)
	assert.Equal(t, "250ms", cfg.Service.CallTimeout.String())
}

func TestConfigShow_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600))

	out := execRoot(t, "config", "show", "--config", path)
	assert.Contains(t, out, "level: debug")
}

func TestUnknownCommand(t *testing.T) {
	cfgFile = ""
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"nope"})
	require.Error(t, root.Execute())
}
