package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"firestige.xyz/router/internal/config"
	"firestige.xyz/router/internal/core"
)

func TestRequireInterfaces(t *testing.T) {
	for _, args := range [][]string{nil, {"eth0"}} {
		var stderr bytes.Buffer
		rootCmd.SetErr(&stderr)

		err := requireInterfaces(rootCmd, args)
		assert.ErrorIs(t, err, ErrUsage)
		assert.Equal(t, usageLine+"\n", stderr.String())
	}

	assert.NoError(t, requireInterfaces(rootCmd, []string{"eth0", "eth1"}))
}

func TestRootWithoutInterfacesPrintsUsage(t *testing.T) {
	var stderr bytes.Buffer
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{"eth0"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	assert.ErrorIs(t, err, ErrUsage)
	assert.Contains(t, stderr.String(), "USAGE: router <NETWORK INTERFACE 1> <NETWORK INTERFACE 2>")
}

func TestDoubleDashPassesSubcommandNameAsInterface(t *testing.T) {
	var stderr bytes.Buffer
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{"--", "validate", "router-test-missing0"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	// The root command ran and tried to open "validate" as an interface.
	assert.ErrorIs(t, err, core.ErrInterfaceNotFound)
	assert.Contains(t, err.Error(), "interface validate")
	assert.NotContains(t, stderr.String(), usageLine)
}

func TestValidatePrintsEffectiveConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "router.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
router:
  log:
    level: warning
  capture:
    type: AF_PACKET
    bpf_filter: arp or ip
`), 0644))

	var out bytes.Buffer
	require.NoError(t, runValidate(path, &out))

	var got struct {
		Router config.Config `yaml:"router"`
	}
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "warn", got.Router.Log.Level)
	assert.Equal(t, "afpacket", got.Router.Capture.Type)
	assert.Equal(t, "arp or ip", got.Router.Capture.BPFFilter)
	assert.Equal(t, 65536, got.Router.Capture.SnapLen)
	assert.Equal(t, "/metrics", got.Router.Metrics.Path)
}

func TestValidateRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "router.yml")
	require.NoError(t, os.WriteFile(path, []byte("router:\n  log:\n    level: loud\n"), 0644))

	var out bytes.Buffer
	err := runValidate(path, &out)
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
	assert.Contains(t, err.Error(), "INVALID")
	assert.Empty(t, out.String())
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)
	assert.Equal(t, "router version "+version+"\n", out.String())
}
