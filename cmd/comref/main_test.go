package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"comref/internal/stress"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const testConfig = `logging:
  level: error
  format: text
stress:
  objects: 2
  workers: 4
  iterations: 50
  parallelism: 2
  parts: 2
  timeout: 10s
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "comref.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0644))
	return path
}

// execute runs the root command with args, resetting flag state left over
// from earlier runs.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	for _, c := range append([]*cobra.Command{rootCmd}, rootCmd.Commands()...) {
		for _, fs := range []*pflag.FlagSet{c.Flags(), c.PersistentFlags()} {
			fs.VisitAll(func(f *pflag.Flag) {
				_ = f.Value.Set(f.DefValue)
				f.Changed = false
			})
		}
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestStressCommand(t *testing.T) {
	out, err := execute(t, "stress", "--config", writeTestConfig(t))
	require.NoError(t, err)

	var report stress.Report
	require.NoError(t, yaml.Unmarshal([]byte(out), &report))
	assert.Equal(t, 2, report.Objects)
	assert.Equal(t, 4, report.Workers)
	assert.Equal(t, int64(2), report.Destructions)
	assert.Zero(t, report.Leaked)
	assert.Equal(t, int64(2+2*4*50), report.Increments)
}

func TestStressCommand_FlagsOverrideConfig(t *testing.T) {
	out, err := execute(t, "stress", "--config", writeTestConfig(t),
		"--objects", "3", "--aggregated", "--parts", "1", "--iterations", "10")
	require.NoError(t, err)

	var report stress.Report
	require.NoError(t, yaml.Unmarshal([]byte(out), &report))
	assert.Equal(t, 3, report.Objects)
	assert.True(t, report.Aggregated)
	assert.Equal(t, int64(3*4*5), report.Queries)
	assert.Equal(t, int64(3), report.Destructions)
}

func TestStressCommand_InvalidFlags(t *testing.T) {
	_, err := execute(t, "stress", "--config", writeTestConfig(t), "--workers", "0")
	assert.Error(t, err)
}

func TestDemoCommand(t *testing.T) {
	out, err := execute(t, "demo", "--config", writeTestConfig(t))
	require.NoError(t, err)

	assert.Contains(t, out, "outer is self = true")
	assert.Contains(t, out, "Release -> 1 (destroyed=false)")
	assert.Contains(t, out, "Release -> 0 (destroyed=true, finalized=1)")
	assert.Contains(t, out, "composite with 2 parts")
	assert.Contains(t, out, "volume -> clock (composite refs=2)")
	assert.Contains(t, out, "unknown identity: no interface")
	assert.Contains(t, out, "composite destroyed=true, parts destroyed=true/true")
}

func TestMetricsCommand(t *testing.T) {
	out, err := execute(t, "metrics", "--config", writeTestConfig(t), "--aggregated")
	require.NoError(t, err)

	assert.Contains(t, out, `comref_objects_destroyed_total{kind="composite"} 2`)
	assert.Contains(t, out, `comref_objects_live{kind="part"} 0`)
	assert.True(t, strings.HasPrefix(out, "# HELP"))
}

func TestInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0644))

	_, err := execute(t, "demo", "--config", path)
	assert.ErrorContains(t, err, "invalid config")
}
