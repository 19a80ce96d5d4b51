package logging

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"comref/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestGet_DisabledWithoutDebugMode(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := Wrap(zap.New(core), config.LoggingConfig{Level: "debug"})

	l.Get(CategoryRefcount).Info("hidden")
	l.Root().Info("shown")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "shown", logs.All()[0].Message)
}

func TestGet_CategoryToggles(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := Wrap(zap.New(core), config.LoggingConfig{
		DebugMode:  true,
		Categories: map[string]bool{"stress": false},
	})

	l.Get(CategoryStress).Info("dropped")
	l.Get(CategoryRefcount).Info("kept")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "kept", entry.Message)
	assert.Equal(t, "refcount", entry.LoggerName)
}

func TestGet_ConcurrentSameLogger(t *testing.T) {
	l := Wrap(zap.NewNop(), config.LoggingConfig{DebugMode: true})

	var wg sync.WaitGroup
	got := make([]*zap.Logger, 16)
	for i := range got {
		i := i // per-iteration copy (Go <1.22 loop semantics)
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i] = l.Get(CategoryAggregate)
		}()
	}
	wg.Wait()

	for _, lg := range got[1:] {
		assert.Same(t, got[0], lg)
	}
}

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comref.log")
	l, err := New(config.LoggingConfig{Level: "info", Format: "json", File: path}, false)
	require.NoError(t, err)

	l.Root().Debug("below level")
	l.Root().Info("object destroyed", zap.Int32("refs", 0))
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"msg":"object destroyed"`)
	assert.False(t, strings.Contains(out, "below level"))
}

func TestNew_VerboseForcesDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comref.log")
	l, err := New(config.LoggingConfig{Level: "error", Format: "text", File: path}, true)
	require.NoError(t, err)

	l.Root().Debug("now visible")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "now visible")
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(config.LoggingConfig{Level: "chatty"}, false)
	assert.Error(t, err)
}

func TestNew_EmptyLevelAcceptedByConfig(t *testing.T) {
	cfg := config.LoggingConfig{Format: "json", File: filepath.Join(t.TempDir(), "comref.log")}
	require.NoError(t, cfg.Validate())

	l, err := New(cfg, false)
	require.NoError(t, err)
	assert.False(t, l.Root().Core().Enabled(zapcore.DebugLevel))
	assert.True(t, l.Root().Core().Enabled(zapcore.InfoLevel))
	_ = l.Sync()
}
