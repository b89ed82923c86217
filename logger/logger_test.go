package logger_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/padraicbc/amwatch/logger"
)

func TestNewLevels(t *testing.T) {
	l, err := logger.New(false)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))

	l, err = logger.New(true)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestNewTaskWritesOwnStream(t *testing.T) {
	dir := t.TempDir()
	l, err := logger.NewTask(dir, "race_watcher", false)
	require.NoError(t, err)

	l.Info("watch started")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(filepath.Join(dir, "race_watcher.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "watch started")
	assert.Contains(t, string(data), "race_watcher")
}
