package common

import (
	"bytes"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeWorkDir(t *testing.T) {
	parent := t.TempDir()

	dir, cleanup, err := MakeWorkDir(parent, "pricetag-*", false, nil)
	require.NoError(t, err)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	cleanup()
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestMakeWorkDirKeep(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	dir, cleanup, err := MakeWorkDir(t.TempDir(), "pricetag-*", true, logger)
	require.NoError(t, err)
	cleanup()

	_, err = os.Stat(dir)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "keeping work directory")
}

func TestMakeWorkDirMissingParent(t *testing.T) {
	_, _, err := MakeWorkDir("/nonexistent/parent", "pricetag-*", false, nil)
	require.Error(t, err)
}
