package pidfile_test

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/rts-production/internal/infrastructure/pidfile"
)

func TestPIDFile_AcquireAndRelease(t *testing.T) {
	// Arrange
	p := pidfile.New(filepath.Join(t.TempDir(), "run", "sim.pid"))

	// Act
	require.NoError(t, p.Acquire())

	// Assert
	assert.Equal(t, os.Getpid(), p.Owner())
	require.NoError(t, p.Release())
	assert.Equal(t, 0, p.Owner())
	assert.NoError(t, p.Release(), "releasing twice is harmless")
}

func TestPIDFile_ReplacesGarbageFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.pid")
	require.NoError(t, os.WriteFile(path, []byte("not-a-pid\n"), 0o644))
	p := pidfile.New(path)

	require.NoError(t, p.Acquire())

	assert.Equal(t, os.Getpid(), p.Owner())
}

func TestPIDFile_RefusesLiveOwner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.pid")
	parent := os.Getppid()
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(parent)+"\n"), 0o644))
	p := pidfile.New(path)

	err := p.Acquire()

	var running *pidfile.ErrAlreadyRunning
	require.ErrorAs(t, err, &running)
	assert.Equal(t, parent, running.PID)
	require.NoError(t, p.Release())
	assert.Equal(t, parent, p.Owner(), "a foreign PID file is left alone")
}

func TestPIDFile_KillExistingWithoutLiveOwnerIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.pid")
	p := pidfile.New(path)
	require.NoError(t, os.WriteFile(path, []byte("not-a-pid"), 0o644))

	assert.NoError(t, p.KillExisting(time.Second))

	require.NoError(t, p.Acquire())
	assert.NoError(t, p.KillExisting(time.Second), "never signals itself")
	assert.Equal(t, os.Getpid(), p.Owner())
}
