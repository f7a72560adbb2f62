package qemu

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlantern/camtest/harness/definitions"
)

// fakeQemuDir lays out a build dir whose qemu-system-arm is a shell script,
// so supervisor behavior can be tested without an emulator build.
func fakeQemuDir(t *testing.T, script string) string {
	t.Helper()
	dir := t.TempDir()
	binDir := filepath.Join(dir, "arm-softmmu")
	require.NoError(t, os.MkdirAll(binDir, 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(binDir, "qemu-system-arm"), []byte(script), 0o755))
	return dir
}

func testSpec(t *testing.T, qemuDir string) definitions.LaunchSpec {
	t.Helper()
	out := t.TempDir()
	return definitions.LaunchSpec{
		QemuDir:       qemuDir,
		RomDir:        t.TempDir(),
		Model:         "50D",
		MonitorSocket: filepath.Join(out, "qemu.monitor0"),
		VNCDisplay:    ":12345",
		OutputDir:     out,
		SettleDelay:   50 * time.Millisecond,
	}
}

func TestLaunchMissingBinary(t *testing.T) {
	spec := testSpec(t, filepath.Join(t.TempDir(), "no-build-here"))
	_, err := Launch(context.Background(), spec)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLaunch)
}

func TestLaunchPrematureExit(t *testing.T) {
	qemuDir := fakeQemuDir(t, "#!/bin/sh\nexit 3\n")
	spec := testSpec(t, qemuDir)

	_, err := Launch(context.Background(), spec)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLaunch)
	assert.Contains(t, err.Error(), "prematurely")
}

func TestLaunchAndClose(t *testing.T) {
	qemuDir := fakeQemuDir(t, "#!/bin/sh\nsleep 30\n")
	spec := testSpec(t, qemuDir)

	s, err := Launch(context.Background(), spec)
	require.NoError(t, err)

	// simulate the socket artifact qemu would have created
	require.NoError(t, os.WriteFile(spec.MonitorSocket, nil, 0o644))

	require.NoError(t, s.Close())
	assert.NoFileExists(t, spec.MonitorSocket)

	// Close is idempotent
	require.NoError(t, s.Close())
}

func TestCloseWithoutSocketArtifact(t *testing.T) {
	qemuDir := fakeQemuDir(t, "#!/bin/sh\nsleep 30\n")
	spec := testSpec(t, qemuDir)

	s, err := Launch(context.Background(), spec)
	require.NoError(t, err)

	// qemu never created the socket; cleanup must not mind
	require.NoError(t, s.Close())
}

func TestLaunchSetsEnvironmentAndOutput(t *testing.T) {
	qemuDir := fakeQemuDir(t, "#!/bin/sh\necho \"workdir=$QEMU_EOS_WORKDIR\"\nsleep 30\n")
	spec := testSpec(t, qemuDir)

	s, err := Launch(context.Background(), spec)
	require.NoError(t, err)
	defer s.Close()

	stdout := filepath.Join(spec.OutputDir, "qemu.stdout")
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(stdout)
		return err == nil && len(data) > 0
	}, 2*time.Second, 20*time.Millisecond)

	data, err := os.ReadFile(stdout)
	require.NoError(t, err)
	assert.Contains(t, string(data), "workdir="+spec.RomDir)
}

func TestTerminateEndsProcess(t *testing.T) {
	qemuDir := fakeQemuDir(t, "#!/bin/sh\nsleep 30\n")
	spec := testSpec(t, qemuDir)

	s, err := Launch(context.Background(), spec)
	require.NoError(t, err)
	defer s.Close()

	s.Terminate()
	// second call must be harmless
	s.Terminate()

	done := make(chan error, 1)
	go func() { done <- s.Wait() }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit after Terminate")
	}
}
