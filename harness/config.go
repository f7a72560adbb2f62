package harness

import (
	"fmt"
	"path/filepath"
	"time"
)

// Port and display numbering per job, so parallel runs never collide.
const (
	baseVNCDisplay = 12345
	vncPortOffset  = 5900
)

// Config holds the per-run settings of the harness. Delays are the fixed
// synchronization points with the emulator; there is no readiness handshake,
// so they are configurable in one place.
type Config struct {
	QemuDir     string
	RomDir      string
	OutputDir   string
	ExpectedDir string

	// SDImage and CFImage override the stock disk images when set.
	SDImage string
	CFImage string

	// JobID isolates parallel runs: it offsets the VNC display number and
	// suffixes the monitor socket name.
	JobID int

	// Boot selects the firmware boot flag passed to the emulator.
	Boot bool

	// ForceContinue makes the run push past missing references and
	// comparison timeouts, capturing as much as possible. Intended for
	// generating expected output on a new cam; such a run never passes.
	ForceContinue bool

	// Tolerance is the RMS pixel difference below which a capture matches
	// its reference. Zero requires an exact match.
	Tolerance float64

	CapturePrefix string

	SettleDelay       time.Duration
	StepDelay         time.Duration
	ExtendedStepDelay time.Duration
	KeyHold           time.Duration
	CaptureDelay      time.Duration
	CompareTimeout    time.Duration
	ShutdownGrace     time.Duration
}

// DefaultConfig returns a Config with the delays the menu scenario runs
// with.
func DefaultConfig() *Config {
	return &Config{
		CapturePrefix:     "menu_test_",
		SettleDelay:       1500 * time.Millisecond,
		StepDelay:         300 * time.Millisecond,
		ExtendedStepDelay: 5 * time.Second,
		KeyHold:           100 * time.Millisecond,
		CaptureDelay:      100 * time.Millisecond,
		CompareTimeout:    10 * time.Second,
		ShutdownGrace:     2 * time.Second,
	}
}

// MonitorSocketPath is the filesystem address of the emulator's monitor
// socket for this job.
func (c *Config) MonitorSocketPath() string {
	return filepath.Join(c.OutputDir, fmt.Sprintf("qemu.monitor%d", c.JobID))
}

// VNCDisplay in qemu display notation, offset by the job ID.
func (c *Config) VNCDisplay() string {
	return fmt.Sprintf(":%d", baseVNCDisplay+c.JobID)
}

// DisplayAddr is the TCP address the display listens on for this job.
func (c *Config) DisplayAddr() string {
	return fmt.Sprintf("127.0.0.1:%d", vncPortOffset+baseVNCDisplay+c.JobID)
}
