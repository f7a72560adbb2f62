package definitions

import "time"

// LaunchSpec carries everything needed to start one qemu-eos instance.
type LaunchSpec struct {
	// QemuDir is the qemu-eos build directory, holding arm-softmmu/ and
	// disk_images/.
	QemuDir string
	// RomDir is conveyed to the emulator via QEMU_EOS_WORKDIR.
	RomDir string
	Model  string
	// Boot selects the firmware boot flag encoded into the -M model string.
	Boot bool

	// SDImage and CFImage default to the stock images under
	// QemuDir/disk_images when empty.
	SDImage string
	CFImage string

	MonitorSocket string
	// VNCDisplay in qemu display notation, e.g. ":12345".
	VNCDisplay string

	// OutputDir receives qemu.stdout and qemu.stderr.
	OutputDir string

	// SettleDelay is slept after launch before any channel attaches; the
	// emulator's control sockets are not ready immediately.
	SettleDelay time.Duration
}
