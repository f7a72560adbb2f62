package harness

import (
	"github.com/mlantern/camtest/harness/definitions"
)

// Display is the remote-display capability a scenario run drives: input
// injection, screen capture and comparison against golden images.
type Display interface {
	PressKey(name string) error
	CaptureScreen() (string, error)
	CompareToReference(referencePath string, tolerance float64) (definitions.Outcome, error)
	Close() error
}

// Monitor is the management channel used for lifecycle commands.
type Monitor interface {
	Shutdown(force bool) error
}

// Process is a running emulator owned by the run. Close must terminate the
// process and remove any socket artifact it created, on every exit path.
type Process interface {
	Terminate()
	Close() error
}
