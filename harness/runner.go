package harness

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mlantern/camtest/harness/definitions"
	"github.com/mlantern/camtest/harness/display"
	"github.com/mlantern/camtest/harness/qemu"
)

// TestName labels the scenario this runner replays.
const TestName = "menu"

// Runner steps through the Canon menus of one firmware image under the
// emulator, checking every screen against golden images, and tries to
// cleanly shut the cam down afterwards. ML is not active.
type Runner struct {
	cfg       *Config
	cam       *Cam
	registry  Registry
	sequences SequenceTable

	runID string
	state definitions.RunState

	// injection points for tests; NewRunner wires the real backends
	launch  func(ctx context.Context, spec definitions.LaunchSpec) (Process, error)
	connect func(addr string, opts display.Options) (Display, error)
	monitor func(socketPath string) Monitor
}

// NewRunner builds a runner for one cam against the real emulator backends.
func NewRunner(cfg *Config, cam *Cam, reg Registry, seqs SequenceTable) *Runner {
	return &Runner{
		cfg:       cfg,
		cam:       cam,
		registry:  reg,
		sequences: seqs,
		runID:     uuid.New().String()[:8],
		state:     definitions.StateIdle,
		launch: func(ctx context.Context, spec definitions.LaunchSpec) (Process, error) {
			return qemu.Launch(ctx, spec)
		},
		connect: func(addr string, opts display.Options) (Display, error) {
			return display.Connect(addr, opts)
		},
		monitor: func(socketPath string) Monitor {
			return qemu.Monitor{SocketPath: socketPath, Grace: cfg.ShutdownGrace}
		},
	}
}

// State returns the runner's current lifecycle state.
func (r *Runner) State() definitions.RunState {
	return r.state
}

// Run replays the key sequence for the cam's ROM and returns the terminal
// result. All emulator resources are released before it returns, whatever
// the outcome.
func (r *Runner) Run(ctx context.Context) definitions.Result {
	r.state = definitions.StateRunning

	log.Info().Str("run", r.runID).Str("model", r.cam.Model).
		Str("rom", r.cam.CodeROMMD5).Msg("menu test starting")

	// Everything the run needs must be known before any process or socket
	// resource is acquired.
	if _, ok := r.registry[r.cam.Model]; !ok {
		return r.fail("no tests known for cam: " + r.cam.Model)
	}
	if !r.registry.KnownROM(r.cam.Model, r.cam.CodeROMMD5) {
		return r.fail("unknown rom for cam, MD5 sum: " + r.cam.CodeROMMD5)
	}
	steps, ok := r.sequences.StepsFor(r.cam.CodeROMMD5)
	if !ok {
		return r.fail("no key sequence known for rom, MD5 sum: " + r.cam.CodeROMMD5)
	}

	proc, err := r.launch(ctx, r.launchSpec())
	if err != nil {
		return r.fail(fmt.Sprintf("starting emulator: %v", err))
	}
	defer proc.Close()

	disp, err := r.connect(r.cfg.DisplayAddr(), r.displayOptions())
	if err != nil {
		return r.fail(fmt.Sprintf("connecting display: %v", err))
	}
	defer disp.Close()

	for i, step := range steps {
		if res, ok := r.runStep(disp, i, step); !ok {
			return res
		}
	}

	// Attempt a clean shutdown through the monitor socket. A cam that made
	// it through every screen has passed; failing to power down nicely is
	// only worth a warning.
	if err := r.monitor(r.cfg.MonitorSocketPath()).Shutdown(false); err != nil {
		log.Warn().Str("run", r.runID).Err(err).Msg("graceful shutdown failed")
	}

	if r.cfg.ForceContinue {
		// Debug-mode runs must not accidentally pass.
		return r.fail("force-continue was set, failing the run")
	}

	r.state = definitions.StateSucceeded
	return definitions.Result{
		Model:  r.cam.Model,
		Test:   TestName,
		RunID:  r.runID,
		Passed: true,
	}
}

// runStep presses one key, waits for the menu transition and verifies the
// resulting screen. The bool is false when the run must stop with the
// returned result.
func (r *Runner) runStep(disp Display, i int, step definitions.InputStep) (definitions.Result, bool) {
	delay := r.cfg.StepDelay
	if step.ExtendedWait {
		// some menu transitions are much slower than others
		delay = r.cfg.ExtendedStepDelay
	}

	log.Debug().Str("run", r.runID).Int("step", i).Str("key", step.Key).Msg("pressing key")

	if err := disp.PressKey(step.Key); err != nil {
		return r.fail(fmt.Sprintf("step %d: %v", i, err)), false
	}
	time.Sleep(delay)

	name, err := disp.CaptureScreen()
	if err != nil {
		return r.fail(fmt.Sprintf("step %d: capturing screen: %v", i, err)), false
	}

	refPath := filepath.Join(r.cfg.ExpectedDir, name)
	outcome, err := disp.CompareToReference(refPath, r.cfg.Tolerance)
	if err != nil {
		return r.fail(fmt.Sprintf("step %d: comparing screen: %v", i, err)), false
	}

	switch outcome.Kind {
	case definitions.OutcomeMatch:
		log.Debug().Str("run", r.runID).Int("step", i).Float64("rms", outcome.RMS).Msg("screen matched")

	case definitions.OutcomeReferenceMissing:
		if !r.cfg.ForceContinue {
			return r.fail("missing expected output file: " + refPath), false
		}
		log.Warn().Str("run", r.runID).Int("step", i).Str("reference", refPath).
			Msg("missing expected output file, continuing")

	default:
		// The comparison never settled on the expected screen. A stable
		// but wrong screen lands here too; the diagnostic capture is the
		// best debugging aid either way.
		if !r.cfg.ForceContinue {
			return r.fail(fmt.Sprintf(
				"screen never matched expected result file '%s', check '%s'",
				refPath, outcome.DiagnosticPath)), false
		}
		log.Warn().Str("run", r.runID).Int("step", i).Str("reference", refPath).
			Str("diagnostic", outcome.DiagnosticPath).Msg("screen never matched, continuing")
	}

	return definitions.Result{}, true
}

func (r *Runner) launchSpec() definitions.LaunchSpec {
	return definitions.LaunchSpec{
		QemuDir:       r.cfg.QemuDir,
		RomDir:        r.cam.RomDir,
		Model:         r.cam.Model,
		Boot:          r.cfg.Boot,
		SDImage:       r.cfg.SDImage,
		CFImage:       r.cfg.CFImage,
		MonitorSocket: r.cfg.MonitorSocketPath(),
		VNCDisplay:    r.cfg.VNCDisplay(),
		OutputDir:     r.cfg.OutputDir,
		SettleDelay:   r.cfg.SettleDelay,
	}
}

func (r *Runner) displayOptions() display.Options {
	return display.Options{
		Prefix:         r.cfg.CapturePrefix,
		OutputDir:      r.cfg.OutputDir,
		FullFrame:      true,
		KeyHold:        r.cfg.KeyHold,
		CaptureDelay:   r.cfg.CaptureDelay,
		CompareTimeout: r.cfg.CompareTimeout,
	}
}

func (r *Runner) fail(reason string) definitions.Result {
	r.state = definitions.StateFailed
	log.Debug().Str("run", r.runID).Str("reason", reason).Msg("run failed")
	return definitions.Result{
		Model:  r.cam.Model,
		Test:   TestName,
		RunID:  r.runID,
		Passed: false,
		Reason: reason,
	}
}
