package qemu

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mlantern/camtest/harness/definitions"
)

// ErrLaunch marks failures to start the emulator process, or the process
// exiting before the harness could attach to it.
var ErrLaunch = errors.New("qemu launch failed")

// Supervisor owns one running qemu-eos process. It is created by Launch and
// must be released with Close, which terminates the process and removes the
// monitor socket artifact. Close is safe on every exit path and may be
// called more than once.
type Supervisor struct {
	Spec definitions.LaunchSpec

	cmd    *exec.Cmd
	stdout *os.File
	stderr *os.File

	done    chan struct{}
	waitErr error

	termOnce  sync.Once
	closeOnce sync.Once
	closeErr  error
}

// Launch starts qemu-eos for the given spec and waits the settle delay so
// the monitor and VNC sockets have time to come up. The returned Supervisor
// holds the process; callers must defer Close.
func Launch(ctx context.Context, spec definitions.LaunchSpec) (*Supervisor, error) {
	binary := filepath.Join(spec.QemuDir, "arm-softmmu", "qemu-system-arm")
	if _, err := os.Stat(binary); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLaunch, binary, err)
	}

	sdImage := spec.SDImage
	if sdImage == "" {
		sdImage = filepath.Join(spec.QemuDir, "disk_images", "sd.img")
	}
	cfImage := spec.CFImage
	if cfImage == "" {
		cfImage = filepath.Join(spec.QemuDir, "disk_images", "cf.img")
	}

	model := spec.Model + ",firmware=boot=0"
	if spec.Boot {
		model = spec.Model + ",firmware=boot=1"
	}

	args := []string{
		"-drive", "if=sd,format=raw,file=" + sdImage,
		"-drive", "if=ide,format=raw,file=" + cfImage,
		"-chardev", "socket,server,nowait,path=" + spec.MonitorSocket + ",id=monsock",
		"-mon", "chardev=monsock,mode=readline",
		"-name", spec.Model,
		"-M", model,
	}
	if spec.VNCDisplay != "" {
		args = append(args, "-vnc", spec.VNCDisplay)
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Env = append(os.Environ(), "QEMU_EOS_WORKDIR="+spec.RomDir)

	s := &Supervisor{
		Spec: spec,
		cmd:  cmd,
		done: make(chan struct{}),
	}

	if spec.OutputDir != "" {
		var err error
		s.stdout, err = os.Create(filepath.Join(spec.OutputDir, "qemu.stdout"))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLaunch, err)
		}
		s.stderr, err = os.Create(filepath.Join(spec.OutputDir, "qemu.stderr"))
		if err != nil {
			s.stdout.Close()
			return nil, fmt.Errorf("%w: %v", ErrLaunch, err)
		}
		cmd.Stdout = s.stdout
		cmd.Stderr = s.stderr
	}

	log.Debug().Str("model", spec.Model).Str("cmd", binary).Strs("args", args).Msg("launching qemu")

	if err := cmd.Start(); err != nil {
		s.closeFiles()
		return nil, fmt.Errorf("%w: %v", ErrLaunch, err)
	}

	go func() {
		s.waitErr = cmd.Wait()
		close(s.done)
	}()

	// Give the emulator time to bring up its sockets before any channel
	// attaches. An early exit during the settle window is a launch failure,
	// not a run failure.
	settle := spec.SettleDelay
	if settle <= 0 {
		settle = 1500 * time.Millisecond
	}
	select {
	case <-s.done:
		s.Close()
		return nil, fmt.Errorf("%w: qemu exited prematurely: %v", ErrLaunch, s.waitErr)
	case <-time.After(settle):
	}

	return s, nil
}

// Terminate sends SIGTERM to the emulator process. It is idempotent and
// deliberately a process-level kill, not a protocol-level shutdown; use
// Monitor.Shutdown for the graceful path.
func (s *Supervisor) Terminate() {
	s.termOnce.Do(func() {
		if s.cmd.Process != nil {
			if err := s.cmd.Process.Signal(syscall.SIGTERM); err != nil {
				log.Debug().Err(err).Msg("terminate signal failed")
			}
		}
	})
}

// Close terminates the process and removes the monitor socket artifact.
// This is the harness's primary resource-safety contract: it must run on
// every exit path, so callers defer it immediately after Launch.
func (s *Supervisor) Close() error {
	s.closeOnce.Do(func() {
		s.Terminate()
		if s.cmd.Process != nil {
			select {
			case <-s.done:
			case <-time.After(5 * time.Second):
				_ = s.cmd.Process.Kill()
				<-s.done
			}
		}
		s.closeFiles()
		if err := os.Remove(s.Spec.MonitorSocket); err != nil && !os.IsNotExist(err) {
			s.closeErr = err
		}
	})
	return s.closeErr
}

func (s *Supervisor) closeFiles() {
	if s.stdout != nil {
		s.stdout.Close()
	}
	if s.stderr != nil {
		s.stderr.Close()
	}
}

// Wait blocks until the emulator process exits on its own, e.g. after a
// graceful power down.
func (s *Supervisor) Wait() error {
	<-s.done
	return s.waitErr
}
