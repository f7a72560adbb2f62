package qemu

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrConnect marks failures to reach the emulator's monitor socket.
var ErrConnect = errors.New("monitor connection failed")

// Command is a monitor console command. The protocol is one newline
// terminated ASCII command per connection; nothing is read back.
type Command string

const (
	// CmdPowerDown requests a graceful VM shutdown.
	CmdPowerDown Command = "system_powerdown"
	// CmdQuit tells qemu to terminate immediately.
	CmdQuit Command = "quit"
)

// Monitor is a management channel into a running emulator, addressed by the
// filesystem path of its monitor socket. Connections are short lived: one
// per command.
type Monitor struct {
	SocketPath string

	// Grace is how long Shutdown waits after issuing a command, since no
	// acknowledgment is read from the socket.
	Grace time.Duration

	// DialTimeout bounds the socket connect. Zero means 5 s.
	DialTimeout time.Duration
}

// Send writes one command to the monitor socket and closes the connection.
func (m Monitor) Send(cmd Command) error {
	timeout := m.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	conn, err := net.DialTimeout("unix", m.SocketPath, timeout)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConnect, m.SocketPath, err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(string(cmd) + "\n")); err != nil {
		return fmt.Errorf("%w: writing %q: %v", ErrConnect, cmd, err)
	}
	return nil
}

// Shutdown asks the VM to stop, gracefully by default or immediately when
// force is set, then waits the grace period for the instance to act on it.
func (m Monitor) Shutdown(force bool) error {
	cmd := CmdPowerDown
	if force {
		cmd = CmdQuit
	}
	log.Debug().Str("socket", m.SocketPath).Str("command", string(cmd)).Msg("monitor shutdown")
	if err := m.Send(cmd); err != nil {
		return err
	}
	grace := m.Grace
	if grace <= 0 {
		grace = 2 * time.Second
	}
	time.Sleep(grace)
	return nil
}
