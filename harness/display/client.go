package display

import (
	"errors"
	"fmt"
	"image"
	"net"
	"os"
	"path/filepath"
	"time"

	vnc "github.com/mitchellh/go-vnc"
	"github.com/rs/zerolog/log"

	"github.com/mlantern/camtest/constants"
	"github.com/mlantern/camtest/harness/definitions"
)

// ErrConnect marks failures to establish the remote-display connection.
var ErrConnect = errors.New("display connection failed")

var errNoFrame = errors.New("no framebuffer update received")

// Options configures a display client.
type Options struct {
	// Prefix names captures: <prefix><NN>.png with a two-digit counter.
	Prefix string
	// OutputDir receives capture and diagnostic files.
	OutputDir string
	// FullFrame forces every update request to be non-incremental.
	// Incremental updates produce stale or partial captures that are
	// useless for comparison, so this defaults to on in DefaultOptions.
	FullFrame bool
	// KeyHold is how long a key stays down between the press and release
	// events.
	KeyHold time.Duration
	// CaptureDelay brackets screen captures, giving the emulator time to
	// finish drawing before and after a frame is persisted.
	CaptureDelay time.Duration
	// CompareTimeout bounds how long CompareToReference keeps polling for
	// a matching frame.
	CompareTimeout time.Duration
}

// DefaultOptions returns the options used by the menu scenario.
func DefaultOptions() Options {
	return Options{
		Prefix:         "test_",
		FullFrame:      true,
		KeyHold:        100 * time.Millisecond,
		CaptureDelay:   100 * time.Millisecond,
		CompareTimeout: 10 * time.Second,
	}
}

// Client is a stateful connection to the emulator's VNC display. It owns the
// capture counter and naming prefix; exactly one Client exists per scenario
// run and the counter never resets, so artifact names stay unique even
// across retries.
type Client struct {
	opts Options

	rfb  *vnc.ClientConn
	msgs chan vnc.ServerMessage

	frame    *image.RGBA
	counter  int
	lastName string
}

// Connect dials the display address and performs the protocol handshake.
// The emulator exposes the display without authentication.
func Connect(addr string, opts Options) (*Client, error) {
	if opts.Prefix == "" {
		opts.Prefix = "test_"
	}
	if opts.KeyHold <= 0 {
		opts.KeyHold = 100 * time.Millisecond
	}
	if opts.CaptureDelay <= 0 {
		opts.CaptureDelay = 100 * time.Millisecond
	}
	if opts.CompareTimeout <= 0 {
		opts.CompareTimeout = 10 * time.Second
	}

	nc, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConnect, addr, err)
	}

	msgs := make(chan vnc.ServerMessage, 32)
	rfb, err := vnc.Client(nc, &vnc.ClientConfig{
		Auth:            []vnc.ClientAuth{new(vnc.ClientAuthNone)},
		ServerMessageCh: msgs,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrConnect, addr, err)
	}

	log.Debug().Str("addr", addr).
		Uint16("width", rfb.FrameBufferWidth).
		Uint16("height", rfb.FrameBufferHeight).
		Str("desktop", rfb.DesktopName).
		Msg("display connected")

	return &Client{
		opts:  opts,
		rfb:   rfb,
		msgs:  msgs,
		frame: image.NewRGBA(image.Rect(0, 0, int(rfb.FrameBufferWidth), int(rfb.FrameBufferHeight))),
	}, nil
}

// PressKey injects one key event by symbolic name, holding the key down
// briefly so the guest's event loop registers it.
func (c *Client) PressKey(name string) error {
	sym, err := constants.Keysym(name)
	if err != nil {
		return err
	}
	if err := c.rfb.KeyEvent(sym, true); err != nil {
		return fmt.Errorf("key press %q: %w", name, err)
	}
	time.Sleep(c.opts.KeyHold)
	if err := c.rfb.KeyEvent(sym, false); err != nil {
		return fmt.Errorf("key release %q: %w", name, err)
	}
	return nil
}

// CaptureScreen requests a fresh frame, writes it under the next counter
// name and returns that name. The counter increments on every call and is
// never reused.
func (c *Client) CaptureScreen() (string, error) {
	time.Sleep(c.opts.CaptureDelay)
	if err := c.refresh(time.Now().Add(c.opts.CompareTimeout)); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s%02d.png", c.opts.Prefix, c.counter)
	c.counter++
	c.lastName = name

	if err := writePNG(filepath.Join(c.opts.OutputDir, name), c.frame); err != nil {
		return "", err
	}
	time.Sleep(c.opts.CaptureDelay)
	return name, nil
}

// LastCapture returns the name of the most recent capture.
func (c *Client) LastCapture() string {
	return c.lastName
}

// Captures returns how many captures have been taken.
func (c *Client) Captures() int {
	return c.counter
}

// Compare checks the current frame against a reference image once, without
// waiting for the screen to settle.
func (c *Client) Compare(referencePath string, tolerance float64) (definitions.Outcome, error) {
	ref, err := readPNG(referencePath)
	if err != nil {
		if os.IsNotExist(err) {
			return definitions.Outcome{Kind: definitions.OutcomeReferenceMissing}, nil
		}
		return definitions.Outcome{}, err
	}
	rms := diffRMS(c.frame, ref)
	if rms <= tolerance {
		return definitions.Outcome{Kind: definitions.OutcomeMatch, RMS: rms}, nil
	}
	return definitions.Outcome{Kind: definitions.OutcomeMismatch, RMS: rms}, nil
}

// CompareToReference polls fresh frames until the RMS pixel difference
// against the reference drops to the tolerance or the timeout expires.
// On timeout the last frame seen is written as fail_<capture-name> to aid
// debugging, and the outcome carries that diagnostic path. A screen that is
// stable but wrong surfaces here as a timeout, the same as one that never
// settles.
func (c *Client) CompareToReference(referencePath string, tolerance float64) (definitions.Outcome, error) {
	ref, err := readPNG(referencePath)
	if err != nil {
		if os.IsNotExist(err) {
			return definitions.Outcome{Kind: definitions.OutcomeReferenceMissing}, nil
		}
		return definitions.Outcome{}, err
	}

	deadline := time.Now().Add(c.opts.CompareTimeout)
	for {
		rms := diffRMS(c.frame, ref)
		if rms <= tolerance {
			return definitions.Outcome{Kind: definitions.OutcomeMatch, RMS: rms}, nil
		}
		if time.Now().After(deadline) {
			failPath := filepath.Join(c.opts.OutputDir, "fail_"+c.lastName)
			if werr := writePNG(failPath, c.frame); werr != nil {
				log.Warn().Err(werr).Msg("could not write diagnostic capture")
				failPath = ""
			}
			return definitions.Outcome{
				Kind:           definitions.OutcomeTimedOut,
				RMS:            rms,
				DiagnosticPath: failPath,
			}, nil
		}
		if err := c.refresh(deadline); err != nil && !errors.Is(err, errNoFrame) {
			return definitions.Outcome{}, err
		}
		time.Sleep(c.opts.CaptureDelay)
	}
}

// refresh requests a framebuffer update and folds the next update message
// into the local frame. The request is forced non-incremental when the
// FullFrame option is set.
func (c *Client) refresh(deadline time.Time) error {
	incremental := !c.opts.FullFrame
	err := c.rfb.FramebufferUpdateRequest(incremental, 0, 0, c.rfb.FrameBufferWidth, c.rfb.FrameBufferHeight)
	if err != nil {
		return fmt.Errorf("%w: update request: %v", ErrConnect, err)
	}

	for {
		wait := time.Until(deadline)
		if wait <= 0 {
			return errNoFrame
		}
		select {
		case msg, ok := <-c.msgs:
			if !ok {
				return fmt.Errorf("%w: server closed the connection", ErrConnect)
			}
			update, isUpdate := msg.(*vnc.FramebufferUpdateMessage)
			if !isUpdate {
				continue
			}
			c.apply(update)
			return nil
		case <-time.After(wait):
			return errNoFrame
		}
	}
}

// Close shuts the display connection down.
func (c *Client) Close() error {
	return c.rfb.Close()
}
