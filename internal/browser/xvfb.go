// CLAUDE:SUMMARY Runs the Xvfb display headful Chrome renders into; waits for the X socket and reports early exits.
package browser

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// xvfbReadyTimeout bounds the wait for the X server socket.
const xvfbReadyTimeout = 5 * time.Second

// xvfbProc is a running Xvfb server.
type xvfbProc struct {
	cmd    *exec.Cmd
	exited chan struct{}
	err    error // set before exited is closed
}

// xvfbSocket returns the unix socket path of an X display such as ":99" or
// ":99.0".
func xvfbSocket(display string) (string, error) {
	num, ok := strings.CutPrefix(display, ":")
	if !ok {
		return "", fmt.Errorf("browser: xvfb display %q: want \":N\"", display)
	}
	num, _, _ = strings.Cut(num, ".")
	if _, err := strconv.Atoi(num); err != nil {
		return "", fmt.Errorf("browser: xvfb display %q: want \":N\"", display)
	}
	return "/tmp/.X11-unix/X" + num, nil
}

// waitForSocket polls for path until it exists, exited is closed, or timeout
// elapses.
func waitForSocket(path string, exited <-chan struct{}, timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(25 * time.Millisecond)
	defer tick.Stop()

	for {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
		select {
		case <-exited:
			return errors.New("exited before accepting connections")
		case <-deadline.C:
			return fmt.Errorf("no socket at %s after %v", path, timeout)
		case <-tick.C:
		}
	}
}

// startXvfb makes the configured display available. A display that is already
// served (socket present) is reused as is.
func (m *Manager) startXvfb() error {
	if m.xvfb != nil {
		return nil
	}
	log := m.cfg.Logger
	display := m.cfg.XvfbDisplay

	sock, err := xvfbSocket(display)
	if err != nil {
		return err
	}
	if _, err := os.Stat(sock); err == nil {
		log.Info("browser: reusing running X display", "display", display)
		return nil
	}

	cmd := exec.Command("Xvfb", display, "-screen", "0", "1920x1080x24", "-ac", "-nolisten", "tcp")
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start xvfb on %s: %w", display, err)
	}
	x := &xvfbProc{cmd: cmd, exited: make(chan struct{})}
	go func() {
		x.err = cmd.Wait()
		close(x.exited)
	}()

	if err := waitForSocket(sock, x.exited, xvfbReadyTimeout); err != nil {
		x.stop()
		if x.err != nil {
			err = fmt.Errorf("%w (%v)", err, x.err)
		}
		return fmt.Errorf("xvfb on %s: %w", display, err)
	}
	m.xvfb = x

	log.Info("browser: xvfb ready", "display", display, "pid", cmd.Process.Pid)
	return nil
}

func (x *xvfbProc) stop() {
	select {
	case <-x.exited:
		return
	default:
	}
	_ = x.cmd.Process.Kill()
	<-x.exited
}

func (m *Manager) stopXvfb() {
	if m.xvfb == nil {
		return
	}
	m.xvfb.stop()
	m.cfg.Logger.Info("browser: xvfb stopped", "display", m.cfg.XvfbDisplay)
	m.xvfb = nil
}
