// Package runner starts a program in a minimal shell-like environment and
// feeds its standard input, mirroring what a user types into a terminal.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/xyproto/env/v2"
)

const (
	Backspace   = 0x08
	KillLine    = 0x15
	CursorLeft  = "\x1b[D"
	CursorRight = "\x1b[C"

	defaultStopTimeout = 2 * time.Second
)

var (
	ErrAlreadyRunning = errors.New("program already running")
	ErrNotRunning     = errors.New("program not running")
)

type Config struct {
	// Home is exported as HOME. Defaults to the current user's home.
	Home        string
	Stdout      io.Writer
	Stderr      io.Writer
	StopTimeout time.Duration
	Logger      *slog.Logger
}

// Runner owns one child process at a time. It is safe for concurrent use.
type Runner struct {
	cfg Config

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	running bool
	buf     []byte
	done    chan struct{}
	err     error
}

func New(cfg Config) *Runner {
	if cfg.Home == "" {
		cfg.Home = env.HomeDir()
	}
	if cfg.Stdout == nil {
		cfg.Stdout = io.Discard
	}
	if cfg.Stderr == nil {
		cfg.Stderr = io.Discard
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = defaultStopTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{cfg: cfg}
}

// Environ is the environment handed to the child.
func Environ(home string) []string {
	return []string{
		"SHELL=zsh",
		"HOME=" + home,
		"PATH=/bin:/usr/bin:/usr/local/bin",
		"TERM=dumb",
		"LANG=en_US.UTF-8",
	}
}

// Start launches path with args. The process is killed when ctx is done.
func (r *Runner) Start(ctx context.Context, path string, args ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return ErrAlreadyRunning
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("failed to stat program: %w", err)
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Env = Environ(r.cfg.Home)
	cmd.Stdout = r.cfg.Stdout
	cmd.Stderr = r.cfg.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", path, err)
	}

	r.cmd = cmd
	r.stdin = stdin
	r.running = true
	r.buf = r.buf[:0]
	r.err = nil
	r.done = make(chan struct{})
	r.cfg.Logger.Info("started program", slog.String("path", path), slog.Int("pid", cmd.Process.Pid))

	go r.reap(cmd, r.done)
	return nil
}

func (r *Runner) reap(cmd *exec.Cmd, done chan struct{}) {
	err := cmd.Wait()

	r.mu.Lock()
	r.running = false
	r.err = err
	r.mu.Unlock()

	r.cfg.Logger.Info("program exited", slog.Int("code", cmd.ProcessState.ExitCode()))
	close(done)
}

// Running reports whether the child is alive.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Wait blocks until the child exits and returns its exit error.
func (r *Runner) Wait() error {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done == nil {
		return ErrNotRunning
	}

	<-done
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Stop closes the child's stdin and kills it if it has not exited within
// the stop timeout.
func (r *Runner) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	cmd, done := r.cmd, r.done
	_ = r.stdin.Close()
	r.mu.Unlock()

	select {
	case <-done:
	case <-time.After(r.cfg.StopTimeout):
		r.cfg.Logger.Warn("program did not exit, killing", slog.Int("pid", cmd.Process.Pid))
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return err
		}
		<-done
	}
	return nil
}

// Buffer returns a copy of the text typed since the last clear.
func (r *Runner) Buffer() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]byte(nil), r.buf...)
}

// SendInput writes text to the child and appends it to the buffer.
func (r *Runner) SendInput(text string) error {
	return r.send([]byte(text), func(buf []byte) []byte {
		return append(buf, text...)
	})
}

// SendControl writes a single control byte.
func (r *Runner) SendControl(b byte) error {
	return r.send([]byte{b}, nil)
}

// RemoveAt sends a backspace and drops the buffered byte at i. An index
// outside the buffer sends nothing.
func (r *Runner) RemoveAt(i int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running || i < 0 || i >= len(r.buf) {
		return nil
	}
	return r.writeLocked([]byte{Backspace}, func(buf []byte) []byte {
		return append(buf[:i], buf[i+1:]...)
	})
}

// ClearLine sends Ctrl-U and empties the buffer.
func (r *Runner) ClearLine() error {
	return r.send([]byte{KillLine}, func(buf []byte) []byte {
		return buf[:0]
	})
}

func (r *Runner) CursorLeft() error {
	return r.send([]byte(CursorLeft), nil)
}

func (r *Runner) CursorRight() error {
	return r.send([]byte(CursorRight), nil)
}

// send is a no-op when nothing is running.
func (r *Runner) send(p []byte, update func([]byte) []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return nil
	}
	return r.writeLocked(p, update)
}

func (r *Runner) writeLocked(p []byte, update func([]byte) []byte) error {
	if _, err := r.stdin.Write(p); err != nil {
		return fmt.Errorf("failed to write to program: %w", err)
	}
	if update != nil {
		r.buf = update(r.buf)
	}
	return nil
}
