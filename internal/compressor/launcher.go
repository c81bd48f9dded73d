package compressor

import (
	"errors"
	"log/slog"
	"os/exec"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"

	"rarpack/internal/faults"
	"rarpack/internal/jobs"
	"rarpack/internal/logging"
	"rarpack/internal/pool"
)

const stderrTailBytes = 4 << 10

// Launcher runs one executable with per-job arguments.
type Launcher struct {
	executable string
	logger     *slog.Logger
}

// NewLauncher returns a launcher for executable.
func NewLauncher(executable string, logger *slog.Logger) *Launcher {
	return &Launcher{executable: executable, logger: logging.NewComponentLogger(logger, "compressor")}
}

// Launch starts the compressor for job without waiting for it.
func (l *Launcher) Launch(job jobs.Job) (pool.Process, error) {
	cmd := exec.Command(l.executable, job.Args...)
	tail := &tailBuffer{limit: stderrTailBytes}
	cmd.Stderr = tail
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return nil, faults.Wrap(faults.ErrLaunch, "compressor", "start", l.executable, err)
	}
	l.logger.Debug("compressor started",
		logging.String(logging.FieldSource, job.SourcePath),
		logging.Int("pid", cmd.Process.Pid),
	)
	return &Process{cmd: cmd, pid: cmd.Process.Pid, stderr: tail}, nil
}

// Process is a started compressor invocation.
type Process struct {
	cmd    *exec.Cmd
	pid    int
	stderr *tailBuffer
}

// Wait blocks until the process exits. A non-zero exit is reported through
// the code, not the error; signal deaths report -1.
func (p *Process) Wait() (int, error) {
	err := p.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

// Terminate sends SIGTERM to the process group.
func (p *Process) Terminate() error {
	return p.signal(unix.SIGTERM)
}

// Kill sends SIGKILL to the process group.
func (p *Process) Kill() error {
	return p.signal(unix.SIGKILL)
}

// PID is the operating system process id.
func (p *Process) PID() int {
	return p.pid
}

// Diagnostics returns the last bytes the process wrote to stderr. It is only
// complete once Wait has returned.
func (p *Process) Diagnostics() string {
	return p.stderr.String()
}

func (p *Process) signal(sig unix.Signal) error {
	if err := unix.Kill(-p.pid, sig); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return nil
		}
		return err
	}
	return nil
}

type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
