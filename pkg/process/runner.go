package process

import (
	"os"
	"os/exec"
)

// Proc is a handle to a started OS process.
type Proc interface {
	Pid() int
	Signal(sig os.Signal) error
	Kill() error
	Wait() error
}

// Runner starts and runs commands. The exec-backed implementation is the
// default; tests substitute a fake so no real processes are involved.
type Runner interface {
	// CombinedOutput runs a command to completion in dir (empty means the
	// current directory) and returns its combined stdout/stderr.
	CombinedOutput(dir, name string, args ...string) ([]byte, error)

	// Start launches a long-running command with stdout/stderr discarded.
	Start(name string, args ...string) (Proc, error)
}

type execRunner struct{}

// NewExecRunner returns the os/exec-backed runner.
func NewExecRunner() Runner {
	return execRunner{}
}

func (execRunner) CombinedOutput(dir, name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	return cmd.CombinedOutput()
}

func (execRunner) Start(name string, args ...string) (Proc, error) {
	cmd := exec.Command(name, args...)
	// Worker nodes log to their own files; harness output stays clean.
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return execProc{cmd: cmd}, nil
}

type execProc struct {
	cmd *exec.Cmd
}

func (p execProc) Pid() int {
	return p.cmd.Process.Pid
}

func (p execProc) Signal(sig os.Signal) error {
	return p.cmd.Process.Signal(sig)
}

func (p execProc) Kill() error {
	return p.cmd.Process.Kill()
}

func (p execProc) Wait() error {
	return p.cmd.Wait()
}
