//go:build !windows

package sandbox

import (
	"os/exec"
	"syscall"
)

type processGroup struct {
	cmd *exec.Cmd
}

func newProcessGroup(cmd *exec.Cmd) *processGroup {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
	return &processGroup{cmd: cmd}
}

func newResultChannel() (resultChannel, error) {
	return newPipeChannel()
}

func (g *processGroup) started() {}

// terminate asks the whole group to stop. Wait escalates to SIGKILL for the
// leader after WaitDelay; kill handles the rest of the group.
func (g *processGroup) terminate() error {
	return g.signal(syscall.SIGTERM)
}

func (g *processGroup) kill() {
	_ = g.signal(syscall.SIGKILL)
}

func (g *processGroup) signal(sig syscall.Signal) error {
	if g.cmd.Process == nil {
		return nil
	}
	pid := g.cmd.Process.Pid
	if err := syscall.Kill(-pid, sig); err != nil && err != syscall.ESRCH {
		return g.cmd.Process.Signal(sig)
	}
	return nil
}
