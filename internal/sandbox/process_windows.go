//go:build windows

package sandbox

import (
	"os/exec"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

type processGroup struct {
	cmd *exec.Cmd
	job windows.Handle
}

func newProcessGroup(cmd *exec.Cmd) *processGroup {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: windows.CREATE_NEW_PROCESS_GROUP,
	}
	job, err := createJobObject()
	if err != nil {
		job = 0
	}
	return &processGroup{cmd: cmd, job: job}
}

// ExtraFiles is not supported on Windows, so the child writes to a file.
func newResultChannel() (resultChannel, error) {
	return newFileChannel()
}

func (g *processGroup) started() {
	if g.job == 0 || g.cmd.Process == nil {
		return
	}
	if err := assignProcessToJob(g.job, g.cmd.Process.Pid); err != nil {
		windows.CloseHandle(g.job)
		g.job = 0
	}
}

func (g *processGroup) terminate() error {
	g.kill()
	return nil
}

// kill closes the job object, which terminates every process in it.
func (g *processGroup) kill() {
	if g.job != 0 {
		windows.CloseHandle(g.job)
		g.job = 0
		return
	}
	if g.cmd.Process != nil {
		_ = g.cmd.Process.Kill()
	}
}

func createJobObject() (windows.Handle, error) {
	job, err := windows.CreateJobObject(nil, nil)
	if err != nil {
		return 0, err
	}

	info := windows.JOBOBJECT_EXTENDED_LIMIT_INFORMATION{}
	info.BasicLimitInformation.LimitFlags = windows.JOB_OBJECT_LIMIT_KILL_ON_JOB_CLOSE
	_, err = windows.SetInformationJobObject(
		job,
		windows.JobObjectExtendedLimitInformation,
		uintptr(unsafe.Pointer(&info)),
		uint32(unsafe.Sizeof(info)),
	)
	if err != nil {
		windows.CloseHandle(job)
		return 0, err
	}

	return job, nil
}

func assignProcessToJob(job windows.Handle, pid int) error {
	handle, err := windows.OpenProcess(windows.PROCESS_SET_QUOTA|windows.PROCESS_TERMINATE, false, uint32(pid))
	if err != nil {
		return err
	}
	defer windows.CloseHandle(handle)

	return windows.AssignProcessToJobObject(job, handle)
}
