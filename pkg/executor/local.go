package executor

import (
	"io/ioutil"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// killGracePeriod is how long Stop waits after SIGTERM before escalating
// to SIGKILL.
const killGracePeriod = 5 * time.Second

// Local provides the execution environment on the local machine via
// exec.Command. It runs commands as the current user.
type Local struct {
	workDir string
}

// NewLocal returns a Local executor running commands in the current
// working directory.
func NewLocal() Local {
	return Local{}
}

// NewLocalIn returns a Local executor running commands in workDir.
func NewLocalIn(workDir string) Local {
	return Local{workDir: workDir}
}

// Name returns user-friendly name of the executor.
func (l Local) Name() string {
	return "Local Executor"
}

// Execute runs the command given as input.
// The returned TaskHandle is able to stop & monitor the provisioned process.
func (l Local) Execute(command string) (TaskHandle, error) {
	log.Debug("Starting '", command, "' locally")

	cmd := exec.Command("sh", "-c", command)
	cmd.Dir = l.workDir

	// An additional process group ID for the process and its children gives
	// the ability to kill the whole process tree on Stop.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdoutFile, err := ioutil.TempFile("", "polybench_local_stdout_")
	if err != nil {
		return nil, errors.Wrap(err, "cannot create stdout file")
	}
	stderrFile, err := ioutil.TempFile("", "polybench_local_stderr_")
	if err != nil {
		stdoutFile.Close()
		os.Remove(stdoutFile.Name())
		return nil, errors.Wrap(err, "cannot create stderr file")
	}

	cmd.Stdout = stdoutFile
	cmd.Stderr = stderrFile

	if err := cmd.Start(); err != nil {
		stdoutFile.Close()
		stderrFile.Close()
		os.Remove(stdoutFile.Name())
		os.Remove(stderrFile.Name())
		return nil, errors.Wrapf(err, "cannot start command %q", command)
	}

	log.Debug("Started with pid ", cmd.Process.Pid)

	handle := &localTaskHandle{
		cmdHandler:     cmd,
		command:        command,
		stdoutFilePath: stdoutFile.Name(),
		stderrFilePath: stderrFile.Name(),
		stdoutFile:     stdoutFile,
		stderrFile:     stderrFile,
		waitEndChannel: make(chan struct{}),
	}

	// Wait for the command completion in a background routine. All Wait
	// callers are released by closing waitEndChannel.
	go func() {
		defer close(handle.waitEndChannel)
		// The error from Wait matters less here: the process state is
		// inspected for the exit code in either case.
		cmd.Wait()

		waitStatus := cmd.ProcessState.Sys().(syscall.WaitStatus)
		if waitStatus.Exited() {
			handle.exitCode = waitStatus.ExitStatus()
		} else {
			// A negative exit code reflects the terminating signal.
			handle.exitCode = -int(waitStatus.Signal())
		}

		log.Debug(
			"Ended ", command,
			" with output in file: ", handle.stdoutFilePath,
			" with err output in file: ", handle.stderrFilePath,
			" with status code: ", handle.exitCode)
	}()

	return handle, nil
}

// localTaskHandle implements the TaskHandle interface for processes started
// by the Local executor.
type localTaskHandle struct {
	cmdHandler     *exec.Cmd
	command        string
	stdoutFilePath string
	stderrFilePath string
	stdoutFile     *os.File
	stderrFile     *os.File
	exitCode       int

	// waitEndChannel is closed when the task terminates.
	waitEndChannel chan struct{}

	stopOnce sync.Once
	stopErr  error
}

// isTerminated checks for task termination without blocking.
func (handle *localTaskHandle) isTerminated() bool {
	select {
	case <-handle.waitEndChannel:
		return true
	default:
		return false
	}
}

// Status returns a state of the task.
func (handle *localTaskHandle) Status() TaskState {
	if !handle.isTerminated() {
		return RUNNING
	}
	return TERMINATED
}

// ExitCode returns a exitCode. If task is not terminated it returns an error.
func (handle *localTaskHandle) ExitCode() (int, error) {
	if !handle.isTerminated() {
		return 0, errors.Errorf("task %q is not terminated", handle.command)
	}
	return handle.exitCode, nil
}

// Stop terminates the local task. It signals the entire process group with
// SIGTERM and escalates to SIGKILL when the group does not exit within the
// grace period.
func (handle *localTaskHandle) Stop() error {
	handle.stopOnce.Do(func() {
		if handle.isTerminated() {
			return
		}

		pgid := handle.cmdHandler.Process.Pid

		// The kill syscall interprets a negated PID N as the process group
		// N belongs to.
		log.Debug("Sending SIGTERM to process group ", pgid)
		if err := syscall.Kill(-pgid, syscall.SIGTERM); err != nil {
			handle.stopErr = errors.Wrapf(err, "cannot signal process group %d", pgid)
			return
		}

		if handle.Wait(killGracePeriod) {
			return
		}

		log.Debug("Sending SIGKILL to process group ", pgid)
		if err := syscall.Kill(-pgid, syscall.SIGKILL); err != nil {
			handle.stopErr = errors.Wrapf(err, "cannot kill process group %d", pgid)
			return
		}
		handle.Wait(0)
	})
	return handle.stopErr
}

// Wait blocks until the process terminates or the timeout elapses.
// Returns true when the process terminated before the timeout, otherwise false.
func (handle *localTaskHandle) Wait(timeout time.Duration) bool {
	if handle.isTerminated() {
		return true
	}

	if timeout == 0 {
		<-handle.waitEndChannel
		return true
	}

	timeoutChannel := time.After(timeout)
	select {
	case <-handle.waitEndChannel:
		return true
	case <-timeoutChannel:
		return false
	}
}

// StdoutFile returns a file handle to the task's stdout file.
func (handle *localTaskHandle) StdoutFile() (*os.File, error) {
	if _, err := os.Stat(handle.stdoutFilePath); err != nil {
		return nil, errors.Wrap(err, "stdout file is missing")
	}
	return handle.stdoutFile, nil
}

// StderrFile returns a file handle to the task's stderr file.
func (handle *localTaskHandle) StderrFile() (*os.File, error) {
	if _, err := os.Stat(handle.stderrFilePath); err != nil {
		return nil, errors.Wrap(err, "stderr file is missing")
	}
	return handle.stderrFile, nil
}

// Clean closes the task's stdout & stderr files.
func (handle *localTaskHandle) Clean() error {
	if err := handle.stdoutFile.Close(); err != nil {
		return errors.Wrapf(err, "cannot close %q", handle.stdoutFilePath)
	}
	if err := handle.stderrFile.Close(); err != nil {
		return errors.Wrapf(err, "cannot close %q", handle.stderrFilePath)
	}
	return nil
}

// EraseOutput removes the task's stdout & stderr files.
func (handle *localTaskHandle) EraseOutput() error {
	if err := os.Remove(handle.stdoutFilePath); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "cannot remove %q", handle.stdoutFilePath)
	}
	if err := os.Remove(handle.stderrFilePath); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "cannot remove %q", handle.stderrFilePath)
	}
	return nil
}
