package executor

import (
	"io"
	"io/ioutil"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
)

// TaskState is an enum presenting current task state.
type TaskState int

const (
	// RUNNING task state means that task is still running.
	RUNNING TaskState = iota
	// TERMINATED task state means that task completed or was stopped.
	TERMINATED
)

// TaskHandle represents a process which can be stopped or monitored.
type TaskHandle interface {
	// Stop terminates the task. It blocks until the process is gone.
	Stop() error
	// Status returns the current state of the task.
	Status() TaskState
	// ExitCode returns the exit code. If task is not terminated it returns an error.
	ExitCode() (int, error)
	// StdoutFile returns a file handle to the task's stdout file.
	StdoutFile() (*os.File, error)
	// StderrFile returns a file handle to the task's stderr file.
	StderrFile() (*os.File, error)
	// Wait blocks until the task terminates or the timeout elapses.
	// A zero timeout means wait indefinitely. It returns true if the task
	// is terminated.
	Wait(timeout time.Duration) bool
	// Clean closes the task's stdout & stderr files.
	Clean() error
	// EraseOutput removes the task's stdout & stderr files.
	EraseOutput() error
}

// ReadStdout reads whole stdout of the task into a string.
func ReadStdout(handle TaskHandle) (string, error) {
	file, err := handle.StdoutFile()
	if err != nil {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	data, err := ioutil.ReadAll(file)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ReadStderr reads whole stderr of the task into a string.
func ReadStderr(handle TaskHandle) (string, error) {
	file, err := handle.StderrFile()
	if err != nil {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	data, err := ioutil.ReadAll(file)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// LogOutput logs tail of stdout & stderr of the task. Used for diagnosis of
// failed tasks.
func LogOutput(handle TaskHandle) {
	stdout, err := ReadStdout(handle)
	if err != nil {
		log.Debug("cannot read stdout: ", err)
		return
	}
	stderr, err := ReadStderr(handle)
	if err != nil {
		log.Debug("cannot read stderr: ", err)
		return
	}
	log.Debug("task stdout: ", stdout)
	log.Debug("task stderr: ", stderr)
}
