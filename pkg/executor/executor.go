package executor

// Executor is responsible for providing the execution environment for a
// benchmark command. It returns a TaskHandle when the command started
// gracefully. The command itself runs asynchronously.
type Executor interface {
	// Execute launches command on the underlying platform.
	Execute(command string) (TaskHandle, error)
	// Name returns user-friendly name of the executor.
	Name() string
}
