package recipe

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
)

// ProcessError reports an external tool that was launched and failed.
// The failure reporter treats this kind specially: it shows the build
// log excerpt instead of recipe source context.
type ProcessError struct {
	Cmd      string
	Args     []string
	ExitCode int
	Err      error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("command %s exited with code %d: %v", e.Cmd, e.ExitCode, e.Err)
}

func (e *ProcessError) Unwrap() error { return e.Err }

// TestFailure reports a user test assertion failing inside a test
// phase. It is rendered from the test log, never from source context.
type TestFailure struct {
	Msg string
}

func (e *TestFailure) Error() string { return e.Msg }

// Executable runs one external program with the current process
// environment, teeing its output to the build log.
type Executable struct {
	Path string
	Dir  string

	// Output receives stdout+stderr in addition to the console.
	// Usually the build log.
	Output io.Writer
}

// NewExecutable resolves a program on PATH. The lookup is deferred to
// the first Run when the program is not yet installed (dependencies may
// prepend their bin directories later).
func NewExecutable(name string) *Executable {
	if path, err := exec.LookPath(name); err == nil {
		return &Executable{Path: path}
	}
	return &Executable{Path: name}
}

// Run executes the program. Any failure comes back as a *ProcessError.
func (e *Executable) Run(args ...string) error {
	cmd := exec.Command(e.Path, args...)
	cmd.Dir = e.Dir
	cmd.Env = os.Environ()

	stdout := io.Writer(os.Stdout)
	stderr := io.Writer(os.Stderr)
	if e.Output != nil {
		stdout = io.MultiWriter(os.Stdout, e.Output)
		stderr = io.MultiWriter(os.Stderr, e.Output)
	}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return &ProcessError{Cmd: e.Path, Args: args, ExitCode: code, Err: err}
	}
	return nil
}

// NoParallelMakeEnv globally disables parallel make when set to a
// truthy value.
const NoParallelMakeEnv = "FORGE_NO_PARALLEL_MAKE"

// MakeExecutable is an Executable for make-like tools that understands
// a jobs cap. The cap can be overridden per invocation, and the
// NoParallelMakeEnv kill switch overrides everything.
type MakeExecutable struct {
	Executable
	Jobs int
}

// NewMakeExecutable wraps a make-like tool with a jobs cap.
func NewMakeExecutable(name string, jobs int) *MakeExecutable {
	return &MakeExecutable{Executable: *NewExecutable(name), Jobs: jobs}
}

// Run invokes the tool with -j<jobs> when parallelism is allowed.
func (m *MakeExecutable) Run(args ...string) error {
	return m.RunWith(m.Jobs > 1, args...)
}

// RunWith overrides the parallel decision for one invocation.
func (m *MakeExecutable) RunWith(parallel bool, args ...string) error {
	if envFlag(NoParallelMakeEnv) {
		parallel = false
	}
	if parallel && m.Jobs > 1 {
		args = append([]string{"-j" + strconv.Itoa(m.Jobs)}, args...)
	}
	return m.Executable.Run(args...)
}

func envFlag(name string) bool {
	v := os.Getenv(name)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
