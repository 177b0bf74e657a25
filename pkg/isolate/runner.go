// Package isolate runs build actions in an isolated child process and
// relays their outcome back as a typed result or a serializable error.
//
// Isolation works by re-executing the current binary with an
// environment marker set: the child rehydrates the dependency graph
// from the request, runs the full environment-setup sequence against
// its own process environment, executes the action, and sends a single
// result envelope back over a pipe. The parent's environment is never
// touched.
package isolate

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/term"

	"github.com/forgebuild/forge/pkg/logger"
	"github.com/forgebuild/forge/pkg/types"
)

const childMarkerEnv = "FORGE_ISOLATE_CHILD"

// Pipe placement in the child's descriptor table: ExtraFiles start at 3.
const (
	requestFD = 3
	resultFD  = 4
)

// Request describes one isolated build action. It is the complete
// contract between parent and child; everything the child needs must be
// rehydratable from it.
type Request struct {
	Package      string             `json:"package"`
	Action       string             `json:"action"`
	Context      types.SetupContext `json:"context"`
	Dirty        bool               `json:"dirty"`
	Fake         bool               `json:"fake"`
	Settings     types.Settings     `json:"settings"`
	ManifestPath string             `json:"manifestPath"`
	WrapperDir   string             `json:"wrapperDir,omitempty"`
	WorkDir      string             `json:"workDir,omitempty"`
	BuildLog     string             `json:"buildLog,omitempty"`
	TestLog      string             `json:"testLog,omitempty"`
}

// envelope is the single message the child sends back.
type envelope struct {
	Result types.Result `json:"result"`
	Err    *ChildError  `json:"error,omitempty"`
}

// Runner executes one build action per Run call, synchronously. Outer
// parallelism belongs to the caller; every Run gets its own child
// process and its own unmodified ambient environment.
type Runner struct {
	Log logger.Logger

	// Stderr receives the rendered diagnostic on failure. Defaults to
	// the process stderr.
	Stderr io.Writer
}

func (r *Runner) stderr() io.Writer {
	if r.Stderr != nil {
		return r.Stderr
	}
	return os.Stderr
}

// Run spawns the child, sends the request, performs exactly one
// envelope receive and one process join, and maps the envelope onto a
// result. A ChildError is rendered to stderr immediately on receipt so
// the diagnostic survives shallow error handling upstream, then
// returned. A stopped outcome is not an error.
func (r *Runner) Run(req Request) (types.Result, error) {
	exe, err := os.Executable()
	if err != nil {
		return types.Result{Outcome: types.OutcomeFailed}, &InstallError{Pkg: req.Package, Err: err}
	}

	reqR, reqW, err := os.Pipe()
	if err != nil {
		return types.Result{Outcome: types.OutcomeFailed}, &InstallError{Pkg: req.Package, Err: err}
	}
	resR, resW, err := os.Pipe()
	if err != nil {
		reqR.Close()
		reqW.Close()
		return types.Result{Outcome: types.OutcomeFailed}, &InstallError{Pkg: req.Package, Err: err}
	}

	cmd := exec.Command(exe)
	cmd.Env = append(os.Environ(), childMarkerEnv+"=1")
	cmd.ExtraFiles = []*os.File{reqR, resW}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	// Forward stdin only for interactive sessions, so prompts inside
	// builds still work.
	if term.IsTerminal(int(os.Stdin.Fd())) {
		cmd.Stdin = os.Stdin
	}
	// Own process group, so signals target the whole build tree.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		reqR.Close()
		reqW.Close()
		resR.Close()
		resW.Close()
		// The child never started; do not block on the pipe.
		return types.Result{Outcome: types.OutcomeFailed}, &InstallError{Pkg: req.Package, Err: err}
	}
	reqR.Close()
	resW.Close()

	if err := json.NewEncoder(reqW).Encode(req); err != nil {
		reqW.Close()
		resR.Close()
		cmd.Wait()
		return types.Result{Outcome: types.OutcomeFailed}, &InstallError{Pkg: req.Package, Err: err}
	}
	reqW.Close()

	var env envelope
	decErr := json.NewDecoder(resR).Decode(&env)
	resR.Close()
	waitErr := cmd.Wait()

	if decErr != nil {
		err := fmt.Errorf("child exited without a result: %v", decErr)
		if waitErr != nil {
			err = fmt.Errorf("child exited without a result: %v (%v)", waitErr, decErr)
		}
		return types.Result{Outcome: types.OutcomeFailed}, &InstallError{Pkg: req.Package, Err: err}
	}

	switch env.Result.Outcome {
	case types.OutcomeSucceeded, types.OutcomeStopped:
		return env.Result, nil
	default:
		cerr := env.Err
		if cerr == nil {
			cerr = &ChildError{Msg: "build failed without diagnostic", Kind: KindRecipe, Pkg: req.Package}
		}
		fmt.Fprint(r.stderr(), cerr.LongMessage())
		return env.Result, cerr
	}
}
