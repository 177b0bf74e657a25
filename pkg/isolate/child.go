package isolate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/forgebuild/forge/pkg/buildenv"
	"github.com/forgebuild/forge/pkg/depgraph"
	"github.com/forgebuild/forge/pkg/logger"
	"github.com/forgebuild/forge/pkg/logparse"
	"github.com/forgebuild/forge/pkg/recipe"
	"github.com/forgebuild/forge/pkg/types"
)

// sourceContextLines is how many lines of recipe source surround the
// failing line in a rendered diagnostic.
const sourceContextLines = 3

// Main is the child-mode entry point. Call it first thing in main(): it
// returns false in the parent, and in a child it runs the requested
// action and exits the process.
func Main() bool {
	if os.Getenv(childMarkerEnv) == "" {
		return false
	}
	os.Exit(childMain())
	return true
}

func childMain() int {
	reqFile := os.NewFile(requestFD, "forge-request")
	resFile := os.NewFile(resultFD, "forge-result")
	if reqFile == nil || resFile == nil {
		fmt.Fprintln(os.Stderr, "forge: child started without request/result pipes")
		return 1
	}
	defer resFile.Close()

	var req Request
	if err := json.NewDecoder(reqFile).Decode(&req); err != nil {
		fmt.Fprintf(os.Stderr, "forge: bad build request: %v\n", err)
		return 1
	}
	reqFile.Close()

	env := execute(req)
	if err := json.NewEncoder(resFile).Encode(env); err != nil {
		fmt.Fprintf(os.Stderr, "forge: cannot send result: %v\n", err)
		return 1
	}
	if env.Result.Outcome == types.OutcomeFailed {
		return 1
	}
	return 0
}

// execute runs the setup sequence and the action, converting every
// possible exit — normal return, stop signal, error, panic — into an
// envelope.
func execute(req Request) (env envelope) {
	defer func() {
		if p := recover(); p != nil {
			cerr := buildChildError(req, fmt.Errorf("%v", p), string(debug.Stack()), recipeFrameContext())
			env = envelope{Result: types.Result{Outcome: types.OutcomeFailed, Message: cerr.Msg}, Err: cerr}
		}
	}()

	err := runAction(req)
	switch {
	case err == nil:
		return envelope{Result: types.Result{Outcome: types.OutcomeSucceeded}}
	default:
		var stop *StopPhase
		if errors.As(err, &stop) {
			// A control directive, not a failure: propagated verbatim,
			// never rendered.
			return envelope{Result: types.Result{Outcome: types.OutcomeStopped, Message: stop.Reason}}
		}
		cerr := buildChildError(req, err, "", nil)
		return envelope{Result: types.Result{Outcome: types.OutcomeFailed, Message: cerr.Msg}, Err: cerr}
	}
}

func runAction(req Request) error {
	_, g, err := depgraph.LoadManifest(req.ManifestPath)
	if err != nil {
		return err
	}
	pkg, ok := g.Package(req.Package)
	if !ok {
		return fmt.Errorf("package %q is not in the manifest", req.Package)
	}

	var logWriter *os.File
	if req.BuildLog != "" {
		logWriter, err = os.OpenFile(req.BuildLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open build log: %w", err)
		}
		defer logWriter.Close()
	}

	var logSink io.Writer
	if logWriter != nil {
		logSink = logWriter
	}
	jobs := req.Settings.EffectiveJobs(pkg.Recipe().Parallel())
	tk := recipe.NewToolkit(pkg.Name(), pkg.Prefix(), pkg.Target(), jobs, req.BuildLog, logSink)
	if tc := pkg.Toolchain(); tc != nil && req.WrapperDir != "" {
		tk.CC = filepath.Join(req.WrapperDir, tc.WrapperPath("cc"))
	}

	if !req.Fake {
		synth := &buildenv.Synthesizer{
			Graph:      g,
			Settings:   req.Settings,
			WrapperDir: req.WrapperDir,
			WorkDir:    req.WorkDir,
			Log:        childLogger(req),
		}
		if err := synth.SetupPackage(pkg, tk, req.Context, req.Dirty); err != nil {
			return err
		}
	}

	action, err := lookupAction(req.Action)
	if err != nil {
		return err
	}
	return action(tk)
}

func childLogger(req Request) logger.Logger {
	level := "info"
	if req.Settings.Debug {
		level = "debug"
	}
	return logger.New("", level)
}

// buildChildError assembles the serializable failure envelope,
// classifying the failure kind and attaching log paths and context.
func buildChildError(req Request, err error, trace string, panicContext []string) *ChildError {
	cerr := &ChildError{
		Msg:   err.Error(),
		Kind:  classifyKind(err),
		Pkg:   req.Package,
		Trace: trace,
	}

	if req.Context == types.ContextTest {
		cerr.TestLog = req.TestLog
	}
	cerr.BuildLog = req.BuildLog

	// Test-assertion failures speak for themselves; external-process
	// failures are rendered from the log. Everything else gets recipe
	// source context when a recipe frame can be found.
	if cerr.Kind == KindRecipe {
		if panicContext != nil {
			cerr.Context = panicContext
		} else {
			cerr.Context = recipeFrameContext()
		}
	}
	return cerr
}

func classifyKind(err error) string {
	var perr *recipe.ProcessError
	if errors.As(err, &perr) {
		return KindProcess
	}
	var tfail *recipe.TestFailure
	if errors.As(err, &tfail) {
		return KindTest
	}
	return KindRecipe
}

// recipeFrameContext walks the current call stack for the deepest frame
// whose source file lives under a registered recipe source root and
// extracts surrounding source lines. Frames are attributed by path
// containment, not by function name.
func recipeFrameContext() []string {
	roots := recipe.SourceRoots()
	if len(roots) == 0 {
		return nil
	}

	pcs := make([]uintptr, 64)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if inSourceRoots(frame.File, roots) {
			if ctx, err := logparse.SourceContext(frame.File, frame.Line, sourceContextLines); err == nil {
				return ctx
			}
			return []string{fmt.Sprintf("%s:%d: %s", frame.File, frame.Line, frame.Function)}
		}
		if !more {
			return nil
		}
	}
}

func inSourceRoots(file string, roots []string) bool {
	for _, root := range roots {
		if root != "" && strings.HasPrefix(filepath.Clean(file), filepath.Clean(root)+string(os.PathSeparator)) {
			return true
		}
	}
	return false
}
