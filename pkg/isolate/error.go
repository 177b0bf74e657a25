package isolate

import (
	"fmt"
	"strings"

	"github.com/forgebuild/forge/pkg/logparse"
)

// Error kinds carried across the process boundary. The kind decides how
// the parent renders the failure: external tool failures show a log
// excerpt, recipe failures show source context.
const (
	KindProcess = "process"
	KindTest    = "test"
	KindRecipe  = "recipe"
)

// summaryEvents caps how many log events a rendered excerpt shows.
const summaryEvents = 10

// ChildError is the serializable failure envelope sent from the build
// child to the parent. It carries no live references, only text.
type ChildError struct {
	Msg      string   `json:"message"`
	Kind     string   `json:"kind"`
	Pkg      string   `json:"package,omitempty"`
	Trace    string   `json:"trace,omitempty"`
	Context  []string `json:"context,omitempty"`
	BuildLog string   `json:"buildLog,omitempty"`
	TestLog  string   `json:"testLog,omitempty"`
}

func (e *ChildError) Error() string { return e.Msg }

// LongMessage renders the full diagnostic: the message, then a log
// excerpt (for external-process failures) or source context (for recipe
// failures), then pointers to the full logs.
func (e *ChildError) LongMessage() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s failed: %s\n", e.headline(), e.Msg)

	switch {
	case e.Kind == KindProcess && e.BuildLog != "":
		logparse.WriteLogSummary(&b, "build", e.BuildLog, summaryEvents)
	case e.Kind == KindProcess && e.TestLog != "":
		logparse.WriteLogSummary(&b, "test", e.TestLog, summaryEvents)
	case e.Kind != KindTest && len(e.Context) > 0:
		b.WriteString("\n")
		for _, line := range e.Context {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	if e.BuildLog != "" {
		fmt.Fprintf(&b, "\nSee build log for details:\n  %s\n", e.BuildLog)
	}
	if e.TestLog != "" {
		fmt.Fprintf(&b, "\nSee test log for details:\n  %s\n", e.TestLog)
	}
	return b.String()
}

func (e *ChildError) headline() string {
	if e.Pkg != "" {
		return e.Pkg
	}
	return "build"
}

// StopPhase is the cooperative control signal a build action raises to
// abort the remaining phase sequence for one package. It is not a
// failure and is never rendered.
type StopPhase struct {
	Reason string
}

func (s *StopPhase) Error() string {
	if s.Reason == "" {
		return "phase stopped"
	}
	return "phase stopped: " + s.Reason
}

// InstallError tags a spawn-time or protocol failure with the package
// it concerns. Raised in the parent, never sent over the pipe.
type InstallError struct {
	Pkg string
	Err error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("installation of %s failed: %v", e.Pkg, e.Err)
}

func (e *InstallError) Unwrap() error { return e.Err }
