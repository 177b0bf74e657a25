// Package logparse scans build and test logs for diagnostics and
// renders source/log context around a failure.
package logparse

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// Event is one diagnostic line found in a log.
type Event struct {
	Line int    // 1-based line number in the log
	Text string
}

var (
	errorRe = regexp.MustCompile(`(?i)(^|[\s:])(error[:\s]|fatal error|undefined reference|cannot find -l|segmentation fault|command not found|no such file or directory)`)
	warnRe  = regexp.MustCompile(`(?i)(^|[\s:])warning[:\s]`)
)

// ParseLogEvents scans a log file and classifies lines into errors and
// warnings. A line matching both patterns counts as an error.
func ParseLogEvents(path string) (errors, warnings []Event, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := scanner.Text()
		switch {
		case errorRe.MatchString(text):
			errors = append(errors, Event{Line: lineNo, Text: text})
		case warnRe.MatchString(text):
			warnings = append(warnings, Event{Line: lineNo, Text: text})
		}
	}
	return errors, warnings, scanner.Err()
}

// LogContext renders events with their log line numbers, marking each
// event line with ">>".
func LogContext(events []Event) string {
	var b strings.Builder
	for _, ev := range events {
		fmt.Fprintf(&b, "  >> %d: %s\n", ev.Line, strings.TrimRight(ev.Text, "\n"))
	}
	return b.String()
}

// WriteLogSummary writes the last errors found in a log, or, when the
// log holds no errors, the last warnings. kind names the log for the
// header ("build" or "test").
func WriteLogSummary(w io.Writer, kind, path string, last int) error {
	errs, warns, err := ParseLogEvents(path)
	if err != nil {
		return err
	}

	switch {
	case len(errs) > 0:
		if last > 0 && len(errs) > last {
			errs = errs[len(errs)-last:]
		}
		fmt.Fprintf(w, "\n%s found in %s log:\n", plural(len(errs), "error"), kind)
		fmt.Fprint(w, LogContext(errs))
	case len(warns) > 0:
		if last > 0 && len(warns) > last {
			warns = warns[len(warns)-last:]
		}
		fmt.Fprintf(w, "\n%s found in %s log:\n", plural(len(warns), "warning"), kind)
		fmt.Fprint(w, LogContext(warns))
	}
	return nil
}

// SourceContext extracts lines around a failure location in a source
// file, marking the failing line with ">>". n is the number of lines of
// context on each side.
func SourceContext(file string, line, n int) ([]string, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var all []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		all = append(all, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if line < 1 || line > len(all) {
		return nil, fmt.Errorf("line %d out of range for %s", line, file)
	}

	start := line - n
	if start < 1 {
		start = 1
	}
	end := line + n
	if end > len(all) {
		end = len(all)
	}

	out := []string{fmt.Sprintf("%s:%d:", file, line)}
	for i := start; i <= end; i++ {
		mark := "   "
		if i == line {
			mark = ">> "
		}
		out = append(out, fmt.Sprintf("  %s%6d  %s", mark, i, all[i-1]))
	}
	return out, nil
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
