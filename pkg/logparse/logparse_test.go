package logparse_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgebuild/forge/pkg/logparse"
)

func writeLog(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "build.log")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func TestParseLogEventsClassification(t *testing.T) {
	path := writeLog(t,
		"checking for gcc... yes",
		"foo.c:10:5: warning: unused variable 'x'",
		"foo.c:22:1: error: expected ';' before '}' token",
		"collect2: error: ld returned 1 exit status",
		"all good here",
	)

	errs, warns, err := logparse.ParseLogEvents(path)
	require.NoError(t, err)
	require.Len(t, errs, 2)
	require.Len(t, warns, 1)
	assert.Equal(t, 3, errs[0].Line)
	assert.Equal(t, 4, errs[1].Line)
	assert.Equal(t, 2, warns[0].Line)
}

func TestWriteLogSummaryShowsErrorsOverWarnings(t *testing.T) {
	path := writeLog(t,
		"w1: warning: something odd",
		"e1: error: broken",
	)

	var out strings.Builder
	require.NoError(t, logparse.WriteLogSummary(&out, "build", path, 10))
	assert.Contains(t, out.String(), "1 error found in build log")
	assert.Contains(t, out.String(), "broken")
	assert.NotContains(t, out.String(), "something odd")
}

func TestWriteLogSummaryFallsBackToWarnings(t *testing.T) {
	path := writeLog(t,
		"w1: warning: first",
		"w2: warning: second",
		"ordinary output",
	)

	var out strings.Builder
	require.NoError(t, logparse.WriteLogSummary(&out, "build", path, 10))
	assert.Contains(t, out.String(), "2 warnings found in build log")
	assert.Contains(t, out.String(), "first")
}

func TestWriteLogSummaryKeepsOnlyLastN(t *testing.T) {
	path := writeLog(t,
		"a: error: one",
		"b: error: two",
		"c: error: three",
	)

	var out strings.Builder
	require.NoError(t, logparse.WriteLogSummary(&out, "build", path, 2))
	assert.NotContains(t, out.String(), "one")
	assert.Contains(t, out.String(), "two")
	assert.Contains(t, out.String(), "three")
}

func TestSourceContextMarksFailingLine(t *testing.T) {
	src := filepath.Join(t.TempDir(), "recipe.go")
	require.NoError(t, os.WriteFile(src, []byte("l1\nl2\nl3\nl4\nl5\n"), 0o644))

	lines, err := logparse.SourceContext(src, 3, 1)
	require.NoError(t, err)
	require.Len(t, lines, 4) // header + 3 lines of source
	assert.Contains(t, lines[0], "recipe.go:3:")
	assert.Contains(t, lines[2], ">> ")
	assert.Contains(t, lines[2], "l3")
}

func TestSourceContextOutOfRange(t *testing.T) {
	src := filepath.Join(t.TempDir(), "recipe.go")
	require.NoError(t, os.WriteFile(src, []byte("only\n"), 0o644))

	_, err := logparse.SourceContext(src, 9, 2)
	assert.Error(t, err)
}
