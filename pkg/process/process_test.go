package process_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/forgebuild/forge/pkg/logger"
	"github.com/forgebuild/forge/pkg/process"
)

func TestShutdownCancelsContextAndRunsCleanupsOnce(t *testing.T) {
	m, ctx := process.NewManager(context.Background(), logger.NewNop())

	var order []string
	m.OnShutdown(func() { order = append(order, "first") })
	m.OnShutdown(func() { order = append(order, "second") })

	m.Shutdown()
	m.Shutdown()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not canceled")
	}
	assert.Equal(t, []string{"second", "first"}, order)
}

func TestAlive(t *testing.T) {
	assert.True(t, process.Alive(os.Getpid()))
	// PID 0 is never a build child; pick an unlikely-to-exist pid.
	assert.False(t, process.Alive(1<<22-1))
}
