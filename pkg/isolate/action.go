package isolate

import (
	"fmt"
	"sync"

	"github.com/forgebuild/forge/pkg/recipe"
)

// Action is a build action executed inside the isolated child. The
// toolkit is its only window into the build: tools, prefix, ledger.
type Action func(tk *recipe.Toolkit) error

var (
	actionsMu sync.RWMutex
	actions   = map[string]Action{}
)

// RegisterAction adds a named build action. Registration happens at
// program init so the parent and the re-exec'd child hold identical
// tables.
func RegisterAction(name string, fn Action) {
	actionsMu.Lock()
	defer actionsMu.Unlock()
	if _, dup := actions[name]; dup {
		panic(fmt.Sprintf("action %q registered twice", name))
	}
	actions[name] = fn
}

func lookupAction(name string) (Action, error) {
	actionsMu.RLock()
	defer actionsMu.RUnlock()
	fn, ok := actions[name]
	if !ok {
		return nil, fmt.Errorf("unknown build action %q", name)
	}
	return fn, nil
}
