package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Hooks lets a browser driver report progress and ask the user mid-run. Both
// callbacks are bound to the task that owns the run.
type Hooks struct {
	Log     func(message string, metadata map[string]string)
	AskUser func(prompt string) (string, error)
}

// Driver executes one browser instruction and returns a textual report. It is
// an external capability; this package only defines the boundary plus a
// deterministic implementation for keyless runs and tests.
type Driver interface {
	Run(ctx context.Context, instruction string, hooks Hooks) (string, error)
	// Stop interrupts the in-flight run, if any. Safe to call at any time.
	Stop()
}

// ScriptedDriver walks a fixed set of steps, reporting each through the log
// hook. It stands in for a real browser-automation backend.
type ScriptedDriver struct {
	mu      sync.Mutex
	stopped bool
	steps   []string
}

func NewScriptedDriver(steps ...string) *ScriptedDriver {
	if len(steps) == 0 {
		steps = []string{
			"Opened a fresh browser context",
			"Navigated to the target page",
			"Inspected the page content",
		}
	}
	return &ScriptedDriver{steps: steps}
}

func (d *ScriptedDriver) Run(ctx context.Context, instruction string, hooks Hooks) (string, error) {
	d.mu.Lock()
	d.stopped = false
	d.mu.Unlock()

	for i, step := range d.steps {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		d.mu.Lock()
		stopped := d.stopped
		d.mu.Unlock()
		if stopped {
			return "", fmt.Errorf("browser run stopped")
		}
		if hooks.Log != nil {
			hooks.Log(fmt.Sprintf("Step %d: %s", i+1, step), map[string]string{"step": fmt.Sprint(i + 1)})
		}
	}
	return fmt.Sprintf("Simulated browser run finished for instruction: %s", strings.TrimSpace(instruction)), nil
}

func (d *ScriptedDriver) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
}
