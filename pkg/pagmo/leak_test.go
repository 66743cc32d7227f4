package pagmo

import (
	"testing"

	"go.uber.org/goleak"

	"github.com/jdiez17/pagmo/pkg/pagmo/pagmotest"
)

// TestMain verifies no goroutine started by an island's control
// subscriber outlives Close, the same check this corpus's own
// multi-node tests run after tearing down a cluster.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestIsland_CloseLeavesNoGoroutinesRunning(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := pagmotest.NewBus()
	isl := newTestIsland(t, bus, pagmotest.NewFakeTransport())

	if ok, err := isl.Initialise("10.0.0.1"); err != nil || !ok {
		t.Fatalf("initialise: ok=%v err=%v", ok, err)
	}
	if err := isl.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
