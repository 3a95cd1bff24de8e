package host

import (
	"fmt"
	"strings"
	"time"

	"github.com/tinyjvm/tinyjvm/pkg/scheduler"
)

// FakeHost is a deterministic Host for tests: no wall-clock drift, no
// real sleeping, output captured in memory.
type FakeHost struct {
	Clock     time.Time
	Resources map[string][]byte
	Output    strings.Builder
	Yields    int
	Slept     []time.Duration

	sched *scheduler.Scheduler
}

func NewFakeHost() *FakeHost {
	return &FakeHost{Clock: time.Unix(0, 0), Resources: make(map[string][]byte), sched: scheduler.New(64)}
}

func (h *FakeHost) Now() time.Time { return h.Clock }

func (h *FakeHost) Sleep(d time.Duration) {
	h.Slept = append(h.Slept, d)
	h.Clock = h.Clock.Add(d)
}

func (h *FakeHost) Yield() { h.Yields++ }

func (h *FakeHost) Println(s string) { fmt.Fprintln(&h.Output, s) }
func (h *FakeHost) Print(s string)   { fmt.Fprint(&h.Output, s) }

func (h *FakeHost) LoadResource(name string) ([]byte, error) {
	data, ok := h.Resources[name]
	if !ok {
		return nil, fmt.Errorf("fake host: resource %s not found", name)
	}
	return data, nil
}

// Spawn runs task through the same scheduler OSHost uses, so tests
// exercise the real queue/backpressure/drain behavior instead of a
// shortcut direct call.
func (h *FakeHost) Spawn(task func() error) error {
	if !h.sched.Spawn(task) {
		return fmt.Errorf("fake host: scheduler queue full")
	}
	return h.sched.Run()
}

func (h *FakeHost) EncodeStr(s string) []byte { return []byte(s) }
func (h *FakeHost) DecodeStr(b []byte) string { return string(b) }
