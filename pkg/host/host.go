// Package host isolates the handful of operations the interpreter needs
// from the outside world: wall-clock time, output, resource loading,
// and cooperative suspension points. Swapping the Host lets the core
// run identically under a real OS or under a deterministic test double.
package host

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/tinyjvm/tinyjvm/pkg/scheduler"
)

// ResourceLoader is implemented by loaders that can serve a raw,
// non-class resource by name (currently just JarLoader); OSHost consults
// the ones in its Resources field after its directory classpath entries,
// so bundled jar resources are found too.
type ResourceLoader interface {
	LoadResource(name string) ([]byte, error)
}

// Host is the platform boundary. Every method here corresponds to a
// point where the interpreter would otherwise reach directly into the
// Go runtime or OS.
type Host interface {
	Now() time.Time
	Sleep(d time.Duration)
	Yield()
	Println(s string)
	Print(s string)
	LoadResource(name string) ([]byte, error)
	Spawn(task func() error) error
	EncodeStr(s string) []byte
	DecodeStr(b []byte) string
}

// OSHost is the default Host, backed by the real process environment.
type OSHost struct {
	Stdout    io.Writer
	Classpath []string
	Resources []ResourceLoader

	sched *scheduler.Scheduler
}

func NewOSHost(stdout io.Writer, classpath []string) *OSHost {
	return &OSHost{Stdout: stdout, Classpath: classpath, sched: scheduler.New(64)}
}

func (h *OSHost) Now() time.Time        { return time.Now() }
func (h *OSHost) Sleep(d time.Duration) { time.Sleep(d) }
func (h *OSHost) Yield()                { runtime.Gosched() }

func (h *OSHost) Println(s string) { fmt.Fprintln(h.Stdout, s) }
func (h *OSHost) Print(s string)   { fmt.Fprint(h.Stdout, s) }

func (h *OSHost) LoadResource(name string) ([]byte, error) {
	for _, root := range h.Classpath {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(name)))
		if err == nil {
			return data, nil
		}
	}
	for _, rl := range h.Resources {
		if data, err := rl.LoadResource(name); err == nil {
			return data, nil
		}
	}
	return nil, fmt.Errorf("host: resource %s not found on classpath", name)
}

// Spawn queues task on the cooperative scheduler and drains it
// immediately: this module has no mid-method suspension, so a spawned
// task still runs to completion on its turn, but through the same
// single logical executor (pkg/scheduler.Scheduler) every Thread.start
// call shares, rather than a raw goroutine.
func (h *OSHost) Spawn(task func() error) error {
	if !h.sched.Spawn(task) {
		return fmt.Errorf("host: scheduler queue full")
	}
	return h.sched.Run()
}

func (h *OSHost) EncodeStr(s string) []byte { return []byte(s) }
func (h *OSHost) DecodeStr(b []byte) string { return string(b) }
