package app

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Profiler accumulates per-pass CPU timings and counters for a frame,
// adapted from the teacher's `voxelrt/rt/app/profiler.go` almost verbatim --
// this bookkeeping idiom is domain-agnostic and needs no change beyond the
// scope names it is fed (sph/density/foam/render instead of
// shadow/gbuffer/lighting).
type Profiler struct {
	scopes     map[string]time.Duration
	startTimes map[string]time.Time
	counts     map[string]int
	order      []string
}

// NewProfiler returns an empty Profiler.
func NewProfiler() *Profiler {
	return &Profiler{
		scopes:     make(map[string]time.Duration),
		startTimes: make(map[string]time.Time),
		counts:     make(map[string]int),
	}
}

// BeginScope marks the start of a named timing scope.
func (p *Profiler) BeginScope(name string) {
	p.startTimes[name] = time.Now()
	for _, n := range p.order {
		if n == name {
			return
		}
	}
	p.order = append(p.order, name)
}

// EndScope records the elapsed time since the matching BeginScope.
func (p *Profiler) EndScope(name string) {
	if start, ok := p.startTimes[name]; ok {
		p.scopes[name] = time.Since(start)
	}
}

// SetCount records a per-frame counter (e.g. particle count, live foam
// count, triangle count).
func (p *Profiler) SetCount(name string, count int) {
	p.counts[name] = count
}

// Reset clears timings ahead of the next frame, keeping scope order stable.
func (p *Profiler) Reset() {
	for k := range p.scopes {
		p.scopes[k] = 0
	}
}

// Report renders a human-readable snapshot of the last frame's timings and
// counters: timings in scope-registration order, counters sorted by name.
func (p *Profiler) Report() string {
	var sb strings.Builder
	sb.WriteString("Timings (CPU):\n")
	for _, name := range p.order {
		ms := float64(p.scopes[name].Microseconds()) / 1000.0
		fmt.Fprintf(&sb, "  %-16s: %.2f ms\n", name, ms)
	}

	sb.WriteString("Counters:\n")
	keys := make([]string, 0, len(p.counts))
	for k := range p.counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "  %-16s: %d\n", k, p.counts[k])
	}
	return sb.String()
}
