// Package profiling is a lightweight per-frame CPU timer.
package profiling

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	mu          sync.Mutex
	frameTotals = make(map[string]time.Duration)
)

// Track returns a stop function that adds the elapsed time to name.
// Usage: defer profiling.Track("render.Frame")()
func Track(name string) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)
		mu.Lock()
		frameTotals[name] += d
		mu.Unlock()
	}
}

// ResetFrame clears the per-frame totals. Call at the start of each frame.
func ResetFrame() {
	mu.Lock()
	clear(frameTotals)
	mu.Unlock()
}

// Snapshot returns a copy of the current per-frame totals.
func Snapshot() map[string]time.Duration {
	mu.Lock()
	defer mu.Unlock()
	out := make(map[string]time.Duration, len(frameTotals))
	for k, v := range frameTotals {
		out[k] = v
	}
	return out
}

// TopN formats the n largest totals, e.g. "render.Frame:4.2ms, visibility.Run:2.1ms".
func TopN(n int) string {
	ss := Snapshot()
	type pair struct {
		name string
		dur  time.Duration
	}
	list := make([]pair, 0, len(ss))
	for k, v := range ss {
		list = append(list, pair{name: k, dur: v})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].dur != list[j].dur {
			return list[i].dur > list[j].dur
		}
		return list[i].name < list[j].name
	})
	n = min(n, len(list))
	parts := make([]string, 0, n)
	for _, p := range list[:n] {
		parts = append(parts, fmt.Sprintf("%s:%.1fms", p.name, float64(p.dur.Microseconds())/1000))
	}
	return strings.Join(parts, ", ")
}

// FrameTimer keeps a moving average of frame durations.
type FrameTimer struct {
	samples []time.Duration
	next    int
	full    bool
	last    time.Time
}

// NewFrameTimer averages over the last window frames.
func NewFrameTimer(window int) *FrameTimer {
	return &FrameTimer{samples: make([]time.Duration, max(window, 1))}
}

// Tick records a frame ending at now and returns the time since the previous tick.
func (f *FrameTimer) Tick(now time.Time) time.Duration {
	if f.last.IsZero() {
		f.last = now
		return 0
	}
	d := now.Sub(f.last)
	f.last = now
	f.samples[f.next] = d
	f.next++
	if f.next == len(f.samples) {
		f.next = 0
		f.full = true
	}
	return d
}

// Average returns the mean frame time over the window.
func (f *FrameTimer) Average() time.Duration {
	n := f.next
	if f.full {
		n = len(f.samples)
	}
	if n == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range f.samples[:n] {
		sum += d
	}
	return sum / time.Duration(n)
}

// FPS returns the frame rate implied by Average.
func (f *FrameTimer) FPS() float64 {
	avg := f.Average()
	if avg <= 0 {
		return 0
	}
	return float64(time.Second) / float64(avg)
}
