package profiling

import (
	"strings"
	"testing"
	"time"
)

func TestTrackAccumulates(t *testing.T) {
	ResetFrame()
	for i := 0; i < 3; i++ {
		stop := Track("a")
		time.Sleep(time.Millisecond)
		stop()
	}
	Track("b")()

	ss := Snapshot()
	if ss["a"] < 3*time.Millisecond {
		t.Errorf("a = %v, want at least 3ms", ss["a"])
	}
	if _, ok := ss["b"]; !ok {
		t.Error("b not recorded")
	}
	top := TopN(1)
	if !strings.HasPrefix(top, "a:") {
		t.Errorf("TopN(1) = %q", top)
	}

	ResetFrame()
	if len(Snapshot()) != 0 {
		t.Error("ResetFrame left totals")
	}
	if TopN(5) != "" {
		t.Error("TopN on empty frame should be empty")
	}
}

func TestFrameTimer(t *testing.T) {
	ft := NewFrameTimer(4)
	start := time.Unix(0, 0)
	if d := ft.Tick(start); d != 0 {
		t.Errorf("first Tick = %v, want 0", d)
	}
	if ft.Average() != 0 {
		t.Error("Average before any frame should be 0")
	}

	now := start
	for i := 0; i < 6; i++ {
		now = now.Add(10 * time.Millisecond)
		ft.Tick(now)
	}
	if got := ft.Average(); got != 10*time.Millisecond {
		t.Errorf("Average = %v, want 10ms", got)
	}
	if fps := ft.FPS(); fps < 99.9 || fps > 100.1 {
		t.Errorf("FPS = %v, want 100", fps)
	}
}
