package main

import "time"

// frameBudget is the minimum time a frame should take. Zero means unlimited.
func frameBudget(fpsLimit, backgroundFPS int, background bool) time.Duration {
	fps := fpsLimit
	if background && backgroundFPS > 0 && (fps == 0 || backgroundFPS < fps) {
		fps = backgroundFPS
	}
	if fps <= 0 {
		return 0
	}
	return time.Second / time.Duration(fps)
}

// limiter sleeps away whatever is left of the frame budget.
type limiter struct {
	start time.Time
	sleep func(time.Duration)
	now   func() time.Time
}

func newLimiter() *limiter {
	return &limiter{sleep: time.Sleep, now: time.Now}
}

// begin marks the start of a frame.
func (l *limiter) begin() { l.start = l.now() }

// wait blocks until budget has passed since begin.
func (l *limiter) wait(budget time.Duration) {
	if budget <= 0 {
		return
	}
	if rest := budget - l.now().Sub(l.start); rest > 0 {
		l.sleep(rest)
	}
}
