package system

import (
	"slices"
	"time"

	"go.uber.org/zap"
)

// Runner drives the frame loop: every registered system runs once per
// frame in phase order, and systems of one phase keep registration order.
type Runner struct {
	systems []System
	sorted  bool
	frames  uint64
	budget  time.Duration
	log     *zap.Logger
	now     func() time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithFrameBudget logs a warning for frames that take longer than budget.
func WithFrameBudget(budget time.Duration, log *zap.Logger) RunnerOption {
	return func(r *Runner) {
		r.budget = budget
		r.log = log
	}
}

// WithRunnerClock replaces time.Now for frame timing.
func WithRunnerClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Register adds s. The order is fixed on the next frame.
func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	r.sorted = false
}

// Len returns the number of registered systems.
func (r *Runner) Len() int { return len(r.systems) }

// Frames returns how many frames Tick has run.
func (r *Runner) Frames() uint64 { return r.frames }

// Tick runs one frame with dt as the time since the previous frame.
func (r *Runner) Tick(dt time.Duration) {
	r.ensureSorted()
	start := r.now()
	for _, s := range r.systems {
		s.Update(dt)
	}
	r.frames++
	if r.budget <= 0 || r.log == nil {
		return
	}
	if took := r.now().Sub(start); took > r.budget {
		r.log.Warn("slow frame",
			zap.Uint64("frame", r.frames),
			zap.Duration("took", took),
			zap.Duration("budget", r.budget))
	}
}

// TickPhase runs the systems of one phase outside the frame count.
func (r *Runner) TickPhase(phase Phase, dt time.Duration) {
	r.ensureSorted()
	for _, s := range r.systems {
		if s.Phase() == phase {
			s.Update(dt)
		}
	}
}

func (r *Runner) ensureSorted() {
	if r.sorted {
		return
	}
	slices.SortStableFunc(r.systems, func(a, b System) int {
		return int(a.Phase()) - int(b.Phase())
	})
	r.sorted = true
}
