package opt

import (
	"log/slog"
	"math"
)

// tracker follows the best internal-sense fitness across a search run and,
// when recording is on, keeps the per-iteration history in the problem's
// own sense.
type tracker struct {
	problem *Continuous
	record  bool
	best    float64
	history []float64
}

func newTracker(p *Continuous, record bool) *tracker {
	return &tracker{problem: p, record: record, best: math.Inf(-1)}
}

// Observe folds a candidate internal fitness into the running best and
// reports whether it strictly improved.
func (t *tracker) Observe(internal float64) bool {
	if internal > t.best {
		t.best = internal
		slog.Debug("search improved", "best_fitness", t.problem.Original(t.best))
		return true
	}
	return false
}

// Mark closes out one iteration, appending the best-so-far fitness to the
// history.
func (t *tracker) Mark() {
	if t.record {
		t.history = append(t.history, t.problem.Original(t.best))
	}
}

// Best returns the best internal fitness observed so far.
func (t *tracker) Best() float64 { return t.best }

// BestOriginal returns the best fitness in the problem's own sense.
func (t *tracker) BestOriginal() float64 { return t.problem.Original(t.best) }

// History returns a copy of the recorded curve, nil when recording was
// off.
func (t *tracker) History() []float64 {
	if !t.record {
		return nil
	}
	return append([]float64(nil), t.history...)
}
