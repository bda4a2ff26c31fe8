package sim

import (
	"sort"
	"time"

	"github.com/san-kum/minorbit/internal/dynamo"
)

// Report lists every body of a run with its outcome. Bodies[i] and
// Outcomes[i] refer to the same designator, in input order.
type Report struct {
	Window     dynamo.Window
	Plan       dynamo.Plan
	Integrator string
	Bodies     []dynamo.MinorBody
	Outcomes   []dynamo.Outcome
	Elapsed    time.Duration
}

func (r *Report) Counts() map[dynamo.Status]int {
	counts := make(map[dynamo.Status]int)
	for _, o := range r.Outcomes {
		counts[o.Status]++
	}
	return counts
}

func (r *Report) Outcome(designator string) (dynamo.Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Designator == designator {
			return o, true
		}
	}
	return dynamo.Outcome{}, false
}

func (r *Report) Body(designator string) (*dynamo.MinorBody, bool) {
	for i := range r.Bodies {
		if r.Bodies[i].Designator == designator {
			return &r.Bodies[i], true
		}
	}
	return nil, false
}

// Failed returns the outcomes that did not complete, ordered by designator.
func (r *Report) Failed() []dynamo.Outcome {
	var out []dynamo.Outcome
	for _, o := range r.Outcomes {
		if o.Status != dynamo.StatusCompleted {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Designator < out[j].Designator })
	return out
}

func (r *Report) AllCompleted() bool {
	for _, o := range r.Outcomes {
		if o.Status != dynamo.StatusCompleted {
			return false
		}
	}
	return true
}

// TotalSteps is the number of integrator steps taken across all bodies.
func (r *Report) TotalSteps() int {
	n := 0
	for _, o := range r.Outcomes {
		n += o.Steps
	}
	return n
}
