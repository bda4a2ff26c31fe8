package sim

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/san-kum/minorbit/internal/dynamo"
)

// Collect is an in-memory OutputSink.
type Collect struct {
	mu       sync.Mutex
	bodies   map[string]dynamo.MinorBody
	outcomes map[string]dynamo.Outcome
}

func NewCollect() *Collect {
	return &Collect{
		bodies:   make(map[string]dynamo.MinorBody),
		outcomes: make(map[string]dynamo.Outcome),
	}
}

func (c *Collect) Record(body *dynamo.MinorBody, o dynamo.Outcome) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dup := c.outcomes[o.Designator]; dup {
		return fmt.Errorf("body %q recorded twice", o.Designator)
	}
	c.bodies[o.Designator] = dynamo.MinorBody{
		Designator: body.Designator,
		Trajectory: append([]dynamo.State(nil), body.Trajectory...),
	}
	c.outcomes[o.Designator] = o
	return nil
}

func (c *Collect) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.outcomes)
}

func (c *Collect) Get(designator string) (dynamo.MinorBody, dynamo.Outcome, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.outcomes[designator]
	return c.bodies[designator], o, ok
}

// Outcomes returns the recorded outcomes ordered by designator.
func (c *Collect) Outcomes() []dynamo.Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]dynamo.Outcome, 0, len(c.outcomes))
	for _, o := range c.outcomes {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Designator < out[j].Designator })
	return out
}

// Tee hands every record to each sink in order and joins their errors.
type Tee []dynamo.OutputSink

func (t Tee) Record(body *dynamo.MinorBody, o dynamo.Outcome) error {
	var errs []error
	for _, s := range t {
		if err := s.Record(body, o); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
