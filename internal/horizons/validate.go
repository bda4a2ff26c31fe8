package horizons

import (
	"context"
	"sort"
	"sync"

	"github.com/san-kum/minorbit/internal/dynamo"
)

// Residual compares a propagated final position with Horizons.
type Residual struct {
	Designator string  `json:"designator"`
	Epoch      float64 `json:"epoch"`
	Distance   float64 `json:"distance_au"`
	Err        error   `json:"-"`
}

// Compare fetches reference states for the last state of each body and
// reports the position difference in AU. Bodies with an empty trajectory
// are skipped. Lookups run on at most workers goroutines, still subject
// to the client's rate limit.
func (c *Client) Compare(ctx context.Context, bodies []dynamo.MinorBody, workers int) ([]Residual, error) {
	var (
		mu  sync.Mutex
		out []Residual
	)
	err := dynamo.ForEach(ctx, len(bodies), workers, func(ctx context.Context, i int) error {
		last, ok := bodies[i].Last()
		if !ok {
			return nil
		}
		res := Residual{Designator: bodies[i].Designator, Epoch: last.Epoch}
		ref, err := c.StateVector(ctx, bodies[i].Designator, last.Epoch)
		if err != nil {
			res.Err = err
			c.logger.Warn("validation lookup failed", "body", res.Designator, "err", err)
		} else {
			res.Distance = last.R.Sub(ref.R).Norm()
		}
		mu.Lock()
		out = append(out, res)
		mu.Unlock()
		return ctx.Err()
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Designator < out[j].Designator })
	return out, err
}
