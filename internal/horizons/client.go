// Package horizons fetches minor-body state vectors from the JPL Horizons
// API. Requests are rate limited and retried with backoff.
package horizons

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/san-kum/minorbit/internal/dynamo"
)

const (
	DefaultURL    = "https://ssd.jpl.nasa.gov/api/horizons.api"
	DefaultCenter = "500@10"

	// progressEvery is how many fetched bodies pass between progress logs.
	progressEvery = 20

	// epochTolerance is the largest accepted difference, in days, between
	// the requested and returned epoch.
	epochTolerance = 1e-6
)

// Client resolves designators to heliocentric ecliptic J2000 states in
// AU and AU/day. It is safe for concurrent use.
type Client struct {
	http    *retryablehttp.Client
	limiter *rate.Limiter
	baseURL string
	center  string
	logger  *slog.Logger
	fetched atomic.Int64
	total   int
}

type Option func(*Client)

func WithURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithCenter sets the Horizons CENTER code, e.g. "500@10" for the Sun or
// "500@0" for the solar-system barycenter.
func WithCenter(center string) Option {
	return func(c *Client) { c.center = center }
}

// WithRateLimit bounds requests per second; rps <= 0 disables the limit.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

func WithRetries(n int) Option {
	return func(c *Client) { c.http.RetryMax = n }
}

func WithBackoff(min, max time.Duration) Option {
	return func(c *Client) {
		c.http.RetryWaitMin = min
		c.http.RetryWaitMax = max
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.HTTPClient.Timeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithExpected sets the number of bodies a run will fetch, for progress logs.
func WithExpected(n int) Option {
	return func(c *Client) { c.total = n }
}

func New(opts ...Option) *Client {
	hc := retryablehttp.NewClient()
	hc.RetryMax = 4
	hc.HTTPClient.Timeout = 30 * time.Second

	c := &Client{
		http:    hc,
		limiter: rate.NewLimiter(rate.Limit(2), 1),
		baseURL: DefaultURL,
		center:  DefaultCenter,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	hc.Logger = c.logger
	return c
}

// InitialState fetches the state of designator at epoch (JD TDB).
func (c *Client) InitialState(ctx context.Context, designator string, epoch float64) (dynamo.State, error) {
	s, err := c.StateVector(ctx, designator, epoch)
	n := c.fetched.Add(1)
	if n%progressEvery == 0 {
		if c.total > 0 {
			c.logger.Info("fetching state vectors", "done", n, "of", c.total,
				"percent", fmt.Sprintf("%.0f", 100*float64(n)/float64(c.total)))
		} else {
			c.logger.Info("fetching state vectors", "done", n)
		}
	}
	return s, err
}

// StateVector performs one VECTORS query and returns the record at epoch.
func (c *Client) StateVector(ctx context.Context, designator string, epoch float64) (dynamo.State, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return dynamo.State{}, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.queryURL(designator, epoch), nil)
	if err != nil {
		return dynamo.State{}, err
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return dynamo.State{}, fmt.Errorf("horizons %s: %w", designator, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return dynamo.State{}, fmt.Errorf("horizons %s: read: %w", designator, err)
	}
	c.logger.Debug("horizons response", "body", designator, "status", resp.StatusCode,
		"bytes", len(body), "elapsed", time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return dynamo.State{}, fmt.Errorf("horizons %s: %s: %s", designator, resp.Status, firstLine(body))
	}

	records, err := ParseVectors(string(body))
	if err != nil {
		return dynamo.State{}, fmt.Errorf("horizons %q: %w", designator, err)
	}
	rec := records[0]
	if math.Abs(rec.JD-epoch) > epochTolerance {
		return dynamo.State{}, fmt.Errorf("horizons %s: %w: asked for JD %.6f, got %.6f", designator, ErrMalformed, epoch, rec.JD)
	}
	return dynamo.State{Epoch: epoch, R: rec.R, V: rec.V}, nil
}

func (c *Client) queryURL(designator string, epoch float64) string {
	q := url.Values{}
	q.Set("format", "text")
	q.Set("EPHEM_TYPE", "VECTORS")
	q.Set("OBJ_DATA", "NO")
	q.Set("MAKE_EPHEM", "YES")
	q.Set("VEC_TABLE", "2")
	q.Set("OUT_UNITS", "'AU-D'")
	q.Set("REF_PLANE", "ECLIPTIC")
	q.Set("REF_SYSTEM", "J2000")
	q.Set("VEC_CORR", "NONE")
	q.Set("CSV_FORMAT", "NO")
	q.Set("CENTER", "'"+c.center+"'")
	q.Set("COMMAND", "'DES="+designator+";'")
	q.Set("START_TIME", "'JD"+strconv.FormatFloat(epoch, 'f', -1, 64)+"'")
	q.Set("STOP_TIME", "'JD"+strconv.FormatFloat(epoch+1, 'f', -1, 64)+"'")
	q.Set("STEP_SIZE", "'2d'")
	return c.baseURL + "?" + q.Encode()
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
