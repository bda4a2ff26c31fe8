// Package storage keeps finished runs on disk, one directory per run.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/san-kum/minorbit/internal/dynamo"
	"github.com/san-kum/minorbit/internal/metrics"
)

const (
	metadataFile   = "metadata.json"
	metricsFile    = "metrics.prom"
	trajectoryDir  = "trajectories"
	trajectoryExt  = ".csv"
	maxIDConflicts = 100
)

var (
	ErrRunNotFound  = errors.New("storage: run not found")
	ErrBodyNotFound = errors.New("storage: body not found in run")

	unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	csvHeader  = []string{"epoch", "x", "y", "z", "vx", "vy", "vz"}
)

type Store struct {
	baseDir string
	now     func() time.Time
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type WindowInfo struct {
	T0 float64 `json:"t0"`
	TF float64 `json:"tf"`
	DT float64 `json:"dt"`
}

// BodyRecord is the stored outcome of one minor body.
type BodyRecord struct {
	Designator   string              `json:"designator"`
	File         string              `json:"file,omitempty"`
	Status       string              `json:"status"`
	Steps        int                 `json:"steps"`
	FirstEpoch   float64             `json:"first_epoch"`
	LastEpoch    float64             `json:"last_epoch"`
	FailureEpoch float64             `json:"failure_epoch,omitempty"`
	Degenerate   int                 `json:"degenerate,omitempty"`
	Reason       string              `json:"reason,omitempty"`
	Invariants   *metrics.Invariants `json:"invariants,omitempty"`
	Residual     *float64            `json:"residual_au,omitempty"`
}

type RunMetadata struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Timestamp  time.Time      `json:"timestamp"`
	Window     WindowInfo     `json:"window"`
	Integrator string         `json:"integrator"`
	Ephemeris  string         `json:"ephemeris"`
	Central    string         `json:"central"`
	CentralGM  float64        `json:"central_gm"`
	Perturbers []string       `json:"perturbers"`
	Indirect   bool           `json:"indirect"`
	Workers    int            `json:"workers"`
	Elapsed    float64        `json:"elapsed_seconds"`
	Counts     map[string]int `json:"counts"`
	Bodies     []BodyRecord   `json:"bodies"`
}

func (m *RunMetadata) Body(designator string) (BodyRecord, bool) {
	for _, b := range m.Bodies {
		if b.Designator == designator {
			return b, true
		}
	}
	return BodyRecord{}, false
}

// Run is an open run directory. It implements dynamo.OutputSink; Record
// may be called from several goroutines.
type Run struct {
	dir  string
	mu   float64
	lock sync.Mutex
	meta RunMetadata
	used map[string]bool
	seen map[string]bool
}

// Begin creates the directory for a new run named meta.Name. A positive mu
// enables two-body invariant summaries for each recorded body.
func (s *Store) Begin(meta RunMetadata, mu float64) (*Run, error) {
	if meta.Name == "" {
		meta.Name = "run"
	}
	meta.Timestamp = s.now()
	if err := s.Init(); err != nil {
		return nil, err
	}

	base := fmt.Sprintf("%s_%d", sanitize(meta.Name), meta.Timestamp.Unix())
	for i := 1; ; i++ {
		id := base
		if i > 1 {
			id = fmt.Sprintf("%s-%d", base, i)
		}
		err := os.Mkdir(filepath.Join(s.baseDir, id), 0755)
		if err == nil {
			meta.ID = id
			break
		}
		if !errors.Is(err, os.ErrExist) || i >= maxIDConflicts {
			return nil, err
		}
	}

	dir := filepath.Join(s.baseDir, meta.ID)
	if err := os.Mkdir(filepath.Join(dir, trajectoryDir), 0755); err != nil {
		return nil, err
	}
	meta.Bodies = nil
	return &Run{
		dir:  dir,
		mu:   mu,
		meta: meta,
		used: make(map[string]bool),
		seen: make(map[string]bool),
	}, nil
}

func (r *Run) ID() string  { return r.meta.ID }
func (r *Run) Dir() string { return r.dir }

func (r *Run) Record(body *dynamo.MinorBody, o dynamo.Outcome) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.seen[o.Designator] {
		return fmt.Errorf("storage: body %q recorded twice", o.Designator)
	}
	r.seen[o.Designator] = true

	rec := BodyRecord{
		Designator:   o.Designator,
		Status:       o.Status.String(),
		Steps:        o.Steps,
		FirstEpoch:   o.FirstEpoch,
		LastEpoch:    o.LastEpoch,
		FailureEpoch: o.FailureEpoch,
		Degenerate:   o.Degenerate,
		Reason:       o.Reason(),
	}
	if len(body.Trajectory) > 0 {
		rec.File = r.fileFor(o.Designator)
		if err := writeTrajectory(filepath.Join(r.dir, rec.File), body.Trajectory); err != nil {
			return err
		}
		if r.mu > 0 {
			if inv := metrics.Measure(r.mu, body.Trajectory); inv.Finite() {
				rec.Invariants = &inv
			}
		}
	}
	r.meta.Bodies = append(r.meta.Bodies, rec)
	return nil
}

// SetResidual attaches a validation position error, in AU, to a recorded body.
func (r *Run) SetResidual(designator string, au float64) {
	r.lock.Lock()
	defer r.lock.Unlock()
	for i := range r.meta.Bodies {
		if r.meta.Bodies[i].Designator == designator {
			v := au
			r.meta.Bodies[i].Residual = &v
			return
		}
	}
}

// TextfileWriter exports metrics in the Prometheus text format.
type TextfileWriter interface {
	WriteTextfile(path string) error
}

// Finish writes metadata.json and, when m is not nil, metrics.prom.
func (r *Run) Finish(elapsed time.Duration, m TextfileWriter) (*RunMetadata, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	sort.Slice(r.meta.Bodies, func(i, j int) bool {
		return r.meta.Bodies[i].Designator < r.meta.Bodies[j].Designator
	})
	r.meta.Elapsed = elapsed.Seconds()
	r.meta.Counts = make(map[string]int)
	for _, b := range r.meta.Bodies {
		r.meta.Counts[b.Status]++
	}

	if err := writeJSON(filepath.Join(r.dir, metadataFile), r.meta); err != nil {
		return nil, err
	}
	if m != nil {
		if err := m.WriteTextfile(filepath.Join(r.dir, metricsFile)); err != nil {
			return nil, fmt.Errorf("write metrics: %w", err)
		}
	}
	meta := r.meta
	return &meta, nil
}

func (r *Run) fileFor(designator string) string {
	name := sanitize(designator)
	candidate := name
	for i := 2; r.used[candidate]; i++ {
		candidate = fmt.Sprintf("%s-%d", name, i)
	}
	r.used[candidate] = true
	return filepath.Join(trajectoryDir, candidate+trajectoryExt)
}

// List returns the stored runs, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].Timestamp.Equal(runs[j].Timestamp) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadTrajectory reads the stored trajectory of one body.
func (s *Store) LoadTrajectory(runID, designator string) ([]dynamo.State, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	rec, ok := meta.Body(designator)
	if !ok {
		return nil, fmt.Errorf("%w: %q in %s", ErrBodyNotFound, designator, runID)
	}
	if rec.File == "" {
		return []dynamo.State{}, nil
	}

	f, err := os.Open(filepath.Join(s.baseDir, runID, rec.File))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadTrajectory(f)
}

func writeTrajectory(path string, traj []dynamo.State) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteTrajectory(f, traj); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteTrajectory writes states as CSV with a header row. Values use the
// shortest representation that reads back to the same float64.
func WriteTrajectory(out io.Writer, traj []dynamo.State) error {
	w := csv.NewWriter(out)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	row := make([]string, len(csvHeader))
	for _, s := range traj {
		row[0] = strconv.FormatFloat(s.Epoch, 'g', -1, 64)
		for i, v := range s.Flat() {
			row[i+1] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func ReadTrajectory(in io.Reader) ([]dynamo.State, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = len(csvHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return []dynamo.State{}, nil
	}

	out := make([]dynamo.State, 0, len(records)-1)
	for i, record := range records[1:] {
		var v [7]float64
		for j, field := range record {
			x, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+2, err)
			}
			v[j] = x
		}
		out = append(out, dynamo.State{
			Epoch: v[0],
			R:     dynamo.Vec(v[1], v[2], v[3]),
			V:     dynamo.Vec(v[4], v[5], v[6]),
		})
	}
	return out, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func sanitize(name string) string {
	s := unsafeName.ReplaceAllString(name, "_")
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}
