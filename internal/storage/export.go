package storage

import (
	"encoding/json"
	"io"
)

type ExportBody struct {
	BodyRecord
	Trajectory [][7]float64 `json:"trajectory"`
}

type ExportData struct {
	RunMetadata
	Bodies []ExportBody `json:"bodies"`
}

// ExportJSON writes a run with all trajectories as one JSON document. Each
// trajectory row is epoch, x, y, z, vx, vy, vz.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}

	data := ExportData{RunMetadata: *meta, Bodies: make([]ExportBody, 0, len(meta.Bodies))}
	for _, b := range meta.Bodies {
		traj, err := s.LoadTrajectory(runID, b.Designator)
		if err != nil {
			return err
		}
		eb := ExportBody{BodyRecord: b, Trajectory: make([][7]float64, len(traj))}
		for i, st := range traj {
			f := st.Flat()
			eb.Trajectory[i] = [7]float64{st.Epoch, f[0], f[1], f[2], f[3], f[4], f[5]}
		}
		data.Bodies = append(data.Bodies, eb)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// ExportCSV writes one body's stored trajectory as CSV.
func (s *Store) ExportCSV(w io.Writer, runID, designator string) error {
	traj, err := s.LoadTrajectory(runID, designator)
	if err != nil {
		return err
	}
	return WriteTrajectory(w, traj)
}
