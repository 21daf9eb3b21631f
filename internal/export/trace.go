// Package export writes simulation runs and snapshots to portable formats.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/rs/xid"
	"github.com/san-kum/dcmsim/internal/cluster"
	"github.com/san-kum/dcmsim/internal/sim"
	"github.com/san-kum/dcmsim/internal/stage"
)

// Trace is the JSON form of a headless run.
type Trace struct {
	RunID     string              `json:"run_id"`
	Preset    string              `json:"preset,omitempty"`
	Seed      int64               `json:"seed"`
	Duration  string              `json:"duration"`
	Timestamp time.Time           `json:"timestamp"`
	Entities  []*cluster.Snapshot `json:"entities"`
	Stages    []stage.Snapshot    `json:"stages"`
	Metrics   map[string]float64  `json:"metrics"`
}

// NewTrace stamps result with a fresh run id.
func NewTrace(preset string, result *sim.Result) Trace {
	return Trace{
		RunID:     xid.New().String(),
		Preset:    preset,
		Seed:      result.Seed,
		Duration:  result.Duration.String(),
		Timestamp: time.Now().UTC(),
		Entities:  result.EntitySnapshots(),
		Stages:    result.StageSnapshots(),
		Metrics:   result.Metrics,
	}
}

func WriteJSON(w io.Writer, trace Trace) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(trace)
}

var csvHeader = []string{"tick", "cycle", "phase", "novelty", "kind", "id", "cluster", "x", "y", "color"}

// WriteCSV writes one row per cluster and per point for every entity frame.
// Frames with no entities still get a single row so resets stay visible.
func WriteCSV(w io.Writer, result *sim.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, snap := range result.EntitySnapshots() {
		prefix := []string{
			strconv.FormatUint(uint64(snap.Tick), 10),
			strconv.FormatUint(snap.Cycle, 10),
			snap.Phase,
			strconv.FormatBool(snap.Novelty),
		}

		if len(snap.Clusters) == 0 && len(snap.Points) == 0 {
			if err := cw.Write(append(prefix, "empty", "", "", "", "", "")); err != nil {
				return err
			}
			continue
		}

		for _, c := range snap.Clusters {
			row := append(append([]string{}, prefix...),
				"cluster",
				strconv.Itoa(c.ID),
				strconv.Itoa(c.ID),
				formatFloat(c.Center.X),
				formatFloat(c.Center.Y),
				c.Color,
			)
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		for _, p := range snap.Points {
			row := append(append([]string{}, prefix...),
				"point",
				strconv.FormatUint(p.ID, 10),
				strconv.Itoa(p.Cluster),
				formatFloat(p.Pos.X),
				formatFloat(p.Pos.Y),
				"",
			)
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
