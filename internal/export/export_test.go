package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/san-kum/dcmsim/internal/cluster"
	"github.com/san-kum/dcmsim/internal/config"
	"github.com/san-kum/dcmsim/internal/dynamo"
	"github.com/san-kum/dcmsim/internal/metrics"
	"github.com/san-kum/dcmsim/internal/sim"
)

func runOneCycle(t *testing.T) *sim.Result {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Seed = 3
	eng, err := sim.New(cfg)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	result, err := eng.Run(context.Background(), 12*time.Second)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return result
}

func TestWriteCSV(t *testing.T) {
	result := runOneCycle(t)

	var buf bytes.Buffer
	if err := WriteCSV(&buf, result); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if strings.Join(records[0], ",") != strings.Join(csvHeader, ",") {
		t.Errorf("unexpected header %v", records[0])
	}

	points, clusters, empty := 0, 0, 0
	for _, r := range records[1:] {
		switch r[4] {
		case "point":
			points++
		case "cluster":
			clusters++
		case "empty":
			empty++
		}
	}
	// cumulative point counts per tick 0..10: 1,2,3,3,4,5,6,6,7,8,9
	if points != 54 {
		t.Errorf("expected 54 point rows, got %d", points)
	}
	// cumulative cluster counts per tick 0..10: 1,1,1,1,2,2,2,2,3,3,3
	if clusters != 21 {
		t.Errorf("expected 21 cluster rows, got %d", clusters)
	}
	if empty != 1 {
		t.Errorf("expected one empty row for the reset tick, got %d", empty)
	}
}

func TestWriteJSON(t *testing.T) {
	result := runOneCycle(t)
	trace := NewTrace("dcm", result)

	var buf bytes.Buffer
	if err := WriteJSON(&buf, trace); err != nil {
		t.Fatalf("write json: %v", err)
	}

	var back Trace
	if err := json.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.RunID == "" || back.RunID != trace.RunID {
		t.Errorf("run id lost: %q", back.RunID)
	}
	if len(back.Entities) != 12 || len(back.Stages) != 4 {
		t.Errorf("got %d entity and %d stage frames", len(back.Entities), len(back.Stages))
	}
	if back.Seed != 3 || back.Duration != "12s" {
		t.Errorf("metadata mismatch: seed=%d duration=%s", back.Seed, back.Duration)
	}
}

func TestSnapshotToSVG(t *testing.T) {
	snap := &cluster.Snapshot{
		Clusters: []cluster.Cluster{
			{ID: 0, Center: dynamo.Vec2{X: 30, Y: 30}, Color: "blue"},
			{ID: 1, Center: dynamo.Vec2{X: 70, Y: 70}, Color: "red"},
		},
		Points: []cluster.Point{
			{ID: 1, Pos: dynamo.Vec2{X: 31, Y: 29}, Cluster: 0},
			{ID: 2, Pos: dynamo.Vec2{X: 68, Y: 72}, Cluster: 1},
			{ID: 3, Pos: dynamo.Vec2{X: 72, Y: 66}, Cluster: 1},
		},
		Novelty:    true,
		Annotation: "new <distribution>",
	}

	svg := SnapshotToSVG(snap, 400)
	if !strings.HasPrefix(svg, "<?xml") || !strings.HasSuffix(svg, "</svg>") {
		t.Fatal("not an svg document")
	}
	// two halos, two centers, three points
	if n := strings.Count(svg, "<circle"); n != 7 {
		t.Errorf("expected 7 circles, got %d", n)
	}
	if !strings.Contains(svg, `cx="120.0" cy="120.0" r="64.0" fill="#3b82f6"`) {
		t.Error("blue halo not scaled into canvas space")
	}
	if !strings.Contains(svg, "new &lt;distribution&gt;") {
		t.Error("annotation missing or unescaped")
	}

	if SnapshotToSVG(nil, 400) != "" {
		t.Error("nil snapshot should render nothing")
	}
}

func TestSeriesToSVG(t *testing.T) {
	n, err := metrics.NewNormalizer(metrics.PaperDatasets(), "mnist", metrics.Options{})
	if err != nil {
		t.Fatal(err)
	}
	svg := SeriesToSVG(n.Current(), 400, 224)
	if n := strings.Count(svg, "<rect x="); n != 4 {
		t.Errorf("expected 4 bars, got %d", n)
	}
	if strings.Count(svg, referenceColor) != 1 {
		t.Error("expected exactly one reference bar")
	}
}
