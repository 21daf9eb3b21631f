package cluster

import (
	"fmt"

	"github.com/san-kum/dcmsim/internal/dynamo"
)

// Palette lists the colour tokens a cluster may use, in introduction order.
var Palette = []string{"blue", "red", "emerald", "amber"}

var paletteHex = map[string]string{
	"blue":    "#3b82f6",
	"red":     "#ef4444",
	"emerald": "#10b981",
	"amber":   "#f59e0b",
}

// ColorHex resolves a colour token to its RGB hex value. Unknown tokens map to
// a neutral stone grey.
func ColorHex(token string) string {
	if h, ok := paletteHex[token]; ok {
		return h
	}
	return "#44403c"
}

// ValidColor reports whether token is in Palette.
func ValidColor(token string) bool {
	for _, c := range Palette {
		if c == token {
			return true
		}
	}
	return false
}

// Spec configures one cluster: where it forms and how it is drawn.
type Spec struct {
	ID     int
	Center dynamo.Vec2
	Color  string
}

// Config holds the simulator's fixed parameters.
type Config struct {
	// Capacity bounds the point buffer; the oldest point is evicted when full.
	Capacity int
	// JitterRadius bounds each axis offset of a point from its cluster center.
	JitterRadius float64
	Clusters     []Spec
}

// Point is a single data point. Points are never mutated after creation.
type Point struct {
	ID      uint64      `json:"id"`
	Pos     dynamo.Vec2 `json:"pos"`
	Cluster int         `json:"cluster"`
	Born    dynamo.Tick `json:"born"`
}

// Cluster is a memory cluster prototype. It lives for at most one cycle.
type Cluster struct {
	ID     int         `json:"id"`
	Center dynamo.Vec2 `json:"center"`
	Color  string      `json:"color"`
	Born   dynamo.Tick `json:"born"`
}

// Snapshot is an immutable, consistent view of the entity set as of one tick.
type Snapshot struct {
	Tick     dynamo.Tick `json:"tick"`
	Cycle    uint64      `json:"cycle"`
	Position int         `json:"position"`
	Phase    string      `json:"phase"`
	Points   []Point     `json:"points"`
	Clusters []Cluster   `json:"clusters"`
	// Novelty is set only on the tick a cluster is introduced.
	Novelty    bool   `json:"novelty"`
	Annotation string `json:"annotation,omitempty"`
	// Flushed is set on reset-phase ticks.
	Flushed bool `json:"flushed"`
	// Applied is false for the initial snapshot published before any tick.
	Applied bool `json:"applied"`
}

// HasCluster reports whether id is in the snapshot's cluster set.
func (s *Snapshot) HasCluster(id int) bool {
	for _, c := range s.Clusters {
		if c.ID == id {
			return true
		}
	}
	return false
}

// ClusterByID returns the cluster with id, if present.
func (s *Snapshot) ClusterByID(id int) (Cluster, bool) {
	for _, c := range s.Clusters {
		if c.ID == id {
			return c, true
		}
	}
	return Cluster{}, false
}

// CheckIntegrity returns an error if any point references a cluster missing
// from the same snapshot.
func (s *Snapshot) CheckIntegrity() error {
	for _, p := range s.Points {
		if !s.HasCluster(p.Cluster) {
			return fmt.Errorf("point %d references cluster %d absent at tick %d", p.ID, p.Cluster, s.Tick)
		}
	}
	return nil
}
