package cluster

import (
	"errors"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/dcmsim/internal/dynamo"
	"github.com/san-kum/dcmsim/internal/phase"
)

func pageTable() phase.Table {
	return phase.Table{
		CycleLength: 12,
		Phases: []phase.Phase{
			{Name: "cluster0", Start: 0, End: 3, Kind: phase.KindEmit, Cluster: 0},
			{Name: "settle0", Start: 3, End: 4, Kind: phase.KindIdle},
			{Name: "cluster1", Start: 4, End: 7, Kind: phase.KindEmit, Cluster: 1, Annotation: "new distribution"},
			{Name: "settle1", Start: 7, End: 8, Kind: phase.KindIdle},
			{Name: "cluster2", Start: 8, End: 11, Kind: phase.KindEmit, Cluster: 2},
			{Name: "reset", Start: 11, End: 12, Kind: phase.KindReset},
		},
	}
}

func pageConfig() Config {
	return Config{
		Capacity:     16,
		JitterRadius: 7.5,
		Clusters: []Spec{
			{ID: 0, Center: dynamo.Vec2{X: 30, Y: 30}, Color: "blue"},
			{ID: 1, Center: dynamo.Vec2{X: 70, Y: 70}, Color: "red"},
			{ID: 2, Center: dynamo.Vec2{X: 70, Y: 30}, Color: "emerald"},
		},
	}
}

var _ = Describe("Simulator", func() {
	var (
		sched *phase.Scheduler
		sim   *Simulator
	)

	BeforeEach(func() {
		var err error
		sched, err = phase.NewScheduler(pageTable())
		Expect(err).NotTo(HaveOccurred())
		sim, err = New(sched, pageConfig(), rand.New(rand.NewSource(42)))
		Expect(err).NotTo(HaveOccurred())
	})

	It("should publish an empty snapshot before the first tick", func() {
		snap := sim.Snapshot()
		Expect(snap.Applied).To(BeFalse())
		Expect(snap.Points).To(BeEmpty())
		Expect(snap.Clusters).To(BeEmpty())
	})

	It("should build three clusters and flush them on reset", func() {
		var snaps []*Snapshot
		for t := dynamo.Tick(0); t < 12; t++ {
			snaps = append(snaps, sim.Apply(t))
		}

		Expect(snaps[0].Clusters).To(HaveLen(1))
		Expect(snaps[4].Clusters).To(HaveLen(2))
		Expect(snaps[10].Clusters).To(HaveLen(3))
		Expect(snaps[10].Points).To(HaveLen(9))
		Expect(snaps[11].Clusters).To(BeEmpty())
		Expect(snaps[11].Points).To(BeEmpty())
		Expect(snaps[11].Phase).To(Equal("reset"))
	})

	It("should not change entities during idle phases", func() {
		for t := dynamo.Tick(0); t < 3; t++ {
			sim.Apply(t)
		}
		before := sim.Snapshot()
		after := sim.Apply(3)

		Expect(after.Points).To(Equal(before.Points))
		Expect(after.Clusters).To(Equal(before.Clusters))
		Expect(after.Novelty).To(BeFalse())
	})

	It("should raise novelty exactly once per introduction per cycle", func() {
		for cycle := 0; cycle < 3; cycle++ {
			novel := map[dynamo.Tick]bool{}
			for pos := 0; pos < 12; pos++ {
				t := dynamo.Tick(cycle*12 + pos)
				if sim.Apply(t).Novelty {
					novel[t%12] = true
				}
			}
			Expect(novel).To(Equal(map[dynamo.Tick]bool{0: true, 4: true, 8: true}))
		}
	})

	It("should carry the phase annotation only on the novelty tick", func() {
		for t := dynamo.Tick(0); t < 4; t++ {
			Expect(sim.Apply(t).Annotation).To(BeEmpty())
		}
		Expect(sim.Apply(4).Annotation).To(Equal("new distribution"))
		Expect(sim.Apply(5).Annotation).To(BeEmpty())
	})

	It("should keep every point attached to a present cluster", func() {
		for t := dynamo.Tick(0); t < 240; t++ {
			snap := sim.Apply(t)
			Expect(snap.CheckIntegrity()).To(Succeed())
			Expect(len(snap.Points)).To(BeNumerically("<=", sim.Capacity()))
			Expect(len(snap.Clusters)).To(BeNumerically("<=", sim.MaxClusters()))

			ids := map[int]bool{}
			for _, c := range snap.Clusters {
				Expect(ids[c.ID]).To(BeFalse(), "cluster %d appears twice", c.ID)
				ids[c.ID] = true
			}
		}
	})

	It("should place points within the jitter radius of their center", func() {
		for t := dynamo.Tick(0); t < 120; t++ {
			snap := sim.Apply(t)
			for _, p := range snap.Points {
				c, ok := snap.ClusterByID(p.Cluster)
				Expect(ok).To(BeTrue())
				d := p.Pos.Sub(c.Center)
				Expect(d.X).To(BeNumerically("~", 0, 7.5))
				Expect(d.Y).To(BeNumerically("~", 0, 7.5))
				Expect(p.Pos.InSpace()).To(BeTrue())
			}
		}
	})

	It("should introduce a cluster when started mid-phase", func() {
		snap := sim.Apply(5)
		Expect(snap.Novelty).To(BeTrue())
		Expect(snap.Clusters).To(HaveLen(1))
		Expect(snap.Clusters[0].ID).To(Equal(1))
		Expect(snap.CheckIntegrity()).To(Succeed())
	})

	It("should not alias state between snapshots", func() {
		first := sim.Apply(0)
		pts := append([]Point(nil), first.Points...)
		sim.Apply(1)
		sim.Apply(2)
		Expect(first.Points).To(Equal(pts))
	})

	It("should be reproducible for a given seed", func() {
		other, err := New(sched, pageConfig(), rand.New(rand.NewSource(42)))
		Expect(err).NotTo(HaveOccurred())
		for t := dynamo.Tick(0); t < 30; t++ {
			Expect(other.Apply(t).Points).To(Equal(sim.Apply(t).Points))
		}
	})

	Context("with a small buffer", func() {
		BeforeEach(func() {
			cfg := pageConfig()
			cfg.Capacity = 4
			var err error
			sim, err = New(sched, cfg, rand.New(rand.NewSource(7)))
			Expect(err).NotTo(HaveOccurred())
		})

		It("should evict the oldest point first", func() {
			var snap *Snapshot
			for t := dynamo.Tick(0); t <= 6; t++ {
				snap = sim.Apply(t)
			}
			// emitted at 0,1,2,4,5,6; the two oldest are gone
			Expect(snap.Points).To(HaveLen(4))
			born := []dynamo.Tick{}
			for _, p := range snap.Points {
				born = append(born, p.Born)
			}
			Expect(born).To(Equal([]dynamo.Tick{2, 4, 5, 6}))
			Expect(snap.Points[0].ID).To(BeNumerically("<", snap.Points[3].ID))
		})
	})

	It("should flush on an explicit reset", func() {
		sim.Apply(0)
		sim.Reset()
		Expect(sim.Snapshot().Points).To(BeEmpty())
		Expect(sim.Apply(1).Novelty).To(BeTrue())
	})

	DescribeTable("rejecting bad configuration",
		func(mutate func(*Config), want error) {
			cfg := pageConfig()
			mutate(&cfg)
			_, err := New(sched, cfg, nil)
			Expect(errors.Is(err, dynamo.ErrConfig)).To(BeTrue())
			Expect(errors.Is(err, want)).To(BeTrue())
		},
		Entry("zero capacity", func(c *Config) { c.Capacity = 0 }, dynamo.ErrInvalidCapacity),
		Entry("negative jitter", func(c *Config) { c.JitterRadius = -1 }, dynamo.ErrInvalidValue),
		Entry("no clusters", func(c *Config) { c.Clusters = nil }, dynamo.ErrInvalidCapacity),
		Entry("duplicate id", func(c *Config) { c.Clusters[1].ID = 0 }, dynamo.ErrDuplicateKey),
		Entry("center off-canvas", func(c *Config) { c.Clusters[0].Center.X = 140 }, dynamo.ErrInvalidValue),
		Entry("unknown colour", func(c *Config) { c.Clusters[0].Color = "teal" }, dynamo.ErrInvalidValue),
		Entry("emit phase without cluster", func(c *Config) { c.Clusters = c.Clusters[:2] }, dynamo.ErrUnknownCluster),
	)
})
