package sim

import (
	"bytes"
	"context"
	"errors"
	"log"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/dcmsim/internal/clock"
	"github.com/san-kum/dcmsim/internal/cluster"
	"github.com/san-kum/dcmsim/internal/config"
	"github.com/san-kum/dcmsim/internal/dynamo"
	"github.com/san-kum/dcmsim/internal/logging"
	"github.com/san-kum/dcmsim/internal/metrics"
	"github.com/san-kum/dcmsim/internal/stage"
)

type recorder struct {
	mu       sync.Mutex
	entities []*cluster.Snapshot
	stages   []stage.Snapshot
}

func (r *recorder) OnEntities(s *cluster.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entities = append(r.entities, s)
}

func (r *recorder) OnStage(s stage.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, s)
}

func (r *recorder) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entities), len(r.stages)
}

func seededConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Seed = 42
	return cfg
}

var _ = Describe("Engine", func() {
	Describe("headless run", func() {
		var (
			eng    *Engine
			result *Result
		)

		BeforeEach(func() {
			var err error
			eng, err = New(seededConfig())
			Expect(err).NotTo(HaveOccurred())
			for _, m := range metrics.DefaultRunMetrics(16) {
				eng.AddMetric(m)
			}
			result, err = eng.Run(context.Background(), 12*time.Second)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should tick both clocks at their own cadence", func() {
			Expect(result.EntitySnapshots()).To(HaveLen(12))
			Expect(result.StageSnapshots()).To(HaveLen(4))

			var active []int
			for _, s := range result.StageSnapshots() {
				active = append(active, s.ActiveIndex)
			}
			Expect(active).To(Equal([]int{1, 2, 3, 0}))
		})

		It("should order frames by time, entities first on ties", func() {
			for i := 1; i < len(result.Frames); i++ {
				Expect(result.Frames[i].At).To(BeNumerically(">=", result.Frames[i-1].At))
			}
			for i, f := range result.Frames {
				if f.Kind == FrameStage && f.At == 10*time.Second {
					prev := result.Frames[i-1]
					Expect(prev.Kind).To(Equal(FrameEntities))
					Expect(prev.At).To(Equal(10 * time.Second))
				}
			}
		})

		It("should follow the cluster cycle", func() {
			snaps := result.EntitySnapshots()
			Expect(snaps[10].Tick).To(Equal(dynamo.Tick(10)))
			Expect(snaps[10].Clusters).To(HaveLen(3))
			Expect(snaps[11].Clusters).To(BeEmpty())
			Expect(snaps[11].Points).To(BeEmpty())
			for _, s := range snaps {
				Expect(s.CheckIntegrity()).To(Succeed())
			}
		})

		It("should summarize the run", func() {
			Expect(result.Metrics).To(HaveKeyWithValue("peak_clusters", 3.0))
			Expect(result.Metrics).To(HaveKeyWithValue("peak_points", 9.0))
			Expect(result.Metrics).To(HaveKeyWithValue("novelty_per_cycle", 3.0))
			Expect(result.Seed).To(Equal(int64(42)))
		})

		It("should replay identically", func() {
			again, err := eng.Run(context.Background(), 12*time.Second)
			Expect(err).NotTo(HaveOccurred())
			Expect(again.EntitySnapshots()[5].Points).To(Equal(result.EntitySnapshots()[5].Points))
		})

		It("should reject a negative duration as a configuration error", func() {
			r, err := eng.Run(context.Background(), -time.Second)
			Expect(r).To(BeNil())
			Expect(errors.Is(err, dynamo.ErrConfig)).To(BeTrue())
			Expect(errors.Is(err, dynamo.ErrInvalidValue)).To(BeTrue())
		})

		It("should produce no frames for a zero duration", func() {
			r, err := eng.Run(context.Background(), 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Frames).To(BeEmpty())
		})

		It("should normalize any dataset without changing the selection", func() {
			active := eng.Series()
			s, err := eng.DatasetSeries("mnist")
			Expect(err).NotTo(HaveOccurred())
			Expect(s.DatasetKey).To(Equal("mnist"))
			Expect(eng.Series()).To(BeIdenticalTo(active))

			_, err = eng.DatasetSeries("imagenet")
			Expect(errors.Is(err, dynamo.ErrUnknownDataset)).To(BeTrue())
		})

		It("should stop on a cancelled context", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			r, err := eng.Run(ctx, time.Minute)
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
			Expect(r.Frames).To(BeEmpty())
		})
	})

	Describe("clock driven", func() {
		var (
			eng     *Engine
			built   *[]*clock.Manual
			rec     *recorder
			logBuf  *bytes.Buffer
			entityC *clock.Manual
			stageC  *clock.Manual
		)

		BeforeEach(func() {
			factory, b := clock.NewManualFactory()
			built = b

			logBuf = &bytes.Buffer{}
			logger := logging.New()
			logger.SetLevel(logging.LevelDebug)
			logger.SetOutput(log.New(logBuf, "", 0))

			var err error
			eng, err = New(seededConfig(), WithClockFactory(factory), WithLogger(logger))
			Expect(err).NotTo(HaveOccurred())
			Expect(*built).To(HaveLen(2))
			entityC, stageC = (*built)[0], (*built)[1]

			rec = &recorder{}
			eng.AddObserver(rec)
		})

		It("should not tick before Start", func() {
			Expect(entityC.Advance(3)).To(Equal(0))
			Expect(eng.Entities().Applied).To(BeFalse())
		})

		It("should drive the clocks independently", func() {
			eng.Start()
			Expect(eng.Running()).To(BeTrue())

			entityC.Advance(5)
			stageC.Advance(2)

			Expect(eng.Entities().Tick).To(Equal(dynamo.Tick(4)))
			Expect(eng.Entities().Clusters).To(HaveLen(2))
			Expect(eng.Stages().ActiveIndex).To(Equal(2))

			n, s := rec.counts()
			Expect(n).To(Equal(5))
			Expect(s).To(Equal(2))
			Expect(logBuf.String()).To(ContainSubstring("cluster introduced"))
		})

		It("should apply nothing after Stop", func() {
			eng.Start()
			entityC.Advance(2)
			eng.Stop()
			Expect(eng.Running()).To(BeFalse())

			Expect(entityC.Advance(4)).To(Equal(0))
			Expect(stageC.Advance(4)).To(Equal(0))
			Expect(eng.Entities().Tick).To(Equal(dynamo.Tick(1)))

			eng.Start()
			entityC.Advance(1)
			Expect(eng.Entities().Tick).To(Equal(dynamo.Tick(2)))
		})

		It("should refuse a headless run while ticking", func() {
			eng.Start()
			_, err := eng.Run(context.Background(), time.Second)
			Expect(err).To(MatchError(ErrRunning))
		})

		It("should switch datasets atomically", func() {
			before := eng.Series()
			Expect(before.DatasetKey).To(Equal("cifar10"))

			_, err := eng.SelectDataset("unknown")
			Expect(errors.Is(err, dynamo.ErrConfig)).To(BeTrue())
			Expect(eng.Series()).To(BeIdenticalTo(before))
			Expect(logBuf.String()).To(ContainSubstring("dataset selection rejected"))

			s, err := eng.SelectDataset("mnist")
			Expect(err).NotTo(HaveOccurred())
			Expect(eng.Series()).To(BeIdenticalTo(s))
			Expect(eng.NextDataset().DatasetKey).To(Equal("cifar10"))
		})
	})

	Describe("real clocks", func() {
		It("should tick and stop cleanly", func() {
			cfg := seededConfig()
			cfg.Entities.Period = 2 * time.Millisecond
			cfg.Stages.Period = 5 * time.Millisecond
			eng, err := New(cfg)
			Expect(err).NotTo(HaveOccurred())

			rec := &recorder{}
			eng.AddObserver(rec)
			eng.Start()
			Eventually(func() int { n, _ := rec.counts(); return n }).Should(BeNumerically(">=", 3))
			Eventually(func() int { _, s := rec.counts(); return s }).Should(BeNumerically(">=", 1))
			eng.Stop()

			n, s := rec.counts()
			Consistently(func() int { n2, _ := rec.counts(); return n2 }, 20*time.Millisecond).Should(Equal(n))
			Consistently(func() int { _, s2 := rec.counts(); return s2 }, 20*time.Millisecond).Should(Equal(s))
		})
	})

	It("should start the narration at the configured stage", func() {
		cfg := seededConfig()
		cfg.Stages.Start = 2
		eng, err := New(cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(eng.Stages().ActiveIndex).To(Equal(2))

		result, err := eng.Run(context.Background(), 5*time.Second)
		Expect(err).NotTo(HaveOccurred())
		var active []int
		for _, s := range result.StageSnapshots() {
			active = append(active, s.ActiveIndex)
		}
		Expect(active).To(Equal([]int{3, 0}))
	})

	It("should reject a stage start outside the list", func() {
		cfg := seededConfig()
		cfg.Stages.Start = 4
		_, err := New(cfg)
		Expect(errors.Is(err, dynamo.ErrConfig)).To(BeTrue())
	})

	It("should reject invalid configuration eagerly", func() {
		cfg := seededConfig()
		cfg.Entities.Phases[0].End = 2
		_, err := New(cfg)
		Expect(errors.Is(err, dynamo.ErrPhaseGap)).To(BeTrue())
	})
})

var _ = Describe("Ensemble", func() {
	It("should run isolated engines per seed", func() {
		results, err := NewEnsemble(seededConfig(), 3, 100).Run(context.Background(), 12*time.Second)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(3))

		Expect(results[0].Seed).To(Equal(int64(100)))
		Expect(results[2].Seed).To(Equal(int64(102)))
		a := results[0].EntitySnapshots()[2].Points
		b := results[1].EntitySnapshots()[2].Points
		Expect(a).To(HaveLen(len(b)))
		Expect(a).NotTo(Equal(b))

		mean := MeanMetrics(results)
		Expect(mean).To(HaveKeyWithValue("peak_clusters", 3.0))
	})
})
