package collector

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kubev2v/vminfo/internal/report/types"
)

var _ = Describe("Collector", func() {
	var (
		ctx  context.Context
		opts Options
	)

	BeforeEach(func() {
		ctx = context.Background()
		opts = DefaultOptions()
	})

	summaryByName := func(results *Results, name string) types.VMSummary {
		for _, s := range results.Summaries() {
			if s.Name == name {
				return s
			}
		}
		Fail("no summary for " + name)
		return types.VMSummary{}
	}

	Context("run", func() {
		It("summarizes a powered on vm", func() {
			p := newFakeProvider(fakeVM{
				id:     "vm-1",
				name:   "web-01",
				state:  PowerStateOn,
				config: VMConfig{NumCPU: 2, MemorySizeMB: 4096},
				cpu:    []int64{500, 1000, 1500},
				mem:    []int64{2000},
			})

			results, err := NewCollector(p, opts).Run(ctx)
			Expect(err).To(BeNil())
			Expect(results.Total()).To(Equal(1))
			Expect(results.ReferenceTime).To(Equal(platformTime))
			Expect(results.WindowDays).To(Equal(DefaultWindowDays))
			Expect(results.RunID).NotTo(BeEmpty())

			s := summaryByName(results, "web-01")
			Expect(s.Status).To(Equal(types.StatusOK))
			Expect(s.CPUCount).To(Equal(2))
			Expect(*s.CPUAvgPercent).To(Equal(10))
			Expect(*s.CPUMaxPercent).To(Equal(15))
			Expect(*s.MemAvgPercent).To(Equal(20))
			Expect(*s.MemorySizeMB).To(Equal(4096))
			Expect(s.RootVolumeFreeMB).To(BeNil())
		})

		It("marks a powered off vm unreachable without querying it", func() {
			p := newFakeProvider(fakeVM{id: "vm-1", name: "db-01", state: PowerStateOff, cpu: []int64{100}, mem: []int64{100}})

			results, err := NewCollector(p, opts).Run(ctx)
			Expect(err).To(BeNil())

			s := summaryByName(results, "db-01")
			Expect(s.Status).To(Equal(types.StatusUnreachable))
			Expect(s.Reason).To(Equal(types.ReasonPoweredOff))
			Expect(s.CPUCount).To(Equal(types.UnreachableCPUCount))
			Expect(s.CPUAvgPercent).To(BeNil())
			Expect(s.MemorySizeMB).To(BeNil())
			Expect(p.queriesFor("vm-1")).To(BeEmpty())
		})

		It("tells empty metrics apart from a powered off vm", func() {
			p := newFakeProvider(
				fakeVM{id: "vm-1", name: "db-01", state: PowerStateOff},
				fakeVM{id: "vm-2", name: "app-02", state: PowerStateOn, config: VMConfig{NumCPU: 1}},
			)

			results, err := NewCollector(p, opts).Run(ctx)
			Expect(err).To(BeNil())

			off := summaryByName(results, "db-01")
			empty := summaryByName(results, "app-02")
			Expect(empty.Status).To(Equal(off.Status))
			Expect(empty.CPUCount).To(Equal(off.CPUCount))
			Expect(empty.Reason).To(Equal(types.ReasonNoMetrics))
			Expect(empty.Reason).NotTo(Equal(off.Reason))
			Expect(p.queriesFor("vm-2")).To(HaveLen(1))
		})

		It("marks suspended and unknown power states", func() {
			p := newFakeProvider(
				fakeVM{id: "vm-1", name: "sleepy", state: PowerStateSuspended},
				fakeVM{id: "vm-2", name: "odd", state: PowerStateUnknown},
			)

			results, err := NewCollector(p, opts).Run(ctx)
			Expect(err).To(BeNil())
			Expect(summaryByName(results, "sleepy").Reason).To(Equal(types.ReasonSuspended))
			Expect(summaryByName(results, "odd").Reason).To(Equal(types.ReasonPowerState))
		})

		It("keeps discovery order across workers", func() {
			var vms []fakeVM
			for _, id := range []string{"vm-b", "vm-a", "vm-c", "vm-d"} {
				vms = append(vms, fakeVM{id: id, name: id, state: PowerStateOn, config: VMConfig{NumCPU: 2}, cpu: []int64{100}, mem: []int64{100}})
			}
			p := newFakeProvider(vms...)
			opts.Workers = 3

			results, err := NewCollector(p, opts).Run(ctx)
			Expect(err).To(BeNil())

			var names []string
			for _, s := range results.Summaries() {
				names = append(names, s.Name)
			}
			Expect(names).To(Equal([]string{"vm-b", "vm-a", "vm-c", "vm-d"}))
		})

		It("degrades per vm failures", func() {
			p := newFakeProvider(
				fakeVM{id: "vm-1", name: "broken-config", state: PowerStateOn, cpu: []int64{100}, mem: []int64{100}},
				fakeVM{id: "vm-2", name: "broken-query", state: PowerStateOn, cpu: []int64{100}, mem: []int64{100}},
				fakeVM{id: "vm-3", name: "fine", state: PowerStateOn, config: VMConfig{NumCPU: 8}, cpu: []int64{100}, mem: []int64{100}},
			)
			p.configErr[vmRef("vm-1")] = errors.New("no permission")
			p.perfErr[seriesKey(vmRef("vm-2"), cpuCounterID)] = errors.New("server fault")

			results, err := NewCollector(p, opts).Run(ctx)
			Expect(err).To(BeNil())
			Expect(results.Completed()).To(Equal(3))
			Expect(summaryByName(results, "broken-config").Reason).To(Equal(types.ReasonConfigRead))
			Expect(summaryByName(results, "broken-query").Reason).To(Equal(types.ReasonQueryFailed))
			Expect(summaryByName(results, "fine").Status).To(Equal(types.StatusOK))
		})

		It("reports walked vms missing from the property fetch", func() {
			p := newFakeProvider(
				fakeVM{id: "vm-1", name: "kept", state: PowerStateOff},
				fakeVM{id: "vm-2", name: "vanished", state: PowerStateOff},
			)
			p.pages[0].Items = p.pages[0].Items[:1]

			results, err := NewCollector(p, opts).Run(ctx)
			Expect(err).To(BeNil())
			Expect(results.Total()).To(Equal(1))
			Expect(results.Unmatched).To(Equal([]string{"vanished"}))
		})

		It("returns no summaries for an empty inventory", func() {
			results, err := NewCollector(newFakeProvider(), opts).Run(ctx)
			Expect(err).To(BeNil())
			Expect(results.Summaries()).To(BeEmpty())
			Expect(results.Unmatched).To(BeEmpty())
		})

		It("bounds each vm by the per vm timeout", func() {
			p := newFakeProvider(fakeVM{id: "vm-1", name: "slow", state: PowerStateOn})
			p.blockPerf = true
			opts.VMTimeout = 20 * time.Millisecond

			results, err := NewCollector(p, opts).Run(ctx)
			Expect(err).To(BeNil())
			Expect(summaryByName(results, "slow").Reason).To(Equal(types.ReasonQueryFailed))
		})
	})

	Context("fatal errors", func() {
		It("fails when the platform clock cannot be read", func() {
			p := newFakeProvider(fakeVM{id: "vm-1", name: "a", state: PowerStateOn})
			p.nowErr = errors.New("session expired")

			results, err := NewCollector(p, opts).Run(ctx)
			Expect(results).To(BeNil())
			Expect(errors.Is(err, p.nowErr)).To(BeTrue())
		})

		It("fails on an empty counter catalog", func() {
			p := newFakeProvider(fakeVM{id: "vm-1", name: "a", state: PowerStateOn})
			p.counters = nil

			_, err := NewCollector(p, opts).Run(ctx)
			var catalogErr *CatalogError
			Expect(errors.As(err, &catalogErr)).To(BeTrue())
		})

		It("fails before the walk when a usage counter is missing", func() {
			p := newFakeProvider(
				fakeVM{id: "vm-1", name: "web-01", state: PowerStateOn, cpu: []int64{1000}, mem: []int64{2000}},
				fakeVM{id: "vm-2", name: "web-02", state: PowerStateOn, cpu: []int64{1000}, mem: []int64{2000}},
			)
			p.counters = p.counters[:2]

			results, err := NewCollector(p, opts).Run(ctx)
			Expect(results).To(BeNil())
			var catalogErr *CatalogError
			Expect(errors.As(err, &catalogErr)).To(BeTrue())
			Expect(catalogErr.Counter).To(Equal(MemoryUsageCounter))
			Expect(p.pageSizes).To(BeEmpty())
			Expect(p.queriesFor("vm-1")).To(BeEmpty())
			Expect(p.queriesFor("vm-2")).To(BeEmpty())
		})

		It("fails when a property page fails", func() {
			p := newFakeProvider(fakeVM{id: "vm-1", name: "a"}, fakeVM{id: "vm-2", name: "b"}, fakeVM{id: "vm-3", name: "c"})
			p.pages = paginate(p.pages[0].Items, 2)
			p.pageErrAt = 2
			opts.PageSize = 2

			results, err := NewCollector(p, opts).Run(ctx)
			Expect(results).To(BeNil())
			var fetchErr *PropertyFetchError
			Expect(errors.As(err, &fetchErr)).To(BeTrue())
			Expect(fetchErr.Page).To(Equal(2))
		})
	})

	Context("cancellation", func() {
		It("stops and returns the partial results", func() {
			var vms []fakeVM
			for _, id := range []string{"vm-1", "vm-2", "vm-3", "vm-4", "vm-5", "vm-6"} {
				vms = append(vms, fakeVM{id: id, name: id, state: PowerStateOn})
			}
			p := newFakeProvider(vms...)
			p.blockPerf = true
			opts.Workers = 2
			opts.VMTimeout = 0

			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()

			go func() {
				<-p.started
				cancel()
			}()

			done := make(chan struct{})
			var (
				results *Results
				err     error
			)
			go func() {
				defer close(done)
				results, err = NewCollector(p, opts).Run(runCtx)
			}()

			Eventually(done).WithTimeout(5 * time.Second).Should(BeClosed())
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
			Expect(results).NotTo(BeNil())
			Expect(results.Total()).To(Equal(6))
			Expect(results.Completed()).To(BeNumerically("<", 6))
		})
	})
})
