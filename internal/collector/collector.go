package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vmware/govmomi/vim25/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	reporttypes "github.com/kubev2v/vminfo/internal/report/types"
	"github.com/kubev2v/vminfo/pkg/metrics"
)

const (
	DefaultWindowDays = 30
	DefaultWorkers    = 4
	DefaultVMTimeout  = 2 * time.Minute
)

type Options struct {
	WindowDays int
	Workers    int
	// VMTimeout bounds the processing of one VM. Zero disables it.
	VMTimeout time.Duration
	// PageSize is the maximum number of objects per property page, 0 leaves
	// it to the platform.
	PageSize   int32
	IntervalID int32
}

func DefaultOptions() Options {
	return Options{
		WindowDays: DefaultWindowDays,
		Workers:    DefaultWorkers,
		VMTimeout:  DefaultVMTimeout,
	}
}

type Collector struct {
	provider Provider
	opts     Options
}

func NewCollector(provider Provider, opts Options) *Collector {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = DefaultWindowDays
	}
	return &Collector{provider: provider, opts: opts}
}

// Results collects the summaries of one run. Every discovered VM owns a
// slot so the discovery order survives concurrent completion.
type Results struct {
	RunID         string
	ReferenceTime time.Time
	WindowDays    int
	// Unmatched holds the names of walked VMs missing from the property fetch.
	Unmatched []string

	mu    sync.Mutex
	slots []*reporttypes.VMSummary
}

func newResults(size int) *Results {
	return &Results{
		RunID: uuid.NewString(),
		slots: make([]*reporttypes.VMSummary, size),
	}
}

func (r *Results) set(i int, s reporttypes.VMSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots[i] = &s
}

// Summaries returns the completed summaries in discovery order.
func (r *Results) Summaries() []reporttypes.VMSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]reporttypes.VMSummary, 0, len(r.slots))
	for _, s := range r.slots {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out
}

// Completed is the number of VMs summarized so far.
func (r *Results) Completed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.slots {
		if s != nil {
			n++
		}
	}
	return n
}

// Total is the number of VMs discovered by the run.
func (r *Results) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}

// Run discovers the VMs and summarizes each of them. Only a failure to read
// the platform clock, resolve the cpu and memory usage counters or discover
// the inventory aborts the run; per VM failures become unreachable summaries. When ctx is
// cancelled Run returns the summaries completed so far along with the
// context error.
func (c *Collector) Run(ctx context.Context) (*Results, error) {
	logger := zap.S().Named("collector")

	referenceTime, err := c.provider.CurrentTime(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read platform time: %w", err)
	}

	counters, err := c.provider.CounterInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list performance counters: %w", err)
	}
	catalog, err := Resolve(counters)
	if err != nil {
		return nil, err
	}
	usageCounters, err := catalog.UsageCounters()
	if err != nil {
		return nil, err
	}
	logger.Infof("resolved %d performance counters", catalog.Len())

	walker := NewWalker(c.provider, c.opts.PageSize)

	logger.Infof("List VMs")
	walked, err := walker.ListVMs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to walk inventory: %w", err)
	}

	logger.Infof("Fetch VM properties")
	fetched, err := walker.FetchVMProperties(ctx)
	if err != nil {
		return nil, err
	}

	vms, unmatched := join(walked, fetched)
	results := newResults(len(vms))
	results.ReferenceTime = referenceTime
	results.WindowDays = c.opts.WindowDays
	results.Unmatched = unmatched

	metrics.UpdateUnmatchedVmsMetric(len(unmatched))
	if len(unmatched) > 0 {
		logger.Warnw("vms found in inventory but missing from property fetch", "run", results.RunID, "vms", unmatched)
	}

	logger.Infow("summarizing vms",
		"run", results.RunID,
		"vms", len(vms),
		"workers", c.opts.Workers,
		"referenceTime", referenceTime.Format(time.RFC3339),
		"windowDays", c.opts.WindowDays)

	builder := NewBuilder(c.provider, usageCounters, NewMetricQuerier(c.provider, c.opts.IntervalID), c.opts.WindowDays)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)
	for i, vm := range vms {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			summary, ok := c.summarize(gctx, builder, vm, referenceTime)
			if !ok {
				return gctx.Err()
			}
			results.set(i, summary)
			metrics.IncreaseVmsTotalMetric(string(summary.Status), string(summary.Reason))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}

	metrics.UpdateLastRunTimestampMetric(time.Now())
	logger.Infow("run completed", "run", results.RunID, "vms", results.Completed())

	return results, nil
}

// summarize returns false when the VM could not be finished because the run
// itself was cancelled.
func (c *Collector) summarize(ctx context.Context, builder *Builder, vm InventoryRef, referenceTime time.Time) (reporttypes.VMSummary, bool) {
	logger := zap.S().Named("collector")

	if vm.PowerState != PowerStateOn {
		logger.Infof("%s is %s, skipping metrics", vm.Name, vm.PowerState)
		return reporttypes.NewUnreachableSummary(vm.Name, powerStateReason(vm.PowerState)), true
	}

	vmCtx, cancel := ctx, context.CancelFunc(func() {})
	if c.opts.VMTimeout > 0 {
		vmCtx, cancel = context.WithTimeout(ctx, c.opts.VMTimeout)
	}
	defer cancel()

	summary, err := builder.Build(vmCtx, vm, referenceTime)
	if err == nil {
		logger.Debugf("summarized %s", vm.Name)
		return summary, true
	}

	if ctx.Err() != nil {
		return reporttypes.VMSummary{}, false
	}

	var (
		emptyErr  *EmptyMetricsError
		configErr *ConfigReadError
		reason    reporttypes.UnreachableReason
	)
	switch {
	case errors.As(err, &emptyErr):
		reason = reporttypes.ReasonNoMetrics
		logger.Warnw("performance results empty, check time drift on source and vCenter server",
			"vm", vm.Name,
			"counter", emptyErr.CounterID,
			"referenceTime", emptyErr.ReferenceTime.Format(time.RFC3339),
			"start", emptyErr.Start.Format(time.RFC3339),
			"end", emptyErr.End.Format(time.RFC3339))
	case errors.Is(err, ErrEmptySeries):
		reason = reporttypes.ReasonNoMetrics
		logger.Warnf("no samples for %s: %v", vm.Name, err)
	case errors.As(err, &configErr):
		reason = reporttypes.ReasonConfigRead
		logger.Warnf("problem reading configuration of %s: %v", vm.Name, err)
	default:
		reason = reporttypes.ReasonQueryFailed
		logger.Warnf("problem querying %s: %v", vm.Name, err)
	}

	return reporttypes.NewUnreachableSummary(vm.Name, reason), true
}

// join keeps the fetched VMs that the walk also found, in fetch order, and
// returns the names of walked VMs the fetch did not return.
func join(walked, fetched []InventoryRef) ([]InventoryRef, []string) {
	known := make(map[types.ManagedObjectReference]struct{}, len(walked))
	for _, vm := range walked {
		known[vm.Ref] = struct{}{}
	}

	matched := make(map[types.ManagedObjectReference]struct{}, len(fetched))
	vms := make([]InventoryRef, 0, len(fetched))
	for _, vm := range fetched {
		if _, ok := known[vm.Ref]; !ok {
			continue
		}
		if _, dup := matched[vm.Ref]; dup {
			continue
		}
		matched[vm.Ref] = struct{}{}
		vms = append(vms, vm)
	}

	var unmatched []string
	for _, vm := range walked {
		if _, ok := matched[vm.Ref]; !ok {
			unmatched = append(unmatched, vm.Name)
		}
	}

	return vms, unmatched
}

func powerStateReason(state PowerState) reporttypes.UnreachableReason {
	switch state {
	case PowerStateOff:
		return reporttypes.ReasonPoweredOff
	case PowerStateSuspended:
		return reporttypes.ReasonSuspended
	default:
		return reporttypes.ReasonPowerState
	}
}
