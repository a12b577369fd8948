package vsphere

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/vmware/govmomi/vim25/methods"
	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/types"

	"github.com/kubev2v/vminfo/internal/collector"
)

// CurrentTime reads the server clock. Query windows are anchored on it so
// that local clock drift does not shift them.
func (c *Client) CurrentTime(ctx context.Context) (time.Time, error) {
	now, err := methods.GetCurrentTime(ctx, c.vim)
	if err != nil {
		return time.Time{}, errors.Wrap(err, "failed to read server time")
	}
	return *now, nil
}

func (c *Client) CounterInfo(ctx context.Context) ([]types.PerfCounterInfo, error) {
	counters, err := c.perf.CounterInfo(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read performance counters")
	}
	return counters, nil
}

func (c *Client) QueryPerf(ctx context.Context, query collector.PerfQuery) ([]collector.SampleSeries, error) {
	start, end := query.Start, query.End
	req := types.QueryPerf{
		This: *c.vim.ServiceContent.PerfManager,
		QuerySpec: []types.PerfQuerySpec{{
			Entity:    query.Entity,
			StartTime: &start,
			EndTime:   &end,
			MetricId: []types.PerfMetricId{{
				CounterId: query.CounterID,
				Instance:  query.Instance,
			}},
			IntervalId: query.IntervalID,
		}},
	}

	res, err := methods.QueryPerf(ctx, c.vim, &req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query performance of %s", query.Entity.Value)
	}

	return toSampleSeries(res.Returnval), nil
}

func toSampleSeries(metrics []types.BasePerfEntityMetricBase) []collector.SampleSeries {
	var out []collector.SampleSeries
	for _, base := range metrics {
		em, ok := base.(*types.PerfEntityMetric)
		if !ok {
			continue
		}
		var interval int32
		if len(em.SampleInfo) > 0 {
			interval = em.SampleInfo[0].Interval
		}
		for _, v := range em.Value {
			series, ok := v.(*types.PerfMetricIntSeries)
			if !ok {
				continue
			}
			out = append(out, collector.SampleSeries{
				CounterID: series.Id.CounterId,
				Instance:  series.Id.Instance,
				Interval:  interval,
				Samples:   series.Value,
			})
		}
	}
	return out
}

func (c *Client) VMConfig(ctx context.Context, ref types.ManagedObjectReference) (collector.VMConfig, error) {
	var vm mo.VirtualMachine
	if err := c.pc.RetrieveOne(ctx, ref, []string{"summary.config", "guest"}, &vm); err != nil {
		return collector.VMConfig{}, errors.Wrapf(err, "failed to read config of %s", ref.Value)
	}

	cfg := collector.VMConfig{
		NumCPU:       int(vm.Summary.Config.NumCpu),
		MemorySizeMB: int(vm.Summary.Config.MemorySizeMB),
	}
	if vm.Guest != nil {
		cfg.GuestFamily = vm.Guest.GuestFamily
		for _, d := range vm.Guest.Disk {
			cfg.Disks = append(cfg.Disks, collector.GuestDisk{Path: d.DiskPath, FreeSpace: d.FreeSpace})
		}
	}
	return cfg, nil
}
