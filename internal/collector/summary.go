package collector

import (
	"context"
	"errors"
	"time"

	"github.com/kubev2v/vminfo/internal/report/types"
	"github.com/kubev2v/vminfo/pkg/metrics"
)

const (
	windowsRootVolume = `C:\`
	posixRootVolume   = "/"
	windowsGuest      = "windowsGuest"
)

// Builder produces the summary of a single VM.
type Builder struct {
	provider   Provider
	counters   UsageCounters
	querier    *MetricQuerier
	windowDays int
}

func NewBuilder(provider Provider, counters UsageCounters, querier *MetricQuerier, windowDays int) *Builder {
	return &Builder{
		provider:   provider,
		counters:   counters,
		querier:    querier,
		windowDays: windowDays,
	}
}

// Build reads the VM configuration, queries cpu and memory usage over the
// window ending at referenceTime and picks the root volume free space.
// Any configuration or metric failure is returned to the caller.
func (b *Builder) Build(ctx context.Context, vm InventoryRef, referenceTime time.Time) (types.VMSummary, error) {
	cfg, err := b.provider.VMConfig(ctx, vm.Ref)
	if err != nil {
		return types.VMSummary{}, &ConfigReadError{Ref: vm.Ref, Err: err}
	}

	cpu, err := b.usage(ctx, vm, CPUUsageCounter, b.counters.CPU, referenceTime)
	if err != nil {
		return types.VMSummary{}, err
	}

	mem, err := b.usage(ctx, vm, MemoryUsageCounter, b.counters.Memory, referenceTime)
	if err != nil {
		return types.VMSummary{}, err
	}

	return types.NewSummary(vm.Name, cfg.NumCPU, cfg.MemorySizeMB, cpu, mem, RootVolumeFreeMB(cfg)), nil
}

func (b *Builder) usage(ctx context.Context, vm InventoryRef, counter string, counterID int32, referenceTime time.Time) (types.Usage, error) {
	start := time.Now()
	series, err := b.querier.QueryMetric(ctx, vm.Ref, counterID, b.windowDays, referenceTime)
	metrics.ObserveMetricQuery(counter, queryResult(err), time.Since(start))
	if err != nil {
		return types.Usage{}, err
	}

	return Reduce(series)
}

// RootVolumeFreeMB returns the free space of the guest root volume, C:\ for
// Windows guests and / for every other family. When the family is not
// reported either path is accepted. Nil means no matching volume.
func RootVolumeFreeMB(cfg VMConfig) *int {
	for _, disk := range cfg.Disks {
		if !isRootVolume(cfg.GuestFamily, disk.Path) {
			continue
		}
		free := int(disk.FreeSpace / 1024 / 1024)
		return &free
	}
	return nil
}

func isRootVolume(family, path string) bool {
	switch family {
	case "":
		return path == windowsRootVolume || path == posixRootVolume
	case windowsGuest:
		return path == windowsRootVolume
	default:
		return path == posixRootVolume
	}
}

func queryResult(err error) string {
	var emptyErr *EmptyMetricsError
	switch {
	case err == nil:
		return metrics.MetricQueryResultOK
	case errors.As(err, &emptyErr), errors.Is(err, ErrEmptySeries):
		return metrics.MetricQueryResultNone
	default:
		return metrics.MetricQueryResultFail
	}
}
