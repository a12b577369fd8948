package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/vmware/govmomi/vim25/types"
)

// MetricQuerier issues single time window performance queries.
type MetricQuerier struct {
	provider   Provider
	intervalID int32
}

// NewMetricQuerier returns a querier. An intervalID of 0 lets the platform
// pick the sampling interval.
func NewMetricQuerier(provider Provider, intervalID int32) *MetricQuerier {
	return &MetricQuerier{provider: provider, intervalID: intervalID}
}

// QueryMetric fetches the samples of one counter for the window ending at
// referenceTime, which should be the platform clock. It issues exactly one
// query and returns *EmptyMetricsError when nothing comes back.
func (q *MetricQuerier) QueryMetric(ctx context.Context, ref types.ManagedObjectReference, counterID int32, windowDays int, referenceTime time.Time) (SampleSeries, error) {
	start, end := Window(referenceTime, windowDays)
	query := PerfQuery{
		Entity:     ref,
		CounterID:  counterID,
		Instance:   "",
		Start:      start,
		End:        end,
		IntervalID: q.intervalID,
	}

	series, err := q.provider.QueryPerf(ctx, query)
	if err != nil {
		return SampleSeries{}, fmt.Errorf("failed to query counter %d for %s: %w", counterID, ref.Value, err)
	}

	if len(series) == 0 || len(series[0].Samples) == 0 {
		return SampleSeries{}, &EmptyMetricsError{
			Ref:           ref,
			CounterID:     counterID,
			ReferenceTime: referenceTime,
			Start:         start,
			End:           end,
		}
	}

	return series[0], nil
}

// Window returns the bounds of a query window of windowDays days ending at
// referenceTime.
func Window(referenceTime time.Time, windowDays int) (time.Time, time.Time) {
	return referenceTime.Add(-time.Duration(windowDays) * 24 * time.Hour), referenceTime
}
