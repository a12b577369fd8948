package collector

import (
	"fmt"

	"github.com/kubev2v/vminfo/internal/report/types"
)

// Reduce turns a series of hundredths of percent samples into whole percent
// average and maximum, truncating like the platform's own reports do.
// An empty series is rejected so the average never divides by zero.
func Reduce(series SampleSeries) (types.Usage, error) {
	if len(series.Samples) == 0 {
		return types.Usage{}, fmt.Errorf("%w: counter %d", ErrEmptySeries, series.CounterID)
	}

	var sum int64
	peak := series.Samples[0]
	for _, v := range series.Samples {
		sum += v
		if v > peak {
			peak = v
		}
	}

	return types.Usage{
		Avg: int(sum / int64(len(series.Samples)) / 100),
		Max: int(peak / 100),
	}, nil
}
