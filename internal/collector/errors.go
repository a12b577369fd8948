package collector

import (
	"errors"
	"fmt"
	"time"

	"github.com/vmware/govmomi/vim25/types"
)

// ErrEmptySeries is returned when a series with no samples is reduced.
var ErrEmptySeries = errors.New("sample series is empty")

// CatalogError is returned when counters cannot be resolved. An empty
// Counter means the whole catalog is empty.
type CatalogError struct {
	Counter string
}

func (e *CatalogError) Error() string {
	if e.Counter == "" {
		return "performance counter catalog is empty"
	}
	return fmt.Sprintf("performance counter %q not found in catalog", e.Counter)
}

// EmptyMetricsError is returned when a performance query yields no samples.
// It carries the window so that clock drift between the caller and the
// platform can be diagnosed.
type EmptyMetricsError struct {
	Ref           types.ManagedObjectReference
	CounterID     int32
	ReferenceTime time.Time
	Start         time.Time
	End           time.Time
}

func (e *EmptyMetricsError) Error() string {
	return fmt.Sprintf(
		"performance results empty for %s counter %d (reference time %s, window %s to %s): check time drift on source and vCenter server",
		e.Ref.Value, e.CounterID,
		e.ReferenceTime.Format(time.RFC3339), e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339),
	)
}

// PropertyFetchError is returned when any page of the VM property retrieval
// fails. Items from earlier pages are discarded.
type PropertyFetchError struct {
	Page int
	Err  error
}

func (e *PropertyFetchError) Error() string {
	return fmt.Sprintf("failed to fetch vm properties (page %d): %v", e.Page, e.Err)
}

func (e *PropertyFetchError) Unwrap() error {
	return e.Err
}

type ConfigReadError struct {
	Ref types.ManagedObjectReference
	Err error
}

func (e *ConfigReadError) Error() string {
	return fmt.Sprintf("failed to read configuration of %s: %v", e.Ref.Value, e.Err)
}

func (e *ConfigReadError) Unwrap() error {
	return e.Err
}
