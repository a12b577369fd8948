package collector

import (
	"context"
	"time"

	"github.com/vmware/govmomi/vim25/types"
)

type PowerState string

const (
	PowerStateOn        PowerState = "poweredOn"
	PowerStateOff       PowerState = "poweredOff"
	PowerStateSuspended PowerState = "suspended"
	PowerStateUnknown   PowerState = "unknown"
)

func ParsePowerState(s string) PowerState {
	switch PowerState(s) {
	case PowerStateOn, PowerStateOff, PowerStateSuspended:
		return PowerState(s)
	default:
		return PowerStateUnknown
	}
}

// InventoryRef identifies a VM by its managed object reference. Name is a
// display field only, the reference is the join key.
type InventoryRef struct {
	Ref        types.ManagedObjectReference
	Name       string
	PowerState PowerState
}

// SampleSeries holds the samples of one counter over one query window.
type SampleSeries struct {
	CounterID int32
	Instance  string
	// Interval is the sampling period in seconds.
	Interval int32
	Samples  []int64
}

type PerfQuery struct {
	Entity     types.ManagedObjectReference
	CounterID  int32
	Instance   string
	Start      time.Time
	End        time.Time
	IntervalID int32
}

// PropertyPage is one page of a paginated property retrieval. An empty
// Token marks the last page.
type PropertyPage struct {
	Items []InventoryRef
	Token string
}

type GuestDisk struct {
	Path      string
	FreeSpace int64
}

// VMConfig is the point in time configuration of a VM.
type VMConfig struct {
	NumCPU       int
	MemorySizeMB int
	GuestFamily  string
	Disks        []GuestDisk
}

// Provider is the subset of the virtualization management API used to build
// a report. The session behind it is shared read-only by all workers.
type Provider interface {
	CurrentTime(ctx context.Context) (time.Time, error)
	CounterInfo(ctx context.Context) ([]types.PerfCounterInfo, error)

	RootFolder() types.ManagedObjectReference
	Children(ctx context.Context, parent types.ManagedObjectReference) ([]types.ManagedObjectReference, error)
	// EntityNames omits refs that no longer exist.
	EntityNames(ctx context.Context, refs []types.ManagedObjectReference) (map[types.ManagedObjectReference]string, error)

	RetrieveVMProperties(ctx context.Context, properties []string, maxObjects int32) (PropertyPage, error)
	ContinueVMProperties(ctx context.Context, token string) (PropertyPage, error)

	QueryPerf(ctx context.Context, query PerfQuery) ([]SampleSeries, error)
	VMConfig(ctx context.Context, ref types.ManagedObjectReference) (VMConfig, error)
}
