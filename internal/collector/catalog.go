package collector

import (
	"fmt"

	"github.com/vmware/govmomi/vim25/types"
)

const (
	CPUUsageCounter    = "cpu.usage.average"
	MemoryUsageCounter = "mem.usage.average"
)

// CounterCatalog maps "group.counter.rollup" names to provider counter ids.
// It is built once per session and is safe for concurrent reads.
type CounterCatalog struct {
	ids map[string]int32
}

func CounterName(c types.PerfCounterInfo) string {
	if c.GroupInfo == nil || c.NameInfo == nil {
		return ""
	}
	group, name := c.GroupInfo.GetElementDescription(), c.NameInfo.GetElementDescription()
	if group == nil || name == nil {
		return ""
	}
	return fmt.Sprintf("%s.%s.%s", group.Key, name.Key, string(c.RollupType))
}

func Resolve(counters []types.PerfCounterInfo) (*CounterCatalog, error) {
	ids := make(map[string]int32, len(counters))
	for _, c := range counters {
		name := CounterName(c)
		if name == "" {
			continue
		}
		ids[name] = c.Key
	}

	if len(ids) == 0 {
		return nil, &CatalogError{}
	}

	return &CounterCatalog{ids: ids}, nil
}

func (c *CounterCatalog) Lookup(name string) (int32, bool) {
	id, ok := c.ids[name]
	return id, ok
}

func (c *CounterCatalog) Len() int {
	return len(c.ids)
}

// UsageCounters holds the ids of the counters every summary queries.
type UsageCounters struct {
	CPU    int32
	Memory int32
}

// UsageCounters looks up the cpu and memory usage counters. A missing one is
// reported as a *CatalogError naming it.
func (c *CounterCatalog) UsageCounters() (UsageCounters, error) {
	cpu, ok := c.Lookup(CPUUsageCounter)
	if !ok {
		return UsageCounters{}, &CatalogError{Counter: CPUUsageCounter}
	}
	mem, ok := c.Lookup(MemoryUsageCounter)
	if !ok {
		return UsageCounters{}, &CatalogError{Counter: MemoryUsageCounter}
	}
	return UsageCounters{CPU: cpu, Memory: mem}, nil
}
