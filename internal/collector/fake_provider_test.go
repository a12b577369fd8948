package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vmware/govmomi/vim25/types"
)

const (
	cpuCounterID int32 = 2
	memCounterID int32 = 24
)

var platformTime = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

func vmRef(value string) types.ManagedObjectReference {
	return types.ManagedObjectReference{Type: "VirtualMachine", Value: value}
}

func counter(key int32, group, name string, rollup types.PerfSummaryType) types.PerfCounterInfo {
	return types.PerfCounterInfo{
		Key:        key,
		GroupInfo:  &types.ElementDescription{Key: group},
		NameInfo:   &types.ElementDescription{Key: name},
		RollupType: rollup,
	}
}

func defaultCounters() []types.PerfCounterInfo {
	return []types.PerfCounterInfo{
		counter(cpuCounterID, "cpu", "usage", types.PerfSummaryTypeAverage),
		counter(6, "cpu", "usagemhz", types.PerfSummaryTypeAverage),
		counter(memCounterID, "mem", "usage", types.PerfSummaryTypeAverage),
	}
}

type fakeVM struct {
	id     string
	name   string
	state  PowerState
	config VMConfig
	cpu    []int64
	mem    []int64
}

// fakeProvider serves a datacenter/cluster/host/vm tree held in memory.
type fakeProvider struct {
	mu sync.Mutex

	now         time.Time
	nowErr      error
	counters    []types.PerfCounterInfo
	countersErr error

	root        types.ManagedObjectReference
	children    map[types.ManagedObjectReference][]types.ManagedObjectReference
	childrenErr error
	names       map[types.ManagedObjectReference]string

	pages     []PropertyPage
	pageErrAt int
	pageSizes []int32

	series    map[string][]SampleSeries
	perfErr   map[string]error
	configs   map[types.ManagedObjectReference]VMConfig
	configErr map[types.ManagedObjectReference]error

	// blockPerf makes QueryPerf wait for the context to end.
	blockPerf bool
	queries   []PerfQuery
	started   chan string
}

func newFakeProvider(vms ...fakeVM) *fakeProvider {
	root := types.ManagedObjectReference{Type: "Folder", Value: "group-d1"}
	dc := types.ManagedObjectReference{Type: "Datacenter", Value: "datacenter-1"}
	hostFolder := types.ManagedObjectReference{Type: "Folder", Value: "group-h4"}
	cluster := types.ManagedObjectReference{Type: "ClusterComputeResource", Value: "domain-c7"}
	host := types.ManagedObjectReference{Type: "HostSystem", Value: "host-10"}

	p := &fakeProvider{
		now:      platformTime,
		counters: defaultCounters(),
		root:     root,
		children: map[types.ManagedObjectReference][]types.ManagedObjectReference{
			root:       {dc},
			dc:         {hostFolder},
			hostFolder: {cluster},
			cluster:    {host},
		},
		names:     map[types.ManagedObjectReference]string{},
		series:    map[string][]SampleSeries{},
		perfErr:   map[string]error{},
		configs:   map[types.ManagedObjectReference]VMConfig{},
		configErr: map[types.ManagedObjectReference]error{},
		started:   make(chan string, 64),
	}

	var items []InventoryRef
	for _, vm := range vms {
		ref := vmRef(vm.id)
		p.children[host] = append(p.children[host], ref)
		p.names[ref] = vm.name
		p.configs[ref] = vm.config
		if vm.cpu != nil {
			p.series[seriesKey(ref, cpuCounterID)] = []SampleSeries{{CounterID: cpuCounterID, Interval: 7200, Samples: vm.cpu}}
		}
		if vm.mem != nil {
			p.series[seriesKey(ref, memCounterID)] = []SampleSeries{{CounterID: memCounterID, Interval: 7200, Samples: vm.mem}}
		}
		items = append(items, InventoryRef{Ref: ref, Name: vm.name, PowerState: vm.state})
	}
	p.pages = paginate(items, 0)

	return p
}

// paginate splits items into pages of size, chaining them with tokens.
// A size of 0 yields a single page.
func paginate(items []InventoryRef, size int) []PropertyPage {
	if size <= 0 || len(items) <= size {
		return []PropertyPage{{Items: items}}
	}
	var pages []PropertyPage
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		pages = append(pages, PropertyPage{Items: items[start:end]})
	}
	for i := 0; i < len(pages)-1; i++ {
		pages[i].Token = fmt.Sprintf("token-%d", i+1)
	}
	return pages
}

func seriesKey(ref types.ManagedObjectReference, counterID int32) string {
	return fmt.Sprintf("%s/%d", ref.Value, counterID)
}

func (p *fakeProvider) CurrentTime(ctx context.Context) (time.Time, error) {
	return p.now, p.nowErr
}

func (p *fakeProvider) CounterInfo(ctx context.Context) ([]types.PerfCounterInfo, error) {
	return p.counters, p.countersErr
}

func (p *fakeProvider) RootFolder() types.ManagedObjectReference {
	return p.root
}

func (p *fakeProvider) Children(ctx context.Context, parent types.ManagedObjectReference) ([]types.ManagedObjectReference, error) {
	if p.childrenErr != nil {
		return nil, p.childrenErr
	}
	return p.children[parent], nil
}

func (p *fakeProvider) EntityNames(ctx context.Context, refs []types.ManagedObjectReference) (map[types.ManagedObjectReference]string, error) {
	out := make(map[types.ManagedObjectReference]string, len(refs))
	for _, ref := range refs {
		if name, ok := p.names[ref]; ok {
			out[ref] = name
		}
	}
	return out, nil
}

func (p *fakeProvider) RetrieveVMProperties(ctx context.Context, properties []string, maxObjects int32) (PropertyPage, error) {
	p.mu.Lock()
	p.pageSizes = append(p.pageSizes, maxObjects)
	p.mu.Unlock()
	return p.page(0)
}

func (p *fakeProvider) ContinueVMProperties(ctx context.Context, token string) (PropertyPage, error) {
	var n int
	if _, err := fmt.Sscanf(token, "token-%d", &n); err != nil {
		return PropertyPage{}, fmt.Errorf("unknown token %q", token)
	}
	return p.page(n)
}

func (p *fakeProvider) page(i int) (PropertyPage, error) {
	if p.pageErrAt == i+1 {
		return PropertyPage{}, errors.New("property collector unavailable")
	}
	if i >= len(p.pages) {
		return PropertyPage{}, fmt.Errorf("page %d out of range", i)
	}
	return p.pages[i], nil
}

func (p *fakeProvider) QueryPerf(ctx context.Context, query PerfQuery) ([]SampleSeries, error) {
	p.mu.Lock()
	p.queries = append(p.queries, query)
	p.mu.Unlock()

	select {
	case p.started <- query.Entity.Value:
	default:
	}

	if p.blockPerf {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	key := seriesKey(query.Entity, query.CounterID)
	if err := p.perfErr[key]; err != nil {
		return nil, err
	}
	return p.series[key], nil
}

func (p *fakeProvider) VMConfig(ctx context.Context, ref types.ManagedObjectReference) (VMConfig, error) {
	if err := p.configErr[ref]; err != nil {
		return VMConfig{}, err
	}
	return p.configs[ref], nil
}

func (p *fakeProvider) queriesFor(value string) []PerfQuery {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []PerfQuery
	for _, q := range p.queries {
		if q.Entity.Value == value {
			out = append(out, q)
		}
	}
	return out
}
