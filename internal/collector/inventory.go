package collector

import (
	"context"
	"fmt"

	"github.com/vmware/govmomi/vim25/types"
	"go.uber.org/zap"

	"github.com/kubev2v/vminfo/pkg/metrics"
)

// vmProperties are the only properties requested by the bulk VM fetch.
var vmProperties = []string{"name", "runtime.powerState"}

// Walker discovers VMs, either by walking the containment hierarchy or by a
// bulk property fetch over all VM objects.
type Walker struct {
	provider Provider
	pageSize int32
}

func NewWalker(provider Provider, pageSize int32) *Walker {
	return &Walker{provider: provider, pageSize: pageSize}
}

// ListVMs walks root folder -> datacenters -> host folder -> compute
// resources -> hosts -> VMs depth first, descending through intermediate
// folders on the way. Each VM reference is returned once in traversal order.
// Power state is not known to the walk and is left unknown. VMs deleted
// before their names could be read are dropped.
func (w *Walker) ListVMs(ctx context.Context) ([]InventoryRef, error) {
	seen := map[types.ManagedObjectReference]struct{}{}
	var refs []types.ManagedObjectReference

	var walk func(ref types.ManagedObjectReference) error
	walk = func(ref types.ManagedObjectReference) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if ref.Type == "VirtualMachine" {
			if _, ok := seen[ref]; !ok {
				seen[ref] = struct{}{}
				refs = append(refs, ref)
			}
			return nil
		}
		if !traversable(ref.Type) {
			return nil
		}

		children, err := w.provider.Children(ctx, ref)
		if err != nil {
			return fmt.Errorf("failed to list children of %s %s: %w", ref.Type, ref.Value, err)
		}
		for _, child := range children {
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(w.provider.RootFolder()); err != nil {
		return nil, err
	}

	if len(refs) == 0 {
		return []InventoryRef{}, nil
	}

	names, err := w.provider.EntityNames(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("failed to read vm names: %w", err)
	}

	vms := make([]InventoryRef, 0, len(refs))
	for _, ref := range refs {
		name, ok := names[ref]
		if !ok {
			zap.S().Named("walker").Debugf("vm %s is gone, dropping it from the walk", ref.Value)
			continue
		}
		vms = append(vms, InventoryRef{Ref: ref, Name: name, PowerState: PowerStateUnknown})
	}

	zap.S().Named("walker").Debugf("walked %d vms", len(vms))
	return vms, nil
}

// ListVMNames returns the display names of all walked VMs. Names shared by
// several VMs appear once.
func (w *Walker) ListVMNames(ctx context.Context) (map[string]struct{}, error) {
	vms, err := w.ListVMs(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]struct{}, len(vms))
	for _, vm := range vms {
		names[vm.Name] = struct{}{}
	}
	return names, nil
}

// FetchVMProperties retrieves name and power state of every VM, following
// continuation tokens until the last page. A failure on any page discards
// everything fetched so far.
func (w *Walker) FetchVMProperties(ctx context.Context) ([]InventoryRef, error) {
	page, err := w.provider.RetrieveVMProperties(ctx, vmProperties, w.pageSize)
	if err != nil {
		return nil, &PropertyFetchError{Page: 1, Err: err}
	}
	metrics.IncreasePropertyPagesMetric()

	items := append([]InventoryRef{}, page.Items...)
	for n := 2; page.Token != ""; n++ {
		page, err = w.provider.ContinueVMProperties(ctx, page.Token)
		if err != nil {
			return nil, &PropertyFetchError{Page: n, Err: err}
		}
		metrics.IncreasePropertyPagesMetric()
		items = append(items, page.Items...)
	}

	zap.S().Named("walker").Debugf("fetched properties of %d vms", len(items))
	return items, nil
}

func traversable(kind string) bool {
	switch kind {
	case "Folder", "Datacenter", "ComputeResource", "ClusterComputeResource", "HostSystem":
		return true
	default:
		return false
	}
}
