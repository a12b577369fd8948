package vsphere

import (
	"context"

	"github.com/pkg/errors"
	"github.com/vmware/govmomi/view"
	"github.com/vmware/govmomi/vim25/methods"
	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/types"
	"go.uber.org/zap"

	"github.com/kubev2v/vminfo/internal/collector"
)

func (c *Client) RootFolder() types.ManagedObjectReference {
	return c.vim.ServiceContent.RootFolder
}

// Children returns the next level of the compute hierarchy below parent:
// folder entries, the host folder of a datacenter, the hosts of a compute
// resource or the VMs of a host.
func (c *Client) Children(ctx context.Context, parent types.ManagedObjectReference) ([]types.ManagedObjectReference, error) {
	switch parent.Type {
	case "Folder":
		var f mo.Folder
		if err := c.pc.RetrieveOne(ctx, parent, []string{"childEntity"}, &f); err != nil {
			return nil, errors.Wrapf(err, "failed to read folder %s", parent.Value)
		}
		return f.ChildEntity, nil
	case "Datacenter":
		var dc mo.Datacenter
		if err := c.pc.RetrieveOne(ctx, parent, []string{"hostFolder"}, &dc); err != nil {
			return nil, errors.Wrapf(err, "failed to read datacenter %s", parent.Value)
		}
		return []types.ManagedObjectReference{dc.HostFolder}, nil
	case "ClusterComputeResource":
		var cluster mo.ClusterComputeResource
		if err := c.pc.RetrieveOne(ctx, parent, []string{"host"}, &cluster); err != nil {
			return nil, errors.Wrapf(err, "failed to read cluster %s", parent.Value)
		}
		return cluster.Host, nil
	case "ComputeResource":
		var cr mo.ComputeResource
		if err := c.pc.RetrieveOne(ctx, parent, []string{"host"}, &cr); err != nil {
			return nil, errors.Wrapf(err, "failed to read compute resource %s", parent.Value)
		}
		return cr.Host, nil
	case "HostSystem":
		var host mo.HostSystem
		if err := c.pc.RetrieveOne(ctx, parent, []string{"vm"}, &host); err != nil {
			return nil, errors.Wrapf(err, "failed to read host %s", parent.Value)
		}
		return host.Vm, nil
	default:
		return nil, nil
	}
}

// EntityNames reads the name of every ref. VMs deleted since they were
// walked are left out of the result instead of failing the read.
func (c *Client) EntityNames(ctx context.Context, refs []types.ManagedObjectReference) (map[types.ManagedObjectReference]string, error) {
	names := make(map[types.ManagedObjectReference]string, len(refs))
	if len(refs) == 0 {
		return names, nil
	}

	objects := make([]types.ObjectSpec, 0, len(refs))
	for _, ref := range refs {
		objects = append(objects, types.ObjectSpec{Obj: ref})
	}
	req := types.RetrievePropertiesEx{
		This: c.pc.Reference(),
		SpecSet: []types.PropertyFilterSpec{{
			ObjectSet:                     objects,
			PropSet:                       []types.PropertySpec{{Type: "VirtualMachine", PathSet: []string{"name"}}},
			ReportMissingObjectsInResults: types.NewBool(true),
		}},
	}

	res, err := methods.RetrievePropertiesEx(ctx, c.vim, &req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read vm names")
	}
	if res.Returnval == nil {
		return names, nil
	}
	collectNames(res.Returnval.Objects, names)

	for token := res.Returnval.Token; token != ""; {
		next, err := methods.ContinueRetrievePropertiesEx(ctx, c.vim, &types.ContinueRetrievePropertiesEx{This: c.pc.Reference(), Token: token})
		if err != nil {
			return nil, errors.Wrap(err, "failed to continue vm name retrieval")
		}
		collectNames(next.Returnval.Objects, names)
		token = next.Returnval.Token
	}

	if missing := len(refs) - len(names); missing > 0 {
		zap.S().Named("vsphere").Debugf("%d vms disappeared before their names were read", missing)
	}
	return names, nil
}

// collectNames records the name of each object. Objects reported with a
// missing set, such as ManagedObjectNotFound for a deleted VM, are skipped.
func collectNames(objects []types.ObjectContent, names map[types.ManagedObjectReference]string) {
	for _, oc := range objects {
		if len(oc.MissingSet) > 0 {
			continue
		}
		for _, prop := range oc.PropSet {
			if prop.Name != "name" {
				continue
			}
			if name, ok := prop.Val.(string); ok {
				names[oc.Obj] = name
			}
		}
	}
}

// RetrieveVMProperties opens a container view over every VM and returns the
// first page of the requested properties. The view lives until the last
// page has been read or a call fails.
func (c *Client) RetrieveVMProperties(ctx context.Context, properties []string, maxObjects int32) (collector.PropertyPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.view == nil {
		v, err := view.NewManager(c.vim).CreateContainerView(ctx, c.vim.ServiceContent.RootFolder, []string{"VirtualMachine"}, true)
		if err != nil {
			return collector.PropertyPage{}, errors.Wrap(err, "failed to create vm container view")
		}
		c.view = v
	}

	req := types.RetrievePropertiesEx{
		This: c.pc.Reference(),
		SpecSet: []types.PropertyFilterSpec{{
			ObjectSet: []types.ObjectSpec{{
				Obj:  c.view.Reference(),
				Skip: types.NewBool(true),
				SelectSet: []types.BaseSelectionSpec{
					&types.TraversalSpec{Type: "ContainerView", Path: "view"},
				},
			}},
			PropSet: []types.PropertySpec{{Type: "VirtualMachine", PathSet: properties}},
		}},
		Options: types.RetrieveOptions{MaxObjects: maxObjects},
	}

	res, err := methods.RetrievePropertiesEx(ctx, c.vim, &req)
	if err != nil {
		c.destroyViewLocked(ctx)
		return collector.PropertyPage{}, errors.Wrap(err, "failed to retrieve vm properties")
	}
	if res.Returnval == nil {
		c.destroyViewLocked(ctx)
		return collector.PropertyPage{}, nil
	}

	return c.page(ctx, res.Returnval.Objects, res.Returnval.Token), nil
}

func (c *Client) ContinueVMProperties(ctx context.Context, token string) (collector.PropertyPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	req := types.ContinueRetrievePropertiesEx{This: c.pc.Reference(), Token: token}
	res, err := methods.ContinueRetrievePropertiesEx(ctx, c.vim, &req)
	if err != nil {
		c.destroyViewLocked(ctx)
		return collector.PropertyPage{}, errors.Wrap(err, "failed to continue vm property retrieval")
	}

	return c.page(ctx, res.Returnval.Objects, res.Returnval.Token), nil
}

func (c *Client) page(ctx context.Context, objects []types.ObjectContent, token string) collector.PropertyPage {
	if token == "" {
		c.destroyViewLocked(ctx)
	}
	return collector.PropertyPage{Items: toInventoryRefs(objects), Token: token}
}

func toInventoryRefs(objects []types.ObjectContent) []collector.InventoryRef {
	refs := make([]collector.InventoryRef, 0, len(objects))
	for _, oc := range objects {
		ref := collector.InventoryRef{Ref: oc.Obj, PowerState: collector.PowerStateUnknown}
		for _, prop := range oc.PropSet {
			switch prop.Name {
			case "name":
				ref.Name, _ = prop.Val.(string)
			case "runtime.powerState":
				if state, ok := prop.Val.(types.VirtualMachinePowerState); ok {
					ref.PowerState = collector.ParsePowerState(string(state))
				}
			}
		}
		refs = append(refs, ref)
	}
	return refs
}

func (c *Client) destroyView(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.destroyViewLocked(ctx)
}

func (c *Client) destroyViewLocked(ctx context.Context) {
	if c.view == nil {
		return
	}
	if err := c.view.Destroy(context.WithoutCancel(ctx)); err != nil {
		zap.S().Named("vsphere").Warnf("failed to destroy container view: %v", err)
	}
	c.view = nil
}
