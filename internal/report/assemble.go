package report

import (
	"cmp"
	"slices"

	"github.com/kubev2v/vminfo/internal/report/types"
)

// Assemble orders the summaries by cpu count, keeping discovery order for
// equal counts. The input slice is left untouched.
func Assemble(summaries []types.VMSummary, metadata types.Metadata) *types.Report {
	vms := slices.Clone(summaries)
	if vms == nil {
		vms = []types.VMSummary{}
	}
	slices.SortStableFunc(vms, func(a, b types.VMSummary) int {
		return cmp.Compare(a.CPUCount, b.CPUCount)
	})

	metadata.Unmatched = slices.Clone(metadata.Unmatched)

	return &types.Report{
		Metadata: metadata,
		VMs:      vms,
	}
}
