package types

import (
	"strconv"
)

// Columns is the header row shared by the tabular renderers.
var Columns = []string{
	"Name",
	"vCPUs",
	"CPU Avg %",
	"CPU Max %",
	"Memory (MB)",
	"Memory Avg %",
	"Memory Max %",
	"Root Volume Free (MB)",
	"Status",
}

// Cells returns the row of s aligned with Columns. Absent values are empty
// and the cpu count of an unreachable VM is left out.
func (s VMSummary) Cells() []string {
	cpuCount := strconv.Itoa(s.CPUCount)
	if s.Unreachable() {
		cpuCount = ""
	}
	return []string{
		s.Name,
		cpuCount,
		optional(s.CPUAvgPercent),
		optional(s.CPUMaxPercent),
		optional(s.MemorySizeMB),
		optional(s.MemAvgPercent),
		optional(s.MemMaxPercent),
		optional(s.RootVolumeFreeMB),
		string(s.Status),
	}
}

func optional(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
