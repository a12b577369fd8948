package types

import (
	"time"
)

// UnreachableCPUCount is stored in the cpu count of every summary whose VM
// could not be queried. It keeps "known but unqueryable" apart from a VM
// reporting zero and sorts those rows after every real VM.
const UnreachableCPUCount = 999

type ReportRenderer interface {
	Render(report *Report) ([]byte, error)
	SupportedFormat() ReportFormat
}

type ReportFormat string

const (
	ReportFormatHTML ReportFormat = "html"
	ReportFormatCSV  ReportFormat = "csv"
	ReportFormatXLSX ReportFormat = "xlsx"
	ReportFormatJSON ReportFormat = "json"
	ReportFormatYAML ReportFormat = "yaml"
)

var SupportedFormats = []string{
	string(ReportFormatHTML),
	string(ReportFormatCSV),
	string(ReportFormatXLSX),
	string(ReportFormatJSON),
	string(ReportFormatYAML),
}

type Status string

const (
	StatusOK          Status = "ok"
	StatusUnreachable Status = "unreachable"
)

// UnreachableReason explains why a summary carries no metrics. It is used
// for logging and run metrics only and is never rendered.
type UnreachableReason string

const (
	ReasonNone        UnreachableReason = ""
	ReasonPoweredOff  UnreachableReason = "powered_off"
	ReasonSuspended   UnreachableReason = "suspended"
	ReasonPowerState  UnreachableReason = "unknown_power_state"
	ReasonNoMetrics   UnreachableReason = "empty_metrics"
	ReasonQueryFailed UnreachableReason = "query_failed"
	ReasonConfigRead  UnreachableReason = "config_read_failed"
)

// VMSummary is the per VM record of a report. Optional values are nil when
// absent. Summaries are built once through NewSummary or
// NewUnreachableSummary and are not modified afterwards.
type VMSummary struct {
	Name             string            `json:"name"`
	CPUCount         int               `json:"cpuCount"`
	CPUAvgPercent    *int              `json:"cpuAvgPercent,omitempty"`
	CPUMaxPercent    *int              `json:"cpuMaxPercent,omitempty"`
	MemorySizeMB     *int              `json:"memorySizeMB,omitempty"`
	MemAvgPercent    *int              `json:"memAvgPercent,omitempty"`
	MemMaxPercent    *int              `json:"memMaxPercent,omitempty"`
	RootVolumeFreeMB *int              `json:"rootVolumeFreeMB,omitempty"`
	Status           Status            `json:"status"`
	Reason           UnreachableReason `json:"-"`
}

// Usage is an average/maximum pair expressed in whole percent.
type Usage struct {
	Avg int
	Max int
}

func NewSummary(name string, cpuCount, memorySizeMB int, cpu, mem Usage, rootVolumeFreeMB *int) VMSummary {
	return VMSummary{
		Name:             name,
		CPUCount:         cpuCount,
		CPUAvgPercent:    intPtr(cpu.Avg),
		CPUMaxPercent:    intPtr(cpu.Max),
		MemorySizeMB:     intPtr(memorySizeMB),
		MemAvgPercent:    intPtr(mem.Avg),
		MemMaxPercent:    intPtr(mem.Max),
		RootVolumeFreeMB: copyIntPtr(rootVolumeFreeMB),
		Status:           StatusOK,
	}
}

func NewUnreachableSummary(name string, reason UnreachableReason) VMSummary {
	return VMSummary{
		Name:     name,
		CPUCount: UnreachableCPUCount,
		Status:   StatusUnreachable,
		Reason:   reason,
	}
}

func (s VMSummary) Unreachable() bool {
	return s.Status == StatusUnreachable
}

// Metadata describes the run a report was produced by.
type Metadata struct {
	RunID         string    `json:"runId"`
	Endpoint      string    `json:"endpoint"`
	GeneratedAt   time.Time `json:"generatedAt"`
	ReferenceTime time.Time `json:"referenceTime"`
	WindowDays    int       `json:"windowDays"`
	// Unmatched lists VMs found by the inventory walk that the property
	// fetch did not return.
	Unmatched []string `json:"unmatched,omitempty"`
}

type Report struct {
	Metadata Metadata    `json:"metadata"`
	VMs      []VMSummary `json:"vms"`
}

func intPtr(v int) *int {
	return &v
}

func copyIntPtr(v *int) *int {
	if v == nil {
		return nil
	}
	return intPtr(*v)
}
