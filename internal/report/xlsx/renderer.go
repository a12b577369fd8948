package xlsx

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kubev2v/vminfo/internal/report/types"
)

const (
	vmsSheet = "VMs"
	runSheet = "Run"
)

type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

func (r *Renderer) SupportedFormat() types.ReportFormat {
	return types.ReportFormatXLSX
}

// Render writes one row per VM on the VMs sheet and the run metadata on the
// Run sheet. Absent values are left as empty cells.
func (r *Renderer) Render(report *types.Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), vmsSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := r.writeVMs(f, report.VMs); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(runSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet %s: %w", runSheet, err)
	}
	if err := r.writeRun(f, report.Metadata); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) writeVMs(f *excelize.File, vms []types.VMSummary) error {
	header := make([]any, 0, len(types.Columns))
	for _, c := range types.Columns {
		header = append(header, c)
	}
	if err := f.SetSheetRow(vmsSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	unreachableStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Italic: true, Color: "95A5A6"}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	lastColumn, _ := excelize.ColumnNumberToName(len(types.Columns))
	if err := f.SetCellStyle(vmsSheet, "A1", lastColumn+"1", headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, vm := range vms {
		rowNum := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, rowNum)
		values := rowValues(vm)
		if err := f.SetSheetRow(vmsSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", rowNum, err)
		}
		if vm.Unreachable() {
			end := fmt.Sprintf("%s%d", lastColumn, rowNum)
			if err := f.SetCellStyle(vmsSheet, cell, end, unreachableStyle); err != nil {
				return fmt.Errorf("failed to style row %d: %w", rowNum, err)
			}
		}
	}

	return nil
}

func (r *Renderer) writeRun(f *excelize.File, m types.Metadata) error {
	rows := [][]any{
		{"Run ID", m.RunID},
		{"Endpoint", m.Endpoint},
		{"Generated", m.GeneratedAt.Format(time.RFC3339)},
		{"Reference Time", m.ReferenceTime.Format(time.RFC3339)},
		{"Window (days)", m.WindowDays},
	}
	for _, name := range m.Unmatched {
		rows = append(rows, []any{"Not Reported", name})
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(runSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write run metadata: %w", err)
		}
	}
	return nil
}

// rowValues keeps numbers numeric so the sheet can be sorted and summed.
func rowValues(vm types.VMSummary) []any {
	values := []any{vm.Name, nil}
	if !vm.Unreachable() {
		values[1] = vm.CPUCount
	}
	for _, v := range []*int{vm.CPUAvgPercent, vm.CPUMaxPercent, vm.MemorySizeMB, vm.MemAvgPercent, vm.MemMaxPercent, vm.RootVolumeFreeMB} {
		if v == nil {
			values = append(values, nil)
			continue
		}
		values = append(values, *v)
	}
	return append(values, string(vm.Status))
}
