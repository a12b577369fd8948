package csv

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/kubev2v/vminfo/internal/report/types"
)

type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

func (r *Renderer) SupportedFormat() types.ReportFormat {
	return types.ReportFormatCSV
}

func (r *Renderer) Render(report *types.Report) ([]byte, error) {
	var csvRows [][]string

	csvRows = append(csvRows, []string{"VM UTILIZATION REPORT"})
	csvRows = append(csvRows, []string{fmt.Sprintf("Generated: %s", report.Metadata.GeneratedAt.Format(time.RFC3339))})
	csvRows = append(csvRows, []string{fmt.Sprintf("Endpoint: %s", report.Metadata.Endpoint)})
	csvRows = append(csvRows, []string{fmt.Sprintf("Window: %d days ending %s",
		report.Metadata.WindowDays, report.Metadata.ReferenceTime.Format(time.RFC3339))})
	csvRows = append(csvRows, []string{""})

	csvRows = r.addVMTable(csvRows, report.VMs)
	csvRows = r.addUnmatched(csvRows, report.Metadata.Unmatched)

	return r.convertRowsToCSV(csvRows)
}

func (r *Renderer) addVMTable(csvRows [][]string, vms []types.VMSummary) [][]string {
	csvRows = append(csvRows, types.Columns)
	for _, vm := range vms {
		csvRows = append(csvRows, vm.Cells())
	}
	return csvRows
}

func (r *Renderer) addUnmatched(csvRows [][]string, unmatched []string) [][]string {
	if len(unmatched) == 0 {
		return csvRows
	}
	csvRows = append(csvRows, []string{""})
	csvRows = append(csvRows, []string{fmt.Sprintf("Not reported (%d): %s", len(unmatched), strings.Join(unmatched, ", "))})
	return csvRows
}

func (r *Renderer) convertRowsToCSV(csvRows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	for _, row := range csvRows {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV writer: %w", err)
	}

	return buf.Bytes(), nil
}
