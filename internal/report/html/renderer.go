package html

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/kubev2v/vminfo/internal/report/types"
)

type Renderer struct {
	tmpl *template.Template
}

type templateData struct {
	Columns     []string
	Rows        []row
	Endpoint    string
	RunID       string
	Generated   string
	Reference   string
	WindowDays  int
	TotalVMs    int
	Unreachable int
	Unmatched   []string
}

type row struct {
	Cells       []string
	Unreachable bool
}

func NewRenderer() *Renderer {
	return &Renderer{tmpl: template.Must(template.New("report").Parse(htmlReportTemplate))}
}

func (r *Renderer) SupportedFormat() types.ReportFormat {
	return types.ReportFormatHTML
}

func (r *Renderer) Render(report *types.Report) ([]byte, error) {
	data := templateData{
		Columns:    types.Columns,
		Rows:       make([]row, 0, len(report.VMs)),
		Endpoint:   report.Metadata.Endpoint,
		RunID:      report.Metadata.RunID,
		Generated:  report.Metadata.GeneratedAt.Format(time.RFC3339),
		Reference:  report.Metadata.ReferenceTime.Format(time.RFC3339),
		WindowDays: report.Metadata.WindowDays,
		TotalVMs:   len(report.VMs),
		Unmatched:  report.Metadata.Unmatched,
	}
	for _, vm := range report.VMs {
		if vm.Unreachable() {
			data.Unreachable++
		}
		data.Rows = append(data.Rows, row{Cells: vm.Cells(), Unreachable: vm.Unreachable()})
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute HTML template: %w", err)
	}

	return buf.Bytes(), nil
}
