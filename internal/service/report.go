package service

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kubev2v/vminfo/internal/collector"
	"github.com/kubev2v/vminfo/internal/fileio"
	"github.com/kubev2v/vminfo/internal/report"
	"github.com/kubev2v/vminfo/internal/report/csv"
	"github.com/kubev2v/vminfo/internal/report/html"
	"github.com/kubev2v/vminfo/internal/report/structured"
	"github.com/kubev2v/vminfo/internal/report/types"
	"github.com/kubev2v/vminfo/internal/report/xlsx"
)

type ReportRenderer = types.ReportRenderer
type ReportFormat = types.ReportFormat

type ReportService struct {
	renderers map[types.ReportFormat]types.ReportRenderer
	writer    *fileio.Writer
}

func NewReportService(writer *fileio.Writer) *ReportService {
	service := &ReportService{
		renderers: make(map[types.ReportFormat]types.ReportRenderer),
		writer:    writer,
	}

	for _, r := range []types.ReportRenderer{
		html.NewRenderer(),
		csv.NewRenderer(),
		xlsx.NewRenderer(),
		structured.NewJSONRenderer(),
		structured.NewYAMLRenderer(),
	} {
		service.renderers[r.SupportedFormat()] = r
	}

	return service
}

// BuildReport assembles the sorted report of a completed run.
func (r *ReportService) BuildReport(results *collector.Results, endpoint string) *types.Report {
	return report.Assemble(results.Summaries(), types.Metadata{
		RunID:         results.RunID,
		Endpoint:      endpoint,
		GeneratedAt:   time.Now().UTC(),
		ReferenceTime: results.ReferenceTime,
		WindowDays:    results.WindowDays,
		Unmatched:     results.Unmatched,
	})
}

func (r *ReportService) GenerateReport(rep *types.Report, format types.ReportFormat) ([]byte, error) {
	renderer, exists := r.renderers[format]
	if !exists {
		return nil, fmt.Errorf("unsupported report format: %s", format)
	}

	return renderer.Render(rep)
}

// WriteReport renders rep and stores it at path, "-" meaning standard output.
func (r *ReportService) WriteReport(rep *types.Report, format types.ReportFormat, path string) error {
	data, err := r.GenerateReport(rep, format)
	if err != nil {
		return err
	}

	if err := r.writer.WriteFile(path, data); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}

	if path != fileio.StdoutPath {
		zap.S().Named("report").Infof("report written to %s (%d vms, %s)", r.writer.PathFor(path), len(rep.VMs), format)
	}
	return nil
}

// DefaultOutputPath is the file name used when no output is given.
func DefaultOutputPath(format types.ReportFormat) string {
	return "output." + string(format)
}
