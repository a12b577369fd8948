package html

const htmlReportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>VM Utilization Report</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; background: #f5f5f5; }
        .container { max-width: 1200px; margin: 0 auto; background: white; padding: 30px; border-radius: 10px; box-shadow: 0 2px 10px rgba(0,0,0,0.1); }
        .header { text-align: center; margin-bottom: 30px; }
        .header h1 { color: #2c3e50; margin-bottom: 10px; }
        .header p { color: #7f8c8d; margin: 4px 0; }
        table { width: 100%; border-collapse: collapse; margin: 20px 0; }
        th, td { padding: 10px 12px; text-align: left; border-bottom: 1px solid #ddd; }
        th { background: #34495e; color: white; font-weight: 600; }
        tr:nth-child(even) { background-color: #f8f9fa; }
        tr.unreachable td { color: #95a5a6; font-style: italic; }
        .footer { color: #7f8c8d; font-size: 0.9em; margin-top: 20px; }
    </style>
</head>
<body>
<div class="container">
    <div class="header">
        <h1>VM Utilization Report</h1>
        <p>{{.Endpoint}} &middot; generated {{.Generated}}</p>
        <p>{{.WindowDays}} day window ending {{.Reference}}</p>
        <p>{{.TotalVMs}} VMs, {{.Unreachable}} unreachable</p>
    </div>
    <table>
        <thead>
            <tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr>
        </thead>
        <tbody>
{{- range .Rows}}
            <tr{{if .Unreachable}} class="unreachable"{{end}}>{{range .Cells}}<td>{{.}}</td>{{end}}</tr>
{{- end}}
        </tbody>
    </table>
{{- if .Unmatched}}
    <div class="footer">
        <p>Found in inventory but not reported:</p>
        <ul>{{range .Unmatched}}<li>{{.}}</li>{{end}}</ul>
    </div>
{{- end}}
    <div class="footer">Run {{.RunID}}</div>
</div>
</body>
</html>
`
