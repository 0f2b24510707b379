package journal

import (
	"io"
	"os"
	"text/template"
	"time"
)

// RunReport is the data behind the org-mode run report.
type RunReport struct {
	Run    RunRecord
	Latest []ValueRecord
}

var reportFuncs = template.FuncMap{
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
	"hitRate": func(r RunRecord) float64 {
		if r.Hits+r.Computes == 0 {
			return 0
		}
		return 100 * float64(r.Hits) / float64(r.Hits+r.Computes)
	},
}

var reportTmpl = template.Must(template.New("run").Funcs(reportFuncs).Parse(RunOrgTemplate))

// WriteRunReport renders rep as an org-mode entry.
func WriteRunReport(w io.Writer, rep RunReport) error {
	return reportTmpl.Execute(w, rep)
}

// WriteRunReportFile renders rep into path.
func WriteRunReportFile(path string, rep RunReport) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteRunReport(fh, rep); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}

const RunOrgTemplate = `
* RUN: {{if .Run.Name}}{{.Run.Name}}{{else}}(name?){{end}} {{.Run.Algorithm}}
:PROPERTIES:
:RUN_ID:      {{.Run.RunID}}
:ALGORITHM:   {{.Run.Algorithm}}
:DATASET:     {{if .Run.Dataset}}{{.Run.Dataset}}{{else}}(dataset?){{end}}
:START_DATE:  {{.Run.Start.Format "2006-01-02"}}
:END_DATE:    {{.Run.End.Format "2006-01-02"}}
:BARS:        {{.Run.Bars}}
:VALUES:      {{.Run.Values}}
:CREATED:     [{{(orTime .Run.Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Evaluation
| Metric         | Value |
|----------------+-------|
| Cache entries  | {{.Run.Entries}} |
| Computes       | {{.Run.Computes}} |
| Memo hits      | {{.Run.Hits}} |
| Hit rate %     | {{printf "%.2f" (hitRate .Run)}} |
{{- if .Run.Error }}

** Failure
- {{.Run.Error}}
{{- end }}
{{- if .Latest }}

** Latest Values
| Name | Instrument | Bar | Value |
|------+------------+-----+-------|
{{- range .Latest }}
| {{.Name}} | {{.Instrument}} | {{.Bar}} | {{printf "%.6f" .Value}} |
{{- end }}
{{- end }}
`
