package report

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/ibeckermayer/naverpost/internal/types"
)

// Builder renders run reports for mail and the artifact cache
type Builder struct {
	template *template.Template
	location *time.Location
}

// New creates a new report builder. Times are shown in loc; nil means UTC.
func New(loc *time.Location) (*Builder, error) {
	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"status": status,
	}).Parse(defaultTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	if loc == nil {
		loc = time.UTC
	}

	return &Builder{
		template: tmpl,
		location: loc,
	}, nil
}

// Report represents a rendered run report ready for sending
type Report struct {
	Subject   string
	HTMLBody  string
	PlainBody string
	RunID     string
}

// ReportData is the template data structure
type ReportData struct {
	Title      string
	RunID      string
	Started    string
	Duration   string
	Success    bool
	FailedStep string
	FinalURL   string
	Steps      []StepData
}

// StepData represents one step row in the report
type StepData struct {
	Name     string
	OK       bool
	Error    string
	Duration string
}

// Build renders r
func (b *Builder) Build(r *types.RunReport) (*Report, error) {
	if r == nil {
		return nil, fmt.Errorf("no run to report")
	}

	data := ReportData{
		Title:      r.Title,
		RunID:      r.ID,
		Started:    r.StartedAt.In(b.location).Format("2006-01-02 15:04:05 MST"),
		Duration:   r.Duration().Round(time.Millisecond).String(),
		Success:    r.Success,
		FailedStep: string(r.FailedStep),
		FinalURL:   r.FinalURL,
		Steps:      make([]StepData, len(r.Steps)),
	}
	for i, s := range r.Steps {
		data.Steps[i] = StepData{
			Name:     string(s.Step),
			OK:       s.OK,
			Error:    s.Error,
			Duration: s.Duration.Round(time.Millisecond).String(),
		}
	}

	var htmlBuf bytes.Buffer
	if err := b.template.Execute(&htmlBuf, data); err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}

	return &Report{
		Subject:   subject(data, r.StartedAt.In(b.location)),
		HTMLBody:  htmlBuf.String(),
		PlainBody: buildPlainText(data),
		RunID:     r.ID,
	}, nil
}

func status(ok bool) string {
	if ok {
		return "OK"
	}
	return "FAILED"
}

func subject(data ReportData, started time.Time) string {
	if data.Success {
		return fmt.Sprintf("Blog post saved - %q, %s", data.Title, started.Format("Jan 2 15:04"))
	}
	return fmt.Sprintf("Blog post failed at %s - %q, %s", data.FailedStep, data.Title, started.Format("Jan 2 15:04"))
}

func buildPlainText(data ReportData) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\nrun %s, started %s, took %s\n\n", data.Title, data.RunID, data.Started, data.Duration)

	for i, s := range data.Steps {
		fmt.Fprintf(&buf, "%d. %-20s %-6s %s\n", i+1, s.Name, status(s.OK), s.Duration)
		if s.Error != "" {
			fmt.Fprintf(&buf, "   %s\n", s.Error)
		}
	}

	buf.WriteString("\n")
	if data.Success {
		buf.WriteString("Result: saved\n")
	} else {
		fmt.Fprintf(&buf, "Result: failed at %s\n", data.FailedStep)
	}
	if data.FinalURL != "" {
		fmt.Fprintf(&buf, "Last URL: %s\n", data.FinalURL)
	}

	return buf.String()
}

const defaultTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background: #f5f5f5; }
        .container { background: white; border-radius: 8px; padding: 20px; }
        h1 { color: #03c75a; margin-bottom: 5px; }
        .meta { color: #666; margin-bottom: 20px; }
        table { width: 100%; border-collapse: collapse; }
        td { border-bottom: 1px solid #eee; padding: 8px 4px; }
        .ok { color: #03c75a; font-weight: bold; }
        .failed { color: #d93025; font-weight: bold; }
        .error { color: #d93025; font-size: 13px; }
        .link { color: #03c75a; text-decoration: none; }
        .footer { margin-top: 20px; padding-top: 15px; border-top: 1px solid #eee; color: #999; font-size: 12px; text-align: center; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <div class="meta">Run {{.RunID}} · {{.Started}} · {{.Duration}}</div>

        <table>
        {{range .Steps}}
            <tr>
                <td>{{.Name}}</td>
                <td class="{{if .OK}}ok{{else}}failed{{end}}">{{status .OK}}</td>
                <td>{{.Duration}}</td>
            </tr>
            {{if .Error}}<tr><td colspan="3" class="error">{{.Error}}</td></tr>{{end}}
        {{end}}
        </table>

        <p>{{if .Success}}<span class="ok">Saved</span>{{else}}<span class="failed">Failed at {{.FailedStep}}</span>{{end}}</p>
        {{if .FinalURL}}<a href="{{.FinalURL}}" class="link">Last page →</a>{{end}}

        <div class="footer">Generated by naverpost</div>
    </div>
</body>
</html>`
