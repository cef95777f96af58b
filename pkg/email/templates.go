package email

import (
	"bytes"
	"html/template"
)

// TemplateManager holds the parsed email templates.
type TemplateManager struct {
	ScheduleReadyTmpl *template.Template
}

// NewTemplateManager parses all email templates at startup.
func NewTemplateManager() (*TemplateManager, error) {
	scheduleTmpl, err := template.New("scheduleReady").Parse(scheduleReadyTemplate)
	if err != nil {
		return nil, err
	}

	return &TemplateManager{ScheduleReadyTmpl: scheduleTmpl}, nil
}

// ScheduleData holds the dynamic fields of the schedule-ready email.
type ScheduleData struct {
	SiteName  string
	BlockName string
	Summary   string
}

// GenerateScheduleReadyEmailHTML executes the schedule-ready template.
func (tm *TemplateManager) GenerateScheduleReadyEmailHTML(data ScheduleData) (string, error) {
	var body bytes.Buffer
	if err := tm.ScheduleReadyTmpl.Execute(&body, data); err != nil {
		return "", err
	}
	return body.String(), nil
}

const scheduleReadyTemplate = `
<!DOCTYPE html>
<html>
<head>
	<title>Visiting Schedule Ready</title>
</head>
<body style="font-family: Arial, sans-serif;">
	<h2>Your visiting schedule for {{.SiteName}} is ready</h2>
	<p>The shared service window is <strong>{{.BlockName}}</strong>.</p>
	<p>{{.Summary}}</p>
	<p>Participants can see their assigned slot in the booking page.</p>
</body>
</html>
`
