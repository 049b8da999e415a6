package notify

import (
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"remindd/internal/auth"
	"remindd/internal/task"
)

// Content is a fully rendered email.
type Content struct {
	Subject string
	HTML    string
	Text    string
}

// Renderer produces email content from a task/user/bucket tuple plus the
// site-wide configuration. Deterministic over its inputs.
type Renderer struct {
	SiteName string
	SiteURL  string
}

const projectNotSpecified = "not specified"

type emailView struct {
	SiteName string
	SiteURL  string
	UserName string

	Banner string // headline inside the colored header
	Accent string // header/CTA color
	Lede   string // first paragraph
	Note   string // optional closing hint
	CTA    string // button label
	CTAURL string

	TaskName    string
	ProjectName string
	DueDate     string
	Remaining   string
	Urgency     string
	Priority    string
	Tags        []string

	Rows []viewRow // extra detail rows (events, overdue)
}

type viewRow struct {
	Label string
	Value string
}

var emailHTML = htmltemplate.Must(htmltemplate.New("email").Parse(`<div style="font-family: 'Segoe UI', Tahoma, sans-serif; max-width: 600px; margin: 0 auto;">
  <div style="background: {{.Accent}}; color: white; padding: 20px; border-radius: 8px 8px 0 0;">
    <h2 style="margin: 0; font-size: 22px;">{{.Banner}}</h2>
  </div>
  <div style="background: white; padding: 28px; border-radius: 0 0 8px 8px; box-shadow: 0 4px 6px rgba(0,0,0,0.1);">
    <h3 style="color: #4a5568; margin-top: 0;">Hello {{.UserName}},</h3>
    <p style="color: #4a5568; line-height: 1.6;">{{.Lede}}</p>
{{- if .TaskName}}
    <div style="background: #f7fafc; padding: 18px; border-radius: 8px; margin: 22px 0;">
      <table style="width: 100%; border-collapse: collapse;">
        <tr><td style="padding: 6px 0; color: #4a5568; font-weight: bold; width: 30%;">Task:</td><td style="padding: 6px 0; color: #2d3748;">{{.TaskName}}</td></tr>
        <tr><td style="padding: 6px 0; color: #4a5568; font-weight: bold;">Project:</td><td style="padding: 6px 0; color: #2d3748;">{{.ProjectName}}</td></tr>
{{- if .DueDate}}
        <tr><td style="padding: 6px 0; color: #4a5568; font-weight: bold;">Due:</td><td style="padding: 6px 0; color: #e53e3e; font-weight: bold;">{{.DueDate}}</td></tr>
{{- end}}
{{- if .Remaining}}
        <tr><td style="padding: 6px 0; color: #4a5568; font-weight: bold;">Remaining:</td><td style="padding: 6px 0; color: #d69e2e; font-weight: bold;">{{.Remaining}}</td></tr>
{{- end}}
{{- if .Urgency}}
        <tr><td style="padding: 6px 0; color: #4a5568; font-weight: bold;">Urgency:</td><td style="padding: 6px 0; color: #2d3748;">{{.Urgency}}</td></tr>
{{- end}}
{{- if .Priority}}
        <tr><td style="padding: 6px 0; color: #4a5568; font-weight: bold;">Priority:</td><td style="padding: 6px 0; color: #2d3748;">{{.Priority}}</td></tr>
{{- end}}
{{- range .Rows}}
        <tr><td style="padding: 6px 0; color: #4a5568; font-weight: bold;">{{.Label}}:</td><td style="padding: 6px 0; color: #2d3748;">{{.Value}}</td></tr>
{{- end}}
{{- if .Tags}}
        <tr><td style="padding: 6px 0; color: #4a5568; font-weight: bold;">Labels:</td><td style="padding: 6px 0; color: #2d3748;">{{range $i, $t := .Tags}}{{if $i}}, {{end}}{{$t}}{{end}}</td></tr>
{{- end}}
      </table>
    </div>
{{- end}}
{{- if .CTA}}
    <div style="text-align: center; margin: 28px 0;">
      <a href="{{.CTAURL}}" style="background: {{.Accent}}; color: white; padding: 14px 28px; text-decoration: none; border-radius: 24px; font-weight: bold; display: inline-block;">{{.CTA}}</a>
    </div>
{{- end}}
{{- if .Note}}
    <p style="color: #718096;">{{.Note}}</p>
{{- end}}
    <hr style="border: none; border-top: 1px solid #e2e8f0; margin: 26px 0;">
    <p style="color: #718096; font-size: 13px; text-align: center;">
      Regards, the {{.SiteName}} team<br>
      <small>This is an automated notification; please do not reply.</small>
    </p>
  </div>
</div>
`))

var emailText = texttemplate.Must(texttemplate.New("email").Parse(`Hello {{.UserName}},

{{.Banner}}

{{.Lede}}
{{if .TaskName}}
Task details:
- Task: {{.TaskName}}
- Project: {{.ProjectName}}
{{- if .DueDate}}
- Due: {{.DueDate}}
{{- end}}
{{- if .Remaining}}
- Remaining: {{.Remaining}}
{{- end}}
{{- if .Urgency}}
- Urgency: {{.Urgency}}
{{- end}}
{{- if .Priority}}
- Priority: {{.Priority}}
{{- end}}
{{- range .Rows}}
- {{.Label}}: {{.Value}}
{{- end}}
{{- if .Tags}}
- Labels: {{range $i, $t := .Tags}}{{if $i}}, {{end}}{{$t}}{{end}}
{{- end}}
{{end}}
{{- if .CTA}}
{{.CTA}}: {{.CTAURL}}
{{end}}
{{- if .Note}}
{{.Note}}
{{end}}
Regards, the {{.SiteName}} team
---
This is an automated notification; please do not reply.
`))

func (r *Renderer) render(subject string, v emailView) (Content, error) {
	v.SiteName = r.SiteName
	v.SiteURL = r.SiteURL

	var html, text strings.Builder
	if err := emailHTML.Execute(&html, v); err != nil {
		return Content{}, fmt.Errorf("render html: %w", err)
	}
	if err := emailText.Execute(&text, v); err != nil {
		return Content{}, fmt.Errorf("render text: %w", err)
	}
	return Content{Subject: subject, HTML: html.String(), Text: text.String()}, nil
}

func (r *Renderer) taskView(t *task.Task, u *auth.User) emailView {
	v := emailView{
		UserName:    u.Name,
		TaskName:    t.Name,
		ProjectName: projectNotSpecified,
		Priority:    t.Priority,
		Tags:        t.Tags,
		CTAURL:      fmt.Sprintf("%s/tasks/%d/", r.SiteURL, t.ID),
	}
	if v.UserName == "" {
		v.UserName = u.Email
	}
	if t.Project != nil {
		v.ProjectName = t.Project.Name
	}
	if t.DueDate != nil {
		v.DueDate = t.DueDate.Format("Monday, 02 January 2006")
	}
	return v
}

func urgencyLabel(days int) string {
	switch {
	case days <= 0:
		return "critical"
	case days == 1:
		return "urgent"
	case days <= 3:
		return "important"
	}
	return "normal"
}

func remainingLabel(days int) string {
	switch {
	case days <= 0:
		return "due today"
	case days == 1:
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

// Reminder renders the bucket-specific deadline reminder. Unknown buckets
// fall back to a generic reminder template.
func (r *Renderer) Reminder(t *task.Task, u *auth.User, b Bucket, days int) (Content, error) {
	v := r.taskView(t, u)
	v.Urgency = urgencyLabel(days)
	v.Remaining = remainingLabel(days)

	var subject string
	switch b {
	case BucketThreeDays:
		subject = fmt.Sprintf("Reminder: %q is due in %d days", t.Name, days)
		v.Banner = fmt.Sprintf("Task due in %d days", days)
		v.Accent = "#667eea"
		v.Lede = fmt.Sprintf("A friendly reminder that one of your tasks is due in %d days. There is still time to finish it well.", days)
		v.CTA = "View the task"
		v.Note = "Tip: breaking the task into smaller steps makes the deadline easier to hit."
	case BucketOneDay:
		subject = fmt.Sprintf("Heads up: %q is due tomorrow", t.Name)
		v.Banner = "Task due tomorrow"
		v.Accent = "#ed8936"
		v.Lede = "This is an urgent reminder: one of your tasks is due tomorrow (within 24 hours). Please make sure it is finished on time."
		v.CTA = "View the task now"
		v.Note = "Please finish this task today to avoid a delay."
	case BucketSameDay:
		subject = fmt.Sprintf("Urgent: %q is due today", t.Name)
		v.Banner = "Task due today"
		v.Accent = "#e53e3e"
		v.Lede = "Urgent: this task is due today and needs to be completed before the end of the day."
		v.CTA = "Finish the task now"
		v.Note = "Need help? Reach out to your supervisor or the support team."
	case BucketHighPriority:
		subject = fmt.Sprintf("High priority: %q needs attention", t.Name)
		v.Banner = "High priority task"
		v.Accent = "#c53030"
		v.Lede = fmt.Sprintf("This task is marked high priority and is due soon (%s remaining). It needs special attention.", remainingLabel(days))
		v.CTA = "Work on the task"
		v.Note = "High priority tasks have an outsized impact on project outcomes."
	default:
		subject = fmt.Sprintf("Task reminder: %q", t.Name)
		v.Banner = "Task reminder"
		v.Accent = "#4a5568"
		v.Lede = "This is a reminder about one of your tasks."
		v.CTA = "View the task"
	}

	return r.render(subject, v)
}

// Assigned renders the notification sent to a new assignee.
func (r *Renderer) Assigned(t *task.Task, assignee, assigner *auth.User) (Content, error) {
	v := r.taskView(t, assignee)
	v.Banner = "New task assigned to you"
	v.Accent = "#3182ce"
	v.Lede = fmt.Sprintf("%s assigned a new task to you.", displayName(assigner))
	v.CTA = "View the task"
	v.Rows = []viewRow{{Label: "Assigned by", Value: displayName(assigner)}}
	return r.render(fmt.Sprintf("New task assigned: %q", t.Name), v)
}

// Completed renders the notification sent to the task creator when someone
// else finishes the task.
func (r *Renderer) Completed(t *task.Task, creator, completer *auth.User, when time.Time) (Content, error) {
	v := r.taskView(t, creator)
	v.Banner = "Task completed"
	v.Accent = "#38a169"
	v.Lede = fmt.Sprintf("%s completed a task you created.", displayName(completer))
	v.CTA = "View the task"
	v.Rows = []viewRow{
		{Label: "Completed by", Value: displayName(completer)},
		{Label: "Completed at", Value: when.Format("2006-01-02 15:04")},
	}
	return r.render(fmt.Sprintf("Task completed: %q", t.Name), v)
}

// Overdue renders the late-task notification.
func (r *Renderer) Overdue(t *task.Task, u *auth.User, daysOverdue int) (Content, error) {
	v := r.taskView(t, u)
	v.Banner = "Task overdue"
	v.Accent = "#9b2c2c"
	v.Lede = "One of your tasks is past its due date and still open."
	v.CTA = "View the task"
	v.Rows = []viewRow{{Label: "Days overdue", Value: fmt.Sprintf("%d", daysOverdue)}}
	return r.render(fmt.Sprintf("Overdue: %q", t.Name), v)
}

// Welcome renders the greeting sent on registration.
func (r *Renderer) Welcome(u *auth.User) (Content, error) {
	v := emailView{
		UserName: displayName(u),
		Banner:   fmt.Sprintf("Welcome to %s", r.SiteName),
		Accent:   "#667eea",
		Lede:     "Your account is ready. You will receive task deadline reminders and activity notifications here; both can be tuned in your notification preferences.",
		CTA:      "Open " + r.SiteName,
		CTAURL:   r.SiteURL,
	}
	return r.render(fmt.Sprintf("Welcome to %s", r.SiteName), v)
}

type digestSection struct {
	Title string
	Tasks []digestRow
}

type digestRow struct {
	Name     string
	Project  string
	Due      string
	Priority string
	URL      string
}

type digestView struct {
	SiteName string
	SiteURL  string
	UserName string
	Date     string
	Total    int
	Sections []digestSection
}

var digestHTML = htmltemplate.Must(htmltemplate.New("digest").Parse(`<div style="font-family: 'Segoe UI', Tahoma, sans-serif; max-width: 640px; margin: 0 auto;">
  <div style="background: #667eea; color: white; padding: 20px; border-radius: 8px 8px 0 0;">
    <h2 style="margin: 0; font-size: 22px;">Your daily task digest</h2>
    <p style="margin: 6px 0 0; opacity: 0.85;">{{.Date}}</p>
  </div>
  <div style="background: white; padding: 28px; border-radius: 0 0 8px 8px; box-shadow: 0 4px 6px rgba(0,0,0,0.1);">
    <h3 style="color: #4a5568; margin-top: 0;">Hello {{.UserName}},</h3>
    <p style="color: #4a5568;">You have {{.Total}} open tasks on your plate. Here is where they stand:</p>
{{- range .Sections}}
{{- if .Tasks}}
    <h4 style="color: #2d3748; border-bottom: 1px solid #e2e8f0; padding-bottom: 6px;">{{.Title}} ({{len .Tasks}})</h4>
    <ul style="color: #4a5568; line-height: 1.8; padding-left: 20px;">
{{- range .Tasks}}
      <li><a href="{{.URL}}" style="color: #667eea; text-decoration: none; font-weight: bold;">{{.Name}}</a> ({{.Project}}{{if .Due}}, due {{.Due}}{{end}}{{if .Priority}}, {{.Priority}} priority{{end}})</li>
{{- end}}
    </ul>
{{- end}}
{{- end}}
    <hr style="border: none; border-top: 1px solid #e2e8f0; margin: 26px 0;">
    <p style="color: #718096; font-size: 13px; text-align: center;">
      Regards, the {{.SiteName}} team<br>
      <small>Digests can be turned off in your notification preferences.</small>
    </p>
  </div>
</div>
`))

var digestText = texttemplate.Must(texttemplate.New("digest").Parse(`Hello {{.UserName}},

Your daily task digest for {{.Date}}. You have {{.Total}} open tasks.
{{range .Sections}}{{if .Tasks}}
{{.Title}} ({{len .Tasks}}):
{{- range .Tasks}}
- {{.Name}} ({{.Project}}{{if .Due}}, due {{.Due}}{{end}}{{if .Priority}}, {{.Priority}} priority{{end}})
  {{.URL}}
{{- end}}
{{end}}{{end}}
Regards, the {{.SiteName}} team
---
Digests can be turned off in your notification preferences.
`))

func (r *Renderer) digestRows(tasks []task.Task) []digestRow {
	rows := make([]digestRow, 0, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		row := digestRow{
			Name:    t.Name,
			Project: projectNotSpecified,
			URL:     fmt.Sprintf("%s/tasks/%d/", r.SiteURL, t.ID),
		}
		if t.Project != nil {
			row.Project = t.Project.Name
		}
		if t.DueDate != nil {
			row.Due = t.DueDate.Format("02 Jan")
		}
		if t.Priority == task.PriorityHigh || t.Priority == task.PriorityUrgent {
			row.Priority = t.Priority
		}
		rows = append(rows, row)
	}
	return rows
}

// Digest renders the daily summary email from a per-user task snapshot.
func (r *Renderer) Digest(u *auth.User, data DigestData, now time.Time) (Content, error) {
	v := digestView{
		SiteName: r.SiteName,
		SiteURL:  r.SiteURL,
		UserName: displayName(u),
		Date:     now.Format("Monday, 02 January 2006"),
		Total: len(data.DueToday) + len(data.Overdue) +
			len(data.AssignedOpen) + len(data.CreatedOpen),
		Sections: []digestSection{
			{Title: "Overdue", Tasks: r.digestRows(data.Overdue)},
			{Title: "Due today", Tasks: r.digestRows(data.DueToday)},
			{Title: "Assigned to you", Tasks: r.digestRows(data.AssignedOpen)},
			{Title: "Created by you", Tasks: r.digestRows(data.CreatedOpen)},
		},
	}

	var html, text strings.Builder
	if err := digestHTML.Execute(&html, v); err != nil {
		return Content{}, fmt.Errorf("render digest html: %w", err)
	}
	if err := digestText.Execute(&text, v); err != nil {
		return Content{}, fmt.Errorf("render digest text: %w", err)
	}
	subject := fmt.Sprintf("Daily digest: %d open tasks", v.Total)
	return Content{Subject: subject, HTML: html.String(), Text: text.String()}, nil
}

func displayName(u *auth.User) string {
	if u == nil {
		return "someone"
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
