package notify

import (
	"bytes"
	_ "embed"
	"html/template"

	"github.com/Masterminds/sprig/v3"
)

// EscalationMailParams feeds the escalation notice template.
type EscalationMailParams struct {
	TenantName   string
	ProjectName  string
	TaskTitle    string
	TaskKind     string
	DueAt        string
	OverdueHours string
	Role         string
	BrandingName string
}

// ReminderMailParams feeds the due-soon notice template.
type ReminderMailParams struct {
	TenantName   string
	ProjectName  string
	TaskTitle    string
	TaskKind     string
	DueAt        string
	GradeLabel   string
	BrandingName string
}

// DigestRow is one task line inside a digest project group.
type DigestRow struct {
	Title      string
	Kind       string
	DueAt      string
	GradeLabel string
}

// DigestGroup is one project's rollup inside the digest.
type DigestGroup struct {
	ProjectName string
	Rows        []DigestRow
}

// DigestMailParams feeds the periodic digest template.
type DigestMailParams struct {
	TenantName   string
	WindowStart  string
	WindowEnd    string
	Groups       []DigestGroup
	GreenCount   int
	AmberCount   int
	RedCount     int
	BrandingName string
}

var (
	escalationTemplate = template.New("escalation").Funcs(sprig.FuncMap())
	reminderTemplate   = template.New("reminder").Funcs(sprig.FuncMap())
	digestTemplate     = template.New("digest").Funcs(sprig.FuncMap())

	//go:embed templates/escalation.html
	escalationTemplateRaw string
	//go:embed templates/reminder.html
	reminderTemplateRaw string
	//go:embed templates/digest.html
	digestTemplateRaw string
)

func init() {
	if _, err := escalationTemplate.Parse(escalationTemplateRaw); err != nil {
		panic(err)
	}
	if _, err := reminderTemplate.Parse(reminderTemplateRaw); err != nil {
		panic(err)
	}
	if _, err := digestTemplate.Parse(digestTemplateRaw); err != nil {
		panic(err)
	}
}

func render(t *template.Template, p any) (string, error) {
	b := bytes.Buffer{}
	err := t.Execute(&b, p)
	return b.String(), err
}

func RenderEscalation(p EscalationMailParams) (string, error) {
	return render(escalationTemplate, p)
}

func RenderReminder(p ReminderMailParams) (string, error) {
	return render(reminderTemplate, p)
}

func RenderDigest(p DigestMailParams) (string, error) {
	return render(digestTemplate, p)
}
