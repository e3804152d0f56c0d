package mailer

import "html/template"

// The templates keep the layout minimal on purpose: transactional mail
// renders more predictably without styling frameworks.
var emailTemplates = template.Must(template.New("emails").Parse(`
{{define "reset_password"}}
<html>
<body>
<p>Hello {{.Username}},</p>
<p>A password reset was requested for your {{.ProjectName}} account.</p>
<p><a href="{{.Link}}">Reset your password</a></p>
<p>The link is valid for {{.Validity}}. If you did not request this, you can ignore this email.</p>
</body>
</html>
{{end}}

{{define "setup_password"}}
<html>
<body>
<p>Hello {{.Username}},</p>
<p>An account was created for you on {{.ProjectName}}.</p>
<p><a href="{{.Link}}">Set up your password</a></p>
<p>The link is valid for {{.Validity}}.</p>
</body>
</html>
{{end}}

{{define "new_account"}}
<html>
<body>
<p>Hello {{.Username}},</p>
<p>Your {{.ProjectName}} account is ready. Use the link below to choose a password and sign in.</p>
<p><a href="{{.Link}}">Set up your password</a></p>
<p>The link is valid for {{.Validity}}.</p>
</body>
</html>
{{end}}
`))

type templateContext struct {
	ProjectName string
	Username    string
	Link        string
	Validity    string
}
