package mail

import (
	"bytes"
	"fmt"
	"html/template"
)

var bodies = template.Must(template.New("mail").Parse(`
{{define "confirm"}}<p>Hello {{.Name}},</p>
<p>Please confirm your account by <a href="{{.Link}}">clicking here</a>.</p>
<p>The link is valid for 24 hours.</p>{{end}}
{{define "reset"}}<p>Hello {{.Name}},</p>
<p>You can reset your password by <a href="{{.Link}}">clicking here</a>.</p>
<p>If you did not ask for this, ignore this message.</p>{{end}}
{{define "code"}}<p>Hello {{.Name}},</p>
<p>Your security code is <strong>{{.Code}}</strong>. It expires in 5 minutes.</p>{{end}}
`))

// Body is the data for the message templates.
type Body struct {
	Name string
	Link string
	Code string
}

// Render executes one of the message templates: confirm, reset or code.
func Render(name string, b Body) (string, error) {
	var buf bytes.Buffer
	if err := bodies.ExecuteTemplate(&buf, name, b); err != nil {
		return "", fmt.Errorf("render mail %s: %w", name, err)
	}
	return buf.String(), nil
}
