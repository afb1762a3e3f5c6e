package util

import (
	"bytes"
	"strings"
	"text/template"
)

// RenderTemplate replaces template variables using Go's text/template package.
// This lives in internal to avoid committing to public API stability prematurely.
func RenderTemplate(text string, data map[string]any) (string, error) {
	if !strings.Contains(text, "{{") { // fast path: no template markers
		return text, nil
	}

	tmpl, err := template.New("feedback").Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// SubstituteIdentity replaces the {NAME} and {USER} placeholders used by
// prompt and feedback templates with the configured agent and user names.
func SubstituteIdentity(text, agentName, userName string) string {
	text = strings.ReplaceAll(text, "{NAME}", agentName)
	return strings.ReplaceAll(text, "{USER}", userName)
}
