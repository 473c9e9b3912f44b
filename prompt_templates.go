package skillet

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/deepnoodle-ai/skillet/skill"
)

var (
	selectionPromptTemplate  *template.Template
	extractionPromptTemplate *template.Template
)

func init() {
	var err error
	selectionPromptTemplate, err = parseTemplate("selection_prompt", selectionPromptText)
	if err != nil {
		panic(err)
	}
	extractionPromptTemplate, err = parseTemplate("extraction_prompt", extractionPromptText)
	if err != nil {
		panic(err)
	}
}

func executeTemplate(tmpl *template.Template, input any) (string, error) {
	var buffer bytes.Buffer
	if err := tmpl.Execute(&buffer, input); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}
	return buffer.String(), nil
}

func parseTemplate(name string, text string) (*template.Template, error) {
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return nil, err
	}
	return tmpl, nil
}

type selectionPromptData struct {
	Name        string
	Description string
	Examples    []string
	Utterance   string
}

type extractionPromptData struct {
	Skill       string
	Name        string
	Type        skill.ParamType
	Description string
	Required    bool
	Utterance   string
	NotFound    string
}

var selectionPromptText = `You are deciding whether a tool should be used to respond to a user's message.

Tool: {{ .Name }}
Use this tool: {{ .Description }}
{{- if .Examples }}

Example messages where this tool applies:
{{- range .Examples }}
- "{{ . }}"
{{- end }}
{{- end }}

User message: "{{ .Utterance }}"

Should this tool be used for the user message? Answer only 'yes' or 'no'.`

var extractionPromptText = `Extract the value of one parameter for the tool "{{ .Skill }}" from the user's message.

Parameter: {{ .Name }}
Type: {{ .Type }}
{{- if .Description }}
Description: {{ .Description }}
{{- end }}

User message: "{{ .Utterance }}"

Respond with only the value and nothing else.
{{- if eq .Type "number" }} The value must be a number.{{ end }}
{{- if eq .Type "boolean" }} The value must be true or false.{{ end }}
If the message does not contain a value for this parameter, respond with {{ .NotFound }}.`
