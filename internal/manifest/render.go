package manifest

import (
	"bytes"
	"encoding/json"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// templateFuncs are added on top of sprig.
var templateFuncs = template.FuncMap{
	"jsonify": jsonify,
}

// jsonify encodes v as compact JSON, handy for env lists and affinity blocks.
func jsonify(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// renderTemplate executes content with data. Any binding the template
// references but data lacks fails the render.
func renderTemplate(name string, content []byte, data map[string]any) (string, error) {
	tmpl, err := template.New(name).
		Option("missingkey=error").
		Funcs(sprig.TxtFuncMap()).
		Funcs(templateFuncs).
		Parse(string(content))
	if err != nil {
		return "", &RenderError{Template: name, Err: err}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", &RenderError{Template: name, Err: err}
	}
	return buf.String(), nil
}
