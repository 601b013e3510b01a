package platform

import (
	"bytes"
	"fmt"
	"text/template"
)

// RenderString procesa un template que es STRING.
// Sirve para paths tipo:
//
//	"/wp-json/sos/v1/plugins/{{ .slug }}/deactivate"
func RenderString(tpl string, params map[string]string) (string, error) {
	if params == nil {
		return tpl, nil
	}

	t, err := template.New("tpl").
		Option("missingkey=default").
		Parse(tpl)
	if err != nil {
		return "", fmt.Errorf("parse string template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, params); err != nil {
		return "", fmt.Errorf("execute string template: %w", err)
	}

	return buf.String(), nil
}

// RenderMap procesa un MAP de strings, p.ej. el body de una operation:
//
// body:
//
//	status: "{{ .status }}"
//	productId: "{{ .productId }}"
//
// Produce un map[string]string renderizado.
func RenderMap(body map[string]string, params map[string]string) (map[string]string, error) {
	if body == nil {
		return map[string]string{}, nil
	}

	out := make(map[string]string)

	for k, v := range body {
		t, err := template.New("body").
			Option("missingkey=default").
			Parse(v)
		if err != nil {
			return nil, fmt.Errorf("parse body template field=%s: %w", k, err)
		}

		var buf bytes.Buffer
		if err := t.Execute(&buf, params); err != nil {
			return nil, fmt.Errorf("execute body template field=%s: %w", k, err)
		}

		out[k] = buf.String()
	}

	return out, nil
}
