package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/swaggest/jsonschema-go"
)

// Prompt is a named user prompt. Text uses Go's text/template syntax for
// placeholders; the other fields override request parameters when set.
type Prompt struct {
	Text        string   `json:"prompt" mapstructure:"prompt" yaml:"prompt"`
	Model       string   `json:"model,omitempty" mapstructure:"model" yaml:"model,omitempty"`
	Temperature *float32 `json:"temperature,omitempty" mapstructure:"temperature" yaml:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty" mapstructure:"max_tokens" yaml:"max_tokens,omitempty"`
}

// Render fills the template with the provided inputs. A prompt rendered
// without inputs is returned verbatim.
func (p Prompt) Render(inputs map[string]any) (string, error) {
	if len(inputs) == 0 {
		return p.Text, nil
	}
	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(p.Text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, inputs); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderWithJSONSchemaFor fills the template with the provided inputs
// and adds a JSON schema representation of the provided struct 's' under the key "JSONSchema".
func (p Prompt) RenderWithJSONSchemaFor(inputs map[string]any, s any) (string, error) {
	reflector := jsonschema.Reflector{}

	schema, err := reflector.Reflect(s)
	if err != nil {
		return "", err
	}

	j, err := json.MarshalIndent(schema, "", " ")
	if err != nil {
		return "", err
	}

	if inputs == nil {
		inputs = map[string]any{}
	}
	inputs["JSONSchema"] = string(j)
	return p.Render(inputs)
}

// Apply copies the prompt's overrides onto req.
func (p Prompt) Apply(req *ChatRequest) {
	if p.Model != "" {
		req.Model = p.Model
	}
	if p.Temperature != nil {
		req.Temperature = p.Temperature
	}
	if p.MaxTokens != nil {
		req.MaxTokens = p.MaxTokens
	}
}

// PromptCatalog maps prompt names to prompts.
type PromptCatalog map[string]Prompt

// Lookup returns the named prompt.
func (c PromptCatalog) Lookup(name string) (Prompt, bool) {
	p, ok := c[name]
	return p, ok
}

// Validate parses every template once so broken prompts fail at startup.
func (c PromptCatalog) Validate() error {
	for name, p := range c {
		if p.Text == "" {
			return fmt.Errorf("prompt %q: empty text", name)
		}
		if _, err := template.New(name).Parse(p.Text); err != nil {
			return fmt.Errorf("prompt %q: %w", name, err)
		}
	}
	return nil
}
