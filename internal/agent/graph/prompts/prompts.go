package prompts

import (
	"context"
	"embed"
	"fmt"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed template/*.txt
var templates embed.FS

// Name identifies a decision prompt template.
type Name string

const (
	Intent         Name = "intent"
	NarrowQuery    Name = "narrow_query"
	PresentOptions Name = "present_options"
	Disambiguate   Name = "disambiguate"
)

// Render formats the system template and the customer message through the
// Eino prompt component so prompt callbacks fire. vars must carry "Message".
func Render(ctx context.Context, name Name, vars map[string]any) ([]*schema.Message, error) {
	raw, err := templates.ReadFile("template/" + string(name) + ".txt")
	if err != nil {
		return nil, fmt.Errorf("unknown prompt %q: %w", name, err)
	}
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(string(raw)),
		schema.UserMessage("{{.Message}}"),
	)
	ctx = callbacks.ReuseHandlers(ctx, &callbacks.RunInfo{Name: string(name), Type: "Template", Component: components.ComponentOfPrompt})
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("%s prompt render: %w", name, err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return nil, fmt.Errorf("%s prompt render: empty result", name)
	}
	return msgs, nil
}
