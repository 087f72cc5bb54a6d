package prompt

import (
	"context"
	"sort"
	"strings"

	"github.com/mhalter/coachflow/ai/llm"
	"github.com/mhalter/coachflow/ai/mode"
)

// Assembler layers persona, mode instructions, and context facts into the
// system message.
type Assembler struct {
	registry *Registry
}

// NewAssembler creates a prompt assembler over a template registry.
func NewAssembler(registry *Registry) *Assembler {
	return &Assembler{registry: registry}
}

// SystemMessage builds the system message in layering order: base persona,
// mode banner plus instruction block, a context block enumerating each
// fact, then a final pass replacing any remaining {{key}} placeholders with
// context values. Placeholders without a matching context key are left
// untouched.
func (a *Assembler) SystemMessage(ctx context.Context, md mode.Mode, contextFacts map[string]string) llm.Message {
	var b strings.Builder

	b.WriteString(a.registry.Get(ctx, KeyPersona))
	b.WriteString("\n\n")

	b.WriteString("== MODE: " + md.String() + " ==\n")
	b.WriteString(a.registry.Get(ctx, ModeKey(md)))

	if len(contextFacts) > 0 {
		b.WriteString("\n\nContext:\n")
		keys := make([]string, 0, len(contextFacts))
		for k := range contextFacts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString("- " + k + ": " + contextFacts[k] + "\n")
		}
	}

	return llm.SystemPrompt(substitutePlaceholders(b.String(), contextFacts))
}

// UserMessage builds the user message, prefixing an attachment summary line
// when one is present.
func (a *Assembler) UserMessage(text, attachmentInfo string) llm.Message {
	if attachmentInfo != "" {
		return llm.UserMessage("[attachment: " + attachmentInfo + "]\n" + text)
	}
	return llm.UserMessage(text)
}

// substitutePlaceholders replaces {{key}} occurrences with context values.
// Unknown keys stay in place; they never cause an error.
func substitutePlaceholders(text string, facts map[string]string) string {
	if len(facts) == 0 {
		return text
	}
	pairs := make([]string, 0, len(facts)*2)
	for k, v := range facts {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
