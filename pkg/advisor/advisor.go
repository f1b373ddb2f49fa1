// Package advisor turns aggregation results into recommendations and
// narrative text. Rules and numbers are deterministic; only the prose is
// delegated to the text generator, with a template behind every call.
package advisor

import (
	"context"
	"fmt"

	"costlens/pkg/anomaly"
	"costlens/pkg/llm"
)

const (
	consultantPrompt = "You are a FinOps consultant. Be objective and practical."
	analystPrompt    = `You are an experienced FinOps analyst. Write executive insights about cloud costs.
Be objective, use managerial language and highlight what matters for decisions.
Structure the answer as a summary paragraph, bullet points with highlights and a "Risks and opportunities" section.`
	explainPrompt = "You explain cloud cost anomalies to engineers in two sentences."
)

// Advisor produces recommendations and narratives
type Advisor struct {
	gen llm.Generator
}

// New returns an advisor. gen may be nil, in which case templates are used.
func New(gen llm.Generator) *Advisor {
	return &Advisor{gen: gen}
}

func (a *Advisor) generate(ctx context.Context, system, user, fallback string) string {
	return llm.GenerateOr(ctx, a.gen, system, user, fallback)
}

// Explain implements anomaly.Explainer. It fails when no generator is
// available so the detector falls back to its own template.
func (a *Advisor) Explain(ctx context.Context, c anomaly.Context) (string, error) {
	if a.gen == nil || !a.gen.Enabled() {
		return "", llm.ErrDisabled
	}
	user := fmt.Sprintf(`Service %s cost $%.2f in %s.
Its monthly mean is $%.2f with standard deviation $%.2f, a deviation of %+.1f%%.
Explain what may have caused it and what to check first.`,
		c.Service, c.Cost, c.Month, c.Mean, c.Std, c.DeviationPct)
	return a.gen.Generate(ctx, explainPrompt, user)
}
