package restore

import "context"

// Plan is a restore decision together with the records it was computed from.
type Plan struct {
	Inputs   Inputs
	Decision Decision
}

// Planner gathers inputs and resolves them. Nothing is cached between calls.
type Planner struct {
	builder  *InputBuilder
	resolver *Resolver
}

// NewPlanner creates a Planner.
func NewPlanner(builder *InputBuilder, resolver *Resolver) *Planner {
	return &Planner{builder: builder, resolver: resolver}
}

// Plan resolves the restore decision for q.
func (p *Planner) Plan(ctx context.Context, q Query) (Plan, error) {
	inputs, err := p.builder.Build(ctx, q)
	if err != nil {
		return Plan{}, err
	}

	decision, err := p.resolver.Resolve(ctx, inputs.Site, inputs.Servers, q.CallerID)
	if err != nil {
		return Plan{}, err
	}

	return Plan{Inputs: inputs, Decision: decision}, nil
}
